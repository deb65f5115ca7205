// Package services orchestrates ledger operations across the store and the
// event publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"budget/internal/amqp"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// EventPublisher announces ledger changes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService runs one operation at a time against the stored ledger:
// load, apply, save once, publish.
type LedgerService struct {
	store     storage.Store
	publisher EventPublisher
	logger    *log.Logger
}

// NewLedgerService creates the service. publisher may be nil, in which case
// no events are sent.
func NewLedgerService(store storage.Store, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

type appliedError struct{ err error }

func (e *appliedError) Error() string { return e.err.Error() }
func (e *appliedError) Unwrap() error { return e.err }

// Applied marks an operation error that still left the ledger in a state
// worth keeping, such as a rollover that could not fund every allocation.
// Execute saves the ledger and then returns err.
func Applied(err error) error {
	if err == nil {
		return nil
	}
	return &appliedError{err: err}
}

// Init creates an empty ledger.
func (s *LedgerService) Init(ctx context.Context) error {
	if err := s.store.Create(ctx); err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	return nil
}

// Read loads the ledger for read-only use.
func (s *LedgerService) Read(ctx context.Context) (*ledger.Partition, error) {
	p, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return p, nil
}

// Execute loads the ledger, runs fn on it and saves the result. An error from
// fn discards every change unless it was wrapped with Applied.
func (s *LedgerService) Execute(ctx context.Context, op string, fn func(*ledger.Partition) error) error {
	p, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	opErr := fn(p)
	var applied *appliedError
	if opErr != nil && !errors.As(opErr, &applied) {
		s.logger.DebugContext(ctx, "Operation rejected",
			log.NewFields().WithOperation(op).WithError(opErr).WithErrorType(errorType(opErr)).ToSlice()...)
		return opErr
	}
	if applied != nil {
		opErr = applied.err
		var funds *ledger.FundsError
		if errors.As(opErr, &funds) {
			s.logger.WarnContext(ctx, "Operation applied with a shortfall",
				append(log.NewFields().
					WithOperation(op).
					WithBox(funds.Box, funds.Required).
					WithErrorType(log.ErrorTypeFunds).ToSlice(),
					log.FieldShortfall, funds.Required-funds.Available)...)
		}
	}

	if err := s.store.Save(ctx, p); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Operation applied",
		log.FieldOperation, op,
		log.FieldTotal, p.Total(),
		log.FieldBoxes, len(p.Boxes()))

	s.publish(ctx, op, p, opErr)
	return opErr
}

// Import replaces the stored ledger with snap, creating the database first
// when needed.
func (s *LedgerService) Import(ctx context.Context, snap ledger.Snapshot) error {
	p, err := ledger.FromSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx); err != nil && !errors.Is(err, storage.ErrAlreadyInitialized) {
		return fmt.Errorf("create ledger: %w", err)
	}
	if err := s.store.Save(ctx, p); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	s.publish(ctx, "from-json", p, nil)
	return nil
}

// Export writes the stored ledger through w.
func (s *LedgerService) Export(ctx context.Context, w sheets.SnapshotWriter, now ledger.Period) error {
	p, err := s.Read(ctx)
	if err != nil {
		return err
	}
	if err := w.WriteSnapshot(ctx, p, now); err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	return nil
}

// publish never fails the operation; the ledger is already saved.
func (s *LedgerService) publish(ctx context.Context, op string, p *ledger.Partition, opErr error) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not configured, skipping ledger event", log.FieldOperation, op)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(op, p, opErr)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.NewFields().WithOperation(op).WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
	}
}

// errorType classifies an operation error for logging.
func errorType(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return log.ErrorTypeFunds
	case errors.Is(err, ledger.ErrUnknownBox), errors.Is(err, storage.ErrNotInitialized):
		return log.ErrorTypeNotFound
	case errors.Is(err, ledger.ErrDuplicateBox), errors.Is(err, storage.ErrAlreadyInitialized):
		return log.ErrorTypeConflict
	case errors.Is(err, ledger.ErrInvalidArgument):
		return log.ErrorTypeValidation
	default:
		return log.ErrorTypeInternal
	}
}

// Close closes the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
