package backend

import (
	"context"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"
	"budget/internal/storage/memory"
	"budget/internal/storage/textfile"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the configured store and wraps it in a ledger service.
// The AMQP publisher is optional: when the broker cannot be reached the
// backend works without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	ctx = log.NewContext(ctx, f.logger)
	if err := config.Validate(); err != nil {
		f.logger.Error("Invalid backend configuration",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeConfiguration).ToSlice()...)
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		f.logger.Error("Failed to open store",
			append(log.NewFields().WithError(err).WithErrorType(log.ErrorTypeDatabase).ToSlice(),
				log.FieldBackend, config.Type.String())...)
		return nil, err
	}

	var publisher services.EventPublisher
	if client := f.createPublisher(ctx, config); client != nil {
		publisher = client
	}

	svc := services.NewLedgerService(store, publisher, f.logger)
	f.logger.Debug("Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Store:   store,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case TextBackend:
		return textfile.New(config.DBDir), nil
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createPublisher(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(ctx, amqp.Config{
		URL:            config.AMQPURL,
		Exchange:       config.AMQPExchange,
		Queue:          config.AMQPQueue,
		PublishTimeout: config.AMQPPublishTimeout,
		DialAttempts:   config.AMQPDialAttempts,
	})
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
		return nil
	}
	f.logger.Debug("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue,
		"dial_attempts", config.AMQPDialAttempts)
	return client
}
