package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/amqp"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
	closed bool
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	got *ledger.Partition
	err error
}

func (w *fakeWriter) WriteSnapshot(_ context.Context, p *ledger.Partition, _ ledger.Period) error {
	w.got = p
	return w.err
}

func newService(t *testing.T) (*LedgerService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub, nil)
	require.NoError(t, svc.Init(context.Background()))
	return svc, store, pub
}

func TestInitTwice(t *testing.T) {
	svc, _, _ := newService(t)
	err := svc.Init(context.Background())
	assert.ErrorIs(t, err, storage.ErrAlreadyInitialized)
}

func TestExecuteSavesAndPublishes(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(t)

	err := svc.Execute(ctx, "deposit", func(p *ledger.Partition) error {
		_, err := p.Deposit(100, false)
		return err
	})
	require.NoError(t, err)

	p, err := svc.Read(ctx)
	require.NoError(t, err)
	free, _ := p.Balance(ledger.FreeBox)
	assert.EqualValues(t, 100, free)
	assert.Equal(t, 1, store.Saves())

	require.Len(t, pub.events, 1)
	assert.Equal(t, "deposit", pub.events[0].Operation)
	assert.EqualValues(t, 100, pub.events[0].Total)
	assert.Empty(t, pub.events[0].Error)
}

func TestExecuteFailureDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(t)

	err := svc.Execute(ctx, "new-box", func(p *ledger.Partition) error {
		if err := p.NewBox("a"); err != nil {
			return err
		}
		return p.Transfer("a", ledger.FreeBox, 10)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	p, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.False(t, p.Has("a"))
	assert.Zero(t, store.Saves())
	assert.Empty(t, pub.events)
}

func TestExecuteAppliedErrorIsSaved(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(t)

	require.NoError(t, svc.Execute(ctx, "set-recurring", func(p *ledger.Partition) error {
		if err := p.NewBox("rent"); err != nil {
			return err
		}
		return p.SetRecurring("rent", 500, 0)
	}))

	err := svc.Execute(ctx, "deposit", func(p *ledger.Partition) error {
		_, err := p.Deposit(200, true)
		return Applied(err)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	var applied *appliedError
	assert.False(t, errors.As(err, &applied), "Execute should return the unwrapped error")

	p, err := svc.Read(ctx)
	require.NoError(t, err)
	rent, _ := p.Balance("rent")
	assert.EqualValues(t, 200, rent)
	assert.Equal(t, 2, store.Saves())
	require.Len(t, pub.events, 2)
	assert.NotEmpty(t, pub.events[1].Error)
}

func TestExecuteLogsShortfall(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelWarn, Format: "json", Output: &buf})
	svc := NewLedgerService(memory.New(), nil, logger)
	require.NoError(t, svc.Init(ctx))

	require.NoError(t, svc.Execute(ctx, "set-recurring", func(p *ledger.Partition) error {
		if err := p.NewBox("rent"); err != nil {
			return err
		}
		return p.SetRecurring("rent", 500, 0)
	}))
	err := svc.Execute(ctx, "deposit", func(p *ledger.Partition) error {
		_, err := p.Deposit(200, true)
		return Applied(err)
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, log.ComponentLedger, rec[log.FieldComponent])
	assert.Equal(t, "deposit", rec[log.FieldOperation])
	assert.Equal(t, log.ErrorTypeFunds, rec[log.FieldErrorType])
	assert.Equal(t, ledger.FreeBox, rec[log.FieldBox])
	assert.EqualValues(t, 300, rec[log.FieldShortfall])
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ledger.FundsError{Box: "a", Available: 1, Required: 2}, log.ErrorTypeFunds},
		{ledger.ErrUnknownBox, log.ErrorTypeNotFound},
		{storage.ErrNotInitialized, log.ErrorTypeNotFound},
		{ledger.ErrDuplicateBox, log.ErrorTypeConflict},
		{ledger.ErrBadBoxName, log.ErrorTypeValidation},
		{errors.New("disk on fire"), log.ErrorTypeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorType(tt.err), "errorType(%v)", tt.err)
	}
}

func TestAppliedNil(t *testing.T) {
	assert.NoError(t, Applied(nil))
}

func TestExecuteNotInitialized(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil, nil)
	err := svc.Execute(context.Background(), "deposit", func(*ledger.Partition) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotInitialized)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newService(t)
	pub.err = errors.New("broker down")

	err := svc.Execute(ctx, "new-box", func(p *ledger.Partition) error { return p.NewBox("x") })
	require.NoError(t, err)
	assert.Equal(t, 1, store.Saves())
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub, nil)

	snap := ledger.Snapshot{
		Partition: map[string]ledger.BoxSnapshot{"free": {Amount: 10}, "car": {Amount: 5}},
		Goals:     map[string]ledger.GoalSnapshot{"car": {Goal: 50, Due: "2027-01"}},
	}
	require.NoError(t, svc.Import(ctx, snap))
	p, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.True(t, p.Has("car"))
	assert.True(t, p.Has(ledger.CreditSpentBox))

	// Importing over an existing ledger replaces it.
	snap.Partition = map[string]ledger.BoxSnapshot{"free": {Amount: 1}}
	snap.Goals = nil
	require.NoError(t, svc.Import(ctx, snap))
	p, err = svc.Read(ctx)
	require.NoError(t, err)
	assert.False(t, p.Has("car"))

	bad := ledger.Snapshot{Goals: map[string]ledger.GoalSnapshot{"ghost": {Goal: 1, Due: "2027-01"}}}
	assert.ErrorIs(t, svc.Import(ctx, bad), ledger.ErrUnknownBox)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	w := &fakeWriter{}

	require.NoError(t, svc.Export(ctx, w, ledger.Period{Year: 2026, Month: 1}))
	require.NotNil(t, w.got)
	assert.True(t, w.got.Has(ledger.FreeBox))

	w.err = errors.New("quota exceeded")
	assert.ErrorContains(t, svc.Export(ctx, w, ledger.Period{Year: 2026, Month: 1}), "quota exceeded")
}

func TestClose(t *testing.T) {
	svc, _, pub := newService(t)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)

	noPublisher := NewLedgerService(memory.New(), nil, nil)
	assert.NoError(t, noPublisher.Close())
}
