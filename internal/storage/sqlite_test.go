package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/ledger"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "budget.sqlite")
	s, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, path := newTestStore(t)
	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, s.Save(ctx, ledger.New()), ErrNotInitialized)

	require.NoError(t, s.Create(ctx))
	require.ErrorIs(t, s.Create(ctx), ErrAlreadyInitialized)

	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.New().Boxes(), p.Boxes())

	_, err = p.Deposit(1000, false)
	require.NoError(t, err)
	require.NoError(t, p.NewBox("zebra"))
	require.NoError(t, p.NewBox("apple"))
	require.NoError(t, p.AddToBalance("zebra", 300))
	require.NoError(t, p.SetTarget("zebra", 900, ledger.Period{Year: 2027, Month: 5}))
	require.NoError(t, p.SetRecurring("apple", 50, 200))
	require.NoError(t, p.NewInstalment("phone", ledger.FreeBox, 4, 25))
	require.NoError(t, p.Spend("zebra", 10, ledger.SpendCash))
	require.NoError(t, s.Save(ctx, p))

	// A fresh connection sees the same state, box order included.
	require.NoError(t, s.Close())
	s2, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.Boxes(), got.Boxes())
	assert.Equal(t, p.Totals(), got.Totals())
	g, ok := got.Goal("zebra")
	require.True(t, ok)
	assert.Equal(t, ledger.Goal{Target: 900, Due: ledger.Period{Year: 2027, Month: 5}}, g)
	r, ok := got.Recurring("phone")
	require.True(t, ok)
	assert.Equal(t, ledger.Recurring{Periodic: 25, Remaining: 75, Kind: ledger.Instalment}, r)
	r, ok = got.Recurring("apple")
	require.True(t, ok)
	assert.Equal(t, ledger.Allocation, r.Kind)

	// Saving a smaller ledger drops removed entries.
	got.RemoveTarget("zebra")
	got.RemoveRecurring("apple")
	require.NoError(t, s2.Save(ctx, got))
	again, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.GoalNames())
	assert.Equal(t, []string{"phone"}, again.RecurringNames())
}
