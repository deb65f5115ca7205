// Package storage persists a ledger.Partition.
//
// A Store holds exactly one ledger. Implementations live in this package
// (SQLite) and in the textfile and memory subpackages.
package storage

import (
	"context"
	"errors"

	"budget/internal/ledger"
	"budget/internal/log"
)

var (
	ErrNotInitialized     = errors.New("database not initialized, run create-db first")
	ErrAlreadyInitialized = errors.New("database already initialized")
)

// Store loads and saves the whole ledger.
type Store interface {
	// Create initializes an empty ledger. It fails with ErrAlreadyInitialized
	// when one exists.
	Create(ctx context.Context) error
	// Load returns the stored ledger, or ErrNotInitialized.
	Load(ctx context.Context) (*ledger.Partition, error)
	// Save replaces the stored ledger. Readers observe either the old or the
	// new state, never a mix.
	Save(ctx context.Context, p *ledger.Partition) error
	Close() error
}

// Logger returns the logger carried by ctx, tagged as storage.
func Logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}
