// Package memory is a process-local storage.Store.
package memory

import (
	"context"
	"sync"

	"budget/internal/ledger"
	"budget/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	p     *ledger.Partition
	saves int
}

var _ storage.Store = (*Store)(nil)

// New returns an uninitialized store.
func New() *Store { return &Store{} }

// NewWith returns a store already holding a copy of p.
func NewWith(p *ledger.Partition) *Store {
	return &Store{p: p.Clone()}
}

func (s *Store) Create(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p != nil {
		return storage.ErrAlreadyInitialized
	}
	s.p = ledger.New()
	return nil
}

// Load returns a copy; changes to it are not visible until saved.
func (s *Store) Load(_ context.Context) (*ledger.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return nil, storage.ErrNotInitialized
	}
	return s.p.Clone(), nil
}

func (s *Store) Save(_ context.Context, p *ledger.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return storage.ErrNotInitialized
	}
	s.p = p.Clone()
	s.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Store) Close() error { return nil }
