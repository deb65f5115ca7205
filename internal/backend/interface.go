package backend

import (
	"context"
	"time"

	"budget/internal/services"
	"budget/internal/storage"
)

// CleanupFunc releases the resources held by a backend
type CleanupFunc func() error

// BackendResult contains the ledger service and its cleanup function
type BackendResult struct {
	Store   storage.Store
	Service *services.LedgerService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Text file specific
	DBDir string

	// SQLite specific
	SQLiteDBPath string

	// Ledger events, optional for every backend
	AMQPURL            string
	AMQPExchange       string
	AMQPQueue          string
	AMQPPublishTimeout time.Duration
	AMQPDialAttempts   int
}

// BackendType represents the type of backend
type BackendType string

const (
	TextBackend   BackendType = "text"
	SQLiteBackend BackendType = "sqlite"
	// MemoryBackend keeps the ledger for the life of the process only. It is
	// meant for tests and cannot be selected through configuration.
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case TextBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
