package sheets

import (
	"context"

	"budget/internal/ledger"
)

// Ports for outbound adapters.
type (
	// SnapshotWriter publishes the current state of a ledger somewhere
	// outside the local store, replacing whatever was written before.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, p *ledger.Partition, now ledger.Period) error
	}
)
