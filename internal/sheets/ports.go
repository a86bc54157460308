package sheets

import (
	"context"

	"financequest/internal/core"
)

// Ports for the cloud document store, consumed by the sync worker. The
// google client satisfies them with the same methods it uses to act as a
// full backend in sheets mode.
type (
	TransactionReplicator interface {
		SaveTransaction(ctx context.Context, username string, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, username, id string) error
	}

	GoalReplicator interface {
		SaveGoal(ctx context.Context, username string, g core.Goal) error
		DeleteGoal(ctx context.Context, username, id string) error
	}

	// Replicator is the full surface the sync worker drains rows into.
	Replicator interface {
		TransactionReplicator
		GoalReplicator
	}
)
