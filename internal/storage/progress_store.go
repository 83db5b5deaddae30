package storage

import "context"

// Progress is the position of the last fully processed event.
type Progress struct {
	Block    int64  // block number
	LogIndex int64  // log index within the block
	TxHash   string // transaction of the last event
}

// ProgressStore persists the ingestion checkpoint.
// This enables resumption after restarts without re-applying ledger changes.
type ProgressStore interface {
	// GetLastProcessed returns the checkpoint for a source.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context, source string) (*Progress, error)

	// SetLastProcessed saves the checkpoint for a source.
	SetLastProcessed(ctx context.Context, source string, progress *Progress) error
}
