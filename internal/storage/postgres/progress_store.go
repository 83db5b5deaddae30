package postgres

import (
	"context"
	"fmt"
	"time"

	"dex-pricing-lab/internal/storage"
)

// ProgressStore implements storage.ProgressStore using PostgreSQL.
type ProgressStore struct {
	db querier
}

// NewProgressStore creates a new PostgreSQL progress store.
func NewProgressStore(pool *Pool) *ProgressStore {
	return &ProgressStore{db: pool}
}

// Compile-time interface check.
var _ storage.ProgressStore = (*ProgressStore)(nil)

// GetLastProcessed returns the checkpoint for a source.
func (s *ProgressStore) GetLastProcessed(ctx context.Context, source string) (_ *storage.Progress, err error) {
	defer s.db.observe("get_progress", time.Now(), &err)

	var progress storage.Progress
	err = s.db.QueryRow(ctx, `
		SELECT block, log_index, tx_hash
		FROM ingestion_progress
		WHERE source = $1
	`, source).Scan(&progress.Block, &progress.LogIndex, &progress.TxHash)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	return &progress, nil
}

// SetLastProcessed saves the checkpoint for a source.
// Uses upsert to handle initial insert and subsequent updates.
func (s *ProgressStore) SetLastProcessed(ctx context.Context, source string, progress *storage.Progress) (err error) {
	if progress == nil || source == "" {
		return storage.ErrInvalidInput
	}
	defer s.db.observe("set_progress", time.Now(), &err)

	_, err = s.db.Exec(ctx, `
		INSERT INTO ingestion_progress (source, block, log_index, tx_hash, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (source) DO UPDATE
		SET block = EXCLUDED.block,
		    log_index = EXCLUDED.log_index,
		    tx_hash = EXCLUDED.tx_hash,
		    updated_at = NOW()
	`, source, progress.Block, progress.LogIndex, progress.TxHash)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}
