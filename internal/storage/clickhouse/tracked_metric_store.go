package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

// decimalScale is the fractional scale of the Decimal(76, 30) columns.
const decimalScale = 30

// TrackedMetricStore implements storage.TrackedMetricStore using ClickHouse.
type TrackedMetricStore struct {
	conn    *Conn
	metrics *observability.Metrics
}

// NewTrackedMetricStore creates a new TrackedMetricStore. metrics may be nil.
func NewTrackedMetricStore(conn *Conn, metrics *observability.Metrics) *TrackedMetricStore {
	return &TrackedMetricStore{conn: conn, metrics: metrics}
}

// Compile-time interface check.
var _ storage.TrackedMetricStore = (*TrackedMetricStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (pool, tx_hash, log_index).
func (s *TrackedMetricStore) InsertBulk(ctx context.Context, points []*domain.TrackedMetricPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	defer s.observe("insert_tracked_metrics", time.Now(), &err)

	// MergeTree does not enforce keys, so check intra-batch and stored rows.
	type key struct {
		pool     string
		txHash   string
		logIndex int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Pool == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.Pool, p.TxHash, p.LogIndex}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.Pool, p.TxHash, p.LogIndex)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tracked_metrics (
			pool, timestamp, block, tx_hash, log_index, kind, tracked_usd, untracked_usd, eth_price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Pool, p.Timestamp, p.Block, p.TxHash, p.LogIndex, string(p.Kind),
			p.TrackedUSD.Round(decimalScale),
			p.UntrackedUSD.Round(decimalScale),
			p.EthPrice.Round(decimalScale),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

const selectTrackedMetrics = `
	SELECT pool, timestamp, block, tx_hash, log_index, kind, tracked_usd, untracked_usd, eth_price
	FROM tracked_metrics
`

// GetByPool retrieves all points for a pool, ordered by timestamp ASC.
func (s *TrackedMetricStore) GetByPool(ctx context.Context, pool string) (_ []*domain.TrackedMetricPoint, err error) {
	defer s.observe("get_tracked_metrics", time.Now(), &err)

	rows, err := s.conn.Query(ctx, selectTrackedMetrics+`
		WHERE pool = ?
		ORDER BY timestamp ASC, block ASC, log_index ASC
	`, pool)
	if err != nil {
		return nil, fmt.Errorf("query by pool: %w", err)
	}
	defer rows.Close()

	return scanTrackedMetrics(rows)
}

// GetByTimeRange retrieves points for a pool within [start, end] (inclusive).
func (s *TrackedMetricStore) GetByTimeRange(ctx context.Context, pool string, start, end int64) (_ []*domain.TrackedMetricPoint, err error) {
	defer s.observe("get_tracked_metrics_range", time.Now(), &err)

	rows, err := s.conn.Query(ctx, selectTrackedMetrics+`
		WHERE pool = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, block ASC, log_index ASC
	`, pool, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTrackedMetrics(rows)
}

// exists checks if a point with the given key exists.
func (s *TrackedMetricStore) exists(ctx context.Context, pool, txHash string, logIndex int64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM tracked_metrics
		WHERE pool = ? AND tx_hash = ? AND log_index = ?
	`, pool, txHash, logIndex).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *TrackedMetricStore) observe(operation string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *errp)
}

// scanTrackedMetrics scans multiple rows.
func scanTrackedMetrics(rows chRows) ([]*domain.TrackedMetricPoint, error) {
	var points []*domain.TrackedMetricPoint

	for rows.Next() {
		var (
			p                            domain.TrackedMetricPoint
			kind                         string
			tracked, untracked, ethPrice decimal.Decimal
		)

		err := rows.Scan(
			&p.Pool, &p.Timestamp, &p.Block, &p.TxHash, &p.LogIndex, &kind,
			&tracked, &untracked, &ethPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracked metric row: %w", err)
		}

		p.Kind = domain.EventType(kind)
		p.TrackedUSD = tracked
		p.UntrackedUSD = untracked
		p.EthPrice = ethPrice
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked metric rows: %w", err)
	}

	return points, nil
}
