// Package processor applies decoded pool events to the entity stores.
// Flow: sync → prices, swap → volume, mint/burn → liquidity ledger
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/ledger"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/pricing"
	"dex-pricing-lab/internal/storage"
	"dex-pricing-lab/internal/whitelist"
)

// MissingEntityPolicy selects how a missing token, pool or bundle is handled.
type MissingEntityPolicy string

const (
	// PolicyFail aborts the event with an EntityNotFoundError.
	PolicyFail MissingEntityPolicy = "fail"

	// PolicySkip logs and counts the miss, then continues with stale or zero values.
	PolicySkip MissingEntityPolicy = "skip"
)

// IsValid checks if the policy is a known value.
func (p MissingEntityPolicy) IsValid() bool {
	return p == PolicyFail || p == PolicySkip
}

// Processor applies events one at a time. It holds no locks and must not be
// called concurrently.
type Processor struct {
	// Stores
	tokens       storage.TokenStore
	pools        storage.PoolStore
	bundle       storage.BundleStore
	transactions storage.TransactionStore
	trackedSink  storage.TrackedMetricStore // optional
	tx           storage.Transactor         // optional

	// Pricing and ledger
	oracle     *pricing.Oracle
	resolver   *pricing.Resolver
	attributor *pricing.Attributor
	tracker    *ledger.Tracker
	registry   *whitelist.Registry // optional

	policy  MissingEntityPolicy
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// Options for creating Processor.
type Options struct {
	// Required stores. Stores.Metrics may be nil to disable the metric sink.
	// Without Stores.Tx a failed event may leave partial writes behind.
	Stores storage.Set

	// Required collaborators
	Oracle     *pricing.Oracle
	Resolver   *pricing.Resolver
	Attributor *pricing.Attributor
	Tracker    *ledger.Tracker

	// Registry receives exclude control events. Optional.
	Registry *whitelist.Registry

	// Options
	Policy  MissingEntityPolicy // defaults to PolicyFail
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// New creates a new Processor.
func New(opts Options) *Processor {
	policy := opts.Policy
	if policy == "" {
		policy = PolicyFail
	}
	return &Processor{
		tokens:       opts.Stores.Tokens,
		pools:        opts.Stores.Pools,
		bundle:       opts.Stores.Bundle,
		transactions: opts.Stores.Transactions,
		trackedSink:  opts.Stores.Metrics,
		tx:           opts.Stores.Tx,
		oracle:       opts.Oracle,
		resolver:     opts.Resolver,
		attributor:   opts.Attributor,
		tracker:      opts.Tracker,
		registry:     opts.Registry,
		policy:       policy,
		metrics:      observability.OrIsolated(opts.Metrics),
		logger:       opts.Logger.With().Str("component", "processor").Logger(),
	}
}

// Process dispatches a decoded event to its handler and records metrics.
// event must be *domain.SyncEvent, *domain.SwapEvent, *domain.LiquidityEvent
// or *domain.ExcludeEvent.
func (p *Processor) Process(ctx context.Context, event any) error {
	start := time.Now()

	var (
		eventType domain.EventType
		meta      domain.EventMeta
		err       error
	)
	switch ev := event.(type) {
	case *domain.SyncEvent:
		eventType, meta = domain.EventTypeSync, ev.EventMeta
		err = p.HandleSync(ctx, ev)
	case *domain.SwapEvent:
		eventType, meta = domain.EventTypeSwap, ev.EventMeta
		err = p.HandleSwap(ctx, ev)
	case *domain.LiquidityEvent:
		eventType, meta = ev.Type, ev.EventMeta
		if ev.Type == domain.EventTypeMint {
			err = p.HandleMint(ctx, ev)
		} else {
			err = p.HandleBurn(ctx, ev)
		}
	case *domain.ExcludeEvent:
		eventType, meta = domain.EventTypeExclude, ev.EventMeta
		err = p.HandleExclude(ctx, ev)
	default:
		return fmt.Errorf("process: %w: unsupported event %T", storage.ErrInvalidInput, event)
	}

	if err != nil {
		p.metrics.RecordEventError(eventType.String(), errorType(err))
		return fmt.Errorf("%s %s: %w", eventType, domain.TransactionID(meta.TxHash, meta.LogIndex), err)
	}

	p.metrics.RecordEventProcessed(eventType.String(), time.Since(start).Seconds())
	p.metrics.LastProcessedBlock.Set(float64(meta.Block))
	p.metrics.LastSuccessfulEvent.Set(float64(meta.Timestamp))
	return nil
}

// HandleExclude adds the event's token to the registry's exclusion list.
// A token already excluded is left as is.
func (p *Processor) HandleExclude(_ context.Context, ev *domain.ExcludeEvent) error {
	if p.registry == nil {
		return fmt.Errorf("handle exclude: %w: no whitelist registry", storage.ErrInvalidInput)
	}
	if p.registry.IsBlacklisted(ev.Token) {
		p.logger.Debug().Str("token", ev.Token).Msg("token already excluded")
		return nil
	}
	p.registry.Exclude(ev.Token)
	p.logger.Info().
		Str("token", ev.Token).
		Int64("block", ev.Block).
		Msg("token excluded")
	return nil
}

// Tolerate applies the missing-entity policy to err. It returns nil when err
// is an EntityNotFoundError and the policy is PolicySkip, and err otherwise.
func (p *Processor) Tolerate(err error) error {
	nf, ok := pricing.AsEntityNotFound(err)
	if !ok {
		return err
	}
	p.metrics.RecordEntityNotFound(nf.Kind)
	if p.policy != PolicySkip {
		return err
	}
	p.logger.Warn().
		Str("kind", nf.Kind).
		Str("id", nf.ID).
		Msg("entity not found, continuing with stale values")
	return nil
}

// Policy returns the configured missing-entity policy.
func (p *Processor) Policy() MissingEntityPolicy {
	return p.policy
}

func errorType(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// loadPool returns nil without error when the pool is missing under PolicySkip.
func (p *Processor) loadPool(ctx context.Context, id string) (*domain.Pool, error) {
	pool, err := p.pools.Get(ctx, id)
	if err != nil {
		return nil, p.Tolerate(pricing.WrapNotFound(err, pricing.KindPool, id))
	}
	return pool, nil
}

// loadToken returns the token and whether it exists. Under PolicySkip a
// missing token is replaced by an unpriced placeholder that is never saved.
func (p *Processor) loadToken(ctx context.Context, id string) (*domain.Token, bool, error) {
	token, err := p.tokens.Get(ctx, id)
	if err == nil {
		return token, true, nil
	}
	if err := p.Tolerate(pricing.WrapNotFound(err, pricing.KindToken, id)); err != nil {
		return nil, false, err
	}
	return &domain.Token{ID: id}, false, nil
}

// loadBundle returns the bundle and whether it exists, with a zero-priced
// placeholder under PolicySkip.
func (p *Processor) loadBundle(ctx context.Context) (*domain.Bundle, bool, error) {
	b, err := p.bundle.Get(ctx)
	if err == nil {
		return b, true, nil
	}
	if err := p.Tolerate(pricing.WrapNotFound(err, pricing.KindBundle, domain.BundleID)); err != nil {
		return nil, false, err
	}
	return domain.NewBundle(), false, nil
}

// pairContext is the pool together with its tokens and the bundle.
type pairContext struct {
	pool         *domain.Pool
	token0       *domain.Token
	token1       *domain.Token
	bundle       *domain.Bundle
	token0Exists bool
	token1Exists bool
	bundleExists bool
}

// loadPair loads everything a handler needs. A nil result with nil error
// means the pool is missing and the event is skipped.
func (p *Processor) loadPair(ctx context.Context, poolID string) (*pairContext, error) {
	pool, err := p.loadPool(ctx, poolID)
	if err != nil || pool == nil {
		return nil, err
	}
	pc := &pairContext{pool: pool}
	if pc.token0, pc.token0Exists, err = p.loadToken(ctx, pool.Token0); err != nil {
		return nil, err
	}
	if pc.token1, pc.token1Exists, err = p.loadToken(ctx, pool.Token1); err != nil {
		return nil, err
	}
	if pc.bundle, pc.bundleExists, err = p.loadBundle(ctx); err != nil {
		return nil, err
	}
	return pc, nil
}

// saveTokens persists the tokens that exist in the store.
func (p *Processor) saveTokens(ctx context.Context, pc *pairContext) error {
	if pc.token0Exists {
		if err := p.tokens.Save(ctx, pc.token0); err != nil {
			return fmt.Errorf("save token %s: %w", pc.token0.ID, err)
		}
	}
	if pc.token1Exists {
		if err := p.tokens.Save(ctx, pc.token1); err != nil {
			return fmt.Errorf("save token %s: %w", pc.token1.ID, err)
		}
	}
	return nil
}

// atomically runs fn on a processor bound to one unit of work, so an event
// that fails midway leaves no partial writes and can be retried.
func (p *Processor) atomically(ctx context.Context, fn func(ctx context.Context, w *Processor) error) error {
	if p.tx == nil {
		return fn(ctx, p)
	}
	return p.tx.WithinTx(ctx, func(ctx context.Context, s storage.Set) error {
		return fn(ctx, p.bind(s))
	})
}

// bind returns a copy of p using the non-nil stores of s.
func (p *Processor) bind(s storage.Set) *Processor {
	w := *p
	w.tx = nil
	if s.Tokens != nil {
		w.tokens = s.Tokens
	}
	if s.Pools != nil {
		w.pools = s.Pools
	}
	if s.Bundle != nil {
		w.bundle = s.Bundle
	}
	if s.Transactions != nil {
		w.transactions = s.Transactions
	}
	if s.Pools != nil && p.oracle != nil {
		w.oracle = p.oracle.WithPools(w.pools)
	}
	if (s.Pools != nil || s.Tokens != nil) && p.resolver != nil {
		w.resolver = p.resolver.WithStores(w.pools, w.tokens)
	}
	if s.Ledgers != nil && p.tracker != nil {
		w.tracker = p.tracker.WithStore(s.Ledgers)
	}
	return &w
}

// applied reports whether the transaction record id exists, meaning the
// event was applied before.
func (p *Processor) applied(ctx context.Context, id string, kind domain.EventType, pool string) (bool, error) {
	exists, err := p.transactions.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check transaction %s: %w", id, err)
	}
	if exists {
		p.metrics.EventsSkipped.WithLabelValues("duplicate").Inc()
		p.logger.Warn().
			Str("id", id).
			Str("pool", pool).
			Str("kind", kind.String()).
			Msg("event already applied, skipping")
	}
	return exists, nil
}

// insertTransaction stores the transaction record. It is the last write of
// an event so the record only exists once everything else is saved.
func (p *Processor) insertTransaction(ctx context.Context, tx *domain.PoolTransaction) error {
	if err := p.transactions.Insert(ctx, tx); err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

// emitPoint appends a tracked metric point to the sink, when configured. It
// runs after the event committed; a failure is logged and counted only.
func (p *Processor) emitPoint(ctx context.Context, point *domain.TrackedMetricPoint) {
	if p.trackedSink == nil || point == nil {
		return
	}
	if err := p.trackedSink.InsertBulk(ctx, []*domain.TrackedMetricPoint{point}); err != nil {
		p.metrics.RecordEventError(point.Kind.String(), "metric_sink")
		p.logger.Error().
			Err(err).
			Str("pool", point.Pool).
			Str("tx_hash", point.TxHash).
			Int64("log_index", point.LogIndex).
			Msg("insert tracked metric failed")
	}
}

// pendingPool serves pool from memory ahead of the store, so prices computed
// during a sync see its new reserves before anything is saved.
type pendingPool struct {
	storage.PoolStore
	pool *domain.Pool
}

func (s pendingPool) Get(ctx context.Context, id string) (*domain.Pool, error) {
	if id == s.pool.ID {
		return s.pool.Clone(), nil
	}
	return s.PoolStore.Get(ctx, id)
}
