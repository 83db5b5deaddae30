// Package ingestion feeds pool events from a stream into the processor.
package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/observability"
	"dex-pricing-lab/internal/storage"
)

// EventProcessor applies decoded events. *processor.Processor implements it.
type EventProcessor interface {
	Process(ctx context.Context, event any) error
	Tolerate(err error) error
}

// Runner decodes envelopes from a Source and applies them in delivery order.
//
// Events at or before the stored checkpoint are skipped, so a restarted
// stream does not re-apply ledger changes. Events that arrive behind one
// already processed in this run are counted and logged but still applied;
// ordering is the stream's responsibility.
type Runner struct {
	source    Source
	decoder   *Decoder
	processor EventProcessor
	progress  storage.ProgressStore // optional
	metrics   *observability.Metrics
	logger    zerolog.Logger

	checkpoint *storage.Progress // resume point loaded at start
	last       *domain.EventMeta // last event applied in this run
	stats      RunnerStats
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source    Source
	Decoder   *Decoder
	Processor EventProcessor
	Progress  storage.ProgressStore
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

// RunnerStats counts what a run did with each envelope.
type RunnerStats struct {
	Applied    int64
	Skipped    int64 // behind checkpoint, undecodable or tolerated missing entities
	OutOfOrder int64
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:    opts.Source,
		decoder:   opts.Decoder,
		processor: opts.Processor,
		progress:  opts.Progress,
		metrics:   observability.OrIsolated(opts.Metrics),
		logger:    opts.Logger.With().Str("component", "runner").Str("source", opts.Source.Name()).Logger(),
	}
}

// Run loads the checkpoint and consumes the source until it ends or fails.
func (r *Runner) Run(ctx context.Context) error {
	if r.progress != nil {
		cp, err := r.progress.GetLastProcessed(ctx, r.source.Name())
		switch {
		case err == nil:
			r.checkpoint = cp
			r.logger.Info().
				Int64("block", cp.Block).
				Int64("log_index", cp.LogIndex).
				Msg("resuming after checkpoint")
		case errors.Is(err, storage.ErrNotFound):
			r.logger.Info().Msg("no checkpoint, starting from stream head")
		default:
			return fmt.Errorf("load checkpoint: %w", err)
		}
	}

	err := r.source.Run(ctx, r.Handle)
	r.logger.Info().
		Int64("applied", r.stats.Applied).
		Int64("skipped", r.stats.Skipped).
		Int64("out_of_order", r.stats.OutOfOrder).
		Msg("runner stopped")
	return err
}

// Stats returns counters for the current run.
func (r *Runner) Stats() RunnerStats {
	return r.stats
}

// Handle decodes and applies one envelope. It is the Handler passed to the source.
func (r *Runner) Handle(ctx context.Context, env *Envelope) error {
	meta := env.Meta()

	if r.checkpoint != nil && comparePosition(meta.Block, meta.LogIndex, r.checkpoint.Block, r.checkpoint.LogIndex) <= 0 {
		r.stats.Skipped++
		r.metrics.EventsSkipped.WithLabelValues("checkpoint").Inc()
		return nil
	}

	if r.last != nil && !r.last.Before(meta) {
		r.stats.OutOfOrder++
		r.metrics.OutOfOrderEvents.Inc()
		r.logger.Warn().
			Int64("block", meta.Block).
			Int64("log_index", meta.LogIndex).
			Int64("last_block", r.last.Block).
			Int64("last_log_index", r.last.LogIndex).
			Str("tx_hash", meta.TxHash).
			Msg("event out of order, applying anyway")
	}

	event, err := r.decoder.Decode(ctx, env)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			r.stats.Skipped++
			r.metrics.EventsSkipped.WithLabelValues("malformed").Inc()
			r.logger.Warn().Err(err).Str("tx_hash", meta.TxHash).Msg("skipping undecodable event")
			return nil
		}
		if err := r.processor.Tolerate(err); err != nil {
			return fmt.Errorf("decode %s %s: %w", env.Type, domain.TransactionID(meta.TxHash, meta.LogIndex), err)
		}
		r.stats.Skipped++
		r.metrics.EventsSkipped.WithLabelValues("missing_entity").Inc()
		return nil
	}

	if err := r.processor.Process(ctx, event); err != nil {
		return err
	}
	r.stats.Applied++

	if r.last == nil || r.last.Before(meta) {
		r.last = &meta
	}
	if r.progress != nil {
		if err := r.progress.SetLastProcessed(ctx, r.source.Name(), &storage.Progress{
			Block:    r.last.Block,
			LogIndex: r.last.LogIndex,
			TxHash:   r.last.TxHash,
		}); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	return nil
}
