package ingestion

import (
	"context"

	"github.com/rs/zerolog"

	"dex-pricing-lab/internal/observability"
)

// Handler receives parsed envelopes from a Source. Returning an error stops
// the source; the event is not acknowledged.
type Handler func(ctx context.Context, env *Envelope) error

// Source delivers envelopes in stream order until the context is cancelled,
// the stream ends, or the handler fails.
type Source interface {
	// Name identifies the source for checkpointing.
	Name() string

	// Run blocks while delivering envelopes to h.
	Run(ctx context.Context, h Handler) error
}

// parseOrSkip parses a raw message. Malformed messages are logged and counted
// so one bad record cannot stall a stream.
func parseOrSkip(raw []byte, metrics *observability.Metrics, logger zerolog.Logger) (*Envelope, bool) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		metrics.EventsSkipped.WithLabelValues("malformed").Inc()
		logger.Warn().Err(err).Int("bytes", len(raw)).Msg("skipping malformed envelope")
		return nil, false
	}
	return env, true
}
