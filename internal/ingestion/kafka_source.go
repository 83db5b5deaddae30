package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"dex-pricing-lab/internal/observability"
)

// KafkaSourceOptions contains configuration for creating a KafkaSource.
type KafkaSourceOptions struct {
	Brokers []string
	GroupID string
	Topic   string

	// Oldest starts a new consumer group at the oldest offset instead of the newest.
	Oldest bool

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// KafkaSource consumes envelopes from a Kafka topic through a consumer group.
// Ordering holds within a partition only, so the topic must have a single
// partition or be keyed so that one pool never spans partitions.
type KafkaSource struct {
	group   sarama.ConsumerGroup
	topic   string
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewKafkaSource connects a consumer group.
func NewKafkaSource(opts KafkaSourceOptions) (*KafkaSource, error) {
	if len(opts.Brokers) == 0 || opts.Topic == "" || opts.GroupID == "" {
		return nil, errors.New("kafka source: brokers, topic and group are required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	if opts.Oldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(opts.Brokers, opts.GroupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group: %w", err)
	}
	return newKafkaSource(group, opts), nil
}

func newKafkaSource(group sarama.ConsumerGroup, opts KafkaSourceOptions) *KafkaSource {
	return &KafkaSource{
		group:   group,
		topic:   opts.Topic,
		metrics: observability.OrIsolated(opts.Metrics),
		logger:  opts.Logger.With().Str("component", "kafka_source").Str("topic", opts.Topic).Logger(),
	}
}

// SplitBrokers parses a comma-separated broker list.
func SplitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, x := range parts {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

// Name returns "kafka:<topic>".
func (s *KafkaSource) Name() string {
	return "kafka:" + s.topic
}

// Run consumes until ctx is cancelled or h fails. The group session is
// re-entered after every rebalance.
func (s *KafkaSource) Run(ctx context.Context, h Handler) error {
	handler := &groupHandler{
		handle:  h,
		topic:   s.topic,
		metrics: s.metrics,
		logger:  s.logger,
	}

	go func() {
		for err := range s.group.Errors() {
			s.logger.Error().Err(err).Msg("consumer group error")
		}
	}()

	for {
		if err := s.group.Consume(ctx, []string{s.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			s.logger.Warn().Err(err).Msg("consume failed, retrying")
			select {
			case <-ctx.Done():
			case <-time.After(300 * time.Millisecond):
			}
		}
		if handler.err != nil {
			return handler.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (s *KafkaSource) Close() error {
	return s.group.Close()
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	handle  Handler
	topic   string
	metrics *observability.Metrics
	logger  zerolog.Logger

	err error // first handler failure, ends Run
}

func (g *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	parts := sess.Claims()[g.topic]
	g.logger.Info().Ints32("partitions", parts).Int32("generation", sess.GenerationID()).Msg("consumer group session started")
	if len(parts) > 1 {
		g.logger.Warn().Int("partitions", len(parts)).Msg("multiple partitions claimed; events are only ordered within a partition")
	}
	return nil
}

func (g *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim hands each message to the handler and marks it only once
// handled, so a failed event is redelivered after restart.
func (g *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			logger := g.logger.With().Int32("partition", msg.Partition).Int64("offset", msg.Offset).Logger()
			env, ok := parseOrSkip(msg.Value, g.metrics, logger)
			if ok {
				if err := g.handle(sess.Context(), env); err != nil {
					g.err = fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
					return g.err
				}
			}
			sess.MarkMessage(msg, "")
		}
	}
}
