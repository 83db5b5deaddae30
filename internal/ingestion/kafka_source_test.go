package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-pricing-lab/internal/observability"
)

// fakeSession records marked offsets. Unused methods panic via the nil embed.
type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) Claims() map[string][]int32 { return map[string][]int32{"pool-events": {0}} }

func (s *fakeSession) GenerationID() int32 { return 1 }

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func newClaim(values ...[]byte) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(values))
	for i, v := range values {
		ch <- &sarama.ConsumerMessage{Topic: "pool-events", Partition: 0, Offset: int64(i), Value: v}
	}
	close(ch)
	return &fakeClaim{ch: ch}
}

func TestGroupHandler_MarksAfterHandling(t *testing.T) {
	var got []*Envelope
	h := &groupHandler{
		handle:  collect(&got),
		topic:   "pool-events",
		metrics: observability.NewIsolatedMetrics(),
		logger:  zerolog.Nop(),
	}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.Setup(sess))
	require.NoError(t, h.ConsumeClaim(sess, newClaim(syncLine(t, 1, 0), []byte("garbage"), syncLine(t, 2, 0))))

	assert.Len(t, got, 2)
	// Malformed messages are acknowledged so they are not redelivered.
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
}

func TestGroupHandler_FailureLeavesMessageUnmarked(t *testing.T) {
	boom := errors.New("boom")
	h := &groupHandler{
		handle:  func(context.Context, *Envelope) error { return boom },
		topic:   "pool-events",
		metrics: observability.NewIsolatedMetrics(),
		logger:  zerolog.Nop(),
	}
	sess := &fakeSession{ctx: context.Background()}

	err := h.ConsumeClaim(sess, newClaim(syncLine(t, 1, 0), syncLine(t, 2, 0)))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, sess.marked)
	require.ErrorIs(t, h.err, boom)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, SplitBrokers(""))
}

func TestNewKafkaSource_RequiresConfig(t *testing.T) {
	_, err := NewKafkaSource(KafkaSourceOptions{Topic: "t"})
	require.Error(t, err)
}
