package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dex-pricing-lab/internal/observability"
)

// WSSourceConfig configures WebSocket source behavior.
type WSSourceConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSSourceConfig {
	return WSSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// subscribeRequest is sent after every (re)connect when pools are configured.
type subscribeRequest struct {
	Op    string   `json:"op"`
	Pools []string `json:"pools"`
}

// WSSourceOptions contains configuration for creating a WSSource.
type WSSourceOptions struct {
	Endpoint string
	Pools    []string // optional relay-side filter
	Config   *WSSourceConfig

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// WSSource reads envelopes from an event relay over WebSocket, one envelope
// per text frame. Dropped connections are re-dialed with exponential backoff.
type WSSource struct {
	endpoint string
	pools    []string
	config   WSSourceConfig
	dialer   websocket.Dialer
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewWSSource creates a WebSocket source. It does not dial until Run.
func NewWSSource(opts WSSourceOptions) *WSSource {
	cfg := DefaultWSConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	return &WSSource{
		endpoint: opts.Endpoint,
		pools:    opts.Pools,
		config:   cfg,
		dialer:   websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		metrics:  observability.OrIsolated(opts.Metrics),
		logger:   opts.Logger.With().Str("component", "ws_source").Str("endpoint", opts.Endpoint).Logger(),
	}
}

// Name returns "ws:<endpoint>".
func (s *WSSource) Name() string {
	return "ws:" + s.endpoint
}

// errHandler marks a failure returned by the handler, which is not retried.
type errHandler struct{ err error }

func (e *errHandler) Error() string { return e.err.Error() }
func (e *errHandler) Unwrap() error { return e.err }

// Run reads until ctx is cancelled or h fails. Connection failures are
// retried forever.
func (s *WSSource) Run(ctx context.Context, h Handler) error {
	delay := s.config.ReconnectDelay

	for {
		received, err := s.session(ctx, h)
		var he *errHandler
		if errors.As(err, &he) {
			return he.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Reset delay once a connection delivered data.
		if received > 0 {
			delay = s.config.ReconnectDelay
		}
		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("relay connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.config.MaxReconnectDelay {
			delay = s.config.MaxReconnectDelay
		}
	}
}

// session serves one connection and returns the number of frames read.
func (s *WSSource) session(ctx context.Context, h Handler) (int, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	if len(s.pools) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(subscribeRequest{Op: "subscribe", Pools: s.pools}); err != nil {
			return 0, fmt.Errorf("write subscribe: %w", err)
		}
	}
	s.logger.Info().Int("pools", len(s.pools)).Msg("connected to relay")

	received := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("read: %w", err)
		}
		received++
		if msgType != websocket.TextMessage {
			continue
		}
		env, ok := parseOrSkip(message, s.metrics, s.logger)
		if !ok {
			continue
		}
		if err := h(ctx, env); err != nil {
			return received, &errHandler{err: err}
		}
	}
}
