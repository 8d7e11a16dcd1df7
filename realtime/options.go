package realtime

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// --- Interfaces ---

// Logger is an interface that allows for plugging in custom structured loggers.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

// Metrics is an interface that allows for plugging in custom metrics collectors.
type Metrics interface {
	IncConnections()
	IncDisconnects()
	IncReconnectAttempts()
	IncReconnectsExhausted()
	IncHeartbeats()
	IncDecodeErrors()
	IncMessages(eventType string)
	SetConnectionStatus(status float64)
	SetOnlineCount(count float64)
}

// StateHandler observes connection state transitions. It is called once per
// transition, in order, from a goroutine that holds no Client lock, so it may
// call back into the Client.
type StateHandler func(prev, next State)

// --- No-op Implementations ---

type nopLogger struct{}

func (l *nopLogger) Info(msg string, keysAndValues ...interface{})             {}
func (l *nopLogger) Error(err error, msg string, keysAndValues ...interface{}) {}

type nopMetrics struct{}

func (m *nopMetrics) IncConnections()                    {}
func (m *nopMetrics) IncDisconnects()                    {}
func (m *nopMetrics) IncReconnectAttempts()              {}
func (m *nopMetrics) IncReconnectsExhausted()            {}
func (m *nopMetrics) IncHeartbeats()                     {}
func (m *nopMetrics) IncDecodeErrors()                   {}
func (m *nopMetrics) IncMessages(eventType string)       {}
func (m *nopMetrics) SetConnectionStatus(status float64) {}
func (m *nopMetrics) SetOnlineCount(count float64)       {}

// --- Configuration ---

// Option is a function that configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger for the Client.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets a custom metrics collector for the Client.
func WithMetrics(metrics Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithDialer replaces the default gorilla/websocket dialer.
func WithDialer(dialer Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithClock sets the clock that drives the heartbeat and reconnect timers.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithReconnectPolicy sets the reconnection policy for the Client.
func WithReconnectPolicy(policy ReconnectPolicy) Option {
	return func(c *Client) {
		c.reconnectPolicy = policy
	}
}

// WithHeartbeatInterval sets how often a ping is sent while open.
// Defaults to 30 seconds. Zero disables the heartbeat.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) {
		c.heartbeatInterval = d
	}
}

// WithWriteTimeout bounds every frame write. Defaults to 10 seconds.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

// WithMessageSizeLimit sets the maximum inbound frame size in bytes.
// Defaults to 64KB.
func WithMessageSizeLimit(limit int64) Option {
	return func(c *Client) {
		c.messageSizeLimit = limit
	}
}

// WithHandshakeTimeout bounds each dial. Defaults to 10 seconds.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.handshakeTimeout = d
	}
}

// WithCredentialTimeout bounds each credential lookup. Defaults to 2 seconds.
func WithCredentialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.credentialTimeout = d
	}
}

// WithStateHandler registers a callback for every connection state
// transition.
func WithStateHandler(h StateHandler) Option {
	return func(c *Client) {
		c.stateHandler = h
	}
}
