package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Prescott-Data/nexus-realtime/realtime/credentials"
	"github.com/Prescott-Data/nexus-realtime/realtime/telemetry"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// CredentialStore supplies the token sent with each connection attempt.
// Returning credentials.ErrNoToken means no credential is available and the
// client connects unauthenticated.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
}

// Client manages one persistent connection to the real-time server.
type Client struct {
	endpoint    *url.URL
	credentials CredentialStore
	logger      Logger
	metrics     Metrics
	dialer      Dialer
	clock       clockwork.Clock
	registry    *Registry

	reconnectPolicy   ReconnectPolicy
	heartbeatInterval time.Duration
	writeTimeout      time.Duration
	messageSizeLimit  int64
	handshakeTimeout  time.Duration
	credentialTimeout time.Duration
	stateHandler      StateHandler

	onlineCount atomic.Int64
	generation  atomic.Uint64

	// mu serializes every state transition, timer callback and write.
	mu         sync.Mutex
	state      State
	conn       Conn
	cancelDial context.CancelFunc
	closing    bool
	backoff    *scheduler
	heartbeat  *heartbeat

	// Transitions waiting for stateHandler, oldest first.
	changes   []stateChange
	notifying bool
}

type stateChange struct {
	prev, next State
}

// New creates a new Client for the given ws:// or wss:// endpoint with
// optional configurations. credentials may be nil.
func New(endpoint string, creds CredentialStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid endpoint scheme %q: must be ws or wss", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	// Define default values
	c := &Client{
		endpoint:          u,
		credentials:       creds,
		logger:            &nopLogger{},
		metrics:           &nopMetrics{},
		clock:             clockwork.NewRealClock(),
		reconnectPolicy:   DefaultReconnectPolicy(),
		heartbeatInterval: 30 * time.Second,
		writeTimeout:      10 * time.Second,
		messageSizeLimit:  65536, // 64KB
		handshakeTimeout:  10 * time.Second,
		credentialTimeout: 2 * time.Second,
		state:             Disconnected,
	}

	// Apply all the functional options provided by the user
	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		c.dialer = NewWebSocketDialer(c.handshakeTimeout)
	}
	c.backoff = newScheduler(c.clock, c.reconnectPolicy)
	c.heartbeat = newHeartbeat(c.clock, c.heartbeatInterval)
	c.registry = NewRegistry(c.logger, c.setOnlineCount)
	return c, nil
}

// NewStandard creates a new Client with production-ready defaults:
// - Structured JSON logging (Slog) to Stdout
// - Prometheus metrics registered to the default registry
func NewStandard(endpoint string, creds CredentialStore, labels map[string]string, opts ...Option) (*Client, error) {
	defaultOpts := []Option{
		WithLogger(telemetry.NewLogger()),
		WithMetrics(telemetry.NewMetrics(nil, labels)), // nil = use default registry
	}
	return New(endpoint, creds, append(defaultOpts, opts...)...)
}

// Connect opens the connection in the background. It is a no-op while
// connecting or open. An explicit call cancels a pending reconnect and
// starts a fresh retry budget.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Connecting || c.state == Open {
		return
	}
	c.closing = false
	c.backoff.reset()
	c.connectLocked()
}

// Disconnect stops the heartbeat, closes the transport and moves to
// Disconnected. A reconnect timer that is already armed is left alone; when
// it fires it sees that the disconnect was requested and does nothing.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	c.heartbeat.stop()
	c.generation.Add(1) // in-flight dials and read pumps become stale
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.conn != nil {
		if c.writeTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = c.conn.Close()
		c.conn = nil
		c.metrics.IncDisconnects()
	}
	c.metrics.SetConnectionStatus(0)
	c.setState(Disconnected)
	c.logger.Info("Disconnected by request", "endpoint", c.redactedEndpoint())
}

// Close disconnects and also cancels any pending reconnect timer.
func (c *Client) Close() error {
	c.Disconnect()
	c.mu.Lock()
	c.backoff.cancel()
	c.mu.Unlock()
	return nil
}

// Send transmits an envelope if the connection is open. Otherwise the call
// is dropped silently: outbound messages are best-effort.
func (c *Client) Send(t EventType, payload any) {
	data, err := Encode(t, payload)
	if err != nil {
		c.logger.Error(err, "Failed to encode outbound message", "type", string(t))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Open || c.conn == nil {
		return
	}
	if err := c.writeLocked(data); err != nil {
		c.logger.Error(err, "Error writing to WebSocket", "type", string(t))
	}
}

// SubscribeArticle asks the server for updates about an article.
func (c *Client) SubscribeArticle(articleID string) {
	c.Send(EventSubscribeArticle, ArticlePayload{ArticleID: articleID})
}

// UnsubscribeArticle stops updates about an article.
func (c *Client) UnsubscribeArticle(articleID string) {
	c.Send(EventUnsubscribeArticle, ArticlePayload{ArticleID: articleID})
}

// SendTyping announces that the current user is typing on an article. The
// server resolves the user from the connection credential.
func (c *Client) SendTyping(articleID string) {
	c.Send(EventTyping, ArticlePayload{ArticleID: articleID})
}

// On registers h for events of type t.
func (c *Client) On(t EventType, h Handler) {
	c.registry.On(t, h)
}

// Off unregisters h for events of type t.
func (c *Client) Off(t EventType, h Handler) {
	c.registry.Off(t, h)
}

// ClearHandlers removes every handler for events of type t.
func (c *Client) ClearHandlers(t EventType) {
	c.registry.Clear(t)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected returns true if the client is currently open.
func (c *Client) IsConnected() bool {
	return c.State() == Open
}

// OnlineCount returns the last count pushed by the server.
func (c *Client) OnlineCount() int64 {
	return c.onlineCount.Load()
}

// Reconnect returns a snapshot of the reconnect budget.
func (c *Client) Reconnect() ReconnectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backoff.snapshot()
}

func (c *Client) setOnlineCount(count int64) {
	c.onlineCount.Store(count)
	c.metrics.SetOnlineCount(float64(count))
}

// connectLocked starts a dial. Callers hold mu and have checked the state.
func (c *Client) connectLocked() {
	c.backoff.cancel()

	gen := c.generation.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.setState(Connecting)
	c.logger.Info("Connecting", "endpoint", c.redactedEndpoint(), "attempt", c.backoff.attempt)

	go c.dial(ctx, cancel, gen)
}

// dial resolves the credential and opens the transport without holding mu.
func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	var conn Conn
	target, err := c.target(ctx)
	if err == nil {
		dialCtx, dialCancel := ctx, context.CancelFunc(func() {})
		if c.handshakeTimeout > 0 {
			dialCtx, dialCancel = context.WithTimeout(ctx, c.handshakeTimeout)
		}
		conn, err = c.dialer.DialContext(dialCtx, target, nil)
		dialCancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation.Load() || c.state != Connecting {
		// Superseded by Disconnect or a newer attempt.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.cancelDial = nil

	if err != nil {
		c.logger.Error(err, "Failed to establish WebSocket connection", "endpoint", c.redactedEndpoint())
		c.connectionLost()
		return
	}

	conn.SetReadLimit(c.messageSizeLimit)
	c.conn = conn
	c.setState(Open)
	c.backoff.reset()
	c.heartbeat.start(c.beat)
	c.metrics.IncConnections()
	c.metrics.SetConnectionStatus(1)
	c.logger.Info("Successfully established WebSocket connection", "endpoint", c.redactedEndpoint())

	go c.readPump(gen, conn)
}

// readPump decodes and dispatches frames in arrival order until the
// transport fails.
func (c *Client) readPump(gen uint64, conn Conn) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if gen == c.generation.Load() && c.state == Open {
				c.logger.Error(err, "Connection lost", "endpoint", c.redactedEndpoint())
				c.connectionLost()
			}
			c.mu.Unlock()
			return
		}
		if gen != c.generation.Load() {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		env, err := Decode(message)
		if err != nil {
			c.metrics.IncDecodeErrors()
			c.logger.Error(err, "Failed to parse WebSocket message", "length", len(message))
			continue
		}
		c.metrics.IncMessages(string(env.Type))
		if !env.Type.Known() {
			c.logger.Info("Received unknown event type", "type", string(env.Type))
		}
		c.registry.Dispatch(env)
	}
}

// connectionLost tears down the current transport and consults the backoff
// scheduler. Callers hold mu.
func (c *Client) connectionLost() {
	c.heartbeat.stop()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.metrics.IncDisconnects()
	}
	c.metrics.SetConnectionStatus(0)
	c.setState(Disconnected)

	if c.closing {
		return
	}
	c.scheduleReconnect()
}

// scheduleReconnect arms the next reconnect timer. Callers hold mu.
func (c *Client) scheduleReconnect() {
	delay, ok := c.backoff.next()
	if !ok {
		c.metrics.IncReconnectsExhausted()
		c.logger.Error(ErrReconnectExhausted, "Max reconnect attempts reached; call Connect to retry",
			"maxAttempts", c.reconnectPolicy.MaxAttempts)
		return
	}
	c.metrics.IncReconnectAttempts()
	c.logger.Info("Reconnecting", "attempt", c.backoff.attempt, "after", delay)
	c.backoff.arm(delay, c.reconnectFired)
	c.setState(Reconnecting)
}

func (c *Client) reconnectFired(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.backoff.claim(token) {
		return
	}
	if c.closing {
		c.logger.Info("Reconnect skipped; client was disconnected by request")
		return
	}
	if c.state == Connecting || c.state == Open {
		return
	}
	c.connectLocked()
}

// beat sends one ping. It runs on the heartbeat goroutine.
func (c *Client) beat(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.heartbeat.current(token) || c.state != Open || c.conn == nil {
		return
	}
	data, err := Encode(EventPing, nil)
	if err != nil {
		c.logger.Error(err, "Failed to encode ping")
		return
	}
	if err := c.writeLocked(data); err != nil {
		// Assume the connection is dead; the read pump reports the closure.
		c.logger.Error(err, "Error sending ping", "endpoint", c.redactedEndpoint())
		_ = c.conn.Close()
		return
	}
	c.metrics.IncHeartbeats()
}

func (c *Client) writeLocked(data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// target builds the endpoint URL, adding token=<credential> when a
// credential is available.
func (c *Client) target(ctx context.Context) (string, error) {
	u := *c.endpoint
	token := c.token(ctx)
	if token == "" {
		return u.String(), nil
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint query: %w", err)
	}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) token(ctx context.Context) string {
	if c.credentials == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, c.credentialTimeout)
	defer cancel()

	token, err := c.credentials.Token(ctx)
	if err != nil {
		if !errors.Is(err, credentials.ErrNoToken) {
			c.logger.Error(err, "Credential lookup failed; connecting unauthenticated")
		}
		return ""
	}
	return token
}

func (c *Client) setState(next State) {
	prev := c.state
	c.state = next
	if prev == next {
		return
	}
	c.logger.Info("Connection state changed", "from", prev.String(), "to", next.String())

	if c.stateHandler == nil {
		return
	}
	c.changes = append(c.changes, stateChange{prev: prev, next: next})
	if !c.notifying {
		c.notifying = true
		go c.notifyStateChanges()
	}
}

// notifyStateChanges delivers queued transitions to stateHandler in order,
// without holding mu, and exits once the queue is empty.
func (c *Client) notifyStateChanges() {
	for {
		c.mu.Lock()
		if len(c.changes) == 0 {
			c.notifying = false
			c.mu.Unlock()
			return
		}
		change := c.changes[0]
		c.changes = c.changes[1:]
		c.mu.Unlock()

		c.callStateHandler(change)
	}
}

func (c *Client) callStateHandler(change stateChange) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error(fmt.Errorf("panic: %v", rec), "State handler failed",
				"from", change.prev.String(), "to", change.next.String())
		}
	}()
	c.stateHandler(change.prev, change.next)
}

func (c *Client) redactedEndpoint() string {
	return telemetry.RedactQuery(c.endpoint.String())
}
