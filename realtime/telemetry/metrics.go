package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "realtime"

// PromMetrics implements the realtime.Metrics interface using Prometheus.
type PromMetrics struct {
	connections         prometheus.Counter
	disconnects         prometheus.Counter
	reconnectAttempts   prometheus.Counter
	reconnectsExhausted prometheus.Counter
	heartbeats          prometheus.Counter
	decodeErrors        prometheus.Counter
	messages            *prometheus.CounterVec
	connStatus          prometheus.Gauge
	onlineCount         prometheus.Gauge
}

// NewMetrics creates and registers the client metrics.
// If registry is nil, it uses the global default registry.
func NewMetrics(registry prometheus.Registerer, labels map[string]string) *PromMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &PromMetrics{
		connections:         counter("connections_total", "Total number of successful WebSocket connections established."),
		disconnects:         counter("disconnects_total", "Total number of WebSocket disconnects."),
		reconnectAttempts:   counter("reconnect_attempts_total", "Total number of scheduled reconnect attempts."),
		reconnectsExhausted: counter("reconnects_exhausted_total", "Total number of times the reconnect budget ran out."),
		heartbeats:          counter("heartbeats_total", "Total number of pings sent."),
		decodeErrors:        counter("decode_errors_total", "Total number of inbound frames that could not be decoded."),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_total",
			Help:        "Total number of decoded inbound messages by event type.",
			ConstLabels: labels,
		}, []string{"type"}),
		connStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "connection_status",
			Help:        "Current status of the connection (1 = connected, 0 = disconnected).",
			ConstLabels: labels,
		}),
		onlineCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "online_count",
			Help:        "Last online user count pushed by the server.",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(
		m.connections,
		m.disconnects,
		m.reconnectAttempts,
		m.reconnectsExhausted,
		m.heartbeats,
		m.decodeErrors,
		m.messages,
		m.connStatus,
		m.onlineCount,
	)

	return m
}

func (m *PromMetrics) IncConnections() {
	m.connections.Inc()
}

func (m *PromMetrics) IncDisconnects() {
	m.disconnects.Inc()
}

func (m *PromMetrics) IncReconnectAttempts() {
	m.reconnectAttempts.Inc()
}

func (m *PromMetrics) IncReconnectsExhausted() {
	m.reconnectsExhausted.Inc()
}

func (m *PromMetrics) IncHeartbeats() {
	m.heartbeats.Inc()
}

func (m *PromMetrics) IncDecodeErrors() {
	m.decodeErrors.Inc()
}

func (m *PromMetrics) IncMessages(eventType string) {
	m.messages.WithLabelValues(eventType).Inc()
}

func (m *PromMetrics) SetConnectionStatus(status float64) {
	m.connStatus.Set(status)
}

func (m *PromMetrics) SetOnlineCount(count float64) {
	m.onlineCount.Set(count)
}
