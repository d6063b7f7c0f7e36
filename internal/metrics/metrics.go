// Package metrics exposes Prometheus collectors for the chat service.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes.
const (
	OutcomePushed  = "pushed"
	OutcomeOffline = "offline"
	OutcomeFailed  = "failed"
)

type Metrics struct {
	activeConnections prometheus.Gauge
	messagesSent      prometheus.Counter
	dispatch          *prometheus.CounterVec
	handshakes        *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmchat_active_connections",
			Help: "Number of registered realtime connections.",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dmchat_messages_sent_total",
			Help: "Messages persisted by the send operation.",
		}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dmchat_dispatch_total",
			Help: "Realtime events by name and outcome.",
		}, []string{"event", "outcome"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dmchat_handshakes_total",
			Help: "Realtime handshakes by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dmchat_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.activeConnections, m.messagesSent, m.dispatch, m.handshakes, m.httpDuration)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) Dispatched(event, outcome string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) Handshake(result string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
