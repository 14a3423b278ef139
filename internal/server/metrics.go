package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "arena"

// Drop reasons recorded in messages_dropped_total.
const (
	dropMalformed      = "malformed"
	dropUnknownSession = "unknown_session"
	dropOutOfRange     = "out_of_range"
	dropRejected       = "rejected"
	dropWrongDirection = "wrong_direction"
	dropPanic          = "panic"
)

// Metrics holds the Prometheus collectors for the arena server.
type Metrics struct {
	sessions          prometheus.Gauge
	players           prometheus.Gauge
	messagesReceived  *prometheus.CounterVec
	messagesDropped   *prometheus.CounterVec
	foodReplaced      prometheus.Counter
	broadcastTicks    prometheus.Counter
	broadcastDuration prometheus.Histogram
	framesDropped     prometheus.Counter
}

// NewMetrics registers the arena collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_active",
			Help:      "Connected WebSocket sessions",
		}),
		players: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "players_active",
			Help:      "Sessions that have joined with a player",
		}),
		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Decoded client messages by type",
		}, []string{"type"}),
		messagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_dropped_total",
			Help:      "Client messages dropped without effect, by reason",
		}, []string{"reason"}),
		foodReplaced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "food_replaced_total",
			Help:      "Accepted eatFood reports",
		}),
		broadcastTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcast_ticks_total",
			Help:      "updatePlayers broadcasts performed",
		}),
		broadcastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Time spent snapshotting, encoding and enqueueing one broadcast",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .016},
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped because a session's send buffer was full",
		}),
	}
}

func (m *Metrics) dropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) received(msgType string) {
	m.messagesReceived.WithLabelValues(msgType).Inc()
}
