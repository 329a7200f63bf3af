package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics instruments the client sync engine. Constructors take a
// Registerer so tests can use a private registry instead of the global
// one.
type EngineMetrics struct {
	EventsApplied *prometheus.CounterVec
	EventsIgnored prometheus.Counter
	FramesDropped prometheus.Counter
	Reconnects    prometheus.Counter
}

func NewEngineMetrics(reg prometheus.Registerer, namespace string) *EngineMetrics {
	factory := promauto.With(reg)
	return &EngineMetrics{
		EventsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "events_applied_total",
				Help:      "Push events merged into the local poll store",
			},
			[]string{"type"},
		),
		EventsIgnored: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "events_ignored_total",
				Help:      "Events referencing polls not present in the store",
			},
		),
		FramesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "frames_dropped_total",
				Help:      "Push frames that failed to decode",
			},
		),
		Reconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "reconnects_total",
				Help:      "Push channel reconnect attempts",
			},
		),
	}
}

// ServerMetrics instruments the poll service.
type ServerMetrics struct {
	VotesProcessed     *prometheus.CounterVec
	ReactionsProcessed *prometheus.CounterVec
	Broadcasts         *prometheus.CounterVec
	ClientsConnected   prometheus.Gauge
	BroadcastTime      prometheus.Histogram
}

func NewServerMetrics(reg prometheus.Registerer, namespace string) *ServerMetrics {
	factory := promauto.With(reg)
	return &ServerMetrics{
		VotesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "votes_processed_total",
				Help:      "Votes accepted, by poll",
			},
			[]string{"poll_id"},
		),
		ReactionsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "reactions_processed_total",
				Help:      "Likes, dislikes and option likes accepted",
			},
			[]string{"kind"},
		),
		Broadcasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "broadcasts_total",
				Help:      "Events fanned out to push channel clients",
			},
			[]string{"type"},
		),
		ClientsConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "push_clients_connected",
				Help:      "Currently connected push channel clients",
			},
		),
		BroadcastTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "broadcast_duration_seconds",
				Help:      "Histogram of event fan-out times",
				Buckets:   prometheus.LinearBuckets(0.001, 0.001, 10), // 10 buckets, 1ms to 10ms
			},
		),
	}
}
