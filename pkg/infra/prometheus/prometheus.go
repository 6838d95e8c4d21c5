package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	SessionsActive = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "remotedeck_sessions_active",
			Help: "Number of live remote-control sessions",
		},
	)

	SessionsCreatedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "remotedeck_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsSweptTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "remotedeck_sessions_swept_total",
			Help: "Total number of sessions removed by the TTL sweeper",
		},
	)

	MessagesRelayedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotedeck_messages_relayed_total",
			Help: "Messages forwarded between paired peers, by kind",
		},
		[]string{"kind"},
	)

	MessagesDroppedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "remotedeck_messages_dropped_total",
			Help: "Messages dropped because the opposite peer was absent or malformed",
		},
		[]string{"reason"},
	)

	ConnectionsActive = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "remotedeck_ws_connections_active",
			Help: "Number of open websocket connections",
		},
	)
)

func Registry() *prometheus.Registry {
	return registry
}
