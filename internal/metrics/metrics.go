package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "readinggroups_ws_connections",
		Help: "Live websocket connections, authenticated or pending.",
	})

	Rooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "readinggroups_ws_rooms",
		Help: "Rooms with at least one subscribed connection.",
	})

	EventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readinggroups_ws_events_emitted_total",
		Help: "Outbound websocket events by event name.",
	}, []string{"event"})

	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readinggroups_ws_delivery_failures_total",
		Help: "Frames that could not be written to a connection.",
	})

	AuthOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readinggroups_ws_auth_total",
		Help: "Websocket authentication results by path (handshake, deferred) and outcome.",
	}, []string{"path", "outcome"})

	MembershipOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readinggroups_membership_operations_total",
		Help: "Membership engine operations by operation and outcome.",
	}, []string{"op", "outcome"})

	StaleWriteRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readinggroups_stale_write_retries_total",
		Help: "Group writes retried after a concurrent modification.",
	})
)

func init() {
	prometheus.MustRegister(
		Connections,
		Rooms,
		EventsEmitted,
		DeliveryFailures,
		AuthOutcomes,
		MembershipOps,
		StaleWriteRetries,
	)
}

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
