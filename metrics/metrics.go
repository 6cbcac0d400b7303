// Package metrics exposes the Prometheus counters and gauges that
// track ombrac's session lifecycle: how many sessions are running now,
// and how many authentication or dial attempts have failed overall.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ombrac"

var (
	// ActiveStreams counts reliable CONNECT streams currently relaying.
	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connect",
		Name:      "active_streams",
		Help:      "Concurrent count of CONNECT streams being relayed to an origin",
	})

	// ActiveAssociations counts UDP ASSOCIATE sessions currently bridged.
	ActiveAssociations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "udp",
		Name:      "active_associations",
		Help:      "Concurrent count of UDP ASSOCIATE sessions being relayed to any origin",
	})

	// AuthFailuresTotal counts secret mismatches across both streams and datagrams.
	AuthFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "failures_total",
		Help:      "Total count of requests rejected for a secret mismatch",
	})

	// DialFailuresTotal counts failed outbound TCP dials on the server.
	DialFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dial",
		Name:      "failures_total",
		Help:      "Total count of failed dials to a resolved destination",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveStreams,
		ActiveAssociations,
		AuthFailuresTotal,
		DialFailuresTotal,
	)
}
