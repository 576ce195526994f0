// Package metrics exposes the proxy's own bookkeeping: object counts,
// forwarded message counts, and dropped/errored message counts, as
// Prometheus instruments. This reports only on proxy internals, never
// on protocol semantics above the wire level.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every counter/gauge the dispatcher and event loop
// update. A single Collector is shared across all connections.
type Collector struct {
	MessagesForwarded *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	ObjectsLive       *prometheus.GaugeVec
	ConnectionsActive prometheus.Gauge
}

// NewCollector builds and registers a fresh Collector against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		MessagesForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wlmux",
			Name:      "messages_forwarded_total",
			Help:      "Messages relayed between client and server endpoints.",
		}, []string{"direction", "interface"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wlmux",
			Name:      "messages_dropped_total",
			Help:      "Messages logged and dropped without tearing down the connection.",
		}, []string{"reason"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wlmux",
			Name:      "dispatch_errors_total",
			Help:      "Dispatch errors that tore down a connection pair, by kind.",
		}, []string{"kind"}),
		ObjectsLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wlmux",
			Name:      "objects_live",
			Help:      "Live protocol objects per table side.",
		}, []string{"side"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wlmux",
			Name:      "connections_active",
			Help:      "Currently bound client/server connection pairs.",
		}),
	}
	reg.MustRegister(c.MessagesForwarded, c.MessagesDropped, c.Errors, c.ObjectsLive, c.ConnectionsActive)
	return c
}
