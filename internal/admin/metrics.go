package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bridge's Prometheus collectors on a private registry so
// tests never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	InboundMessages    *prometheus.CounterVec
	OutboundSends      *prometheus.CounterVec
	RoutingErrors      prometheus.Counter
	DedupeHits         prometheus.Counter
	GatewayDisconnects prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		InboundMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "convobridge_inbound_messages_total",
			Help: "Inbound channel messages routed into conversations.",
		}, []string{"platform"}),
		OutboundSends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "convobridge_outbound_sends_total",
			Help: "Outbound sends delivered to platform channels.",
		}, []string{"platform"}),
		RoutingErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "convobridge_routing_errors_total",
			Help: "Inbound or outbound routing failures.",
		}),
		DedupeHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "convobridge_dedupe_hits_total",
			Help: "Redelivered platform events absorbed without a new write.",
		}),
		GatewayDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "convobridge_gateway_disconnects_total",
			Help: "Unexpected Discord gateway socket drops.",
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
