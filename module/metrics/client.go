package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zenith-chain/node/module"
)

type ClientCollector struct {
	connections      prometheus.Gauge
	requests         *prometheus.CounterVec
	droppedResponses prometheus.Counter
}

var _ module.ClientMetrics = (*ClientCollector)(nil)

func NewClientCollector(registerer prometheus.Registerer) *ClientCollector {
	factory := promauto.With(registerer)

	return &ClientCollector{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "open_connections",
			Namespace: namespaceNode,
			Subsystem: subsystemClient,
			Help:      "the number of open client connections",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_total",
			Namespace: namespaceNode,
			Subsystem: subsystemClient,
			Help:      "the number of client requests received",
		}, []string{LabelKind}),
		droppedResponses: factory.NewCounter(prometheus.CounterOpts{
			Name:      "responses_dropped_total",
			Namespace: namespaceNode,
			Subsystem: subsystemClient,
			Help:      "the number of responses dropped because the connection was gone or congested",
		}),
	}
}

func (cc *ClientCollector) ClientConnected() {
	cc.connections.Inc()
}

func (cc *ClientCollector) ClientDisconnected() {
	cc.connections.Dec()
}

func (cc *ClientCollector) ClientRequestReceived(kind string) {
	cc.requests.With(prometheus.Labels{LabelKind: kind}).Inc()
}

func (cc *ClientCollector) ClientResponseDropped() {
	cc.droppedResponses.Inc()
}
