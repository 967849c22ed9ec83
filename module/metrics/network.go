package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zenith-chain/node/module"
)

type NetworkCollector struct {
	published     *prometheus.CounterVec
	publishedSize *prometheus.HistogramVec
	received      *prometheus.CounterVec
	receivedSize  *prometheus.HistogramVec
	dropped       *prometheus.CounterVec
	peers         prometheus.Gauge
}

var _ module.NetworkMetrics = (*NetworkCollector)(nil)

func NewNetworkCollector(registerer prometheus.Registerer) *NetworkCollector {
	factory := promauto.With(registerer)

	return &NetworkCollector{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "messages_published_total",
			Namespace: namespaceNode,
			Subsystem: subsystemNetwork,
			Help:      "the number of messages published or pushed to peers",
		}, []string{LabelTopic}),
		publishedSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "published_message_size_bytes",
			Namespace: namespaceNode,
			Subsystem: subsystemNetwork,
			Help:      "the size of outbound messages",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{LabelTopic}),
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "messages_received_total",
			Namespace: namespaceNode,
			Subsystem: subsystemNetwork,
			Help:      "the number of messages received from peers",
		}, []string{LabelTopic}),
		receivedSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "received_message_size_bytes",
			Namespace: namespaceNode,
			Subsystem: subsystemNetwork,
			Help:      "the size of inbound messages",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{LabelTopic}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "messages_dropped_total",
			Namespace: namespaceNode,
			Subsystem: subsystemNetwork,
			Help:      "the number of messages dropped, by reason",
		}, []string{LabelTopic, LabelReason}),
		peers: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "connected_peers",
			Namespace: namespaceNode,
			Subsystem: subsystemNetwork,
			Help:      "the number of connected peers",
		}),
	}
}

func (nc *NetworkCollector) MessagePublished(topic string, sizeBytes int) {
	nc.published.With(prometheus.Labels{LabelTopic: topic}).Inc()
	nc.publishedSize.With(prometheus.Labels{LabelTopic: topic}).Observe(float64(sizeBytes))
}

func (nc *NetworkCollector) MessageReceived(topic string, sizeBytes int) {
	nc.received.With(prometheus.Labels{LabelTopic: topic}).Inc()
	nc.receivedSize.With(prometheus.Labels{LabelTopic: topic}).Observe(float64(sizeBytes))
}

func (nc *NetworkCollector) MessageDropped(topic string, reason string) {
	nc.dropped.With(prometheus.Labels{LabelTopic: topic, LabelReason: reason}).Inc()
}

func (nc *NetworkCollector) ConnectedPeers(count int) {
	nc.peers.Set(float64(count))
}
