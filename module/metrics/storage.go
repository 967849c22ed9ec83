package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zenith-chain/node/module"
)

type StorageCollector struct {
	snapshots        prometheus.Counter
	snapshotSize     prometheus.Gauge
	snapshotDuration prometheus.Histogram
}

var _ module.StorageMetrics = (*StorageCollector)(nil)

func NewStorageCollector(registerer prometheus.Registerer) *StorageCollector {
	factory := promauto.With(registerer)

	return &StorageCollector{
		snapshots: factory.NewCounter(prometheus.CounterOpts{
			Name:      "snapshots_persisted_total",
			Namespace: namespaceNode,
			Subsystem: subsystemStorage,
			Help:      "the number of kernel snapshots written",
		}),
		snapshotSize: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "snapshot_size_bytes",
			Namespace: namespaceNode,
			Subsystem: subsystemStorage,
			Help:      "the size of the latest kernel snapshot",
		}),
		snapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:      "snapshot_duration_seconds",
			Namespace: namespaceNode,
			Subsystem: subsystemStorage,
			Help:      "the time taken to encode and write a snapshot",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

func (sc *StorageCollector) SnapshotPersisted(sizeBytes int, duration time.Duration) {
	sc.snapshots.Inc()
	sc.snapshotSize.Set(float64(sizeBytes))
	sc.snapshotDuration.Observe(duration.Seconds())
}
