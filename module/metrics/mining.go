package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zenith-chain/node/module"
)

type MiningCollector struct {
	started        prometheus.Counter
	cancelled      prometheus.Counter
	solved         prometheus.Counter
	searchDuration prometheus.Histogram
	hashes         prometheus.Counter
	cacheHits      prometheus.Counter
}

var _ module.MiningMetrics = (*MiningCollector)(nil)

func NewMiningCollector(registerer prometheus.Registerer) *MiningCollector {
	factory := promauto.With(registerer)

	return &MiningCollector{
		started: factory.NewCounter(prometheus.CounterOpts{
			Name:      "searches_started_total",
			Namespace: namespaceNode,
			Subsystem: subsystemMining,
			Help:      "the number of proof-of-work searches started",
		}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Name:      "searches_cancelled_total",
			Namespace: namespaceNode,
			Subsystem: subsystemMining,
			Help:      "the number of searches superseded before finding a solution",
		}),
		solved: factory.NewCounter(prometheus.CounterOpts{
			Name:      "searches_solved_total",
			Namespace: namespaceNode,
			Subsystem: subsystemMining,
			Help:      "the number of searches that found a solution",
		}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:      "search_duration_seconds",
			Namespace: namespaceNode,
			Subsystem: subsystemMining,
			Help:      "the time taken to find a solution",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		hashes: factory.NewCounter(prometheus.CounterOpts{
			Name:      "hashes_total",
			Namespace: namespaceNode,
			Subsystem: subsystemMining,
			Help:      "the number of proof-of-work hashes computed",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name:      "solved_cache_hits_total",
			Namespace: namespaceNode,
			Subsystem: subsystemMining,
			Help:      "the number of searches answered from the solved header cache",
		}),
	}
}

func (mc *MiningCollector) SearchStarted() {
	mc.started.Inc()
}

func (mc *MiningCollector) SearchCancelled() {
	mc.cancelled.Inc()
}

func (mc *MiningCollector) SolutionFound(duration time.Duration) {
	mc.solved.Inc()
	mc.searchDuration.Observe(duration.Seconds())
}

func (mc *MiningCollector) HashesComputed(count uint64) {
	mc.hashes.Add(float64(count))
}

func (mc *MiningCollector) SolvedCacheHit() {
	mc.cacheHits.Inc()
}
