package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zenith-chain/node/module"
)

type RuntimeCollector struct {
	submitted     *prometheus.CounterVec
	applied       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
	broadcast     *prometheus.CounterVec
	queueLength   prometheus.Gauge
	version       prometheus.Gauge
	restarts      *prometheus.CounterVec
	overruns      *prometheus.CounterVec
	missed        *prometheus.CounterVec
}

var _ module.RuntimeMetrics = (*RuntimeCollector)(nil)

func NewRuntimeCollector(registerer prometheus.Registerer) *RuntimeCollector {
	factory := promauto.With(registerer)

	rc := &RuntimeCollector{
		submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "events_submitted_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of events enqueued by drivers",
		}, []string{LabelCause}),

		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "events_applied_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of events applied to the kernel",
		}, []string{LabelCause}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "events_rejected_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of events rejected by the kernel",
		}, []string{LabelCause}),

		applyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "apply_duration_seconds",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the time spent applying one event, including the broadcast of its commands",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{LabelCause}),

		broadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "commands_broadcast_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of commands published to the drivers",
		}, []string{LabelTag}),

		queueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "input_queue_length",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of events waiting to be applied",
		}),

		version: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "kernel_state_version",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the version of the committed kernel state",
		}),

		restarts: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "driver_restarts_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of times a driver was restarted after a failure",
		}, []string{LabelDriver}),

		overruns: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "driver_overruns_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of times a driver fell behind the command stream",
		}, []string{LabelDriver}),

		missed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "driver_missed_commands_total",
			Namespace: namespaceNode,
			Subsystem: subsystemRuntime,
			Help:      "the number of commands drivers missed by falling behind",
		}, []string{LabelDriver}),
	}

	return rc
}

func (rc *RuntimeCollector) EventSubmitted(cause string) {
	rc.submitted.With(prometheus.Labels{LabelCause: cause}).Inc()
}

func (rc *RuntimeCollector) EventApplied(cause string, duration time.Duration) {
	rc.applied.With(prometheus.Labels{LabelCause: cause}).Inc()
	rc.applyDuration.With(prometheus.Labels{LabelCause: cause}).Observe(duration.Seconds())
}

func (rc *RuntimeCollector) EventRejected(cause string) {
	rc.rejected.With(prometheus.Labels{LabelCause: cause}).Inc()
}

func (rc *RuntimeCollector) CommandBroadcast(tag string) {
	rc.broadcast.With(prometheus.Labels{LabelTag: tag}).Inc()
}

func (rc *RuntimeCollector) InputQueueLength(length int) {
	rc.queueLength.Set(float64(length))
}

func (rc *RuntimeCollector) KernelVersion(version uint64) {
	rc.version.Set(float64(version))
}

func (rc *RuntimeCollector) DriverRestarted(driver string) {
	rc.restarts.With(prometheus.Labels{LabelDriver: driver}).Inc()
}

func (rc *RuntimeCollector) DriverOverrun(driver string, missed uint64) {
	rc.overruns.With(prometheus.Labels{LabelDriver: driver}).Inc()
	rc.missed.With(prometheus.Labels{LabelDriver: driver}).Add(float64(missed))
}
