package metrics

import (
	"time"

	"github.com/zenith-chain/node/module"
)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

var _ module.RuntimeMetrics = (*NoopCollector)(nil)
var _ module.MiningMetrics = (*NoopCollector)(nil)
var _ module.NetworkMetrics = (*NoopCollector)(nil)
var _ module.ClientMetrics = (*NoopCollector)(nil)
var _ module.StorageMetrics = (*NoopCollector)(nil)

func (nc *NoopCollector) EventSubmitted(cause string)                             {}
func (nc *NoopCollector) EventApplied(cause string, duration time.Duration)       {}
func (nc *NoopCollector) EventRejected(cause string)                              {}
func (nc *NoopCollector) CommandBroadcast(tag string)                             {}
func (nc *NoopCollector) InputQueueLength(length int)                             {}
func (nc *NoopCollector) KernelVersion(version uint64)                            {}
func (nc *NoopCollector) DriverRestarted(driver string)                           {}
func (nc *NoopCollector) DriverOverrun(driver string, missed uint64)              {}
func (nc *NoopCollector) SearchStarted()                                          {}
func (nc *NoopCollector) SearchCancelled()                                        {}
func (nc *NoopCollector) SolutionFound(duration time.Duration)                    {}
func (nc *NoopCollector) HashesComputed(count uint64)                             {}
func (nc *NoopCollector) SolvedCacheHit()                                         {}
func (nc *NoopCollector) MessagePublished(topic string, sizeBytes int)            {}
func (nc *NoopCollector) MessageReceived(topic string, sizeBytes int)             {}
func (nc *NoopCollector) MessageDropped(topic string, reason string)              {}
func (nc *NoopCollector) ConnectedPeers(count int)                                {}
func (nc *NoopCollector) ClientConnected()                                        {}
func (nc *NoopCollector) ClientDisconnected()                                     {}
func (nc *NoopCollector) ClientRequestReceived(kind string)                       {}
func (nc *NoopCollector) ClientResponseDropped()                                  {}
func (nc *NoopCollector) SnapshotPersisted(sizeBytes int, duration time.Duration) {}
