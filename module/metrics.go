package module

import (
	"time"
)

// RuntimeMetrics reports on the event loop of the runtime core.
type RuntimeMetrics interface {
	// EventSubmitted is called when a driver enqueued an event.
	EventSubmitted(cause string)

	// EventApplied reports an event applied to the kernel and the time it took.
	EventApplied(cause string, duration time.Duration)

	// EventRejected reports an event the kernel refused.
	EventRejected(cause string)

	// CommandBroadcast is called for every command published to the drivers.
	CommandBroadcast(tag string)

	// InputQueueLength reports the number of queued events.
	InputQueueLength(length int)

	// KernelVersion reports the version of the committed kernel state.
	KernelVersion(version uint64)

	// DriverRestarted is called each time a driver is restarted after a failure.
	DriverRestarted(driver string)

	// DriverOverrun reports a driver that fell behind the command stream.
	DriverOverrun(driver string, missed uint64)
}

// MiningMetrics reports on proof-of-work searches.
type MiningMetrics interface {
	SearchStarted()
	SearchCancelled()
	SolutionFound(duration time.Duration)
	HashesComputed(count uint64)
	SolvedCacheHit()
}

// NetworkMetrics reports on the gossip and direct push traffic.
type NetworkMetrics interface {
	MessagePublished(topic string, sizeBytes int)
	MessageReceived(topic string, sizeBytes int)
	MessageDropped(topic string, reason string)
	ConnectedPeers(count int)
}

// ClientMetrics reports on the local client socket.
type ClientMetrics interface {
	ClientConnected()
	ClientDisconnected()
	ClientRequestReceived(kind string)
	ClientResponseDropped()
}

// StorageMetrics reports on kernel snapshots.
type StorageMetrics interface {
	SnapshotPersisted(sizeBytes int, duration time.Duration)
}
