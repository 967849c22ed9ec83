package storage

import (
	"time"
)

// Snapshot is a persisted kernel state.
type Snapshot struct {
	// Version is the kernel state version the snapshot was taken at.
	Version uint64
	// Data is the kernel's own encoding of the state.
	Data      []byte
	CreatedAt time.Time
}

// Snapshots persists kernel state snapshots, keyed by state version.
type Snapshots interface {

	// Store persists the snapshot and makes it the latest one. Storing a version
	// which is not newer than the latest is a no-op.
	Store(snapshot *Snapshot) error

	// Latest returns the most recently stored snapshot.
	// Expected errors during normal operations:
	//   - storage.ErrNotFound if no snapshot was ever stored
	Latest() (*Snapshot, error)

	// ByVersion returns the snapshot stored at the given version.
	// Expected errors during normal operations:
	//   - storage.ErrNotFound if no such snapshot is retained
	ByVersion(version uint64) (*Snapshot, error)
}
