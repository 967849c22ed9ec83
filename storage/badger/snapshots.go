package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/zenith-chain/node/storage"
	"github.com/zenith-chain/node/storage/badger/operation"
)

// Snapshots implements kernel snapshot storage on top of badger. Only the most
// recent snapshots are retained.
type Snapshots struct {
	db     *badger.DB
	retain int
}

var _ storage.Snapshots = (*Snapshots)(nil)

func NewSnapshots(db *badger.DB, retain int) (*Snapshots, error) {
	if retain < 1 {
		return nil, fmt.Errorf("must retain at least one snapshot, got %d", retain)
	}
	return &Snapshots{
		db:     db,
		retain: retain,
	}, nil
}

func (s *Snapshots) Store(snapshot *storage.Snapshot) error {
	err := operation.RetryOnConflict(s.db.Update, s.storeTx(snapshot))
	return operation.TerminateOnFullDisk(err)
}

func (s *Snapshots) storeTx(snapshot *storage.Snapshot) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		var latest uint64
		err := operation.RetrieveLatestSnapshot(&latest)(tx)
		if err == nil && snapshot.Version <= latest {
			return nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("could not retrieve latest snapshot version: %w", err)
		}

		err = operation.InsertSnapshot(snapshot)(tx)
		if err != nil {
			return fmt.Errorf("could not insert snapshot %d: %w", snapshot.Version, err)
		}
		err = operation.UpdateLatestSnapshot(snapshot.Version)(tx)
		if err != nil {
			return fmt.Errorf("could not update latest snapshot: %w", err)
		}

		var versions []uint64
		err = operation.LookupSnapshotVersions(&versions)(tx)
		if err != nil {
			return fmt.Errorf("could not look up snapshot versions: %w", err)
		}
		for len(versions) > s.retain {
			err = operation.RemoveSnapshot(versions[0])(tx)
			if err != nil {
				return fmt.Errorf("could not prune snapshot %d: %w", versions[0], err)
			}
			versions = versions[1:]
		}
		return nil
	}
}

func (s *Snapshots) Latest() (*storage.Snapshot, error) {
	var snapshot storage.Snapshot
	err := s.db.View(func(tx *badger.Txn) error {
		var latest uint64
		err := operation.RetrieveLatestSnapshot(&latest)(tx)
		if err != nil {
			return err
		}
		return operation.RetrieveSnapshot(latest, &snapshot)(tx)
	})
	if err != nil {
		return nil, fmt.Errorf("could not retrieve latest snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *Snapshots) ByVersion(version uint64) (*storage.Snapshot, error) {
	var snapshot storage.Snapshot
	err := s.db.View(operation.RetrieveSnapshot(version, &snapshot))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve snapshot %d: %w", version, err)
	}
	return &snapshot, nil
}
