package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/zenith-chain/node/storage"
)

func InsertSnapshot(snapshot *storage.Snapshot) func(*badger.Txn) error {
	return insert(makePrefix(codeSnapshot, snapshot.Version), snapshot)
}

func RetrieveSnapshot(version uint64, snapshot *storage.Snapshot) func(*badger.Txn) error {
	return retrieve(makePrefix(codeSnapshot, version), snapshot)
}

func UpdateLatestSnapshot(version uint64) func(*badger.Txn) error {
	return upsert(makePrefix(codeLatestSnapshot), version)
}

func RetrieveLatestSnapshot(version *uint64) func(*badger.Txn) error {
	return retrieve(makePrefix(codeLatestSnapshot), version)
}

// LookupSnapshotVersions collects the versions of all retained snapshots, oldest first.
func LookupSnapshotVersions(versions *[]uint64) func(*badger.Txn) error {
	*versions = (*versions)[:0]
	return traverseKeys(makePrefix(codeSnapshot), func(key []byte) error {
		if len(key) != 9 {
			return fmt.Errorf("malformed snapshot key %x", key)
		}
		*versions = append(*versions, binary.BigEndian.Uint64(key[1:]))
		return nil
	})
}

func RemoveSnapshot(version uint64) func(*badger.Txn) error {
	return remove(makePrefix(codeSnapshot, version))
}
