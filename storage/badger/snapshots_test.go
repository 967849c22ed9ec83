package badger_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/storage"
	bstorage "github.com/zenith-chain/node/storage/badger"
	"github.com/zenith-chain/node/utils/unittest"
)

func TestSnapshots_StoreAndLatest(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := bstorage.NewSnapshots(db, 3)
		require.NoError(t, err)

		_, err = store.Latest()
		require.ErrorIs(t, err, storage.ErrNotFound)

		first := &storage.Snapshot{Version: 4, Data: unittest.RandomBytes(64)}
		require.NoError(t, store.Store(first))

		latest, err := store.Latest()
		require.NoError(t, err)
		require.Equal(t, first.Version, latest.Version)
		require.Equal(t, first.Data, latest.Data)

		second := &storage.Snapshot{Version: 10, Data: unittest.RandomBytes(64)}
		require.NoError(t, store.Store(second))

		latest, err = store.Latest()
		require.NoError(t, err)
		require.Equal(t, second.Data, latest.Data)

		older, err := store.ByVersion(4)
		require.NoError(t, err)
		require.Equal(t, first.Data, older.Data)
	})
}

func TestSnapshots_IgnoresStaleVersions(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := bstorage.NewSnapshots(db, 3)
		require.NoError(t, err)

		current := &storage.Snapshot{Version: 10, Data: []byte("current")}
		require.NoError(t, store.Store(current))
		require.NoError(t, store.Store(&storage.Snapshot{Version: 10, Data: []byte("same version")}))
		require.NoError(t, store.Store(&storage.Snapshot{Version: 3, Data: []byte("older")}))

		latest, err := store.Latest()
		require.NoError(t, err)
		require.Equal(t, []byte("current"), latest.Data)

		_, err = store.ByVersion(3)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSnapshots_Retention(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		store, err := bstorage.NewSnapshots(db, 2)
		require.NoError(t, err)

		for version := uint64(1); version <= 5; version++ {
			require.NoError(t, store.Store(&storage.Snapshot{Version: version, Data: []byte{byte(version)}}))
		}

		for _, pruned := range []uint64{1, 2, 3} {
			_, err := store.ByVersion(pruned)
			require.ErrorIs(t, err, storage.ErrNotFound)
		}
		for _, kept := range []uint64{4, 5} {
			snapshot, err := store.ByVersion(kept)
			require.NoError(t, err)
			require.Equal(t, []byte{byte(kept)}, snapshot.Data)
		}
	})
}

func TestSnapshots_InvalidRetention(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		_, err := bstorage.NewSnapshots(db, 0)
		require.Error(t, err)
	})
}
