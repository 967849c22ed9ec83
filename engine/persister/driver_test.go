package persister_test

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/engine/persister"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/metrics"
	"github.com/zenith-chain/node/storage"
	bstorage "github.com/zenith-chain/node/storage/badger"
	"github.com/zenith-chain/node/utils/unittest"
)

// versionSource encodes its version as the snapshot payload.
type versionSource struct {
	mu       sync.Mutex
	version  uint64
	restored []byte
}

func (v *versionSource) Snapshot() (uint64, []byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, v.version)
	return v.version, data, nil
}

func (v *versionSource) Restore(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.restored = data
	v.version = binary.BigEndian.Uint64(data)
	return nil
}

func (v *versionSource) set(version uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version = version
}

func TestPersister_WritesSnapshotsPeriodically(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		snapshots, err := bstorage.NewSnapshots(db, 4)
		require.NoError(t, err)

		clk := clock.NewMock()
		source := &versionSource{version: 3}
		driver, err := persister.New(unittest.Logger(), metrics.NewNoopCollector(), clk, time.Minute, snapshots, source)
		require.NoError(t, err)

		ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
		done := make(chan error, 1)
		go func() {
			done <- driver.Run(ctx, nil, nil)
		}()

		waitForLatest := func(version uint64) {
			require.Eventually(t, func() bool {
				clk.Add(time.Minute)
				latest, err := snapshots.Latest()
				return err == nil && latest.Version == version
			}, 2*time.Second, 10*time.Millisecond)
		}

		waitForLatest(3)
		source.set(8)
		waitForLatest(8)

		// a final snapshot is written on shutdown
		source.set(9)
		cancel()
		var runErr error
		unittest.RequireReturnsBefore(t, func() { runErr = <-done }, time.Second, "persister did not stop")
		require.NoError(t, runErr)

		latest, err := snapshots.Latest()
		require.NoError(t, err)
		assert.Equal(t, uint64(9), latest.Version)
		assert.Equal(t, uint64(9), binary.BigEndian.Uint64(latest.Data))
	})
}

func TestPersister_Restore(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		snapshots, err := bstorage.NewSnapshots(db, 4)
		require.NoError(t, err)

		driver, err := persister.New(unittest.Logger(), metrics.NewNoopCollector(), clock.NewMock(), time.Minute, snapshots, &versionSource{})
		require.NoError(t, err)

		target := &versionSource{}
		restored, err := driver.Restore(target)
		require.NoError(t, err)
		assert.Nil(t, restored)
		assert.Nil(t, target.restored)

		data := make([]byte, 8)
		binary.BigEndian.PutUint64(data, 12)
		require.NoError(t, snapshots.Store(&storage.Snapshot{Version: 12, Data: data}))

		restored, err = driver.Restore(target)
		require.NoError(t, err)
		require.NotNil(t, restored)
		assert.Equal(t, uint64(12), restored.Version)
		assert.Equal(t, data, target.restored)
	})
}

func TestPersister_InvalidInterval(t *testing.T) {
	_, err := persister.New(unittest.Logger(), metrics.NewNoopCollector(), clock.NewMock(), 0, nil, nil)
	require.Error(t, err)
}
