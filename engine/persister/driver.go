// Package persister periodically writes kernel state snapshots to storage and
// restores the latest one at startup.
package persister

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/storage"
)

const DriverName = "persister"

// Snapshotter encodes the latest committed state.
type Snapshotter interface {
	Snapshot() (uint64, []byte, error)
}

// Restorer replaces the state before the event loop starts.
type Restorer interface {
	Restore(data []byte) error
}

type Driver struct {
	log       zerolog.Logger
	metrics   module.StorageMetrics
	clock     clock.Clock
	interval  time.Duration
	snapshots storage.Snapshots
	source    Snapshotter

	// version of the last snapshot written, shared across restarts
	persisted *atomic.Uint64
}

var _ core.Driver = (*Driver)(nil)

func New(
	log zerolog.Logger,
	metrics module.StorageMetrics,
	clk clock.Clock,
	interval time.Duration,
	snapshots storage.Snapshots,
	source Snapshotter,
) (*Driver, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("snapshot interval must be positive, got %s", interval)
	}
	return &Driver{
		log:       log.With().Str("engine", DriverName).Logger(),
		metrics:   metrics,
		clock:     clk,
		interval:  interval,
		snapshots: snapshots,
		source:    source,
		persisted: atomic.NewUint64(0),
	}, nil
}

// Restore loads the latest stored snapshot into the target. It returns the restored
// snapshot, or nil if storage holds none.
func (d *Driver) Restore(target Restorer) (*storage.Snapshot, error) {
	snapshot, err := d.snapshots.Latest()
	if errors.Is(err, storage.ErrNotFound) {
		d.log.Info().Msg("no snapshot found, starting from the initial state")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not load latest snapshot: %w", err)
	}

	err = target.Restore(snapshot.Data)
	if err != nil {
		return nil, fmt.Errorf("could not restore snapshot %d: %w", snapshot.Version, err)
	}
	d.persisted.Store(snapshot.Version)

	d.log.Info().
		Uint64("version", snapshot.Version).
		Time("created_at", snapshot.CreatedAt).
		Msg("restored state from snapshot")
	return snapshot, nil
}

// Run writes a snapshot every interval, and a final one on shutdown. The command
// stream is ignored.
func (d *Driver) Run(ctx irrecoverable.SignalerContext, _ core.Submitter, _ core.CommandStream) error {
	ticker := d.clock.Ticker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := d.persist()
			if err != nil {
				d.log.Error().Err(err).Msg("could not write final snapshot")
			}
			return nil
		case <-ticker.C:
			err := d.persist()
			if err != nil {
				return err
			}
		}
	}
}

func (d *Driver) persist() error {
	start := d.clock.Now()
	version, data, err := d.source.Snapshot()
	if err != nil {
		return fmt.Errorf("could not take snapshot: %w", err)
	}
	if version == d.persisted.Load() {
		return nil
	}

	err = d.snapshots.Store(&storage.Snapshot{
		Version:   version,
		Data:      data,
		CreatedAt: start.UTC(),
	})
	if err != nil {
		return fmt.Errorf("could not store snapshot %d: %w", version, err)
	}
	d.persisted.Store(version)

	duration := d.clock.Since(start)
	d.metrics.SnapshotPersisted(len(data), duration)
	d.log.Debug().
		Uint64("version", version).
		Int("size", len(data)).
		Dur("duration", duration).
		Msg("snapshot persisted")
	return nil
}
