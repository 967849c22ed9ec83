// Package timer implements the driver submitting periodic Tick events.
package timer

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module/irrecoverable"
)

const DriverName = "timer"

// Driver submits a Tick event every interval. It ignores the command stream.
type Driver struct {
	log      zerolog.Logger
	clock    clock.Clock
	interval time.Duration
	origin   event.Wire
}

var _ core.Driver = (*Driver)(nil)

func New(log zerolog.Logger, clk clock.Clock, interval time.Duration) (*Driver, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	return &Driver{
		log:      log.With().Str("engine", DriverName).Logger(),
		clock:    clk,
		interval: interval,
		origin:   event.NewWire(DriverName),
	}, nil
}

func (d *Driver) Run(ctx irrecoverable.SignalerContext, submit core.Submitter, _ core.CommandStream) error {
	ticker := d.clock.Ticker(d.interval)
	defer ticker.Stop()

	d.log.Debug().Dur("interval", d.interval).Msg("timer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := submit.Submit(event.New(d.origin, event.Tick{}))
			if errors.Is(err, core.ErrShutdown) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("could not submit tick: %w", err)
			}
		}
	}
}
