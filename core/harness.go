package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/module/broadcast"
	"github.com/zenith-chain/node/module/component"
	"github.com/zenith-chain/node/module/irrecoverable"
)

// driverRecord is created at registration and lives for the lifetime of the core.
type driverRecord struct {
	name         string
	driver       Driver
	subscription *broadcast.Subscription[command.Command] // consumed by the first run
}

// runDrivers launches every registered driver under its own restart loop. Drivers are
// cancelled as soon as the event loop begins shutting down, including after a kernel
// fault, so none of them outlives the command stream.
func (c *Core) runDrivers(parent irrecoverable.SignalerContext, ready component.ReadyFunc) {
	c.mu.Lock()
	drivers := append([]*driverRecord(nil), c.drivers...)
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c.mu.Lock()
	c.cancelDrivers = cancel
	stopping := c.stopping
	c.mu.Unlock()
	if stopping {
		cancel()
	}

	var wg sync.WaitGroup
	wg.Add(len(drivers))
	for _, record := range drivers {
		record := record
		go func() {
			defer wg.Done()
			c.superviseDriver(ctx, record)
		}()
	}
	ready()
	wg.Wait()
}

// superviseDriver runs a driver until the core shuts down or the driver returns
// cleanly, restarting it with exponential backoff after every failure.
func (c *Core) superviseDriver(ctx context.Context, record *driverRecord) {
	log := c.log.With().Str("driver", record.name).Logger()

	backoff := c.restartBackoff()

	var instanceStarted time.Time
	factory := func() (component.Component, error) {
		subscription := record.subscription
		record.subscription = nil
		if subscription == nil {
			subscription = c.commands.Subscribe()
		}
		instanceStarted = time.Now()
		return c.driverInstance(record, subscription), nil
	}

	onError := func(err error) component.ErrorHandlingResult {
		var overrun broadcast.OverrunError
		if errors.As(err, &overrun) {
			c.metrics.DriverOverrun(record.name, overrun.Missed)
		}
		if time.Since(instanceStarted) > c.config.RestartBackoffMax {
			// the failed instance was healthy for a while, start over from the minimum delay
			backoff = c.restartBackoff()
		}
		delay, stop := backoff.Next()
		if stop {
			return component.ErrorHandlingStop
		}
		log.Warn().Err(err).Dur("restart_in", delay).Msg("driver failed, restarting")
		c.metrics.DriverRestarted(record.name)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return component.ErrorHandlingStop
		case <-timer.C:
			return component.ErrorHandlingRestart
		}
	}

	err := component.RunComponent(ctx, factory, onError)
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("driver stopped")
		return
	}
	log.Debug().Msg("driver exited")
}

func (c *Core) restartBackoff() retry.Backoff {
	backoff := retry.NewExponential(c.config.RestartBackoffMin)
	return retry.WithCappedDuration(c.config.RestartBackoffMax, backoff)
}

// driverInstance wraps one run of a driver into a component. Errors returned by the
// driver and panics are thrown so that RunComponent can restart it.
func (c *Core) driverInstance(record *driverRecord, subscription *broadcast.Subscription[command.Command]) component.Component {
	return component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			err := c.runGuarded(ctx, record, subscription)
			if err == nil || ctx.Err() != nil || isStreamClosed(err) {
				return
			}
			ctx.Throw(fmt.Errorf("driver %s failed: %w", record.name, err))
		}).
		Build()
}

func (c *Core) runGuarded(ctx irrecoverable.SignalerContext, record *driverRecord, subscription *broadcast.Subscription[command.Command]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = DriverPanicError{Driver: record.name, Value: r}
		}
	}()
	return record.driver.Run(ctx, c, subscription)
}
