// Package core implements the runtime core of the node: a single-writer event loop
// which applies events to the kernel one at a time and broadcasts the resulting
// commands to the registered drivers.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/broadcast"
	"github.com/zenith-chain/node/module/component"
	"github.com/zenith-chain/node/module/irrecoverable"
)

const (
	DefaultQueueCapacity     = 1024
	DefaultBroadcastCapacity = 4096
	DefaultRestartBackoffMin = 100 * time.Millisecond
	DefaultRestartBackoffMax = 10 * time.Second
)

type Config struct {
	// QueueCapacity bounds the input queue. Submit waits while it is full.
	QueueCapacity int
	// BroadcastCapacity is the number of commands retained for lagging drivers.
	BroadcastCapacity int
	RestartBackoffMin time.Duration
	RestartBackoffMax time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueCapacity:     DefaultQueueCapacity,
		BroadcastCapacity: DefaultBroadcastCapacity,
		RestartBackoffMin: DefaultRestartBackoffMin,
		RestartBackoffMax: DefaultRestartBackoffMax,
	}
}

// committed boxes a kernel state so it can be swapped atomically.
type committed struct {
	state kernel.State
}

// Core owns the kernel state, the input queue and the command broadcast.
type Core struct {
	*component.ComponentManager
	log     zerolog.Logger
	metrics module.RuntimeMetrics
	config  Config
	kernel  kernel.Kernel

	state    *atomic.Pointer[committed]
	input    chan event.Event
	commands *broadcast.Broadcaster[command.Command]

	shutdown     chan struct{}
	shutdownOnce sync.Once

	mu            sync.Mutex // protects the fields below
	started       bool
	drivers       []*driverRecord
	stopping      bool
	cancelDrivers context.CancelFunc
}

var _ component.Component = (*Core)(nil)
var _ Submitter = (*Core)(nil)

// New creates a runtime core around the given kernel, starting from its initial state.
func New(log zerolog.Logger, metrics module.RuntimeMetrics, k kernel.Kernel, config Config) (*Core, error) {
	if config.QueueCapacity < 1 {
		return nil, fmt.Errorf("input queue capacity must be positive, got %d", config.QueueCapacity)
	}
	if config.RestartBackoffMin <= 0 || config.RestartBackoffMax < config.RestartBackoffMin {
		return nil, fmt.Errorf("invalid driver restart backoff [%s, %s]", config.RestartBackoffMin, config.RestartBackoffMax)
	}
	commands, err := broadcast.NewBroadcaster[command.Command](config.BroadcastCapacity)
	if err != nil {
		return nil, fmt.Errorf("could not create command broadcast: %w", err)
	}

	initial := k.Initial()
	if initial == nil {
		return nil, fmt.Errorf("kernel returned no initial state")
	}

	c := &Core{
		log:      log.With().Str("component", "runtime_core").Logger(),
		metrics:  metrics,
		config:   config,
		kernel:   k,
		state:    atomic.NewPointer(&committed{state: initial}),
		input:    make(chan event.Event, config.QueueCapacity),
		commands: commands,
		shutdown: make(chan struct{}),
	}

	c.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(c.loop).
		AddWorker(c.runDrivers).
		Build()

	return c, nil
}

// RegisterDriver adds a driver to be run when the core starts.
// Expected errors during normal operations:
//   - ErrAlreadyStarted if the core has been started
func (c *Core) RegisterDriver(name string, driver Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("cannot register driver %s: %w", name, ErrAlreadyStarted)
	}
	for _, record := range c.drivers {
		if record.name == name {
			return fmt.Errorf("driver %s already registered", name)
		}
	}
	c.drivers = append(c.drivers, &driverRecord{name: name, driver: driver})
	return nil
}

// Start starts the event loop and every registered driver. Each driver is subscribed
// to the command stream before the first event is applied.
func (c *Core) Start(ctx irrecoverable.SignalerContext) {
	c.mu.Lock()
	c.started = true
	for _, record := range c.drivers {
		record.subscription = c.commands.Subscribe()
	}
	c.mu.Unlock()

	c.ComponentManager.Start(ctx)
}

// Submit enqueues an event. It does not block while the queue has room.
func (c *Core) Submit(ev event.Event) error {
	select {
	case <-c.shutdown:
		return ErrShutdown
	default:
	}

	select {
	case c.input <- ev:
		c.metrics.EventSubmitted(causeName(ev))
		return nil
	case <-c.shutdown:
		return ErrShutdown
	}
}

// State returns the latest committed kernel state without blocking the event loop.
func (c *Core) State() kernel.State {
	return c.state.Load().state
}

// Snapshot encodes the latest committed kernel state and returns it with its version.
func (c *Core) Snapshot() (uint64, []byte, error) {
	state := c.State()
	data, err := c.kernel.Encode(state)
	if err != nil {
		return 0, nil, fmt.Errorf("could not encode kernel state version %d: %w", state.Version(), err)
	}
	return state.Version(), data, nil
}

// Restore replaces the kernel state with a decoded snapshot.
// Expected errors during normal operations:
//   - ErrAlreadyStarted if the event loop has been started
func (c *Core) Restore(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("cannot restore kernel state: %w", ErrAlreadyStarted)
	}
	state, err := c.kernel.Decode(data)
	if err != nil {
		return fmt.Errorf("could not decode kernel state: %w", err)
	}
	c.state.Store(&committed{state: state})
	c.metrics.KernelVersion(state.Version())
	c.log.Info().Uint64("version", state.Version()).Msg("kernel state restored")
	return nil
}

// loop is the single writer of the kernel state.
func (c *Core) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	defer c.beginShutdown()
	ready()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.input:
			err := c.apply(ev)
			if err != nil {
				c.log.Error().Err(err).Msg("kernel fault")
				ctx.Throw(err)
			}
		}
	}
}

// apply runs one event through the kernel, commits the resulting state and publishes
// the command batch. No error is returned for rejected events; any error returned
// is a kernel fault.
func (c *Core) apply(ev event.Event) error {
	start := time.Now()
	cause := causeName(ev)
	current := c.State()

	next, commands, err := c.kernel.Apply(current, ev)
	if err != nil {
		if kernel.IsRejectedError(err) {
			c.metrics.EventRejected(cause)
			c.log.Debug().
				Err(err).
				Str("origin", ev.Origin.String()).
				Str("cause", cause).
				Msg("event rejected")
			return nil
		}
		return fmt.Errorf("could not apply %s event from %s at version %d: %w", cause, ev.Origin, current.Version(), err)
	}
	if next == nil {
		return fmt.Errorf("kernel returned no state for %s event from %s", cause, ev.Origin)
	}

	c.state.Store(&committed{state: next})

	if len(commands) > 0 {
		err = c.commands.Publish(commands...)
		if err != nil {
			return fmt.Errorf("could not broadcast %d commands: %w", len(commands), err)
		}
		for _, cmd := range commands {
			c.metrics.CommandBroadcast(cmd.Tag.String())
		}
	}

	c.metrics.EventApplied(cause, time.Since(start))
	c.metrics.KernelVersion(next.Version())
	c.metrics.InputQueueLength(len(c.input))

	c.log.Trace().
		Str("origin", ev.Origin.String()).
		Str("cause", cause).
		Uint64("version", next.Version()).
		Int("commands", len(commands)).
		Msg("event applied")
	return nil
}

// beginShutdown rejects further submissions and cancels the drivers before the
// command stream is closed.
func (c *Core) beginShutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.stopping = true
		cancelDrivers := c.cancelDrivers
		c.mu.Unlock()
		if cancelDrivers != nil {
			cancelDrivers()
		}
		close(c.shutdown)
		c.commands.Close()
	})
}

func causeName(ev event.Event) string {
	if ev.Cause == nil {
		return "none"
	}
	return ev.Cause.Name()
}

// isStreamClosed reports whether err only signals the end of the command stream.
func isStreamClosed(err error) bool {
	return errors.Is(err, broadcast.ErrClosed) || errors.Is(err, ErrShutdown)
}
