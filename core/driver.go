package core

import (
	"context"

	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module/irrecoverable"
)

// Submitter enqueues events for the runtime core.
type Submitter interface {
	// Submit enqueues the event, waiting for room while the input queue is full.
	// Expected errors during normal operations:
	//   - ErrShutdown once the core has begun shutting down
	Submit(ev event.Event) error
}

// CommandStream is a driver's cursor into the command broadcast.
type CommandStream interface {
	// Next blocks until the next command is available.
	// Expected errors during normal operations:
	//   - broadcast.OverrunError if the driver fell behind and commands were lost
	//   - broadcast.ErrClosed once the stream is closed and drained
	//   - the context error if ctx is done
	Next(ctx context.Context) (command.Command, error)
}

// Driver is an independently scheduled unit which performs effects on behalf of the
// kernel. It reads the full command stream, acts on the tags it knows and submits
// events for the stimuli it observes.
//
// Run blocks until ctx is cancelled or the driver fails. A returned error, a thrown
// error or a panic restarts the driver after a backoff, with a fresh stream positioned
// at the latest command. A nil return ends the driver for good.
type Driver interface {
	Run(ctx irrecoverable.SignalerContext, submit Submitter, commands CommandStream) error
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx irrecoverable.SignalerContext, submit Submitter, commands CommandStream) error

func (f DriverFunc) Run(ctx irrecoverable.SignalerContext, submit Submitter, commands CommandStream) error {
	return f(ctx, submit, commands)
}
