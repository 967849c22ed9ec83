// Package kernel defines the boundary between the runtime core and the deterministic
// state-transition function of the node.
package kernel

import (
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

// State is an opaque, versioned kernel state. A committed State is never mutated:
// applying an event to it yields a new value.
type State interface {
	// Version is incremented by every application that mutates the state.
	Version() uint64
}

// Kernel is the deterministic state-transition function. Implementations perform no
// I/O, read no clock and use no randomness beyond what the event carries, so applying
// the same events to the same state always yields the same states and commands.
type Kernel interface {
	// Initial returns the state of a node which has applied no events.
	Initial() State

	// Apply applies the event to the state and returns the successor state together
	// with the ordered batch of commands to broadcast.
	// Expected errors during normal operations:
	//   - RejectedError if the event is invalid with respect to the state. The caller
	//     must keep the old state and broadcast nothing.
	// Any other error is a kernel fault and the node cannot continue.
	Apply(state State, ev event.Event) (State, []command.Command, error)

	// Encode serializes a state for snapshots.
	Encode(state State) ([]byte, error)

	// Decode restores a state from a snapshot produced by Encode.
	Decode(data []byte) (State, error)
}
