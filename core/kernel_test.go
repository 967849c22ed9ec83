package core_test

import (
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

const tagEcho command.Tag = "echo"

// echo is the payload of the commands emitted by counterKernel.
type echo struct {
	Version uint64
	Index   int
}

type counterState struct {
	version uint64
}

func (s *counterState) Version() uint64 {
	return s.version
}

// counterKernel increments the version for every Tick and emits `perEvent` echo
// commands. HeardTransaction events are rejected. It records the maximum number of
// concurrent Apply calls it observed.
type counterKernel struct {
	perEvent int
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu      sync.Mutex
	applied []string
}

var _ kernel.Kernel = (*counterKernel)(nil)

func newCounterKernel(perEvent int) *counterKernel {
	return &counterKernel{perEvent: perEvent}
}

func (k *counterKernel) Initial() kernel.State {
	return &counterState{}
}

func (k *counterKernel) Apply(state kernel.State, ev event.Event) (kernel.State, []command.Command, error) {
	n := k.inFlight.Inc()
	defer k.inFlight.Dec()
	for {
		seen := k.maxSeen.Load()
		if n <= seen || k.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	k.mu.Lock()
	k.applied = append(k.applied, ev.Origin.String())
	k.mu.Unlock()

	current := state.(*counterState)
	switch ev.Cause.(type) {
	case event.HeardTransaction:
		return nil, nil, kernel.NewRejectedErrorf(ev.Cause.Name(), "transactions are not accepted")
	case event.Tick:
		next := &counterState{version: current.version + 1}
		commands := make([]command.Command, 0, k.perEvent)
		for i := 0; i < k.perEvent; i++ {
			commands = append(commands, command.Command{Tag: tagEcho, Payload: echo{Version: next.version, Index: i}})
		}
		return next, commands, nil
	default:
		return current, nil, nil
	}
}

func (k *counterKernel) Encode(state kernel.State) ([]byte, error) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], state.Version())
	return b[:], nil
}

func (k *counterKernel) Decode(data []byte) (kernel.State, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("expected 8 bytes, got %d", len(data))
	}
	return &counterState{version: binary.BigEndian.Uint64(data)}, nil
}

func (k *counterKernel) appliedOrigins() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.applied...)
}
