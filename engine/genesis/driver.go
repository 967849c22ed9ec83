// Package genesis implements the coordinator driving the Leader/Watcher bootstrap of
// the first block.
//
// A Leader proposes its template once at startup. The kernel holds the template and
// re-gossips it on ticks, and only finalizes it once the template is heard back from
// a peer. A Watcher never proposes; it adopts the first valid genesis it hears. Two
// Leaders waiting on each other, or a Leader whose only peer is another Leader, never
// confirm: isolation from the default bootstrap peers, with an explicit Watcher peer,
// is what makes the handshake complete.
package genesis

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module/irrecoverable"
)

const DriverName = "genesis"

// Phase of the bootstrap as observed by the coordinator.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseProposed  Phase = "proposed"
	PhaseConfirmed Phase = "confirmed"
)

// GenesisReader reports the genesis finalized by the runtime state, if any.
type GenesisReader interface {
	ConfirmedGenesis() (chain.Identifier, bool)
}

// GenesisReaderFunc adapts a function to the GenesisReader interface.
type GenesisReaderFunc func() (chain.Identifier, bool)

func (f GenesisReaderFunc) ConfirmedGenesis() (chain.Identifier, bool) {
	return f()
}

type Config struct {
	Role chain.Role
	// Propose enables the template proposal. Only a Leader which needs no external
	// anchor (isolated or test networks) proposes.
	Propose  bool
	Template chain.Block
	// State is read on creation and at the start of every run, so a genesis restored
	// from a snapshot or confirmed while the driver was not subscribed is observed.
	// Optional.
	State GenesisReader
}

// Status is a snapshot of the coordinator.
type Status struct {
	Role      chain.Role
	Phase     Phase
	GenesisID chain.Identifier
}

type Driver struct {
	log    zerolog.Logger
	config Config
	origin event.Wire

	proposed      *atomic.Bool
	confirmed     chan struct{}
	confirmedOnce sync.Once

	mu     sync.RWMutex
	status Status
}

var _ core.Driver = (*Driver)(nil)

func New(log zerolog.Logger, config Config) (*Driver, error) {
	if config.Propose {
		if config.Role != chain.RoleLeader {
			return nil, fmt.Errorf("only a leader proposes a genesis template, node is a %s", config.Role)
		}
		if !config.Template.IsGenesis() {
			return nil, fmt.Errorf("template at height %d is not a first block", config.Template.Header.Height)
		}
		if err := config.Template.Validate(); err != nil {
			return nil, fmt.Errorf("invalid genesis template: %w", err)
		}
	}
	d := &Driver{
		log:       log.With().Str("engine", DriverName).Str("role", config.Role.String()).Logger(),
		config:    config,
		origin:    event.NewWire(DriverName, config.Role.String()),
		proposed:  atomic.NewBool(false),
		confirmed: make(chan struct{}),
		status:    Status{Role: config.Role, Phase: PhaseIdle},
	}
	d.resync()
	return d, nil
}

// Confirmed is closed once genesis is final.
func (d *Driver) Confirmed() <-chan struct{} {
	return d.confirmed
}

func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// MarkConfirmed records a genesis known without observing the handshake, e.g. one
// restored from a snapshot. The template is then never proposed.
func (d *Driver) MarkConfirmed(genesisID chain.Identifier) {
	d.proposed.Store(true)
	d.confirm(genesisID)
}

func (d *Driver) Run(ctx irrecoverable.SignalerContext, submit core.Submitter, commands core.CommandStream) error {
	d.resync()

	err := d.propose(submit)
	if err != nil {
		if errors.Is(err, core.ErrShutdown) {
			return nil
		}
		return err
	}

	for {
		cmd, err := commands.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("could not read command stream: %w", err)
		}
		if cmd.Tag != command.TagGenesisConfirmed {
			continue
		}
		confirmed, ok := cmd.Payload.(command.GenesisConfirmed)
		if !ok {
			d.log.Warn().Str("payload", fmt.Sprintf("%T", cmd.Payload)).Msg("ignoring genesis-confirmed command with unexpected payload")
			continue
		}
		d.confirm(confirmed.BlockID)
	}
}

// resync confirms a genesis the runtime state already finalized. The command stream
// is subscribed before the run starts, so any later confirmation is still delivered.
func (d *Driver) resync() {
	if d.config.State == nil {
		return
	}
	genesisID, ok := d.config.State.ConfirmedGenesis()
	if ok {
		d.MarkConfirmed(genesisID)
	}
}

// propose submits the template once over the lifetime of the driver, restarts included.
func (d *Driver) propose(submit core.Submitter) error {
	if !d.config.Propose || !d.proposed.CompareAndSwap(false, true) {
		return nil
	}
	templateID := d.config.Template.ID()
	err := submit.Submit(event.New(d.origin, event.GenesisTemplate{Block: d.config.Template}))
	if err != nil {
		d.proposed.Store(false)
		return fmt.Errorf("could not submit genesis template: %w", err)
	}

	d.mu.Lock()
	if d.status.Phase == PhaseIdle {
		d.status.Phase = PhaseProposed
		d.status.GenesisID = templateID
	}
	d.mu.Unlock()

	d.log.Info().Hex("template_id", templateID[:]).Msg("genesis template proposed, awaiting confirmation from a peer")
	return nil
}

func (d *Driver) confirm(genesisID chain.Identifier) {
	d.mu.Lock()
	if d.status.Phase == PhaseConfirmed {
		d.mu.Unlock()
		if d.status.GenesisID != genesisID {
			d.log.Error().
				Hex("confirmed_id", d.status.GenesisID[:]).
				Hex("genesis_id", genesisID[:]).
				Msg("conflicting genesis confirmation")
		}
		return
	}
	d.status.Phase = PhaseConfirmed
	d.status.GenesisID = genesisID
	d.mu.Unlock()

	d.confirmedOnce.Do(func() {
		close(d.confirmed)
	})
	d.log.Info().Hex("genesis_id", genesisID[:]).Msg("genesis confirmed")
}
