// Package reference implements an illustrative proof-of-work chain kernel: a linear
// chain with a transaction pool, a single mining candidate and the Leader/Watcher
// genesis bootstrap. It exists so that the runtime core can be run end to end; its
// consensus rules carry no weight beyond that.
package reference

import (
	"errors"
	"fmt"

	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

const (
	DefaultGossipEveryTicks     = 1
	DefaultMaxPending           = 4096
	DefaultMaxBlockTransactions = 256
)

// Config holds the consensus-relevant node configuration.
type Config struct {
	Role   chain.Role
	Target chain.Target
	// MinerKey identifies the beneficiary of mined blocks. Mining is disabled when empty.
	MinerKey []byte
	// GossipEveryTicks is the cadence at which a Leader re-gossips its unconfirmed template.
	GossipEveryTicks     uint64
	MaxPending           int
	MaxBlockTransactions int
}

func DefaultConfig() Config {
	return Config{
		Role:                 chain.RoleWatcher,
		GossipEveryTicks:     DefaultGossipEveryTicks,
		MaxPending:           DefaultMaxPending,
		MaxBlockTransactions: DefaultMaxBlockTransactions,
	}
}

func (c Config) mining() bool {
	return len(c.MinerKey) > 0
}

// Kernel is the reference implementation of kernel.Kernel.
type Kernel struct {
	config Config
}

var _ kernel.Kernel = (*Kernel)(nil)

// New creates a reference kernel.
// Returns an error if the configuration is unusable.
func New(config Config) (*Kernel, error) {
	if config.GossipEveryTicks == 0 {
		return nil, fmt.Errorf("gossip cadence must be at least one tick")
	}
	if config.MaxPending < 1 {
		return nil, fmt.Errorf("transaction pool capacity must be positive, got %d", config.MaxPending)
	}
	if config.MaxBlockTransactions < 1 {
		return nil, fmt.Errorf("block transaction limit must be positive, got %d", config.MaxBlockTransactions)
	}
	return &Kernel{config: config}, nil
}

func (k *Kernel) Initial() kernel.State {
	return &State{}
}

func (k *Kernel) Apply(current kernel.State, ev event.Event) (kernel.State, []command.Command, error) {
	state, ok := current.(*State)
	if !ok || state == nil {
		return nil, nil, fmt.Errorf("unexpected kernel state type %T", current)
	}

	switch cause := ev.Cause.(type) {
	case event.Tick:
		next, commands := k.onTick(state)
		return next, commands, nil
	case event.HeardBlock:
		return k.onHeardBlock(state, cause.Block)
	case event.HeardTransaction:
		return k.onHeardTransaction(state, cause.Transaction)
	case event.PowSolution:
		return k.onPowSolution(state, cause)
	case event.GenesisTemplate:
		return k.onGenesisTemplate(state, cause.Block)
	case event.ClientRequest:
		next, commands := k.onClientRequest(state, cause)
		return next, commands, nil
	case nil:
		return nil, nil, errors.New("event without cause")
	default:
		return nil, nil, fmt.Errorf("unknown event cause %T", cause)
	}
}

func (k *Kernel) onTick(s *State) (*State, []command.Command) {
	next := s.mutate()
	next.ticks++

	var commands []command.Command
	switch next.phase {
	case PhaseAwaitingConfirmation:
		next.templateTicks++
		if next.templateTicks%k.config.GossipEveryTicks == 0 {
			commands = append(commands, command.NewGossipBlock(*next.template))
		}
	case PhaseConfirmed:
		if k.config.mining() && k.candidateStale(next) {
			commands = append(commands, k.assemble(next))
		}
	}
	return next, commands
}

func (k *Kernel) onHeardBlock(s *State, block chain.Block) (kernel.State, []command.Command, error) {
	if err := block.Validate(); err != nil {
		return nil, nil, kernel.NewRejectedErrorf(event.NameHeardBlock, "block %x: %w", block.ID(), err)
	}
	if block.IsGenesis() {
		return k.onHeardGenesis(s, block)
	}

	blockID := block.ID()
	if s.phase != PhaseConfirmed {
		return nil, nil, kernel.NewRejectedErrorf(event.NameHeardBlock, "block %x at height %d before genesis is confirmed", blockID, block.Header.Height)
	}
	if s.hasBlock(blockID) {
		return s, nil, nil
	}
	if err := k.validateExtension(s, block); err != nil {
		return nil, nil, kernel.NewRejectedErrorf(event.NameHeardBlock, "block %x: %w", blockID, err)
	}

	next := s.mutate()
	next.extend(block)
	commands := []command.Command{command.NewGossipBlock(block)}
	if k.config.mining() {
		commands = append(commands, k.assemble(next))
	}
	return next, commands, nil
}

func (k *Kernel) onHeardTransaction(s *State, tx chain.Transaction) (kernel.State, []command.Command, error) {
	next, err := k.admit(s, tx)
	if err != nil {
		return nil, nil, kernel.NewRejectedErrorf(event.NameHeardTransaction, "transaction %x: %w", tx.ID(), err)
	}
	if next == s {
		return s, nil, nil
	}
	return next, []command.Command{command.NewGossipTransaction(tx)}, nil
}

var errPoolFull = errors.New("transaction pool is full")

// admit adds a transaction to the pool. Known transactions leave the state unchanged
// and s itself is returned.
func (k *Kernel) admit(s *State, tx chain.Transaction) (*State, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	txID := tx.ID()
	if s.isPending(txID) || s.isIncluded(txID) {
		return s, nil
	}
	if len(s.pending) >= k.config.MaxPending {
		return nil, errPoolFull
	}
	next := s.mutate()
	pending := make([]chain.Transaction, 0, len(s.pending)+1)
	pending = append(pending, s.pending...)
	next.pending = append(pending, tx)
	return next, nil
}

// validateExtension checks that a block extends the head of the chain.
func (k *Kernel) validateExtension(s *State, block chain.Block) error {
	head := s.head.block.Header
	if block.Header.ParentID != s.head.id {
		return fmt.Errorf("parent %x is not the head %x", block.Header.ParentID, s.head.id)
	}
	if block.Header.Height != head.Height+1 {
		return fmt.Errorf("height %d does not follow head height %d", block.Header.Height, head.Height)
	}
	if block.Header.Target != k.config.Target {
		return fmt.Errorf("unexpected target %s", block.Header.Target)
	}
	if !block.Header.MeetsTarget() {
		return fmt.Errorf("proof of work does not meet target")
	}
	for _, tx := range block.Transactions {
		if s.isIncluded(tx.ID()) {
			return fmt.Errorf("transaction %x already included", tx.ID())
		}
	}
	return nil
}
