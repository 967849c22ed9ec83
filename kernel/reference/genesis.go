package reference

import (
	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

// onGenesisTemplate stores a Leader's template without finalizing it. The template is
// only confirmed once it is heard back from the network.
func (k *Kernel) onGenesisTemplate(s *State, template chain.Block) (kernel.State, []command.Command, error) {
	if k.config.Role != chain.RoleLeader {
		return nil, nil, kernel.NewRejectedErrorf(event.NameGenesisTemplate, "node is a %s", k.config.Role)
	}
	if s.phase != PhaseIdle {
		return nil, nil, kernel.NewRejectedErrorf(event.NameGenesisTemplate, "genesis already %s", s.phase)
	}
	if !template.IsGenesis() {
		return nil, nil, kernel.NewRejectedErrorf(event.NameGenesisTemplate, "template at height %d is not a first block", template.Header.Height)
	}
	if err := template.Validate(); err != nil {
		return nil, nil, kernel.NewRejectedErrorf(event.NameGenesisTemplate, "template %x: %w", template.ID(), err)
	}

	next := s.mutate()
	next.phase = PhaseAwaitingConfirmation
	next.template = &template
	next.templateTicks = 0
	return next, nil, nil
}

// onHeardGenesis handles a height zero block.
//   - Confirmed: the same genesis is a duplicate, any other is rejected.
//   - Awaiting confirmation: only the template confirms, and it is not gossiped again.
//   - Idle: the first valid genesis is adopted and gossiped once.
func (k *Kernel) onHeardGenesis(s *State, block chain.Block) (kernel.State, []command.Command, error) {
	blockID := block.ID()

	switch s.phase {
	case PhaseConfirmed:
		genesisID, _ := s.Genesis()
		if genesisID == blockID {
			return s, nil, nil
		}
		return nil, nil, kernel.NewRejectedErrorf(event.NameHeardBlock, "conflicting genesis %x, confirmed %x", blockID, genesisID)

	case PhaseAwaitingConfirmation:
		if s.template.ID() != blockID {
			return nil, nil, kernel.NewRejectedErrorf(event.NameHeardBlock, "genesis %x differs from template %x", blockID, s.template.ID())
		}
		next := k.confirm(s, block)
		return next, k.afterConfirmation(next, blockID), nil

	default:
		next := k.confirm(s, block)
		commands := []command.Command{command.NewGossipBlock(block)}
		return next, append(commands, k.afterConfirmation(next, blockID)...), nil
	}
}

func (k *Kernel) confirm(s *State, genesis chain.Block) *State {
	next := s.mutate()
	next.phase = PhaseConfirmed
	next.template = nil
	next.templateTicks = 0
	next.head = nil
	next.extend(genesis)
	return next
}

func (k *Kernel) afterConfirmation(next *State, genesisID chain.Identifier) []command.Command {
	commands := []command.Command{command.NewGenesisConfirmed(genesisID, k.config.Role)}
	if k.config.mining() {
		commands = append(commands, k.assemble(next))
	}
	return commands
}
