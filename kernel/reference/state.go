package reference

import (
	"fmt"

	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/chain"
)

// Phase is the genesis bootstrap phase of a node.
type Phase uint8

const (
	// PhaseIdle: no template proposed and no genesis known.
	PhaseIdle Phase = iota
	// PhaseAwaitingConfirmation: a Leader holds its template and gossips it until it hears it back.
	PhaseAwaitingConfirmation
	// PhaseConfirmed: genesis is final and the chain can be extended.
	PhaseConfirmed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingConfirmation:
		return "awaiting-confirmation"
	case PhaseConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// blockNode links a finalized block to its parent. Nodes are immutable, so states
// share the chain prefix they have in common.
type blockNode struct {
	block  chain.Block
	id     chain.Identifier
	parent *blockNode
}

// State is the reference kernel state. Every field is treated as immutable once the
// state has been returned from Apply; mutations operate on a copy.
type State struct {
	version       uint64
	ticks         uint64
	phase         Phase
	template      *chain.Block
	templateTicks uint64 // ticks applied since the template was accepted
	head          *blockNode
	pending       []chain.Transaction
	candidate     *chain.Header
	candidateTxs  []chain.Transaction
}

var _ kernel.State = (*State)(nil)

func (s *State) Version() uint64 {
	return s.version
}

func (s *State) Phase() Phase {
	return s.phase
}

func (s *State) Ticks() uint64 {
	return s.ticks
}

// Template returns the Leader's genesis template while awaiting confirmation.
func (s *State) Template() (chain.Block, bool) {
	if s.template == nil {
		return chain.Block{}, false
	}
	return *s.template, true
}

// Head returns the latest finalized block.
func (s *State) Head() (chain.Block, bool) {
	if s.head == nil {
		return chain.Block{}, false
	}
	return s.head.block, true
}

// ConfirmedGenesis returns the genesis of a reference kernel state once it is final.
func ConfirmedGenesis(state kernel.State) (chain.Identifier, bool) {
	s, ok := state.(*State)
	if !ok || s.phase != PhaseConfirmed {
		return chain.ZeroID, false
	}
	return s.Genesis()
}

// Genesis returns the ID of the finalized first block.
func (s *State) Genesis() (chain.Identifier, bool) {
	node := s.head
	if node == nil {
		return chain.ZeroID, false
	}
	for node.parent != nil {
		node = node.parent
	}
	return node.id, true
}

// Height of the head block, zero without genesis.
func (s *State) Height() uint64 {
	if s.head == nil {
		return 0
	}
	return s.head.block.Header.Height
}

// Pending returns a copy of the transaction pool in arrival order.
func (s *State) Pending() []chain.Transaction {
	return append([]chain.Transaction(nil), s.pending...)
}

// Candidate returns the header currently offered to the miner.
func (s *State) Candidate() (chain.Header, bool) {
	if s.candidate == nil {
		return chain.Header{}, false
	}
	return *s.candidate, true
}

// Block looks up a finalized block by ID.
func (s *State) Block(blockID chain.Identifier) (chain.Block, bool) {
	for node := s.head; node != nil; node = node.parent {
		if node.id == blockID {
			return node.block, true
		}
	}
	return chain.Block{}, false
}

func (s *State) hasBlock(blockID chain.Identifier) bool {
	_, ok := s.Block(blockID)
	return ok
}

func (s *State) isPending(txID chain.Identifier) bool {
	for _, tx := range s.pending {
		if tx.ID() == txID {
			return true
		}
	}
	return false
}

func (s *State) isIncluded(txID chain.Identifier) bool {
	for node := s.head; node != nil; node = node.parent {
		for _, tx := range node.block.Transactions {
			if tx.ID() == txID {
				return true
			}
		}
	}
	return false
}

// mutate returns a shallow copy of s with the version incremented. Slices are shared
// until replaced, and replaced slices are always freshly allocated.
func (s *State) mutate() *State {
	next := *s
	next.version++
	return &next
}

// extend appends a block on top of the head, dropping its transactions from the pool
// and clearing the mining candidate.
func (s *State) extend(block chain.Block) {
	s.head = &blockNode{block: block, id: block.ID(), parent: s.head}
	included := make(map[chain.Identifier]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		included[tx.ID()] = struct{}{}
	}
	pending := make([]chain.Transaction, 0, len(s.pending))
	for _, tx := range s.pending {
		if _, ok := included[tx.ID()]; !ok {
			pending = append(pending, tx)
		}
	}
	s.pending = pending
	s.candidate = nil
	s.candidateTxs = nil
}
