package reference

import (
	"fmt"

	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/encoding/cbor"
)

// snapshot is the serialized form of State. The chain is stored oldest block first.
type snapshot struct {
	Version       uint64
	Ticks         uint64
	Phase         Phase
	Template      *chain.Block
	TemplateTicks uint64
	Blocks        []chain.Block
	Pending       []chain.Transaction
	Candidate     *chain.Header
	CandidateTxs  []chain.Transaction
}

func (k *Kernel) Encode(current kernel.State) ([]byte, error) {
	s, ok := current.(*State)
	if !ok || s == nil {
		return nil, fmt.Errorf("unexpected kernel state type %T", current)
	}

	var blocks []chain.Block
	for node := s.head; node != nil; node = node.parent {
		blocks = append(blocks, node.block)
	}
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}

	data, err := cbor.Default.Marshal(snapshot{
		Version:       s.version,
		Ticks:         s.ticks,
		Phase:         s.phase,
		Template:      s.template,
		TemplateTicks: s.templateTicks,
		Blocks:        blocks,
		Pending:       s.pending,
		Candidate:     s.candidate,
		CandidateTxs:  s.candidateTxs,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode kernel state: %w", err)
	}
	return data, nil
}

func (k *Kernel) Decode(data []byte) (kernel.State, error) {
	var snap snapshot
	err := cbor.Default.Unmarshal(data, &snap)
	if err != nil {
		return nil, fmt.Errorf("could not decode kernel state: %w", err)
	}
	if snap.Phase > PhaseConfirmed {
		return nil, fmt.Errorf("invalid genesis phase %d", snap.Phase)
	}
	if (snap.Phase == PhaseConfirmed) != (len(snap.Blocks) > 0) {
		return nil, fmt.Errorf("phase %s inconsistent with %d stored blocks", snap.Phase, len(snap.Blocks))
	}
	if (snap.Phase == PhaseAwaitingConfirmation) != (snap.Template != nil) {
		return nil, fmt.Errorf("phase %s inconsistent with template presence", snap.Phase)
	}

	s := &State{
		version:       snap.Version,
		ticks:         snap.Ticks,
		phase:         snap.Phase,
		template:      snap.Template,
		templateTicks: snap.TemplateTicks,
		pending:       snap.Pending,
		candidate:     snap.Candidate,
		candidateTxs:  snap.CandidateTxs,
	}
	for i, block := range snap.Blocks {
		if s.head != nil && block.Header.ParentID != s.head.id {
			return nil, fmt.Errorf("stored block %d does not extend its predecessor", i)
		}
		s.head = &blockNode{block: block, id: block.ID(), parent: s.head}
	}
	return s, nil
}
