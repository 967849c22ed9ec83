package reference

import (
	"github.com/zenith-chain/node/kernel"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

// assemble builds the next mining candidate on top of the head into the (already
// copied) state and returns the search-pow command for it.
func (k *Kernel) assemble(next *State) command.Command {
	limit := len(next.pending)
	if limit > k.config.MaxBlockTransactions {
		limit = k.config.MaxBlockTransactions
	}
	txs := append([]chain.Transaction(nil), next.pending[:limit]...)

	header := chain.Header{
		ParentID:    next.head.id,
		Height:      next.head.block.Header.Height + 1,
		Tick:        next.ticks,
		PayloadHash: chain.PayloadHash(txs),
		Target:      k.config.Target,
		Miner:       k.config.MinerKey,
	}
	next.candidate = &header
	next.candidateTxs = txs
	return command.NewSearchPow(header)
}

// candidateStale is true when there is no candidate or the pool holds transactions the
// candidate could still include.
func (k *Kernel) candidateStale(s *State) bool {
	if s.candidate == nil {
		return true
	}
	return len(s.candidateTxs) < k.config.MaxBlockTransactions && len(s.candidateTxs) < len(s.pending)
}

func (k *Kernel) onPowSolution(s *State, solution event.PowSolution) (kernel.State, []command.Command, error) {
	if s.candidate == nil {
		return nil, nil, kernel.NewRejectedErrorf(event.NamePowSolution, "no search in progress for %x", solution.WorkID)
	}
	if s.candidate.WorkID() != solution.WorkID {
		return nil, nil, kernel.NewRejectedErrorf(event.NamePowSolution, "stale solution for %x, current search is %x", solution.WorkID, s.candidate.WorkID())
	}
	header := *s.candidate
	header.Nonce = solution.Nonce
	if !header.MeetsTarget() {
		return nil, nil, kernel.NewRejectedErrorf(event.NamePowSolution, "nonce %d does not meet target for %x", solution.Nonce, solution.WorkID)
	}

	block := chain.Block{Header: header, Transactions: s.candidateTxs}
	next := s.mutate()
	next.extend(block)
	commands := []command.Command{
		command.NewGossipBlock(block),
		k.assemble(next),
	}
	return next, commands, nil
}
