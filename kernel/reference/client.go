package reference

import (
	"fmt"

	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

// onClientRequest answers a local client. Every request receives exactly one response,
// including requests that fail.
func (k *Kernel) onClientRequest(s *State, request event.ClientRequest) (*State, []command.Command) {
	response := command.ClientResponse{
		ConnID:    request.ConnID,
		RequestID: request.RequestID,
	}
	next := s
	var commands []command.Command

	switch request.Kind {
	case event.RequestStatus:
		status := k.status(s)
		response.Status = &status

	case event.RequestGetBlock:
		block, ok := s.Block(request.BlockID)
		if !ok {
			response.Error = fmt.Sprintf("block %x not found", request.BlockID)
			break
		}
		response.Block = &block

	case event.RequestSubmitTransaction:
		if request.Transaction == nil {
			response.Error = "missing transaction"
			break
		}
		tx := *request.Transaction
		admitted, err := k.admit(s, tx)
		if err != nil {
			response.Error = err.Error()
			break
		}
		txID := tx.ID()
		response.TxID = &txID
		if admitted != s {
			next = admitted
			commands = append(commands, command.NewGossipTransaction(tx))
		}

	default:
		response.Error = fmt.Sprintf("unknown request kind %q", request.Kind)
	}

	return next, append(commands, command.NewClientResponse(response))
}

func (k *Kernel) status(s *State) command.Status {
	status := command.Status{
		Role:          k.config.Role.String(),
		GenesisPhase:  s.phase.String(),
		Height:        s.Height(),
		PendingCount:  len(s.pending),
		Ticks:         s.ticks,
		KernelVersion: s.version,
	}
	if genesisID, ok := s.Genesis(); ok {
		status.GenesisID = genesisID
	}
	if s.head != nil {
		status.HeadID = s.head.id
	}
	return status
}
