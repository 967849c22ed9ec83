package listener

import (
	"fmt"

	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
)

// Request is the msgpack frame sent by clients.
type Request struct {
	ID          uint64             `msgpack:"id"`
	Kind        string             `msgpack:"kind"`
	Transaction *chain.Transaction `msgpack:"transaction,omitempty"`
	BlockID     string             `msgpack:"block_id,omitempty"`
}

// Response is the msgpack frame written back to clients. IDs are hex encoded.
type Response struct {
	ID     uint64       `msgpack:"id"`
	Error  string       `msgpack:"error,omitempty"`
	Status *Status      `msgpack:"status,omitempty"`
	Block  *chain.Block `msgpack:"block,omitempty"`
	TxID   string       `msgpack:"tx_id,omitempty"`
}

type Status struct {
	Role          string `msgpack:"role"`
	GenesisPhase  string `msgpack:"genesis_phase"`
	GenesisID     string `msgpack:"genesis_id"`
	Height        uint64 `msgpack:"height"`
	HeadID        string `msgpack:"head_id"`
	PendingCount  int    `msgpack:"pending_count"`
	Ticks         uint64 `msgpack:"ticks"`
	KernelVersion uint64 `msgpack:"kernel_version"`
}

// toEvent converts a request into the kernel's event, validating what can be validated
// without the kernel state.
func (r Request) toEvent(connID string) (event.ClientRequest, error) {
	request := event.ClientRequest{
		ConnID:    connID,
		RequestID: r.ID,
		Kind:      event.RequestKind(r.Kind),
	}
	switch request.Kind {
	case event.RequestStatus:
	case event.RequestSubmitTransaction:
		if r.Transaction == nil {
			return request, fmt.Errorf("missing transaction")
		}
		request.Transaction = r.Transaction
	case event.RequestGetBlock:
		blockID, err := chain.HexStringToIdentifier(r.BlockID)
		if err != nil {
			return request, fmt.Errorf("invalid block id %q: %w", r.BlockID, err)
		}
		request.BlockID = blockID
	default:
		return request, fmt.Errorf("unknown request kind %q", r.Kind)
	}
	return request, nil
}

func toResponse(r command.ClientResponse) Response {
	response := Response{
		ID:    r.RequestID,
		Error: r.Error,
		Block: r.Block,
	}
	if r.TxID != nil {
		response.TxID = r.TxID.String()
	}
	if r.Status != nil {
		response.Status = &Status{
			Role:          r.Status.Role,
			GenesisPhase:  r.Status.GenesisPhase,
			GenesisID:     r.Status.GenesisID.String(),
			Height:        r.Status.Height,
			HeadID:        r.Status.HeadID.String(),
			PendingCount:  r.Status.PendingCount,
			Ticks:         r.Status.Ticks,
			KernelVersion: r.Status.KernelVersion,
		}
	}
	return response
}
