// Package command defines the outputs of the node kernel. Commands are broadcast to
// every driver; each driver acts on the tags it knows and ignores the rest.
package command

import (
	"github.com/zenith-chain/node/model/chain"
)

// Tag names the kind of a command.
type Tag string

const (
	TagSearchPow        Tag = "search-pow"
	TagGossip           Tag = "gossip"
	TagGenesisConfirmed Tag = "genesis-confirmed"
	TagClientResponse   Tag = "client-response"
)

func (t Tag) String() string {
	return string(t)
}

// Command is an instruction from the kernel to the drivers.
type Command struct {
	Tag     Tag
	Payload interface{}
}

// SearchPow asks the miner to search for a nonce such that the proof-of-work hash of
// Header meets Target. A new search supersedes any search in flight.
type SearchPow struct {
	WorkID chain.Identifier
	Header chain.Header
	Target chain.Target
}

// Gossip asks the network driver to publish exactly one of Block or Transaction.
type Gossip struct {
	Block       *chain.Block
	Transaction *chain.Transaction
}

// GenesisConfirmed reports that genesis has been finalized.
type GenesisConfirmed struct {
	BlockID chain.Identifier
	Role    chain.Role
}

// Status is the node summary returned to clients.
type Status struct {
	Role          string
	GenesisPhase  string
	GenesisID     chain.Identifier
	Height        uint64
	HeadID        chain.Identifier
	PendingCount  int
	Ticks         uint64
	KernelVersion uint64
}

// ClientResponse answers the client request RequestID on connection ConnID.
type ClientResponse struct {
	ConnID    string
	RequestID uint64
	Error     string
	Status    *Status
	Block     *chain.Block
	TxID      *chain.Identifier
}

func NewSearchPow(header chain.Header) Command {
	return Command{Tag: TagSearchPow, Payload: SearchPow{WorkID: header.WorkID(), Header: header, Target: header.Target}}
}

func NewGossipBlock(block chain.Block) Command {
	return Command{Tag: TagGossip, Payload: Gossip{Block: &block}}
}

func NewGossipTransaction(tx chain.Transaction) Command {
	return Command{Tag: TagGossip, Payload: Gossip{Transaction: &tx}}
}

func NewGenesisConfirmed(blockID chain.Identifier, role chain.Role) Command {
	return Command{Tag: TagGenesisConfirmed, Payload: GenesisConfirmed{BlockID: blockID, Role: role}}
}

func NewClientResponse(response ClientResponse) Command {
	return Command{Tag: TagClientResponse, Payload: response}
}
