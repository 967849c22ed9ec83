// Package event defines the inputs of the node kernel. Events are produced by drivers,
// queued by the runtime core and applied to the kernel exactly once.
package event

import (
	"strings"

	"github.com/zenith-chain/node/model/chain"
)

// Wire is the provenance path of an event, for example ["gossip", "<peer id>"]. It is
// informational only and never influences how the kernel applies an event.
type Wire []string

// NewWire returns a wire rooted at the given segments.
func NewWire(segments ...string) Wire {
	return append(Wire(nil), segments...)
}

// Append returns a new wire extended by the given segments, leaving w untouched.
func (w Wire) Append(segments ...string) Wire {
	out := make(Wire, 0, len(w)+len(segments))
	out = append(out, w...)
	return append(out, segments...)
}

func (w Wire) String() string {
	return strings.Join(w, "/")
}

// Event is an immutable input to the kernel.
type Event struct {
	Origin Wire
	Cause  Cause
}

// New creates an event.
func New(origin Wire, cause Cause) Event {
	return Event{Origin: origin, Cause: cause}
}

// Cause is the closed set of event payloads.
type Cause interface {
	// Name is the tag of the cause, used for logging and metrics.
	Name() string
	isCause()
}

const (
	NameTick             = "tick"
	NameHeardBlock       = "heard-block"
	NameHeardTransaction = "heard-transaction"
	NamePowSolution      = "pow-solution"
	NameGenesisTemplate  = "genesis-template"
	NameClientRequest    = "client-request"
)

// Tick is submitted periodically by the timer driver. It carries no payload: the
// kernel counts ticks itself so applying the same events replays to the same state.
type Tick struct{}

// HeardBlock is a block received from a peer, through gossip or a direct push.
type HeardBlock struct {
	Block chain.Block
}

// HeardTransaction is a transaction received from a peer.
type HeardTransaction struct {
	Transaction chain.Transaction
}

// PowSolution reports a nonce solving the search identified by WorkID.
type PowSolution struct {
	WorkID chain.Identifier
	Nonce  uint64
}

// GenesisTemplate is the candidate first block proposed by a Leader.
type GenesisTemplate struct {
	Block chain.Block
}

// RequestKind enumerates the requests served to local clients.
type RequestKind string

const (
	RequestStatus            RequestKind = "status"
	RequestSubmitTransaction RequestKind = "submit-transaction"
	RequestGetBlock          RequestKind = "get-block"
)

// ClientRequest is a request from a local client connection. Every request is
// answered by a client-response command addressed to ConnID.
type ClientRequest struct {
	ConnID      string
	RequestID   uint64
	Kind        RequestKind
	Transaction *chain.Transaction
	BlockID     chain.Identifier
}

func (Tick) Name() string             { return NameTick }
func (HeardBlock) Name() string       { return NameHeardBlock }
func (HeardTransaction) Name() string { return NameHeardTransaction }
func (PowSolution) Name() string      { return NamePowSolution }
func (GenesisTemplate) Name() string  { return NameGenesisTemplate }
func (ClientRequest) Name() string    { return NameClientRequest }

func (Tick) isCause()             {}
func (HeardBlock) isCause()       {}
func (HeardTransaction) isCause() {}
func (PowSolution) isCause()      {}
func (GenesisTemplate) isCause()  {}
func (ClientRequest) isCause()    {}
