package chain

import (
	"errors"
	"fmt"

	"github.com/zenith-chain/node/model/encoding/cbor"
)

var ErrInvalidBlock = errors.New("invalid block")

// Header is the part of a block covered by proof of work.
type Header struct {
	ParentID    Identifier
	Height      uint64
	Tick        uint64 // logical time at which the block was assembled
	PayloadHash Identifier
	Target      Target
	Miner       []byte
	Extra       []byte
	Nonce       uint64
}

// ID returns the hash of the complete header, including the nonce.
func (h Header) ID() Identifier {
	return MakeID(h)
}

// Work returns the canonical encoding of the header without its nonce. It is the
// input searched over by miners.
func (h Header) Work() []byte {
	h.Nonce = 0
	return cbor.Default.MustMarshal(h)
}

// WorkID identifies a proof-of-work search: two headers differing only in the nonce
// share their WorkID.
func (h Header) WorkID() Identifier {
	h.Nonce = 0
	return MakeID(h)
}

// MeetsTarget returns whether the header's nonce solves its own target.
func (h Header) MeetsTarget() bool {
	return h.Target.Meets(PowHash(h.Work(), h.Nonce))
}

// Block is a header together with the transactions it commits to.
type Block struct {
	Header       Header
	Transactions []Transaction
}

// ID returns the ID of the header.
func (b Block) ID() Identifier {
	return b.Header.ID()
}

// PayloadHash commits to the ordered list of transaction IDs.
func PayloadHash(txs []Transaction) Identifier {
	ids := make([]Identifier, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID())
	}
	return MakeID(ids)
}

// Validate performs the stateless structural checks of a block: the payload hash
// matches and every transaction is well formed. Proof of work and chain linkage
// are checked by the kernel.
func (b Block) Validate() error {
	if b.Header.PayloadHash != PayloadHash(b.Transactions) {
		return fmt.Errorf("payload hash mismatch: %w", ErrInvalidBlock)
	}
	seen := make(map[Identifier]struct{}, len(b.Transactions))
	for i, tx := range b.Transactions {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %v: %w", i, err, ErrInvalidBlock)
		}
		txID := tx.ID()
		if _, dup := seen[txID]; dup {
			return fmt.Errorf("duplicate transaction %x: %w", txID, ErrInvalidBlock)
		}
		seen[txID] = struct{}{}
	}
	return nil
}

// IsGenesis returns whether the block has the shape of a first block.
func (b Block) IsGenesis() bool {
	return b.Header.Height == 0 && b.Header.ParentID == ZeroID
}

// GenesisTemplate deterministically builds the candidate first block from the node
// configuration. Two nodes configured alike build the identical template.
func GenesisTemplate(seed []byte, miner []byte, target Target) Block {
	return Block{
		Header: Header{
			ParentID:    ZeroID,
			Height:      0,
			PayloadHash: PayloadHash(nil),
			Target:      target,
			Miner:       miner,
			Extra:       seed,
		},
	}
}
