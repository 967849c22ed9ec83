package chain

import (
	"errors"
	"fmt"
)

// MaxTransactionPayload is the largest accepted transaction payload in bytes.
const MaxTransactionPayload = 64 * 1024

var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction is an opaque payload submitted by a client. Signature schemes are not
// modelled; Sender identifies the submitting account.
type Transaction struct {
	Sender  []byte
	Nonce   uint64
	Payload []byte
}

// ID returns the canonical hash of the transaction.
func (tx Transaction) ID() Identifier {
	return MakeID(tx)
}

// Validate performs the stateless checks on a transaction.
// Returns ErrInvalidTransaction (wrapped) for malformed input.
func (tx Transaction) Validate() error {
	if len(tx.Sender) == 0 {
		return fmt.Errorf("missing sender: %w", ErrInvalidTransaction)
	}
	if len(tx.Payload) == 0 {
		return fmt.Errorf("empty payload: %w", ErrInvalidTransaction)
	}
	if len(tx.Payload) > MaxTransactionPayload {
		return fmt.Errorf("payload of %d bytes exceeds limit %d: %w", len(tx.Payload), MaxTransactionPayload, ErrInvalidTransaction)
	}
	return nil
}
