package chain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/zenith-chain/node/model/encoding/cbor"
)

// Identifier is the 32 byte sha3-256 hash identifying blocks, transactions and
// proof-of-work searches.
type Identifier [32]byte

// ZeroID is the lowest value in the 32-byte ID space.
var ZeroID = Identifier{}

// MakeID creates an ID by hashing the canonical cbor encoding of the given entity.
func MakeID(entity interface{}) Identifier {
	return Identifier(sha3.Sum256(cbor.Default.MustMarshal(entity)))
}

// HexStringToIdentifier converts a hex string to an identifier.
func HexStringToIdentifier(hexString string) (Identifier, error) {
	var id Identifier
	i, err := hex.Decode(id[:], []byte(hexString))
	if err != nil {
		return id, err
	}
	if i != len(id) {
		return id, fmt.Errorf("malformed input, expected %d bytes (%d hex chars), got %d", len(id), 2*len(id), i)
	}
	return id, nil
}

// String returns the hex string representation of the identifier.
func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

// TerminalString returns a shortened hex form for log lines.
func (id Identifier) TerminalString() string {
	return hex.EncodeToString(id[:4])
}

// IsZero returns whether the identifier is ZeroID.
func (id Identifier) IsZero() bool {
	return id == ZeroID
}
