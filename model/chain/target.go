package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// MaxTargetBits is the highest supported number of leading zero bits.
const MaxTargetBits = 255

// Target is a 256-bit big-endian proof-of-work target: a hash meets the target
// when, interpreted as an unsigned integer, it is less or equal to the target.
type Target [32]byte

// TargetFromBits returns the target requiring `bits` leading zero bits.
func TargetFromBits(bits uint) (Target, error) {
	if bits > MaxTargetBits {
		return Target{}, fmt.Errorf("target bits must be at most %d, got %d", MaxTargetBits, bits)
	}
	t := new(uint256.Int).Lsh(uint256.NewInt(1), 256-bits)
	if bits == 0 {
		t.SetAllOne()
	} else {
		t.SubUint64(t, 1)
	}
	return Target(t.Bytes32()), nil
}

// Meets returns whether the given hash satisfies the target.
func (t Target) Meets(hash Identifier) bool {
	target := new(uint256.Int).SetBytes32(t[:])
	value := new(uint256.Int).SetBytes32(hash[:])
	return !value.Gt(target)
}

func (t Target) String() string {
	return new(uint256.Int).SetBytes32(t[:]).Hex()
}

// PowHash is the proof-of-work hash of the given work bytes with the given nonce.
func PowHash(work []byte, nonce uint64) Identifier {
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], nonce)
	hasher := sha3.New256()
	_, _ = hasher.Write(work)
	_, _ = hasher.Write(suffix[:])
	var id Identifier
	copy(id[:], hasher.Sum(nil))
	return id
}
