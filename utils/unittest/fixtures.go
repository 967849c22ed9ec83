package unittest

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/model/chain"
)

// IdentifierFixture returns a random identifier.
func IdentifierFixture() chain.Identifier {
	var id chain.Identifier
	_, _ = rand.Read(id[:])
	return id
}

// RandomBytes returns n random bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// TransactionFixture returns a valid transaction with a random payload.
func TransactionFixture(opts ...func(*chain.Transaction)) chain.Transaction {
	tx := chain.Transaction{
		Sender:  []byte("sender"),
		Nonce:   0,
		Payload: RandomBytes(32),
	}
	for _, apply := range opts {
		apply(&tx)
	}
	return tx
}

// TargetFixture returns an easy proof-of-work target with the given leading zero bits.
func TargetFixture(t testing.TB, bits uint) chain.Target {
	target, err := chain.TargetFromBits(bits)
	require.NoError(t, err)
	return target
}

// GenesisFixture returns a deterministic genesis template for the given seed.
func GenesisFixture(t testing.TB, seed string) chain.Block {
	return chain.GenesisTemplate([]byte(seed), []byte("leader"), TargetFixture(t, 4))
}

// SolveHeader finds a nonce meeting the header's target by brute force.
func SolveHeader(header chain.Header) chain.Header {
	work := header.Work()
	for nonce := uint64(0); ; nonce++ {
		if header.Target.Meets(chain.PowHash(work, nonce)) {
			header.Nonce = nonce
			return header
		}
	}
}

// BlockFixture returns a solved block extending the parent with the given transactions.
func BlockFixture(parent chain.Block, txs ...chain.Transaction) chain.Block {
	header := chain.Header{
		ParentID:    parent.ID(),
		Height:      parent.Header.Height + 1,
		PayloadHash: chain.PayloadHash(txs),
		Target:      parent.Header.Target,
		Miner:       []byte("miner"),
	}
	return chain.Block{Header: SolveHeader(header), Transactions: txs}
}
