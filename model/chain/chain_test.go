package chain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/model/chain"
)

func TestTargetFromBits(t *testing.T) {
	t.Run("zero bits accepts everything", func(t *testing.T) {
		target, err := chain.TargetFromBits(0)
		require.NoError(t, err)
		var max chain.Identifier
		for i := range max {
			max[i] = 0xff
		}
		assert.True(t, target.Meets(max))
		assert.True(t, target.Meets(chain.ZeroID))
	})

	t.Run("leading zero bits", func(t *testing.T) {
		target, err := chain.TargetFromBits(8)
		require.NoError(t, err)
		assert.Equal(t, byte(0x00), target[0])
		assert.Equal(t, byte(0xff), target[1])

		var hash chain.Identifier
		hash[0] = 0x01
		assert.False(t, target.Meets(hash))
		hash[0] = 0x00
		hash[1] = 0xff
		assert.True(t, target.Meets(hash))
	})

	t.Run("too many bits", func(t *testing.T) {
		_, err := chain.TargetFromBits(256)
		require.Error(t, err)
	})
}

func TestHeader_WorkIDIgnoresNonce(t *testing.T) {
	header := chain.Header{Height: 3, Tick: 7, Miner: []byte("m")}
	other := header
	other.Nonce = 42

	assert.Equal(t, header.WorkID(), other.WorkID())
	assert.Equal(t, header.Work(), other.Work())
	assert.NotEqual(t, header.ID(), other.ID())
}

func TestHeader_MeetsTarget(t *testing.T) {
	target, err := chain.TargetFromBits(4)
	require.NoError(t, err)
	header := chain.Header{Height: 1, Target: target}

	work := header.Work()
	for nonce := uint64(0); ; nonce++ {
		if target.Meets(chain.PowHash(work, nonce)) {
			header.Nonce = nonce
			break
		}
	}
	assert.True(t, header.MeetsTarget())
}

func TestGenesisTemplate_Deterministic(t *testing.T) {
	target, err := chain.TargetFromBits(1)
	require.NoError(t, err)

	a := chain.GenesisTemplate([]byte("seed"), []byte("key"), target)
	b := chain.GenesisTemplate([]byte("seed"), []byte("key"), target)
	c := chain.GenesisTemplate([]byte("other"), []byte("key"), target)

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.True(t, a.IsGenesis())
	require.NoError(t, a.Validate())
}

func TestBlock_Validate(t *testing.T) {
	tx := chain.Transaction{Sender: []byte("alice"), Nonce: 1, Payload: []byte("pay")}

	t.Run("valid", func(t *testing.T) {
		block := chain.Block{
			Header:       chain.Header{PayloadHash: chain.PayloadHash([]chain.Transaction{tx})},
			Transactions: []chain.Transaction{tx},
		}
		require.NoError(t, block.Validate())
	})

	t.Run("payload mismatch", func(t *testing.T) {
		block := chain.Block{Transactions: []chain.Transaction{tx}}
		require.ErrorIs(t, block.Validate(), chain.ErrInvalidBlock)
	})

	t.Run("duplicate transaction", func(t *testing.T) {
		txs := []chain.Transaction{tx, tx}
		block := chain.Block{
			Header:       chain.Header{PayloadHash: chain.PayloadHash(txs)},
			Transactions: txs,
		}
		require.ErrorIs(t, block.Validate(), chain.ErrInvalidBlock)
	})

	t.Run("invalid transaction", func(t *testing.T) {
		txs := []chain.Transaction{{Sender: []byte("bob")}}
		block := chain.Block{
			Header:       chain.Header{PayloadHash: chain.PayloadHash(txs)},
			Transactions: txs,
		}
		require.ErrorIs(t, block.Validate(), chain.ErrInvalidBlock)
	})
}

func TestParseRole(t *testing.T) {
	role, err := chain.ParseRole("Leader")
	require.NoError(t, err)
	assert.Equal(t, chain.RoleLeader, role)

	role, err = chain.ParseRole("watcher")
	require.NoError(t, err)
	assert.Equal(t, chain.RoleWatcher, role)

	_, err = chain.ParseRole("observer")
	require.Error(t, err)
}

func TestHexStringToIdentifier(t *testing.T) {
	id := chain.MakeID("entity")
	parsed, err := chain.HexStringToIdentifier(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = chain.HexStringToIdentifier("abcd")
	require.Error(t, err)
}
