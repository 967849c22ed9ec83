package cbor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/network/codec"
	"github.com/zenith-chain/node/network/codec/cbor"
	"github.com/zenith-chain/node/utils/unittest"
)

func TestCodec_Block(t *testing.T) {
	c := cbor.NewCodec()
	genesis := unittest.GenesisFixture(t, "codec")
	block := unittest.BlockFixture(genesis, unittest.TransactionFixture(), unittest.TransactionFixture())

	data, err := c.Encode(&block)
	require.NoError(t, err)
	assert.Equal(t, codec.CodeBlock, data[0])

	decoded, err := c.Decode(data)
	require.NoError(t, err)
	require.IsType(t, &chain.Block{}, decoded)
	assert.Equal(t, block.ID(), decoded.(*chain.Block).ID())
	assert.NoError(t, decoded.(*chain.Block).Validate())
}

func TestCodec_Transaction(t *testing.T) {
	c := cbor.NewCodec()
	rapid.Check(t, func(rt *rapid.T) {
		tx := chain.Transaction{
			Sender:  rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(rt, "sender"),
			Nonce:   rapid.Uint64().Draw(rt, "nonce"),
			Payload: rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(rt, "payload"),
		}

		data, err := c.Encode(&tx)
		require.NoError(rt, err)

		decoded, err := c.Decode(data)
		require.NoError(rt, err)
		require.IsType(rt, &chain.Transaction{}, decoded)
		assert.Equal(rt, tx.ID(), decoded.(*chain.Transaction).ID())
	})
}

func TestCodec_Errors(t *testing.T) {
	c := cbor.NewCodec()

	_, err := c.Encode("not a message")
	assert.Error(t, err)

	_, err = c.Decode(nil)
	assert.ErrorIs(t, err, codec.ErrInvalidEncoding)

	_, err = c.Decode(make([]byte, cbor.MaxMessageSize+1))
	assert.ErrorIs(t, err, codec.ErrInvalidEncoding)

	_, err = c.Decode([]byte{codec.CodeMax, 0x01})
	assert.True(t, codec.IsErrUnknownMsgCode(err))

	_, err = c.Decode([]byte{codec.CodeBlock, 0xff, 0x00})
	assert.True(t, codec.IsErrMsgUnmarshal(err))
}
