package p2p_test

import (
	"path/filepath"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/network/p2p"
	"github.com/zenith-chain/node/utils/unittest"
	unetwork "github.com/zenith-chain/node/utils/unittest/network"
)

func TestParsePeers(t *testing.T) {
	id, err := peer.IDFromPrivateKey(unetwork.KeyFixture(t))
	require.NoError(t, err)

	quicAddr := "/ip4/127.0.0.1/udp/7000/quic-v1/p2p/" + id.String()
	tcpAddr := "/ip4/127.0.0.1/tcp/7000/p2p/" + id.String()

	t.Run("merges addresses of the same peer", func(t *testing.T) {
		infos, err := p2p.ParsePeers([]string{quicAddr, tcpAddr})
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, id, infos[0].ID)
		assert.Len(t, infos[0].Addrs, 2)

		full, err := p2p.FullAddrs(infos[0])
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{quicAddr, tcpAddr}, full)
	})

	t.Run("empty", func(t *testing.T) {
		infos, err := p2p.ParsePeers(nil)
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run("malformed address", func(t *testing.T) {
		_, err := p2p.ParsePeers([]string{"127.0.0.1:7000"})
		assert.Error(t, err)
	})

	t.Run("address without identity", func(t *testing.T) {
		_, err := p2p.ParsePeers([]string{"/ip4/127.0.0.1/udp/7000/quic-v1"})
		assert.Error(t, err)
	})
}

func TestLoadOrCreateKey(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		path := filepath.Join(dir, "keys", "network.key")

		created, err := p2p.LoadOrCreateKey(path)
		require.NoError(t, err)

		loaded, err := p2p.LoadOrCreateKey(path)
		require.NoError(t, err)
		assert.True(t, created.Equals(loaded))
	})
}

func TestAllowOnly(t *testing.T) {
	allowed, err := peer.IDFromPrivateKey(unetwork.KeyFixture(t))
	require.NoError(t, err)
	other, err := peer.IDFromPrivateKey(unetwork.KeyFixture(t))
	require.NoError(t, err)

	filter := p2p.AllowOnly([]peer.AddrInfo{{ID: allowed}})
	assert.True(t, filter(allowed))
	assert.False(t, filter(other))

	gater := p2p.NewConnGater(unittest.Logger(), filter)
	assert.True(t, gater.InterceptPeerDial(allowed))
	assert.False(t, gater.InterceptPeerDial(other))
}
