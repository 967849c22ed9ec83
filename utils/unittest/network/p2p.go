// Package network provides helpers for tests running real libp2p nodes on the loopback
// interface.
package network

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/module/metrics"
	"github.com/zenith-chain/node/network/p2p"
	"github.com/zenith-chain/node/utils/unittest"
)

// NodeConfig returns a network configuration listening on a random loopback QUIC port
// with fast reconnects.
func NodeConfig(opts ...func(*p2p.Config)) p2p.Config {
	config := p2p.DefaultConfig()
	config.ListenAddrs = []string{"/ip4/127.0.0.1/udp/0/quic-v1"}
	config.ReconnectMin = 50 * time.Millisecond
	config.ReconnectMax = 500 * time.Millisecond
	config.DialTimeout = 2 * time.Second
	config.MeshTimeout = 5 * time.Second
	for _, apply := range opts {
		apply(&config)
	}
	return config
}

func WithIsolation(peers ...string) func(*p2p.Config) {
	return func(config *p2p.Config) {
		config.Isolated = true
		config.Peers = peers
	}
}

func WithPeers(peers ...string) func(*p2p.Config) {
	return func(config *p2p.Config) {
		config.Peers = peers
	}
}

// KeyFixture returns a random network identity key.
func KeyFixture(t testing.TB) crypto.PrivKey {
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	return key
}

// StartNode starts a libp2p node which is stopped at the end of the test.
func StartNode(t *testing.T, config p2p.Config) *p2p.Node {
	node, err := p2p.NewNode(unittest.Logger(), metrics.NewNoopCollector(), config, KeyFixture(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		StopNode(t, node)
	})
	return node
}

// StopNodes stop all nodes in the input slice
func StopNodes(t *testing.T, nodes []*p2p.Node) {
	for _, n := range nodes {
		StopNode(t, n)
	}
}

// StopNode stops node
func StopNode(t *testing.T, node *p2p.Node) {
	unittest.RequireReturnsBefore(t, func() {
		assert.NoError(t, node.Close())
	}, 5*time.Second, "could not stop node on time")
}
