package p2p_test

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/network/p2p"
	"github.com/zenith-chain/node/utils/unittest"
	unetwork "github.com/zenith-chain/node/utils/unittest/network"
)

// connectedPair starts a node and a second node configured with the first as its
// explicit peer, and waits for them to connect.
func connectedPair(t *testing.T, isolated bool) (*p2p.Node, *p2p.Node, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := unetwork.StartNode(t, unetwork.NodeConfig())

	opt := unetwork.WithPeers(a.Addrs()...)
	if isolated {
		opt = unetwork.WithIsolation(a.Addrs()...)
	}
	b := unetwork.StartNode(t, unetwork.NodeConfig(opt))
	go b.MaintainPeers(ctx)

	require.Eventually(t, func() bool {
		return a.IsConnected(b.ID()) && b.IsConnected(a.ID())
	}, 10*time.Second, 20*time.Millisecond)
	return a, b, ctx
}

func TestNode_Gossip(t *testing.T) {
	a, b, ctx := connectedPair(t, false)

	subA, err := a.Subscribe(p2p.TopicBlocks)
	require.NoError(t, err)
	defer subA.Cancel()
	subB, err := b.Subscribe(p2p.TopicBlocks)
	require.NoError(t, err)
	defer subB.Cancel()

	require.Eventually(t, func() bool {
		return len(b.TopicPeers(p2p.TopicBlocks)) > 0 && len(a.TopicPeers(p2p.TopicBlocks)) > 0
	}, 10*time.Second, 20*time.Millisecond)

	_, err = b.Publish(ctx, p2p.TopicBlocks, []byte("block"))
	require.NoError(t, err)

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := subA.Next(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, []byte("block"), msg.Data)
	assert.Equal(t, b.ID(), msg.ReceivedFrom)

	// the publisher sees its own message, marked as received from itself
	own, err := subB.Next(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, b.ID(), own.ReceivedFrom)
}

// TestNode_PublishWaitsForMesh checks a message published as soon as the peers see
// each other's subscriptions waits for the mesh and is delivered over it.
func TestNode_PublishWaitsForMesh(t *testing.T) {
	a, b, ctx := connectedPair(t, true)

	subA, err := a.Subscribe(p2p.TopicTransactions)
	require.NoError(t, err)
	defer subA.Cancel()
	subB, err := b.Subscribe(p2p.TopicTransactions)
	require.NoError(t, err)
	defer subB.Cancel()

	require.Eventually(t, func() bool {
		return len(b.TopicPeers(p2p.TopicTransactions)) > 0
	}, 10*time.Second, 5*time.Millisecond)

	meshed, err := b.Publish(ctx, p2p.TopicTransactions, []byte("transaction"))
	require.NoError(t, err)
	assert.True(t, meshed)

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := subA.Next(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, []byte("transaction"), msg.Data)
}

// TestNode_PublishWithoutPeers checks a node alone on a topic publishes immediately to
// its own subscribers and reports that no mesh was used.
func TestNode_PublishWithoutPeers(t *testing.T) {
	node := unetwork.StartNode(t, unetwork.NodeConfig(unetwork.WithIsolation()))
	sub, err := node.Subscribe(p2p.TopicBlocks)
	require.NoError(t, err)
	defer sub.Cancel()

	var meshed bool
	unittest.RequireReturnsBefore(t, func() {
		meshed, err = node.Publish(context.Background(), p2p.TopicBlocks, []byte("block"))
	}, time.Second, "publish waited without any topic peer")
	require.NoError(t, err)
	assert.False(t, meshed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	own, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("block"), own.Data)
}

func TestNode_Push(t *testing.T) {
	a, b, ctx := connectedPair(t, true)

	type pushed struct {
		from peer.ID
		data []byte
	}
	received := make(chan pushed, 1)
	a.SetPushHandler(func(from peer.ID, data []byte) {
		received <- pushed{from: from, data: data}
	})
	defer a.RemovePushHandler()

	require.NoError(t, b.Push(ctx, a.ID(), []byte("transaction")))

	select {
	case msg := <-received:
		assert.Equal(t, b.ID(), msg.from)
		assert.Equal(t, []byte("transaction"), msg.data)
	case <-time.After(5 * time.Second):
		t.Fatal("pushed message not received")
	}
}

func TestNode_IsolationRejectsUnknownPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	explicit := unetwork.StartNode(t, unetwork.NodeConfig())
	stranger := unetwork.StartNode(t, unetwork.NodeConfig())
	isolated := unetwork.StartNode(t, unetwork.NodeConfig(unetwork.WithIsolation(explicit.Addrs()...)))

	// outbound dials to peers other than the explicit ones are refused
	err := isolated.Host().Connect(ctx, peer.AddrInfo{ID: stranger.ID(), Addrs: stranger.Host().Addrs()})
	assert.Error(t, err)

	// inbound connections from unknown peers are refused after the handshake
	_ = stranger.Host().Connect(ctx, peer.AddrInfo{ID: isolated.ID(), Addrs: isolated.Host().Addrs()})
	assert.Never(t, func() bool {
		return isolated.IsConnected(stranger.ID())
	}, 300*time.Millisecond, 20*time.Millisecond)

	// the explicit peer is reachable
	require.NoError(t, isolated.Host().Connect(ctx, peer.AddrInfo{ID: explicit.ID(), Addrs: explicit.Host().Addrs()}))
	assert.True(t, isolated.IsConnected(explicit.ID()))
}

func TestNewNode_InvalidConfig(t *testing.T) {
	config := unetwork.NodeConfig()
	config.ListenAddrs = nil
	_, err := p2p.NewNode(unittest.Logger(), nil, config, unetwork.KeyFixture(t))
	assert.Error(t, err)

	config = unetwork.NodeConfig(unetwork.WithPeers("not-a-multiaddr"))
	_, err = p2p.NewNode(unittest.Logger(), nil, config, unetwork.KeyFixture(t))
	assert.Error(t, err)
}
