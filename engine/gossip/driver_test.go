package gossip_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	coremock "github.com/zenith-chain/node/core/mock"
	"github.com/zenith-chain/node/engine/gossip"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module/broadcast"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/metrics"
	"github.com/zenith-chain/node/network/codec/cbor"
	"github.com/zenith-chain/node/network/p2p"
	"github.com/zenith-chain/node/utils/unittest"
	unetwork "github.com/zenith-chain/node/utils/unittest/network"
)

// peerHarness is a libp2p node running the gossip driver against a mocked core.
type peerHarness struct {
	node     *p2p.Node
	commands *broadcast.Broadcaster[command.Command]
	heard    chan event.Event
	cancel   context.CancelFunc
	done     chan error
}

type GossipSuite struct {
	suite.Suite

	watcher *peerHarness
	leader  *peerHarness
}

func TestGossip(t *testing.T) {
	suite.Run(t, new(GossipSuite))
}

func (s *GossipSuite) startPeer(config p2p.Config) *peerHarness {
	node := unetwork.StartNode(s.T(), config)

	commands, err := broadcast.NewBroadcaster[command.Command](64)
	s.Require().NoError(err)

	heard := make(chan event.Event, 64)
	submitter := coremock.NewSubmitter(s.T())
	submitter.On("Submit", mock.Anything).Run(func(args mock.Arguments) {
		heard <- args.Get(0).(event.Event)
	}).Return(nil).Maybe()

	driver := gossip.New(unittest.Logger(), metrics.NewNoopCollector(), node)
	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(s.T(), context.Background())
	subscription := commands.Subscribe()
	done := make(chan error, 1)
	go func() {
		done <- driver.Run(ctx, submitter, subscription)
	}()

	return &peerHarness{node: node, commands: commands, heard: heard, cancel: cancel, done: done}
}

func (s *GossipSuite) SetupTest() {
	s.watcher = s.startPeer(unetwork.NodeConfig())
	s.leader = s.startPeer(unetwork.NodeConfig(unetwork.WithIsolation(s.watcher.node.Addrs()...)))

	s.Require().Eventually(func() bool {
		return len(s.leader.node.TopicPeers(p2p.TopicBlocks)) > 0 &&
			len(s.watcher.node.TopicPeers(p2p.TopicBlocks)) > 0 &&
			len(s.leader.node.TopicPeers(p2p.TopicTransactions)) > 0 &&
			len(s.watcher.node.TopicPeers(p2p.TopicTransactions)) > 0
	}, 10*time.Second, 20*time.Millisecond, "peers did not join the topics")
}

func (s *GossipSuite) TearDownTest() {
	for _, peer := range []*peerHarness{s.leader, s.watcher} {
		peer.cancel()
		var err error
		unittest.RequireReturnsBefore(s.T(), func() { err = <-peer.done }, 5*time.Second, "gossip driver did not stop")
		s.Require().NoError(err)
	}
}

func (s *GossipSuite) nextHeard(peer *peerHarness) event.Event {
	select {
	case ev := <-peer.heard:
		return ev
	case <-time.After(5 * time.Second):
		s.T().Fatal("no message heard")
		return event.Event{}
	}
}

// TestBlockGossip checks that a gossiped block is heard by the peer and not by the
// publisher itself.
func (s *GossipSuite) TestBlockGossip() {
	genesis := unittest.GenesisFixture(s.T(), "gossip")
	s.Require().NoError(s.leader.commands.Publish(command.NewGossipBlock(genesis)))

	ev := s.nextHeard(s.watcher)
	heard, ok := ev.Cause.(event.HeardBlock)
	s.Require().True(ok)
	s.Assert().Equal(genesis.ID(), heard.Block.ID())
	s.Assert().Equal([]string{gossip.DriverName, s.leader.node.ID().String()}, []string(ev.Origin))

	unittest.RequireNeverClosedWithin(s.T(), chanFrom(s.leader.heard), 200*time.Millisecond, "publisher heard its own block")
}

func (s *GossipSuite) TestTransactionGossip() {
	tx := unittest.TransactionFixture()
	s.Require().NoError(s.watcher.commands.Publish(command.NewGossipTransaction(tx)))

	ev := s.nextHeard(s.leader)
	heard, ok := ev.Cause.(event.HeardTransaction)
	s.Require().True(ok)
	s.Assert().Equal(tx.ID(), heard.Transaction.ID())
}

// TestDirectPush checks that a pushed message produces the same event as a gossiped one.
func (s *GossipSuite) TestDirectPush() {
	tx := unittest.TransactionFixture()
	data, err := cbor.NewCodec().Encode(&tx)
	s.Require().NoError(err)

	s.Require().NoError(s.leader.node.Push(context.Background(), s.watcher.node.ID(), data))

	ev := s.nextHeard(s.watcher)
	heard, ok := ev.Cause.(event.HeardTransaction)
	s.Require().True(ok)
	s.Assert().Equal(tx.ID(), heard.Transaction.ID())
}

// TestDropsInvalidMessages checks that undecodable messages and messages on the wrong
// topic never reach the core.
func (s *GossipSuite) TestDropsInvalidMessages() {
	ctx := context.Background()
	codec := cbor.NewCodec()

	_, err := s.leader.node.Publish(ctx, p2p.TopicBlocks, []byte{0xff, 0x01})
	s.Require().NoError(err)

	tx := unittest.TransactionFixture()
	data, err := codec.Encode(&tx)
	s.Require().NoError(err)
	_, err = s.leader.node.Publish(ctx, p2p.TopicBlocks, data)
	s.Require().NoError(err)

	// a valid message published afterwards is the first one heard
	block := unittest.GenesisFixture(s.T(), "after-invalid")
	data, err = codec.Encode(&block)
	s.Require().NoError(err)
	meshed, err := s.leader.node.Publish(ctx, p2p.TopicBlocks, data)
	s.Require().NoError(err)
	s.Require().True(meshed, "block was published before the mesh formed")

	ev := s.nextHeard(s.watcher)
	heard, ok := ev.Cause.(event.HeardBlock)
	s.Require().True(ok, "unexpected cause %T", ev.Cause)
	s.Assert().Equal(block.ID(), heard.Block.ID())
}

// TestIgnoresOtherCommands checks that only gossip commands are published.
func (s *GossipSuite) TestIgnoresOtherCommands() {
	s.Require().NoError(s.leader.commands.Publish(
		command.NewGenesisConfirmed(chain.ZeroID, chain.RoleLeader),
		command.NewSearchPow(unittest.GenesisFixture(s.T(), "ignored").Header),
	))
	unittest.RequireNeverClosedWithin(s.T(), chanFrom(s.watcher.heard), 200*time.Millisecond, "non-gossip command was published")
}

// chanFrom closes the returned channel when an event arrives on heard.
func chanFrom(heard <-chan event.Event) <-chan struct{} {
	closed := make(chan struct{})
	go func() {
		select {
		case <-heard:
			close(closed)
		case <-time.After(time.Second):
		}
	}()
	return closed
}
