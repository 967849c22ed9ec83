// Package p2p encapsulates the libp2p host, the gossipsub topics and the direct push
// protocol of the node.
package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	quic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"

	"github.com/zenith-chain/node/module"
)

const explicitPeerTag = "explicit"

// PushHandler receives a message pushed directly by a peer.
type PushHandler func(from peer.ID, data []byte)

// Node is a libp2p host joined to the gossip topics of the network.
type Node struct {
	log     zerolog.Logger
	metrics module.NetworkMetrics
	config  Config

	host    host.Host
	connMgr *connmgr.BasicConnMgr
	pubSub  *pubsub.PubSub
	dht     *dht.IpfsDHT
	topics  map[string]*pubsub.Topic
	peers   []peer.AddrInfo

	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// NewNode starts the libp2p host and joins the gossip topics. In isolated mode no DHT
// is started and only the explicit peers may connect.
func NewNode(log zerolog.Logger, metrics module.NetworkMetrics, config Config, key crypto.PrivKey) (*Node, error) {
	err := config.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid network configuration: %w", err)
	}
	peers, err := ParsePeers(config.Peers)
	if err != nil {
		return nil, fmt.Errorf("invalid explicit peers: %w", err)
	}
	var bootstrap []peer.AddrInfo
	if !config.Isolated {
		bootstrap, err = ParsePeers(config.BootstrapPeers)
		if err != nil {
			return nil, fmt.Errorf("invalid bootstrap peers: %w", err)
		}
	}

	log = log.With().Str("component", "libp2p").Bool("isolated", config.Isolated).Logger()

	connMgr, err := connmgr.NewConnManager(config.ConnLowWater, config.ConnHighWater, connmgr.WithGracePeriod(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("could not create connection manager: %w", err)
	}

	var filter PeerFilter = AllowAll
	if config.Isolated {
		filter = AllowOnly(peers)
	}

	options := []libp2p.Option{
		libp2p.Identity(key),
		libp2p.ListenAddrStrings(config.ListenAddrs...),
		libp2p.Transport(quic.NewTransport),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.ConnectionManager(connMgr),
		libp2p.ConnectionGater(NewConnGater(log, filter)),
	}
	if config.Isolated {
		options = append(options, libp2p.DisableRelay())
	}

	libp2pHost, err := libp2p.New(options...)
	if err != nil {
		return nil, fmt.Errorf("could not create libp2p host: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		log:     log.With().Str("peer_id", libp2pHost.ID().String()).Logger(),
		metrics: metrics,
		config:  config,
		host:    libp2pHost,
		connMgr: connMgr,
		topics:  make(map[string]*pubsub.Topic),
		peers:   peers,
		cancel:  cancel,
	}

	err = n.start(ctx, bootstrap)
	if err != nil {
		closeErr := n.Close()
		if closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return nil, err
	}

	n.log.Info().
		Strs("addresses", n.Addrs()).
		Int("explicit_peers", len(peers)).
		Msg("libp2p node started")
	return n, nil
}

func (n *Node) start(ctx context.Context, bootstrap []peer.AddrInfo) error {
	for _, info := range n.peers {
		n.host.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.PermanentAddrTTL)
		n.connMgr.Protect(info.ID, explicitPeerTag)
	}

	n.host.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(net network.Network, _ network.Conn) {
			n.metrics.ConnectedPeers(len(net.Peers()))
		},
		DisconnectedF: func(net network.Network, _ network.Conn) {
			n.metrics.ConnectedPeers(len(net.Peers()))
		},
	})

	psOptions := []pubsub.Option{
		pubsub.WithMessageSigning(true),
		pubsub.WithStrictSignatureVerification(true),
		pubsub.WithMaxMessageSize(n.config.MaxMessageSize),
	}

	if !n.config.Isolated {
		kdht, err := NewDHT(ctx, n.host, bootstrap, AsServer(true))
		if err != nil {
			return err
		}
		n.dht = kdht
		psOptions = append(psOptions, pubsub.WithDiscovery(drouting.NewRoutingDiscovery(kdht)))
	}

	ps, err := pubsub.NewGossipSub(ctx, n.host, psOptions...)
	if err != nil {
		return fmt.Errorf("could not create libp2p gossipsub: %w", err)
	}
	n.pubSub = ps

	for _, name := range []string{TopicBlocks, TopicTransactions} {
		topic, err := ps.Join(name)
		if err != nil {
			return fmt.Errorf("could not join topic (%s): %w", name, err)
		}
		n.topics[name] = topic
	}
	return nil
}

func (n *Node) ID() peer.ID {
	return n.host.ID()
}

func (n *Node) Host() host.Host {
	return n.host
}

// Addrs returns the full listen addresses of the node, including its identity.
func (n *Node) Addrs() []string {
	addrs, err := FullAddrs(peer.AddrInfo{ID: n.host.ID(), Addrs: n.host.Addrs()})
	if err != nil {
		return nil
	}
	return addrs
}

func (n *Node) ExplicitPeers() []peer.AddrInfo {
	return n.peers
}

// Subscribe returns a new subscription to the topic.
func (n *Node) Subscribe(topic string) (*pubsub.Subscription, error) {
	t, found := n.topics[topic]
	if !found {
		return nil, fmt.Errorf("could not find topic (%s)", topic)
	}
	sub, err := t.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to topic (%s): %w", topic, err)
	}
	return sub, nil
}

// Publish publishes the payload on the topic and reports whether it went out over an
// established mesh. While peers are subscribed to the topic but no mesh has been
// grafted yet, it waits up to MeshTimeout for one. Without a mesh the message still
// reaches local subscribers and the topic peers known at the time.
func (n *Node) Publish(ctx context.Context, topic string, data []byte) (bool, error) {
	t, found := n.topics[topic]
	if !found {
		return false, fmt.Errorf("could not find topic (%s)", topic)
	}

	meshed := atomic.NewBool(false)
	var err error
	if len(t.ListPeers()) > 0 {
		ready := func(rt pubsub.PubSubRouter, name string) (bool, error) {
			enough, err := pubsub.MinTopicSize(1)(rt, name)
			meshed.Store(enough)
			return enough, err
		}
		waitCtx, cancel := context.WithTimeout(ctx, n.config.MeshTimeout)
		err = t.Publish(waitCtx, data, pubsub.WithReadiness(ready))
		cancel()
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			n.log.Debug().Str("topic", topic).Msg("no gossip mesh formed in time, publishing without one")
			err = t.Publish(ctx, data)
		}
	} else {
		err = t.Publish(ctx, data)
	}
	if err != nil {
		return false, fmt.Errorf("could not publish to topic (%s): %w", topic, err)
	}
	n.metrics.MessagePublished(topic, len(data))
	return meshed.Load(), nil
}

// TopicPeers returns the peers known to be subscribed to the topic.
func (n *Node) TopicPeers(topic string) []peer.ID {
	t, found := n.topics[topic]
	if !found {
		return nil
	}
	return t.ListPeers()
}

// ConnectedPeers returns the peers with an open connection.
func (n *Node) ConnectedPeers() []peer.ID {
	return n.host.Network().Peers()
}

// IsConnected reports whether there is an open connection to the peer.
func (n *Node) IsConnected(p peer.ID) bool {
	return n.host.Network().Connectedness(p) == network.Connected
}

// SetPushHandler installs the handler for directly pushed messages, replacing any
// previous one. Messages larger than the configured maximum are dropped.
func (n *Node) SetPushHandler(handler PushHandler) {
	n.host.SetStreamHandler(protocol.ID(PushProtocolID), func(s network.Stream) {
		defer s.Close()
		from := s.Conn().RemotePeer()

		_ = s.SetReadDeadline(time.Now().Add(n.config.DialTimeout))
		data, err := io.ReadAll(io.LimitReader(s, int64(n.config.MaxMessageSize)+1))
		if err != nil {
			n.log.Debug().Err(err).Str("remote_peer", from.String()).Msg("could not read pushed message")
			_ = s.Reset()
			return
		}
		if len(data) > n.config.MaxMessageSize {
			n.metrics.MessageDropped(PushProtocolID, "oversized")
			_ = s.Reset()
			return
		}
		handler(from, data)
	})
}

func (n *Node) RemovePushHandler() {
	n.host.RemoveStreamHandler(protocol.ID(PushProtocolID))
}

// Push delivers the message directly to the peer over a new stream.
func (n *Node) Push(ctx context.Context, p peer.ID, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.config.DialTimeout)
	defer cancel()

	s, err := n.host.NewStream(ctx, p, protocol.ID(PushProtocolID))
	if err != nil {
		return fmt.Errorf("could not open push stream to %s: %w", p, err)
	}
	deadline, _ := ctx.Deadline()
	_ = s.SetWriteDeadline(deadline)

	_, err = s.Write(data)
	if err != nil {
		_ = s.Reset()
		return fmt.Errorf("could not push message to %s: %w", p, err)
	}
	err = s.Close()
	if err != nil {
		return fmt.Errorf("could not close push stream to %s: %w", p, err)
	}
	n.metrics.MessagePublished(PushProtocolID, len(data))
	return nil
}

// MaintainPeers keeps the node connected to every explicit peer, redialing with
// exponential backoff after a disconnect. It returns once ctx is done.
func (n *Node) MaintainPeers(ctx context.Context) {
	var wg sync.WaitGroup
	for _, info := range n.peers {
		info := info
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.maintainPeer(ctx, info)
		}()
	}
	wg.Wait()
}

func (n *Node) maintainPeer(ctx context.Context, info peer.AddrInfo) {
	log := n.log.With().Str("remote_peer", info.ID.String()).Logger()
	ticker := time.NewTicker(n.config.ReconnectMin)
	defer ticker.Stop()

	for {
		if !n.IsConnected(info.ID) {
			err := n.connect(ctx, info)
			if err != nil {
				return
			}
			log.Info().Msg("connected to explicit peer")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// connect dials the peer until it succeeds or ctx is done.
func (n *Node) connect(ctx context.Context, info peer.AddrInfo) error {
	backoff := retry.NewExponential(n.config.ReconnectMin)
	backoff = retry.WithCappedDuration(n.config.ReconnectMax, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		dialCtx, cancel := context.WithTimeout(ctx, n.config.DialTimeout)
		defer cancel()

		err := n.host.Connect(dialCtx, info)
		if err != nil {
			n.log.Debug().
				Err(err).
				Str("remote_peer", info.ID.String()).
				Int("attempt", attempt).
				Msg("could not connect to explicit peer, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Close stops gossip, the DHT and the host.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		var result error
		n.cancel()

		for name, topic := range n.topics {
			// a topic with live subscriptions refuses to close; the host shutdown below
			// tears those down
			if err := topic.Close(); err != nil {
				n.log.Debug().Err(err).Str("topic", name).Msg("could not close topic")
			}
		}
		if n.dht != nil {
			if err := n.dht.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("could not close dht: %w", err))
			}
		}
		if err := n.host.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("could not close libp2p host: %w", err))
		}
		n.closeErr = result
		n.log.Debug().Msg("libp2p node stopped")
	})
	return n.closeErr
}
