// Package gossip implements the driver connecting the kernel to the peer-to-peer
// network. Gossip commands are published on the block and transaction topics, and
// messages heard from peers, gossiped or pushed directly, become heard-block and
// heard-transaction events.
package gossip

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/network/codec/cbor"
	"github.com/zenith-chain/node/network/p2p"
	"github.com/zenith-chain/node/utils/logging"
)

const DriverName = "gossip"

// Network is the peer-to-peer layer used by the driver.
type Network interface {
	ID() peer.ID
	Subscribe(topic string) (*pubsub.Subscription, error)
	Publish(ctx context.Context, topic string, data []byte) (bool, error)
	ConnectedPeers() []peer.ID
	Push(ctx context.Context, p peer.ID, data []byte) error
	SetPushHandler(handler p2p.PushHandler)
	RemovePushHandler()
	MaintainPeers(ctx context.Context)
}

type Driver struct {
	log     zerolog.Logger
	metrics module.NetworkMetrics
	network Network
	codec   *cbor.Codec
}

var _ core.Driver = (*Driver)(nil)

func New(log zerolog.Logger, metrics module.NetworkMetrics, network Network) *Driver {
	return &Driver{
		log:     log.With().Str("engine", DriverName).Logger(),
		metrics: metrics,
		network: network,
		codec:   cbor.NewCodec(),
	}
}

func (d *Driver) Run(ctx irrecoverable.SignalerContext, submit core.Submitter, commands core.CommandStream) error {
	runCtx, cancel := context.WithCancel(ctx)
	// failures holds the first error that stopped a receiver
	failures := make(chan error, 1)
	fail := func(err error) {
		select {
		case failures <- err:
		default:
		}
		cancel()
	}
	var wg sync.WaitGroup
	defer func() {
		cancel()
		d.network.RemovePushHandler()
		wg.Wait()
	}()

	subscriptions := make(map[string]*pubsub.Subscription, 2)
	for _, topic := range []string{p2p.TopicBlocks, p2p.TopicTransactions} {
		sub, err := d.network.Subscribe(topic)
		if err != nil {
			for _, s := range subscriptions {
				s.Cancel()
			}
			return fmt.Errorf("could not subscribe to %s: %w", topic, err)
		}
		subscriptions[topic] = sub
	}

	for topic, sub := range subscriptions {
		topic, sub := topic, sub
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Cancel()
			d.receive(runCtx, fail, topic, sub, submit)
		}()
	}

	d.network.SetPushHandler(func(from peer.ID, data []byte) {
		if runCtx.Err() != nil {
			return
		}
		if !d.deliver(p2p.PushProtocolID, from, data, submit) {
			fail(nil)
		}
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.network.MaintainPeers(runCtx)
	}()

	for {
		cmd, err := commands.Next(runCtx)
		if err != nil {
			if runCtx.Err() == nil {
				return fmt.Errorf("could not read command stream: %w", err)
			}
			select {
			case err := <-failures:
				return err
			default:
				return nil
			}
		}
		if cmd.Tag != command.TagGossip {
			continue
		}
		gossip, ok := cmd.Payload.(command.Gossip)
		if !ok {
			d.log.Warn().Str("payload", fmt.Sprintf("%T", cmd.Payload)).Msg("ignoring gossip command with unexpected payload")
			continue
		}
		d.publish(runCtx, gossip)
	}
}

// receive forwards messages of one topic until ctx is done or the core shuts down.
func (d *Driver) receive(ctx context.Context, fail func(error), topic string, sub *pubsub.Subscription, submit core.Submitter) {
	self := d.network.ID()
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				fail(fmt.Errorf("subscription to %s ended: %w", topic, err))
			}
			return
		}
		// our own publications are delivered back to us
		if msg.ReceivedFrom == self {
			continue
		}
		if !d.deliver(topic, msg.ReceivedFrom, msg.Data, submit) {
			fail(nil)
			return
		}
	}
}

// deliver decodes a message heard from a peer and submits it. It returns false once
// the core has shut down.
func (d *Driver) deliver(channel string, from peer.ID, data []byte, submit core.Submitter) bool {
	d.metrics.MessageReceived(channel, len(data))
	log := d.log.With().Str("channel", channel).Str("remote_peer", from.String()).Logger()

	decoded, err := d.codec.Decode(data)
	if err != nil {
		d.metrics.MessageDropped(channel, "malformed")
		log.Debug().Err(err).Msg("dropping malformed message")
		return true
	}

	var cause event.Cause
	switch msg := decoded.(type) {
	case *chain.Block:
		if channel == p2p.TopicTransactions {
			d.metrics.MessageDropped(channel, "unexpected")
			log.Debug().Msg("dropping block heard on transaction topic")
			return true
		}
		cause = event.HeardBlock{Block: *msg}
	case *chain.Transaction:
		if channel == p2p.TopicBlocks {
			d.metrics.MessageDropped(channel, "unexpected")
			log.Debug().Msg("dropping transaction heard on block topic")
			return true
		}
		cause = event.HeardTransaction{Transaction: *msg}
	default:
		d.metrics.MessageDropped(channel, "unexpected")
		return true
	}

	err = submit.Submit(event.New(event.NewWire(DriverName, from.String()), cause))
	if errors.Is(err, core.ErrShutdown) {
		return false
	}
	if err != nil {
		log.Error().Err(err).Msg("could not submit heard message")
	}
	return true
}

// publish gossips a block or transaction. Until the topic mesh has been grafted, the
// message is also pushed directly to every connected peer, so that a message sent
// right after a connection is established is not lost.
// Failures are logged and the message abandoned.
func (d *Driver) publish(ctx context.Context, gossip command.Gossip) {
	var (
		topic string
		msg   interface{}
		log   zerolog.Logger
	)
	switch {
	case gossip.Block != nil:
		topic, msg = p2p.TopicBlocks, gossip.Block
		log = d.log.With().Hex("block_id", logging.ID(gossip.Block)).Uint64("height", gossip.Block.Header.Height).Logger()
	case gossip.Transaction != nil:
		topic, msg = p2p.TopicTransactions, gossip.Transaction
		log = d.log.With().Hex("tx_id", logging.ID(gossip.Transaction)).Logger()
	default:
		d.log.Warn().Msg("ignoring empty gossip command")
		return
	}

	data, err := d.codec.Encode(msg)
	if err != nil {
		log.Error().Err(err).Msg("could not encode gossip message")
		return
	}

	meshed, err := d.network.Publish(ctx, topic, data)
	if err != nil {
		d.metrics.MessageDropped(topic, "publish")
		log.Warn().Err(err).Msg("could not publish gossip message")
	}

	if meshed {
		log.Trace().Str("topic", topic).Msg("gossip published")
		return
	}
	for _, p := range d.network.ConnectedPeers() {
		err := d.network.Push(ctx, p, data)
		if err != nil {
			d.metrics.MessageDropped(p2p.PushProtocolID, "push")
			log.Debug().Err(err).Str("remote_peer", p.String()).Msg("could not push message")
		}
	}
	log.Trace().Str("topic", topic).Msg("gossip published")
}
