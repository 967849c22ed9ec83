package p2p

import (
	"context"
	"fmt"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
)

// NewDHT produces a new Kademlia DHT seeded with the bootstrap peers.
func NewDHT(ctx context.Context, host host.Host, bootstrap []peer.AddrInfo, options ...dht.Option) (*dht.IpfsDHT, error) {
	allOptions := append(defaultDHTOptions(bootstrap), options...)

	kdht, err := dht.New(ctx, host, allOptions...)
	if err != nil {
		return nil, fmt.Errorf("could not create dht: %w", err)
	}

	if err = kdht.Bootstrap(ctx); err != nil {
		_ = kdht.Close()
		return nil, fmt.Errorf("could not bootstrap dht: %w", err)
	}

	return kdht, nil
}

// DHT defaults to ModeAuto which will automatically switch the DHT between Server and Client modes based on
// whether the node appears to be publicly reachable. This default tends to make test setups fail, since the
// test nodes are normally not reachable by the public network.
func AsServer(enable bool) dht.Option {
	if enable {
		return dht.Mode(dht.ModeServer)
	}
	return dht.Mode(dht.ModeClient)
}

func defaultDHTOptions(bootstrap []peer.AddrInfo) []dht.Option {
	return []dht.Option{
		dht.ProtocolPrefix(protocol.ID(ProtocolPrefix)),
		dht.BootstrapPeers(bootstrap...),
	}
}
