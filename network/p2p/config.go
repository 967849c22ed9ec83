package p2p

import (
	"fmt"
	"time"
)

const (
	TopicBlocks       = "blocks"
	TopicTransactions = "transactions"

	// PushProtocolID is the stream protocol delivering blocks and transactions
	// directly to a peer.
	PushProtocolID = "/zenith/push/1.0.0"

	// ProtocolPrefix namespaces the DHT protocols of the network.
	ProtocolPrefix = "/zenith"
)

type Config struct {
	// ListenAddrs are the multiaddresses the host listens on,
	// e.g. /ip4/0.0.0.0/udp/7000/quic-v1.
	ListenAddrs []string
	// Isolated disables the bootstrap peers and DHT discovery. Only the explicit
	// peers are dialed or accepted.
	Isolated bool
	// Peers are the explicit peers, always dialed and protected from pruning.
	Peers []string
	// BootstrapPeers seed the DHT when not isolated.
	BootstrapPeers []string

	ConnLowWater   int
	ConnHighWater  int
	MaxMessageSize int

	ReconnectMin time.Duration
	ReconnectMax time.Duration
	DialTimeout  time.Duration
	// MeshTimeout bounds how long a publish waits for the gossip mesh of a topic to
	// form once peers are known to be subscribed to it.
	MeshTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenAddrs:    []string{"/ip4/0.0.0.0/udp/0/quic-v1"},
		ConnLowWater:   32,
		ConnHighWater:  96,
		MaxMessageSize: 4 << 20,
		ReconnectMin:   500 * time.Millisecond,
		ReconnectMax:   30 * time.Second,
		DialTimeout:    10 * time.Second,
		MeshTimeout:    2 * time.Second,
	}
}

func (c Config) validate() error {
	if len(c.ListenAddrs) == 0 {
		return fmt.Errorf("at least one listen address is required")
	}
	if c.ConnLowWater <= 0 || c.ConnHighWater < c.ConnLowWater {
		return fmt.Errorf("invalid connection watermarks [%d, %d]", c.ConnLowWater, c.ConnHighWater)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive, got %d", c.MaxMessageSize)
	}
	if c.ReconnectMin <= 0 || c.ReconnectMax < c.ReconnectMin {
		return fmt.Errorf("invalid reconnect backoff [%s, %s]", c.ReconnectMin, c.ReconnectMax)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive, got %s", c.DialTimeout)
	}
	if c.MeshTimeout <= 0 {
		return fmt.Errorf("mesh timeout must be positive, got %s", c.MeshTimeout)
	}
	return nil
}
