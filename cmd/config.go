package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/engine/listener"
	"github.com/zenith-chain/node/model/chain"
)

// Config is the typed node configuration assembled from flags, environment and an
// optional config file.
type Config struct {
	Role     string   `mapstructure:"role"`
	Isolated bool     `mapstructure:"isolated"`
	Peers    []string `mapstructure:"peers"`
	// Bootstrap peers seed discovery. They are ignored in isolated mode.
	Bootstrap []string `mapstructure:"bootstrap"`
	Listen    []string `mapstructure:"listen"`
	// MiningKey is the hex encoded beneficiary of mined blocks. Empty disables mining.
	MiningKey     string `mapstructure:"mining-key"`
	MinerWorkers  int    `mapstructure:"miner-workers"`
	Socket        string `mapstructure:"socket"`
	SocketNetwork string `mapstructure:"socket-network"`

	TickInterval     time.Duration `mapstructure:"tick-interval"`
	GossipEveryTicks uint64        `mapstructure:"gossip-every-ticks"`
	Difficulty       uint          `mapstructure:"difficulty"`
	GenesisSeed      string        `mapstructure:"genesis-seed"`

	DataDir           string        `mapstructure:"datadir"`
	SnapshotInterval  time.Duration `mapstructure:"snapshot-interval"`
	SnapshotRetention int           `mapstructure:"snapshot-retention"`

	LogLevel    string `mapstructure:"loglevel"`
	MetricsPort uint   `mapstructure:"metrics-port"`
}

func DefaultConfig() Config {
	return Config{
		Role:              chain.RoleWatcher.String(),
		Listen:            []string{"/ip4/0.0.0.0/udp/3570/quic-v1"},
		MinerWorkers:      2,
		SocketNetwork:     listener.NetworkUnix,
		TickInterval:      time.Second,
		GossipEveryTicks:  3,
		Difficulty:        16,
		GenesisSeed:       "zenith",
		DataDir:           "data",
		SnapshotInterval:  30 * time.Second,
		SnapshotRetention: 3,
		LogLevel:          "info",
	}
}

// Validate checks the configuration before anything is built.
func (c Config) Validate() error {
	role, err := chain.ParseRole(c.Role)
	if err != nil {
		return err
	}
	// A Leader only confirms genesis once a peer echoes its template back. Isolated,
	// it can only ever reach its explicit peers.
	if role == chain.RoleLeader && c.Isolated && len(c.Peers) == 0 {
		return fmt.Errorf("an isolated leader needs at least one explicit peer (--peers) to confirm genesis")
	}
	if len(c.Listen) == 0 {
		return fmt.Errorf("at least one listen address is required")
	}
	if _, err := c.miningKey(); err != nil {
		return err
	}
	if c.MiningKey != "" && c.MinerWorkers < 1 {
		return fmt.Errorf("miner needs at least one worker, got %d", c.MinerWorkers)
	}
	if c.Socket != "" && c.SocketNetwork != listener.NetworkUnix && c.SocketNetwork != listener.NetworkTCP {
		return fmt.Errorf("unsupported client socket network %q", c.SocketNetwork)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.GossipEveryTicks == 0 {
		return fmt.Errorf("gossip cadence must be at least one tick")
	}
	if c.Difficulty > chain.MaxTargetBits {
		return fmt.Errorf("difficulty of %d bits exceeds the maximum of %d", c.Difficulty, chain.MaxTargetBits)
	}
	if c.GenesisSeed == "" {
		return fmt.Errorf("genesis seed must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", c.SnapshotInterval)
	}
	if c.SnapshotRetention < 1 {
		return fmt.Errorf("must retain at least one snapshot, got %d", c.SnapshotRetention)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

func (c Config) role() chain.Role {
	role, _ := chain.ParseRole(c.Role)
	return role
}

func (c Config) miningKey() ([]byte, error) {
	if c.MiningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(strings.TrimPrefix(c.MiningKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("mining key must be hex encoded: %w", err)
	}
	return key, nil
}

// proposesGenesis reports whether the node proposes its own genesis template. Only an
// isolated Leader does; a Leader attached to the network adopts the genesis it hears.
func (c Config) proposesGenesis() bool {
	return c.role() == chain.RoleLeader && c.Isolated
}
