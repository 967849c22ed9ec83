package cmd

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding flags, e.g. ZENITH_ROLE.
const EnvPrefix = "ZENITH"

// BindFlags registers the node flags with their defaults.
func BindFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()

	flags.String("role", d.Role, "node role: leader or watcher")
	flags.Bool("isolated", d.Isolated, "skip bootstrap peers and discovery, connect to --peers only")
	flags.StringSlice("peers", d.Peers, "explicit peer multiaddresses, always connected")
	flags.StringSlice("bootstrap", d.Bootstrap, "bootstrap peer multiaddresses for discovery (ignored when isolated)")
	flags.StringSlice("listen", d.Listen, "libp2p listen multiaddresses")
	flags.String("mining-key", d.MiningKey, "hex encoded beneficiary of mined blocks, mining is disabled when empty")
	flags.Int("miner-workers", d.MinerWorkers, "number of proof-of-work search partitions")
	flags.String("socket", d.Socket, "client socket address, the client listener is disabled when empty")
	flags.String("socket-network", d.SocketNetwork, "client socket network: unix or tcp")
	flags.Duration("tick-interval", d.TickInterval, "interval between timer ticks")
	flags.Uint64("gossip-every-ticks", d.GossipEveryTicks, "ticks between re-gossips of an unconfirmed genesis template")
	flags.Uint("difficulty", d.Difficulty, "proof-of-work difficulty in leading zero bits")
	flags.String("genesis-seed", d.GenesisSeed, "seed of the genesis template")
	flags.String("datadir", d.DataDir, "directory for the database and the network key")
	flags.Duration("snapshot-interval", d.SnapshotInterval, "interval between state snapshots")
	flags.Int("snapshot-retention", d.SnapshotRetention, "number of snapshots kept")
	flags.String("loglevel", d.LogLevel, "level for logging output")
	flags.Uint("metrics-port", d.MetricsPort, "port of the prometheus metrics server, disabled when 0")
}

// LoadConfig resolves the configuration from the flags, ZENITH_* environment
// variables and an optional config file, in decreasing precedence.
func LoadConfig(v *viper.Viper, flags *pflag.FlagSet, configFile string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	err := v.BindPFlags(flags)
	if err != nil {
		return Config{}, fmt.Errorf("could not bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		err = v.ReadInConfig()
		if err != nil {
			return Config{}, fmt.Errorf("could not read config file %s: %w", configFile, err)
		}
	}

	var config Config
	err = v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("could not decode configuration: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
