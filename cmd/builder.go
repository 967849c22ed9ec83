package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/engine/genesis"
	"github.com/zenith-chain/node/engine/gossip"
	"github.com/zenith-chain/node/engine/listener"
	"github.com/zenith-chain/node/engine/miner"
	"github.com/zenith-chain/node/engine/persister"
	"github.com/zenith-chain/node/engine/timer"
	"github.com/zenith-chain/node/kernel/reference"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/module/component"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/metrics"
	"github.com/zenith-chain/node/network/p2p"
	bstorage "github.com/zenith-chain/node/storage/badger"
	"github.com/zenith-chain/node/utils/io"
)

const networkKeyFile = "network.key"

// NewLogger creates the node logger writing to stderr with UTC timestamps.
func NewLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl), nil
}

// NewNode assembles a node from a validated configuration. Collectors are registered
// with the given registry. On success the node owns the database and the libp2p host.
func NewNode(log zerolog.Logger, config Config, registry *prometheus.Registry) (*Node, error) {
	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	role := config.role()
	log = log.With().Str("role", role.String()).Logger()

	var closers []func() error
	closeAll := func() error {
		var result error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result
	}
	fail := func(err error) (*Node, error) {
		if closeErr := closeAll(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return nil, err
	}

	target, err := chain.TargetFromBits(config.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("invalid difficulty: %w", err)
	}
	minerKey, err := config.miningKey()
	if err != nil {
		return nil, err
	}

	lock := io.NewFileLock(config.DataDir)
	err = lock.Lock()
	if err != nil {
		return nil, fmt.Errorf("could not lock data directory: %w", err)
	}
	closers = append(closers, lock.Unlock)

	db, err := badger.Open(badger.DefaultOptions(filepath.Join(config.DataDir, "db")).WithLogger(nil))
	if err != nil {
		return fail(fmt.Errorf("could not open database: %w", err))
	}
	closers = append(closers, db.Close)

	snapshots, err := bstorage.NewSnapshots(db, config.SnapshotRetention)
	if err != nil {
		return fail(err)
	}

	kernel, err := reference.New(reference.Config{
		Role:                 role,
		Target:               target,
		MinerKey:             minerKey,
		GossipEveryTicks:     config.GossipEveryTicks,
		MaxPending:           reference.DefaultMaxPending,
		MaxBlockTransactions: reference.DefaultMaxBlockTransactions,
	})
	if err != nil {
		return fail(fmt.Errorf("could not create kernel: %w", err))
	}

	runtime, err := core.New(log, metrics.NewRuntimeCollector(registry), kernel, core.DefaultConfig())
	if err != nil {
		return fail(fmt.Errorf("could not create runtime core: %w", err))
	}

	persist, err := persister.New(log, metrics.NewStorageCollector(registry), clock.New(), config.SnapshotInterval, snapshots, runtime)
	if err != nil {
		return fail(err)
	}
	_, err = persist.Restore(runtime)
	if err != nil {
		return fail(err)
	}

	coordinator, err := genesis.New(log, genesis.Config{
		Role:     role,
		Propose:  config.proposesGenesis(),
		Template: chain.GenesisTemplate([]byte(config.GenesisSeed), minerKey, target),
		State: genesis.GenesisReaderFunc(func() (chain.Identifier, bool) {
			return reference.ConfirmedGenesis(runtime.State())
		}),
	})
	if err != nil {
		return fail(fmt.Errorf("could not create genesis coordinator: %w", err))
	}
	if role == chain.RoleLeader && !config.Isolated {
		log.Warn().Msg("leader is not isolated and will not propose a genesis template, it adopts the first genesis it hears")
	}

	key, err := p2p.LoadOrCreateKey(filepath.Join(config.DataDir, networkKeyFile))
	if err != nil {
		return fail(err)
	}
	p2p.SetLibp2pLogLevel(log.GetLevel())

	networkConfig := p2p.DefaultConfig()
	networkConfig.ListenAddrs = config.Listen
	networkConfig.Isolated = config.Isolated
	networkConfig.Peers = config.Peers
	networkConfig.BootstrapPeers = config.Bootstrap
	networkMetrics := metrics.NewNetworkCollector(registry)
	network, err := p2p.NewNode(log, networkMetrics, networkConfig, key)
	if err != nil {
		return fail(fmt.Errorf("could not start libp2p node: %w", err))
	}
	closers = append(closers, network.Close)
	log.Info().
		Str("peer_id", network.ID().String()).
		Strs("addrs", network.Addrs()).
		Int("explicit_peers", len(network.ExplicitPeers())).
		Bool("isolated", config.Isolated).
		Msg("libp2p node started")

	ticker, err := timer.New(log, clock.New(), config.TickInterval)
	if err != nil {
		return fail(err)
	}

	drivers := map[string]core.Driver{
		timer.DriverName:     ticker,
		gossip.DriverName:    gossip.New(log, networkMetrics, network),
		genesis.DriverName:   coordinator,
		persister.DriverName: persist,
	}

	if len(minerKey) > 0 {
		minerConfig := miner.DefaultConfig()
		minerConfig.Workers = config.MinerWorkers
		pow, err := miner.New(log, metrics.NewMiningCollector(registry), minerConfig)
		if err != nil {
			return fail(err)
		}
		drivers[miner.DriverName] = pow
	}

	var clients *listener.Driver
	if config.Socket != "" {
		listenerConfig := listener.DefaultConfig()
		listenerConfig.Network = config.SocketNetwork
		listenerConfig.Address = config.Socket
		clients, err = listener.New(log, metrics.NewClientCollector(registry), listenerConfig)
		if err != nil {
			return fail(err)
		}
		drivers[listener.DriverName] = clients
	}

	for name, driver := range drivers {
		err = runtime.RegisterDriver(name, driver)
		if err != nil {
			return fail(err)
		}
	}

	components := []component.Component{runtime}
	if config.MetricsPort > 0 {
		components = append(components, metrics.NewServer(log, config.MetricsPort, registry))
	}

	builder := component.NewComponentManagerBuilder()
	for _, c := range components {
		c := c
		builder.AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			c.Start(ctx)
			select {
			case <-c.Ready():
				ready()
			case <-ctx.Done():
			}
			<-c.Done()
		})
	}

	return &Node{
		ComponentManager: builder.Build(),
		Config:           config,
		Logger:           log,
		Core:             runtime,
		Genesis:          coordinator,
		Network:          network,
		Listener:         clients,
		postShutdown:     closeAll,
	}, nil
}
