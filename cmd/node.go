package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/engine/genesis"
	"github.com/zenith-chain/node/engine/listener"
	"github.com/zenith-chain/node/module/component"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/util"
	"github.com/zenith-chain/node/network/p2p"
)

var _ component.Component = (*Node)(nil)

// Node is a fully assembled node: the runtime core with its drivers, the libp2p host
// and the storage they use.
type Node struct {
	*component.ComponentManager
	Config Config
	Logger zerolog.Logger

	Core     *core.Core
	Genesis  *genesis.Driver
	Network  *p2p.Node
	Listener *listener.Driver

	postShutdown func() error
}

// Run starts the node and blocks until ctx is cancelled, SIGINT or SIGTERM is received,
// or a component throws an irrecoverable error. It then shuts the node down and
// releases its resources. A second signal during shutdown aborts it.
func (node *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	go node.Start(signalerCtx)

	go func() {
		select {
		case <-node.Ready():
			node.Logger.Info().Msgf("%s node startup complete", node.Config.Role)
		case <-ctx.Done():
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	// block till a signal is received, ctx is cancelled or a fatal error is encountered
	sigCtx, stopSig := util.WithSignal(ctx, signalChan)
	runErr := util.WaitError(errChan, sigCtx.Done())
	stopSig()
	if runErr != nil {
		node.Logger.Error().Err(runErr).Msg("unhandled irrecoverable error")
	}

	node.Logger.Info().Msgf("%s node shutting down", node.Config.Role)
	cancel()

	sigCtx, stopSig = util.WithSignal(context.Background(), signalChan)
	defer stopSig()
	doneCtx, stopDone := util.WithDone(sigCtx, node.Done())
	defer stopDone()
	shutdownErr := util.WaitError(errChan, doneCtx.Done())
	if shutdownErr == nil && errors.Is(sigCtx.Err(), util.ErrSignalReceived) {
		shutdownErr = errors.New("node shutdown aborted")
	}

	closeErr := node.postShutdown()
	if closeErr != nil {
		node.Logger.Error().Err(closeErr).Msg("could not release node resources")
	}

	err := multierror.Append(nil, runErr, shutdownErr, closeErr).ErrorOrNil()
	if err != nil {
		return fmt.Errorf("%s node failed: %w", node.Config.Role, err)
	}
	node.Logger.Info().Msgf("%s node shutdown complete", node.Config.Role)
	return nil
}
