// Package listener implements the driver serving local clients over a unix or TCP
// socket. Requests and responses are msgpack frames.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/irrecoverable"
)

const DriverName = "listener"

// Driver accepts client connections, turns their requests into client-request events
// and writes client-response commands back to the connection they address.
type Driver struct {
	log     zerolog.Logger
	metrics module.ClientMetrics
	config  Config

	mu          sync.RWMutex
	connections map[string]*connection
	addr        net.Addr
	listening   chan struct{}
}

var _ core.Driver = (*Driver)(nil)

func New(log zerolog.Logger, metrics module.ClientMetrics, config Config) (*Driver, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid listener configuration: %w", err)
	}
	return &Driver{
		log:         log.With().Str("engine", DriverName).Logger(),
		metrics:     metrics,
		config:      config,
		connections: make(map[string]*connection),
		listening:   make(chan struct{}),
	}, nil
}

// Listening is closed once the first run of the driver bound its socket.
func (d *Driver) Listening() <-chan struct{} {
	return d.listening
}

// Addr returns the bound address, or nil before the driver is listening.
func (d *Driver) Addr() net.Addr {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.addr
}

func (d *Driver) Run(ctx irrecoverable.SignalerContext, submit core.Submitter, commands core.CommandStream) error {
	listener, err := d.listen()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		if d.config.Network == NetworkUnix {
			_ = os.Remove(d.config.Address)
		}
	}()

	// Accept and connection reads only return once their sockets are closed.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-runCtx.Done()
		_ = listener.Close()
		d.closeAll()
	}()

	var acceptErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		acceptErr = d.acceptLoop(runCtx, listener, submit, &wg)
		cancel()
	}()

	for {
		cmd, err := commands.Next(runCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			cancel()
			wg.Wait()
			if acceptErr != nil {
				return acceptErr
			}
			return fmt.Errorf("could not read command stream: %w", err)
		}
		if cmd.Tag != command.TagClientResponse {
			continue
		}
		response, ok := cmd.Payload.(command.ClientResponse)
		if !ok {
			d.log.Warn().Str("payload", fmt.Sprintf("%T", cmd.Payload)).Msg("ignoring client-response command with unexpected payload")
			continue
		}
		d.deliver(response)
	}
}

func (d *Driver) listen() (net.Listener, error) {
	if d.config.Network == NetworkUnix {
		// a socket file left behind by an unclean exit would make listen fail
		err := os.Remove(d.config.Address)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not remove stale socket %s: %w", d.config.Address, err)
		}
	}
	listener, err := net.Listen(d.config.Network, d.config.Address)
	if err != nil {
		return nil, fmt.Errorf("could not listen on %s %s: %w", d.config.Network, d.config.Address, err)
	}

	d.mu.Lock()
	d.addr = listener.Addr()
	select {
	case <-d.listening:
	default:
		close(d.listening)
	}
	d.mu.Unlock()

	d.log.Info().Str("network", d.config.Network).Str("address", listener.Addr().String()).Msg("client listener started")
	return listener, nil
}

func (d *Driver) acceptLoop(ctx context.Context, listener net.Listener, submit core.Submitter, wg *sync.WaitGroup) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("could not accept client connection: %w", err)
		}

		id := uuid.New().String()
		c, err := newConnection(id, conn, d.log, d.metrics, d.config)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("could not set up client connection: %w", err)
		}
		d.register(c)
		if ctx.Err() != nil {
			// accepted while shutting down, after the open connections were closed
			c.close()
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			defer d.unregister(c)
			c.readLoop(ctx, submit)
		}()
		go func() {
			defer wg.Done()
			c.writeLoop(ctx)
		}()
	}
}

// deliver queues a response for the connection it addresses. Responses to unknown or
// closed connections are dropped.
func (d *Driver) deliver(response command.ClientResponse) {
	d.mu.RLock()
	c, ok := d.connections[response.ConnID]
	d.mu.RUnlock()
	if !ok || !c.enqueue(toResponse(response)) {
		d.metrics.ClientResponseDropped()
		d.log.Debug().
			Str("conn_id", response.ConnID).
			Uint64("request_id", response.RequestID).
			Msg("dropping client response")
	}
}

func (d *Driver) register(c *connection) {
	d.mu.Lock()
	d.connections[c.id] = c
	d.mu.Unlock()
	d.metrics.ClientConnected()
	c.log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("client connected")
}

func (d *Driver) unregister(c *connection) {
	d.mu.Lock()
	delete(d.connections, c.id)
	d.mu.Unlock()
	d.metrics.ClientDisconnected()
}

func (d *Driver) closeAll() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.connections {
		c.close()
	}
}
