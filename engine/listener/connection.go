package listener

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v4"
	"golang.org/x/time/rate"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/engine"
	"github.com/zenith-chain/node/engine/common/fifoqueue"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module"
)

// connection is one client connection. Requests are read and submitted by readLoop;
// responses are queued by the driver and written by writeLoop.
type connection struct {
	id       string
	conn     net.Conn
	log      zerolog.Logger
	metrics  module.ClientMetrics
	origin   event.Wire
	timeout  time.Duration
	limiter  *rate.Limiter
	outbound *fifoqueue.FifoQueue[Response]
	notifier engine.Notifier

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(id string, conn net.Conn, log zerolog.Logger, metrics module.ClientMetrics, config Config) (*connection, error) {
	outbound, err := fifoqueue.NewFifoQueue(fifoqueue.WithCapacity[Response](config.OutboundQueueCapacity))
	if err != nil {
		return nil, err
	}
	return &connection{
		id:       id,
		conn:     conn,
		log:      log.With().Str("conn_id", id).Logger(),
		metrics:  metrics,
		origin:   event.NewWire(DriverName, id),
		timeout:  config.WriteTimeout,
		limiter:  rate.NewLimiter(config.RequestRate, config.RequestBurst),
		outbound: outbound,
		notifier: engine.NewNotifier(),
		closed:   make(chan struct{}),
	}, nil
}

// enqueue schedules a response for writing. Returns false if the response was dropped.
func (c *connection) enqueue(response Response) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	if !c.outbound.Push(response) {
		return false
	}
	c.notifier.Notify()
	return true
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// readLoop decodes requests until the client disconnects or the connection is closed.
func (c *connection) readLoop(ctx context.Context, submit core.Submitter) {
	defer c.close()

	decoder := msgpack.NewDecoder(bufio.NewReader(c.conn))
	for {
		var request Request
		err := decoder.Decode(&request)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				c.log.Debug().Msg("client disconnected")
				return
			}
			c.log.Warn().Err(err).Msg("could not decode client request, closing connection")
			return
		}
		c.metrics.ClientRequestReceived(request.Kind)

		if !c.limiter.Allow() {
			c.reject(request.ID, "rate limit exceeded")
			continue
		}
		cause, err := request.toEvent(c.id)
		if err != nil {
			c.reject(request.ID, err.Error())
			continue
		}
		err = submit.Submit(event.New(c.origin, cause))
		if err != nil {
			if !errors.Is(err, core.ErrShutdown) {
				c.log.Error().Err(err).Msg("could not submit client request")
			}
			return
		}
	}
}

// reject answers a request locally, without involving the kernel.
func (c *connection) reject(requestID uint64, reason string) {
	if !c.enqueue(Response{ID: requestID, Error: reason}) {
		c.metrics.ClientResponseDropped()
	}
}

// writeLoop writes queued responses until the connection or the driver is closed.
func (c *connection) writeLoop(ctx context.Context) {
	defer c.close()

	writer := bufio.NewWriter(c.conn)
	encoder := msgpack.NewEncoder(writer)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-c.notifier.Channel():
		}

		for {
			response, ok := c.outbound.Pop()
			if !ok {
				break
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
			err := encoder.Encode(response)
			if err == nil {
				err = writer.Flush()
			}
			if err != nil {
				c.log.Warn().Err(err).Msg("could not write client response, closing connection")
				return
			}
		}
	}
}
