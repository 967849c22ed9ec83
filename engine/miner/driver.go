// Package miner implements the proof-of-work search driver.
package miner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/model/chain"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/irrecoverable"
)

const DriverName = "miner"

// Driver searches for proof-of-work nonces on request. A search-pow command cancels
// the search in flight before the next one starts, and a cancelled search never
// submits a solution.
type Driver struct {
	log     zerolog.Logger
	metrics module.MiningMetrics
	config  Config
	origin  event.Wire

	solved *lru.Cache[chain.Identifier, uint64]

	mu      sync.Mutex // protects current
	current *search
}

var _ core.Driver = (*Driver)(nil)

// search is one proof-of-work search spread over the worker pool.
type search struct {
	request command.SearchPow
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	// mu serializes the submission of a solution with cancellation: once cancel has
	// been called under mu, no worker of this search can submit.
	mu       sync.Mutex
	finished bool
}

func New(log zerolog.Logger, metrics module.MiningMetrics, config Config) (*Driver, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid miner configuration: %w", err)
	}
	solved, err := lru.New[chain.Identifier, uint64](config.SolvedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create solved header cache: %w", err)
	}
	return &Driver{
		log:     log.With().Str("engine", DriverName).Logger(),
		metrics: metrics,
		config:  config,
		origin:  event.NewWire(DriverName),
		solved:  solved,
	}, nil
}

func (d *Driver) Run(ctx irrecoverable.SignalerContext, submit core.Submitter, commands core.CommandStream) error {
	pool := workerpool.New(d.config.Workers)
	defer pool.StopWait()
	defer d.cancelCurrent()

	for {
		cmd, err := commands.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("could not read command stream: %w", err)
		}
		if cmd.Tag != command.TagSearchPow {
			continue
		}
		request, ok := cmd.Payload.(command.SearchPow)
		if !ok {
			d.log.Warn().Str("payload", fmt.Sprintf("%T", cmd.Payload)).Msg("ignoring search-pow command with unexpected payload")
			continue
		}
		err = d.start(ctx, pool, submit, request)
		if err != nil {
			return err
		}
	}
}

// start supersedes the current search with a new one.
func (d *Driver) start(ctx context.Context, pool *workerpool.WorkerPool, submit core.Submitter, request command.SearchPow) error {
	d.cancelCurrent()

	log := d.log.With().Hex("work_id", request.WorkID[:]).Uint64("height", request.Header.Height).Logger()

	if nonce, ok := d.solved.Get(request.WorkID); ok {
		d.metrics.SolvedCacheHit()
		log.Debug().Uint64("nonce", nonce).Msg("search answered from solved cache")
		err := submit.Submit(event.New(d.origin, event.PowSolution{WorkID: request.WorkID, Nonce: nonce}))
		if err != nil && !errors.Is(err, core.ErrShutdown) {
			return fmt.Errorf("could not submit cached solution: %w", err)
		}
		return nil
	}

	searchCtx, cancel := context.WithCancel(ctx)
	s := &search{
		request: request,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	work := request.Header.Work()

	var wg sync.WaitGroup
	wg.Add(d.config.Workers)
	for i := 0; i < d.config.Workers; i++ {
		partition := uint64(i)
		pool.Submit(func() {
			defer wg.Done()
			d.searchPartition(searchCtx, s, submit, work, partition)
		})
	}
	go func() {
		wg.Wait()
		close(s.done)
	}()

	d.mu.Lock()
	d.current = s
	d.mu.Unlock()

	d.metrics.SearchStarted()
	log.Debug().Int("workers", d.config.Workers).Msg("search started")
	return nil
}

// searchPartition hashes the nonces partition, partition+P, partition+2P, ... where P is
// the number of workers, checking for cancellation after every batch.
func (d *Driver) searchPartition(ctx context.Context, s *search, submit core.Submitter, work []byte, partition uint64) {
	stride := uint64(d.config.Workers)
	nonce := partition
	for {
		if ctx.Err() != nil {
			return
		}
		for i := uint64(0); i < d.config.BatchSize; i++ {
			if s.request.Target.Meets(chain.PowHash(work, nonce)) {
				d.metrics.HashesComputed(i + 1)
				d.found(ctx, s, submit, nonce)
				return
			}
			next := nonce + stride
			if next < nonce {
				// partition exhausted
				d.metrics.HashesComputed(i + 1)
				return
			}
			nonce = next
		}
		d.metrics.HashesComputed(d.config.BatchSize)
	}
}

func (d *Driver) found(ctx context.Context, s *search, submit core.Submitter, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || ctx.Err() != nil {
		return
	}
	s.finished = true
	s.cancel()

	d.solved.Add(s.request.WorkID, nonce)
	d.metrics.SolutionFound(time.Since(s.started))
	d.log.Info().
		Hex("work_id", s.request.WorkID[:]).
		Uint64("height", s.request.Header.Height).
		Uint64("nonce", nonce).
		Dur("duration", time.Since(s.started)).
		Msg("proof of work found")

	err := submit.Submit(event.New(d.origin, event.PowSolution{WorkID: s.request.WorkID, Nonce: nonce}))
	if err != nil && !errors.Is(err, core.ErrShutdown) {
		d.log.Error().Err(err).Msg("could not submit proof of work")
	}
}

// cancelCurrent cancels the search in flight, if any, and waits for its workers to exit.
func (d *Driver) cancelCurrent() {
	d.mu.Lock()
	s := d.current
	d.current = nil
	d.mu.Unlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	superseded := !s.finished
	s.finished = true
	s.cancel()
	s.mu.Unlock()
	<-s.done

	if superseded {
		d.metrics.SearchCancelled()
		d.log.Debug().Hex("work_id", s.request.WorkID[:]).Msg("search cancelled")
	}
}
