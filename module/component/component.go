// Package component runs the long-lived parts of a node: the runtime core, every
// driver instance and the metrics server. A component is started once with a
// SignalerContext and stops when that context is cancelled or one of its workers
// throws an irrecoverable error.
package component

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/util"
)

// Component can be started once and reports startup and shutdown through its Ready
// and Done channels. Done closes eventually after Start, on graceful shutdown as well
// as after an irrecoverable error.
type Component interface {
	module.Startable
	module.ReadyDoneAware
}

// ComponentFactory returns a fresh component for every run of RunComponent.
type ComponentFactory func() (Component, error)

// OnError decides what RunComponent does after an instance threw err. It may block,
// e.g. to back off before a restart.
type OnError = func(err error) ErrorHandlingResult

type ErrorHandlingResult int

const (
	ErrorHandlingRestart ErrorHandlingResult = iota
	ErrorHandlingStop
)

// RunComponent runs instances created by factory until one returns cleanly, ctx is
// cancelled, or the error handler stops it. After each irrecoverable error the failed
// instance is shut down completely before the handler is consulted.
//
// It returns nil after a clean return, ctx.Err() after cancellation, the last thrown
// error when the handler stops, or the error of the factory.
func RunComponent(ctx context.Context, factory ComponentFactory, handler OnError) error {
	for ctx.Err() == nil {
		instance, err := factory()
		if err != nil {
			// restarting cannot fix a factory failure
			return err
		}

		runCtx, cancel := context.WithCancel(ctx)
		signalerCtx, thrown := irrecoverable.WithSignaler(runCtx)
		// Throw ends the calling goroutine, so the instance must not run on ours
		go instance.Start(signalerCtx)

		err = util.WaitError(thrown, instance.Done())
		cancel()
		<-instance.Done()

		switch {
		case err != nil:
			switch result := handler(err); result {
			case ErrorHandlingRestart:
				continue
			case ErrorHandlingStop:
				return err
			default:
				panic(fmt.Sprintf("invalid error handling result: %v", result))
			}
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return nil
		}
	}
	return ctx.Err()
}

// ReadyFunc is called by a worker once it is ready. The manager is ready when all of
// its workers are.
type ReadyFunc func()

// ComponentWorker is a goroutine of a component. Irrecoverable errors are thrown on
// ctx, and cancellation of ctx asks the worker to return.
type ComponentWorker func(ctx irrecoverable.SignalerContext, ready ReadyFunc)

type ComponentManagerBuilder interface {
	AddWorker(ComponentWorker) ComponentManagerBuilder
	Build() *ComponentManager
}

type componentManagerBuilder struct {
	workers []ComponentWorker
}

func NewComponentManagerBuilder() ComponentManagerBuilder {
	return &componentManagerBuilder{}
}

// AddWorker is not safe for concurrent use.
func (b *componentManagerBuilder) AddWorker(worker ComponentWorker) ComponentManagerBuilder {
	b.workers = append(b.workers, worker)
	return b
}

// Build may be called more than once, each manager runs its own copy of the workers.
func (b *componentManagerBuilder) Build() *ComponentManager {
	return &ComponentManager{
		started: atomic.NewBool(false),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		workers: append([]ComponentWorker(nil), b.workers...),
	}
}

var _ Component = (*ComponentManager)(nil)

// ComponentManager implements Component for a set of workers running in parallel.
// Ready closes once every worker called its ReadyFunc and never closes if a worker
// returns before that. Done closes once every worker returned.
//
// The first error thrown by a worker cancels the remaining workers and is rethrown to
// the context given to Start, after all workers have returned.
type ComponentManager struct {
	started *atomic.Bool
	ready   chan struct{}
	done    chan struct{}
	workers []ComponentWorker
}

// Start launches the workers. It panics when called twice.
func (c *ComponentManager) Start(parent irrecoverable.SignalerContext) {
	if !c.started.CompareAndSwap(false, true) {
		panic(module.ErrMultipleStartup)
	}

	ctx, cancel := context.WithCancel(parent)
	signalerCtx, thrown := irrecoverable.WithSignaler(ctx)

	var ready, running sync.WaitGroup
	ready.Add(len(c.workers))
	running.Add(len(c.workers))
	for _, worker := range c.workers {
		worker := worker
		go func() {
			defer running.Done()
			var once sync.Once
			worker(signalerCtx, func() { once.Do(ready.Done) })
		}()
	}

	go func() {
		ready.Wait()
		close(c.ready)
	}()

	returned := make(chan struct{})
	go func() {
		running.Wait()
		close(returned)
	}()

	go func() {
		err := util.WaitError(thrown, returned)
		cancel()
		<-returned
		// the error reaches the parent before Done closes
		defer close(c.done)
		if err != nil {
			parent.Throw(err)
		}
	}()
}

func (c *ComponentManager) Ready() <-chan struct{} {
	return c.ready
}

func (c *ComponentManager) Done() <-chan struct{} {
	return c.done
}
