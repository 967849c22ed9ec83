package util

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/zenith-chain/node/module"
)

// ErrSignalReceived is the error of a context from WithSignal cancelled by a signal.
var ErrSignalReceived = errors.New("signal received")

// AllReady returns a channel closed once every component is ready.
func AllReady(components ...module.ReadyDoneAware) <-chan struct{} {
	channels := make([]<-chan struct{}, 0, len(components))
	for _, c := range components {
		channels = append(channels, c.Ready())
	}
	return AllClosed(channels...)
}

// AllDone returns a channel closed once every component is done.
func AllDone(components ...module.ReadyDoneAware) <-chan struct{} {
	channels := make([]<-chan struct{}, 0, len(components))
	for _, c := range components {
		channels = append(channels, c.Done())
	}
	return AllClosed(channels...)
}

func AllClosed(channels ...<-chan struct{}) <-chan struct{} {
	closed := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(len(channels))
	for _, ch := range channels {
		ch := ch
		go func() {
			defer wg.Done()
			<-ch
		}()
	}
	go func() {
		wg.Wait()
		close(closed)
	}()
	return closed
}

// WaitError blocks until an error arrives on errChan or done closes. An error that is
// pending when done closes is still returned, so an irrecoverable error that caused
// the shutdown is never lost.
func WaitError(errChan <-chan error, done <-chan struct{}) error {
	select {
	case err := <-errChan:
		return err
	case <-done:
	}
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// WithSignal returns a context cancelled when a signal arrives on sigChan, in which
// case its Err is ErrSignalReceived.
func WithSignal(parent context.Context, sigChan <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-sigChan:
			cancel(ErrSignalReceived)
		case <-ctx.Done():
		}
	}()
	return causeCtx{ctx}, func() { cancel(context.Canceled) }
}

// causeCtx reports the cancellation cause as its Err.
type causeCtx struct {
	context.Context
}

func (c causeCtx) Err() error {
	if c.Context.Err() == nil {
		return nil
	}
	return context.Cause(c.Context)
}
