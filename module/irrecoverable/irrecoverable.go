// Package irrecoverable carries fatal errors from a worker goroutine to whoever
// started it. Throw replaces panic for errors the node cannot continue after.
package irrecoverable

import (
	"context"
	"log"
	"os"
	"runtime"
	"sync"
)

// SignalerContext is a context whose Throw reports a fatal error to the component
// that created it.
type SignalerContext interface {
	context.Context
	// Throw reports err and ends the calling goroutine. Only the first error of a
	// context is delivered.
	Throw(err error)
	sealed()
}

type signalerCtx struct {
	context.Context
	errChan chan error
	once    *sync.Once
}

func (sc signalerCtx) sealed() {}

func (sc signalerCtx) Throw(err error) {
	defer runtime.Goexit()
	delivered := false
	sc.once.Do(func() {
		sc.errChan <- err
		delivered = true
	})
	if !delivered {
		log.New(os.Stderr, "", log.LstdFlags).Printf("unhandled irrecoverable error: %v", err)
	}
}

// WithSignaler derives a SignalerContext from parent. The first thrown error is sent
// on the returned channel.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	errChan := make(chan error, 1)
	return signalerCtx{Context: parent, errChan: errChan, once: new(sync.Once)}, errChan
}
