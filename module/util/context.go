package util

import (
	"context"
	"errors"
)

// ErrChannelClosed is the error of a context from WithDone cancelled by its channel.
var ErrChannelClosed = errors.New("channel closed")

// WithDone returns a context cancelled once done closes. Its Err is ErrChannelClosed
// in that case, or the error of the parent.
func WithDone(parent context.Context, done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-done:
			cancel(ErrChannelClosed)
		case <-ctx.Done():
		}
	}()
	return causeCtx{ctx}, func() { cancel(context.Canceled) }
}
