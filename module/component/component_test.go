package component_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/zenith-chain/node/module/component"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/utils/unittest"
)

var errFatal = errors.New("fatal")

func TestComponentManager_ReadyAndDone(t *testing.T) {
	release := make(chan struct{})
	manager := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			<-release
			ready()
			ready()
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	manager.Start(ctx)
	unittest.RequireNeverClosedWithin(t, manager.Ready(), 20*time.Millisecond, "ready before every worker")

	close(release)
	unittest.RequireCloseBefore(t, manager.Ready(), time.Second, "workers did not become ready")

	cancel()
	unittest.RequireCloseBefore(t, manager.Done(), time.Second, "workers did not stop")
	assert.Panics(t, func() { manager.Start(ctx) })
}

func TestComponentManager_PropagatesThrownError(t *testing.T) {
	stopped := atomic.NewBool(false)
	manager := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ctx.Throw(errFatal)
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
			stopped.Store(true)
		}).
		Build()

	signalerCtx, thrown := irrecoverable.WithSignaler(context.Background())
	manager.Start(signalerCtx)

	select {
	case err := <-thrown:
		assert.ErrorIs(t, err, errFatal)
	case <-time.After(time.Second):
		t.Fatal("error was not propagated")
	}
	unittest.RequireCloseBefore(t, manager.Done(), time.Second, "manager did not stop")
	assert.True(t, stopped.Load())
}

// flaky returns a factory whose first instances throw and whose last returns cleanly.
func flaky(failures int, runs *atomic.Int32) component.ComponentFactory {
	return func() (component.Component, error) {
		run := runs.Inc()
		return component.NewComponentManagerBuilder().
			AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
				ready()
				if int(run) <= failures {
					ctx.Throw(errFatal)
				}
			}).
			Build(), nil
	}
}

func TestRunComponent_Restarts(t *testing.T) {
	runs := atomic.NewInt32(0)
	handled := 0
	err := component.RunComponent(context.Background(), flaky(3, runs), func(err error) component.ErrorHandlingResult {
		assert.ErrorIs(t, err, errFatal)
		handled++
		return component.ErrorHandlingRestart
	})
	require.NoError(t, err)
	assert.Equal(t, int32(4), runs.Load())
	assert.Equal(t, 3, handled)
}

func TestRunComponent_Stops(t *testing.T) {
	runs := atomic.NewInt32(0)
	err := component.RunComponent(context.Background(), flaky(3, runs), func(error) component.ErrorHandlingResult {
		return component.ErrorHandlingStop
	})
	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunComponent_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	factory := func() (component.Component, error) {
		return component.NewComponentManagerBuilder().
			AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
				ready()
				close(started)
				<-ctx.Done()
			}).
			Build(), nil
	}

	result := make(chan error, 1)
	go func() {
		result <- component.RunComponent(ctx, factory, func(error) component.ErrorHandlingResult {
			return component.ErrorHandlingStop
		})
	}()
	unittest.RequireCloseBefore(t, started, time.Second, "component did not start")
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunComponent did not return")
	}

	// an already cancelled context never creates an instance
	err := component.RunComponent(ctx, factory, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
