package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/zenith-chain/node/core"
	"github.com/zenith-chain/node/kernel"
	kernelmock "github.com/zenith-chain/node/kernel/mock"
	"github.com/zenith-chain/node/model/command"
	"github.com/zenith-chain/node/model/event"
	"github.com/zenith-chain/node/module/broadcast"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/metrics"
	"github.com/zenith-chain/node/utils/unittest"
)

func testConfig() core.Config {
	config := core.DefaultConfig()
	config.RestartBackoffMin = 10 * time.Millisecond
	config.RestartBackoffMax = 50 * time.Millisecond
	return config
}

func newCore(t *testing.T, k kernel.Kernel, config core.Config) *core.Core {
	c, err := core.New(unittest.Logger(), metrics.NewNoopCollector(), k, config)
	require.NoError(t, err)
	return c
}

func tick(origin string) event.Event {
	return event.New(event.NewWire("test", origin), event.Tick{})
}

// recorder is a driver collecting every command it reads.
type recorder struct {
	mu       sync.Mutex
	received []command.Command
	notify   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 1)}
}

func (r *recorder) Run(ctx irrecoverable.SignalerContext, _ core.Submitter, commands core.CommandStream) error {
	for {
		cmd, err := commands.Next(ctx)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.received = append(r.received, cmd)
		r.mu.Unlock()
		select {
		case r.notify <- struct{}{}:
		default:
		}
	}
}

func (r *recorder) commands() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Command(nil), r.received...)
}

func (r *recorder) waitFor(t *testing.T, n int) []command.Command {
	require.Eventually(t, func() bool {
		return len(r.commands()) >= n
	}, 5*time.Second, 5*time.Millisecond, "expected %d commands", n)
	return r.commands()
}

// TestCore_BroadcastsBatchesInOrder checks that each driver receives the full command
// stream, every batch complete and in application order.
func TestCore_BroadcastsBatchesInOrder(t *testing.T) {
	k := newCounterKernel(3)
	c := newCore(t, k, testConfig())

	first, second := newRecorder(), newRecorder()
	require.NoError(t, c.RegisterDriver("first", first))
	require.NoError(t, c.RegisterDriver("second", second))

	// submitted before start: the drivers still observe the resulting commands
	require.NoError(t, c.Submit(tick("early")))

	cancel := unittest.StartComponent(t, c)
	unittest.RequireComponentsReadyBefore(t, time.Second, c)

	const events = 50
	for i := 1; i < events; i++ {
		require.NoError(t, c.Submit(tick(fmt.Sprint(i))))
	}

	for _, r := range []*recorder{first, second} {
		received := r.waitFor(t, 3*events)
		require.Len(t, received, 3*events)
		for i, cmd := range received {
			require.Equal(t, tagEcho, cmd.Tag)
			payload := cmd.Payload.(echo)
			assert.Equal(t, uint64(i/3+1), payload.Version)
			assert.Equal(t, i%3, payload.Index)
		}
	}
	assert.Equal(t, uint64(events), c.State().Version())

	cancel()
	unittest.RequireComponentsDoneBefore(t, time.Second, c)
}

// TestCore_SingleWriter submits from many goroutines and checks the kernel never saw
// two concurrent applications.
func TestCore_SingleWriter(t *testing.T) {
	k := newCounterKernel(1)
	config := testConfig()
	config.QueueCapacity = 4
	c := newCore(t, k, config)

	cancel := unittest.StartComponent(t, c)
	defer cancel()
	unittest.RequireComponentsReadyBefore(t, time.Second, c)

	const submitters = 8
	const perSubmitter = 100
	var wg sync.WaitGroup
	wg.Add(submitters)
	for s := 0; s < submitters; s++ {
		s := s
		go func() {
			defer wg.Done()
			for i := 0; i < perSubmitter; i++ {
				assert.NoError(t, c.Submit(tick(fmt.Sprintf("%d-%d", s, i))))
			}
		}()
	}
	unittest.RequireReturnsBefore(t, wg.Wait, 5*time.Second, "submitters blocked")

	require.Eventually(t, func() bool {
		return c.State().Version() == submitters*perSubmitter
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), k.maxSeen.Load())

	// per-submitter FIFO order is preserved by the shared queue
	positions := make(map[string]int)
	for i, origin := range k.appliedOrigins() {
		positions[origin] = i
	}
	for s := 0; s < submitters; s++ {
		for i := 1; i < perSubmitter; i++ {
			prev := positions[fmt.Sprintf("test/%d-%d", s, i-1)]
			cur := positions[fmt.Sprintf("test/%d-%d", s, i)]
			assert.Less(t, prev, cur)
		}
	}
}

// TestCore_RejectedEvent checks a rejected event leaves the state untouched and
// broadcasts nothing.
func TestCore_RejectedEvent(t *testing.T) {
	k := newCounterKernel(1)
	c := newCore(t, k, testConfig())
	r := newRecorder()
	require.NoError(t, c.RegisterDriver("recorder", r))

	cancel := unittest.StartComponent(t, c)
	defer cancel()

	require.NoError(t, c.Submit(tick("a")))
	require.NoError(t, c.Submit(event.New(event.NewWire("test", "tx"), event.HeardTransaction{})))
	require.NoError(t, c.Submit(tick("b")))

	received := r.waitFor(t, 2)
	require.Eventually(t, func() bool { return len(k.appliedOrigins()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Len(t, received, 2)
	assert.Equal(t, uint64(2), c.State().Version())
	assert.Equal(t, uint64(2), received[1].Payload.(echo).Version)
}

// TestCore_KernelFault checks a kernel error is thrown as irrecoverable and shuts the
// core down.
func TestCore_KernelFault(t *testing.T) {
	k := kernelmock.NewKernel(t)
	state := kernelmock.NewState(t)
	state.On("Version").Return(uint64(0)).Maybe()
	k.On("Initial").Return(state)
	fault := errors.New("corrupted state")
	k.On("Apply", state, mock.Anything).Return(nil, nil, fault).Once()

	c := newCore(t, k, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	c.Start(signalerCtx)

	require.NoError(t, c.Submit(tick("fault")))

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, fault)
		assert.False(t, kernel.IsRejectedError(err))
	case <-time.After(time.Second):
		t.Fatal("kernel fault was not thrown")
	}
	unittest.RequireCloseBefore(t, c.Done(), time.Second, "core did not shut down after fault")
	assert.ErrorIs(t, c.Submit(tick("late")), core.ErrShutdown)
}

// TestCore_KernelFaultStopsDrivers checks a kernel fault reaches the caller while
// drivers are registered, including drivers which only return once cancelled. Drivers
// are cancelled before they can observe the closed command stream.
func TestCore_KernelFaultStopsDrivers(t *testing.T) {
	k := kernelmock.NewKernel(t)
	state := kernelmock.NewState(t)
	state.On("Version").Return(uint64(0)).Maybe()
	k.On("Initial").Return(state)
	fault := errors.New("corrupted state")
	k.On("Apply", state, mock.Anything).Return(nil, nil, fault).Once()

	c := newCore(t, k, testConfig())
	require.NoError(t, c.RegisterDriver("recorder", newRecorder()))
	require.NoError(t, c.RegisterDriver("idle", core.DriverFunc(
		func(ctx irrecoverable.SignalerContext, _ core.Submitter, _ core.CommandStream) error {
			<-ctx.Done()
			return nil
		})))
	cancelledFirst := atomic.NewBool(false)
	require.NoError(t, c.RegisterDriver("reader", core.DriverFunc(
		func(ctx irrecoverable.SignalerContext, _ core.Submitter, commands core.CommandStream) error {
			_, err := commands.Next(context.Background())
			cancelledFirst.Store(ctx.Err() != nil)
			return err
		})))

	signalerCtx, errChan := irrecoverable.WithSignaler(context.Background())
	c.Start(signalerCtx)
	unittest.RequireCloseBefore(t, c.Ready(), time.Second, "core did not start")

	require.NoError(t, c.Submit(tick("fault")))

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, fault)
	case <-time.After(5 * time.Second):
		t.Fatal("kernel fault was not propagated")
	}
	unittest.RequireCloseBefore(t, c.Done(), time.Second, "core did not shut down after fault")
	assert.True(t, cancelledFirst.Load())
}

func TestCore_SubmitBackpressureAndShutdown(t *testing.T) {
	k := newCounterKernel(0)
	config := testConfig()
	config.QueueCapacity = 2
	c := newCore(t, k, config)

	require.NoError(t, c.Submit(tick("1")))
	require.NoError(t, c.Submit(tick("2")))

	blocked := make(chan struct{})
	go func() {
		defer close(blocked)
		assert.NoError(t, c.Submit(tick("3")))
	}()
	unittest.RequireNeverClosedWithin(t, blocked, 50*time.Millisecond, "submit should wait for room in a full queue")

	cancel := unittest.StartComponent(t, c)
	unittest.RequireCloseBefore(t, blocked, time.Second, "submit did not resume once the loop drained the queue")
	require.Eventually(t, func() bool { return c.State().Version() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	unittest.RequireComponentsDoneBefore(t, time.Second, c)
	assert.ErrorIs(t, c.Submit(tick("4")), core.ErrShutdown)
}

func TestCore_RegistrationAndRestoreBeforeStart(t *testing.T) {
	k := newCounterKernel(0)
	c := newCore(t, k, testConfig())

	require.NoError(t, c.RegisterDriver("a", newRecorder()))
	require.Error(t, c.RegisterDriver("a", newRecorder()), "duplicate driver names are refused")

	snapshot, err := k.Encode(&counterState{version: 41})
	require.NoError(t, err)
	require.NoError(t, c.Restore(snapshot))
	assert.Equal(t, uint64(41), c.State().Version())
	require.Error(t, c.Restore([]byte{1}))

	cancel := unittest.StartComponent(t, c)
	defer cancel()

	assert.ErrorIs(t, c.RegisterDriver("b", newRecorder()), core.ErrAlreadyStarted)
	assert.ErrorIs(t, c.Restore(snapshot), core.ErrAlreadyStarted)

	require.NoError(t, c.Submit(tick("next")))
	require.Eventually(t, func() bool { return c.State().Version() == 42 }, time.Second, 5*time.Millisecond)

	version, data, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), version)
	restored, err := k.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), restored.Version())
}

// TestCore_DriverRestart checks that failing and panicking drivers are restarted while
// the rest of the node keeps running.
func TestCore_DriverRestart(t *testing.T) {
	k := newCounterKernel(1)
	c := newCore(t, k, testConfig())

	runs := atomic.NewInt32(0)
	restarted := make(chan struct{})
	flaky := core.DriverFunc(func(ctx irrecoverable.SignalerContext, submit core.Submitter, commands core.CommandStream) error {
		switch runs.Inc() {
		case 1:
			return errors.New("connection reset")
		case 2:
			panic("unexpected nil")
		case 3:
			ctx.Throw(errors.New("thrown"))
		}
		close(restarted)
		<-ctx.Done()
		return nil
	})
	r := newRecorder()
	require.NoError(t, c.RegisterDriver("flaky", flaky))
	require.NoError(t, c.RegisterDriver("recorder", r))

	cancel := unittest.StartComponent(t, c)
	unittest.RequireCloseBefore(t, restarted, 5*time.Second, "driver was not restarted")
	assert.Equal(t, int32(4), runs.Load())

	require.NoError(t, c.Submit(tick("after")))
	r.waitFor(t, 1)

	cancel()
	unittest.RequireComponentsDoneBefore(t, time.Second, c)
}

// TestCore_OverrunResynchronizes publishes 100 commands past a stalled driver holding
// a cursor into a ring of 10 and checks the driver observes the loss explicitly, then
// resumes from a fresh subscription.
func TestCore_OverrunResynchronizes(t *testing.T) {
	k := newCounterKernel(1)
	config := testConfig()
	config.BroadcastCapacity = 10
	c := newCore(t, k, config)

	release := make(chan struct{})
	overrun := make(chan broadcast.OverrunError, 1)
	resumed := make(chan command.Command, 1)
	runs := atomic.NewInt32(0)
	lagging := core.DriverFunc(func(ctx irrecoverable.SignalerContext, _ core.Submitter, commands core.CommandStream) error {
		if runs.Inc() == 1 {
			<-release
			_, err := commands.Next(ctx)
			var e broadcast.OverrunError
			if errors.As(err, &e) {
				overrun <- e
			}
			return err
		}
		cmd, err := commands.Next(ctx)
		if err != nil {
			return err
		}
		resumed <- cmd
		<-ctx.Done()
		return nil
	})
	require.NoError(t, c.RegisterDriver("lagging", lagging))

	cancel := unittest.StartComponent(t, c)
	defer cancel()

	for i := 0; i < 100; i++ {
		require.NoError(t, c.Submit(tick(fmt.Sprint(i))))
	}
	require.Eventually(t, func() bool { return c.State().Version() == 100 }, 5*time.Second, 5*time.Millisecond)
	close(release)

	select {
	case e := <-overrun:
		assert.Equal(t, uint64(90), e.Missed)
	case <-time.After(time.Second):
		t.Fatal("driver did not observe the overrun")
	}

	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 5*time.Millisecond)
	// give the restarted driver time to subscribe, then publish past the old head
	var cmd command.Command
	require.Eventually(t, func() bool {
		_ = c.Submit(tick("resume"))
		select {
		case cmd = <-resumed:
			return true
		case <-time.After(10 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
	assert.Greater(t, cmd.Payload.(echo).Version, uint64(100))
}

// TestCore_NoGoroutineLeak checks that shutting the core down stops every goroutine
// it started, drivers included.
func TestCore_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	k := newCounterKernel(2)
	c := newCore(t, k, testConfig())
	require.NoError(t, c.RegisterDriver("recorder", newRecorder()))

	cancel := unittest.StartComponent(t, c)
	unittest.RequireComponentsReadyBefore(t, time.Second, c)
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Submit(tick(fmt.Sprint(i))))
	}
	cancel()
	unittest.RequireComponentsDoneBefore(t, time.Second, c)
}
