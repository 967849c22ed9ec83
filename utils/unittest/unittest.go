package unittest

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/zenith-chain/node/module"
	"github.com/zenith-chain/node/module/irrecoverable"
	"github.com/zenith-chain/node/module/util"
)

// RequireReturnsBefore requires that the given function returns before the
// duration expires.
func RequireReturnsBefore(t testing.TB, f func(), duration time.Duration, message string) {
	done := make(chan struct{})

	go func() {
		f()
		close(done)
	}()

	RequireCloseBefore(t, done, duration, message+": function did not return on time")
}

// RequireCloseBefore requires that the given channel returns before the
// duration expires.
func RequireCloseBefore(t testing.TB, c <-chan struct{}, duration time.Duration, message string) {
	select {
	case <-time.After(duration):
		require.Fail(t, "could not close done channel on time: "+message)
	case <-c:
		return
	}
}

// RequireNeverClosedWithin requires that the given channel stays open for the duration.
func RequireNeverClosedWithin(t testing.TB, ch <-chan struct{}, duration time.Duration, message string) {
	select {
	case <-time.After(duration):
	case <-ch:
		require.Fail(t, "channel closed before timeout: "+message)
	}
}

// RequireComponentsReadyBefore starts the components, waits for all of them to be
// ready, and fails the test otherwise.
func RequireComponentsReadyBefore(t testing.TB, duration time.Duration, components ...module.ReadyDoneAware) {
	RequireCloseBefore(t, util.AllReady(components...), duration, "components did not become ready")
}

// RequireComponentsDoneBefore waits for all components to shut down.
func RequireComponentsDoneBefore(t testing.TB, duration time.Duration, components ...module.ReadyDoneAware) {
	RequireCloseBefore(t, util.AllDone(components...), duration, "components did not shut down")
}

// StartComponent starts a component with a signaler context which fails the test on
// any thrown error, and returns the cancel function stopping it.
func StartComponent(t *testing.T, c interface {
	Start(irrecoverable.SignalerContext)
}) context.CancelFunc {
	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	c.Start(ctx)
	return cancel
}

// RunWithTempDir runs f with a directory removed at the end of the test.
func RunWithTempDir(t testing.TB, f func(string)) {
	f(t.TempDir())
}

// BadgerDB opens a database in dir which keeps level 0 tables in memory.
func BadgerDB(t testing.TB, dir string) *badger.DB {
	opts := badger.
		DefaultOptions(dir).
		WithKeepL0InMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	return db
}

func RunWithBadgerDB(t testing.TB, f func(*badger.DB)) {
	RunWithTempDir(t, func(dir string) {
		db := BadgerDB(t, dir)
		defer db.Close()
		f(db)
	})
}
