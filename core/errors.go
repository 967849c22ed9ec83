package core

import (
	"errors"
	"fmt"
)

var (
	// ErrShutdown is returned by Submit once the core has begun shutting down.
	ErrShutdown = errors.New("runtime core is shutting down")

	// ErrAlreadyStarted is returned by operations only allowed before Start.
	ErrAlreadyStarted = errors.New("runtime core already started")
)

// DriverPanicError wraps a panic recovered at a driver boundary.
type DriverPanicError struct {
	Driver string
	Value  interface{}
}

func (e DriverPanicError) Error() string {
	return fmt.Sprintf("driver %s panicked: %v", e.Driver, e.Value)
}

// IsDriverPanicError returns whether an error is DriverPanicError
func IsDriverPanicError(err error) bool {
	var e DriverPanicError
	return errors.As(err, &e)
}
