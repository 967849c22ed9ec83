package kernel

import (
	"errors"
	"fmt"
)

// RejectedError indicates that an event was invalid with respect to the current state
// (stale proof-of-work, conflicting genesis, malformed block). Rejections are part of
// normal operation.
type RejectedError struct {
	Cause string
	Err   error
}

func NewRejectedErrorf(cause string, msg string, args ...interface{}) error {
	return RejectedError{
		Cause: cause,
		Err:   fmt.Errorf(msg, args...),
	}
}

func (e RejectedError) Error() string {
	return fmt.Sprintf("rejected %s event: %s", e.Cause, e.Err.Error())
}

func (e RejectedError) Unwrap() error {
	return e.Err
}

// IsRejectedError returns whether an error is RejectedError
func IsRejectedError(err error) bool {
	var e RejectedError
	return errors.As(err, &e)
}
