package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNotIdle is returned by Start while a cycle is in flight or its
	// outcome has not been reset.
	ErrNotIdle = errors.New("capture session is not idle")
	// ErrCycleInFlight is returned by Reset before the cycle has finished.
	ErrCycleInFlight = errors.New("capture cycle still in flight")
	// ErrCorruptValue marks a persisted value that cannot be decoded.
	ErrCorruptValue = errors.New("corrupt persisted value")
	// ErrRegistryClosed is returned by Observe after Close.
	ErrRegistryClosed = errors.New("session registry closed")
)

// StoreReadError is delivered on a record list when loading a parent's
// records fails. The list stays subscribed.
type StoreReadError struct {
	ParentID int64
	Err      error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("reading records of parent %d: %v", e.ParentID, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

func asStoreReadError(parentID int64, err error) error {
	var sre *StoreReadError
	if errors.As(err, &sre) {
		return err
	}
	return &StoreReadError{ParentID: parentID, Err: err}
}
