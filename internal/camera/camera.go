// Package camera captures still images to caller supplied destinations.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Code classifies a capture failure.
type Code string

const (
	CodeBusy              Code = "busy"
	CodeWriteFailed       Code = "write_failed"
	CodeDeviceUnavailable Code = "device_unavailable"
	CodePermissionDenied  Code = "permission_denied"
)

// Sentinel errors for errors.Is matching against *Error.
var (
	ErrBusy              = &Error{Code: CodeBusy}
	ErrWriteFailed       = &Error{Code: CodeWriteFailed}
	ErrDeviceUnavailable = &Error{Code: CodeDeviceUnavailable}
	ErrPermissionDenied  = &Error{Code: CodePermissionDenied}
)

// Error is returned by every Sink on failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "camera: " + string(e.Code)
	}
	return fmt.Sprintf("camera: %s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Sink captures one still image to dest. At most one capture may be in
// flight per Sink; a concurrent call fails with ErrBusy.
type Sink interface {
	Capture(ctx context.Context, dest string) error
}

// exclusive rejects overlapping captures instead of queueing them.
type exclusive struct {
	busy atomic.Bool
}

func (x *exclusive) acquire() error {
	if !x.busy.CompareAndSwap(false, true) {
		return newError(CodeBusy, errors.New("capture already in progress"))
	}
	return nil
}

func (x *exclusive) release() {
	x.busy.Store(false)
}
