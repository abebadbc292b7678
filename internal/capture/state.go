package capture

import (
	"fmt"
	"strings"
)

// StateKind enumerates the states of a capture cycle.
type StateKind int

const (
	Idle StateKind = iota
	Capturing
	AwaitingLocation
	Persisting
	Succeeded
	Failed
)

var stateNames = [...]string{
	Idle:             "idle",
	Capturing:        "capturing",
	AwaitingLocation: "awaiting_location",
	Persisting:       "persisting",
	Succeeded:        "succeeded",
	Failed:           "failed",
}

func (k StateKind) String() string {
	if k < 0 || int(k) >= len(stateNames) {
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
	return stateNames[k]
}

// ParseStateKind decodes a state name. Unknown names are ErrCorruptValue.
func ParseStateKind(name string) (StateKind, error) {
	for k, n := range stateNames {
		if n == strings.ToLower(strings.TrimSpace(name)) {
			return StateKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: state %q", ErrCorruptValue, name)
}

// Terminal reports whether the kind ends a cycle.
func (k StateKind) Terminal() bool {
	return k == Succeeded || k == Failed
}

// FailureKind tells which stage of the cycle failed.
type FailureKind int

const (
	CaptureFailed FailureKind = iota + 1
	PersistFailed
)

func (k FailureKind) String() string {
	switch k {
	case CaptureFailed:
		return "capture_failed"
	case PersistFailed:
		return "persist_failed"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure is the reason carried by a Failed state. Message is meant for
// the user; Err keeps the underlying cause.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String() + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// State is one snapshot of a session. Record is set only when Succeeded;
// Failure only when Failed.
type State struct {
	Kind    StateKind
	Record  *Record
	Failure *Failure
}

func (s State) Terminal() bool {
	return s.Kind.Terminal()
}

func (s State) String() string {
	switch s.Kind {
	case Succeeded:
		if s.Record != nil {
			return fmt.Sprintf("%s(record %d)", s.Kind, s.Record.ID)
		}
	case Failed:
		if s.Failure != nil {
			return fmt.Sprintf("%s(%s)", s.Kind, s.Failure.Message)
		}
	}
	return s.Kind.String()
}
