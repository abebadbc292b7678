package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/biosim/geocap/internal/camera"
	"github.com/biosim/geocap/internal/geo"
)

// Locator is the location side of a cycle. *geo.Provider implements it.
type Locator interface {
	BoundedFix(ctx context.Context, timeout time.Duration) (geo.Fix, bool)
	LastKnownFix(ctx context.Context) (geo.Fix, bool)
}

// DestinationFunc allocates the media path for a capture taken at the
// given time.
type DestinationFunc func(capturedAt time.Time) (string, error)

// Config wires a Session to its collaborators.
type Config struct {
	ParentID    int64
	Store       Inserter
	Sink        camera.Sink
	Locator     Locator
	Destination DestinationFunc

	// LocationTimeout bounds the wait for a fix. Zero skips the wait.
	LocationTimeout time.Duration
	// LastKnownFallback uses the last known fix when the wait yields none.
	LastKnownFallback bool

	Logger *slog.Logger
	Now    func() time.Time
}

// Session runs one capture cycle at a time for a single parent and
// publishes every state transition to its subscribers.
type Session struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state State
	subs  map[*stateQueue]struct{}
}

// NewSession validates cfg and returns an Idle session.
func NewSession(cfg Config) (*Session, error) {
	switch {
	case cfg.ParentID <= 0:
		return nil, errors.New("capture session requires a parent id")
	case cfg.Store == nil:
		return nil, errors.New("capture session requires a record store")
	case cfg.Sink == nil:
		return nil, errors.New("capture session requires a camera sink")
	case cfg.Destination == nil:
		return nil, errors.New("capture session requires a media destination")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "capture_session", "parent_id", cfg.ParentID),
		state:  State{Kind: Idle},
		subs:   make(map[*stateQueue]struct{}),
	}, nil
}

func (s *Session) ParentID() int64 {
	return s.cfg.ParentID
}

// Current returns the live state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that yields the current state followed by
// every later transition, in order and without loss. The cancel function
// closes the channel.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	q := newStateQueue(s.state)
	s.subs[q] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, q)
		s.mu.Unlock()
		q.stop()
	}
	return q.out, cancel
}

// StartOption customizes one cycle.
type StartOption func(*cycle)

// WithNote attaches free text to the record.
func WithNote(note string) StartOption {
	return func(c *cycle) { c.note = note }
}

type cycle struct {
	note string
}

// Start begins a cycle and returns without waiting for it. It fails with
// ErrNotIdle, leaving the state untouched, unless the session is Idle.
// The cycle is not cancelled with ctx; it always runs to a terminal state.
func (s *Session) Start(ctx context.Context, opts ...StartOption) error {
	var c cycle
	for _, opt := range opts {
		opt(&c)
	}

	s.mu.Lock()
	if s.state.Kind != Idle {
		current := s.state.Kind
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotIdle, current)
	}
	s.transitionLocked(State{Kind: Capturing})
	s.mu.Unlock()

	go s.run(context.WithoutCancel(ctx), c)
	return nil
}

// Reset returns a finished session to Idle. Resetting an Idle session is a
// no-op; resetting mid-cycle fails with ErrCycleInFlight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state.Kind == Idle:
		return nil
	case !s.state.Terminal():
		return fmt.Errorf("%w: %s", ErrCycleInFlight, s.state.Kind)
	}
	s.transitionLocked(State{Kind: Idle})
	return nil
}

// Wait blocks until the session reaches a terminal state or ctx is done.
func (s *Session) Wait(ctx context.Context) (State, error) {
	states, cancel := s.Subscribe()
	defer cancel()

	for {
		select {
		case st, ok := <-states:
			if !ok {
				return State{}, errors.New("capture session stream closed")
			}
			if st.Terminal() {
				return st, nil
			}
		case <-ctx.Done():
			return s.Current(), ctx.Err()
		}
	}
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionLocked(next)
}

func (s *Session) transitionLocked(next State) {
	s.logger.Debug("capture state", "from", s.state.Kind, "to", next.Kind)
	s.state = next
	for q := range s.subs {
		q.push(next)
	}
}

func (s *Session) fail(kind FailureKind, message string, err error) {
	if kind == PersistFailed {
		s.logger.Error(message, "error", err)
	} else {
		s.logger.Warn(message, "error", err)
	}
	s.transition(State{Kind: Failed, Failure: &Failure{Kind: kind, Message: message, Err: err}})
}

func (s *Session) run(ctx context.Context, c cycle) {
	capturedAt := s.cfg.Now()

	dest, err := s.cfg.Destination(capturedAt)
	if err != nil {
		s.fail(CaptureFailed, "could not prepare image storage", err)
		return
	}

	if err := s.cfg.Sink.Capture(ctx, dest); err != nil {
		s.fail(CaptureFailed, captureMessage(err), err)
		return
	}
	if info, err := os.Stat(dest); err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		switch {
		case err != nil:
		case !info.Mode().IsRegular():
			err = fmt.Errorf("%s is not a regular file", dest)
		default:
			err = errors.New("empty image file")
		}
		s.fail(CaptureFailed, "the camera did not save the image", err)
		return
	}

	s.transition(State{Kind: AwaitingLocation})
	location := s.locate(ctx)

	s.transition(State{Kind: Persisting})
	rec, err := s.cfg.Store.Insert(ctx, NewRecord{
		ParentID:   s.cfg.ParentID,
		MediaRef:   dest,
		CapturedAt: capturedAt,
		Location:   location,
		Note:       c.note,
	})
	if err != nil {
		s.logger.Warn("image kept on disk after persist failure", "media_ref", dest)
		s.fail(PersistFailed, "could not save the capture record", err)
		return
	}

	s.logger.Info("capture stored", "record_id", rec.ID, "located", rec.HasLocation())
	s.transition(State{Kind: Succeeded, Record: &rec})
}

func (s *Session) locate(ctx context.Context) *Location {
	if s.cfg.Locator == nil {
		return nil
	}
	fix, ok := s.cfg.Locator.BoundedFix(ctx, s.cfg.LocationTimeout)
	if !ok && s.cfg.LastKnownFallback {
		fix, ok = s.cfg.Locator.LastKnownFix(ctx)
		if ok {
			s.logger.Debug("using last known fix", "fix", fix.String())
		}
	}
	if !ok {
		return nil
	}
	return &Location{Latitude: fix.Latitude, Longitude: fix.Longitude}
}

func captureMessage(err error) string {
	switch {
	case errors.Is(err, camera.ErrBusy):
		return "the camera is busy, try again"
	case errors.Is(err, camera.ErrPermissionDenied):
		return "camera permission denied"
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return "the camera is not available"
	case errors.Is(err, camera.ErrWriteFailed):
		return "the image could not be written"
	default:
		return "image capture failed"
	}
}
