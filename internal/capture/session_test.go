package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosim/geocap/internal/camera"
	"github.com/biosim/geocap/internal/geo"
)

// Timings are scaled down from seconds to tens of milliseconds.
const (
	fixDelay        = 40 * time.Millisecond
	locationTimeout = 100 * time.Millisecond
	epsilon         = 250 * time.Millisecond
)

type sessionFixture struct {
	session *Session
	sink    *fakeSink
	store   *fakeInserter
}

func newFixture(t *testing.T, source geo.Source, mutate ...func(*Config)) sessionFixture {
	t.Helper()
	sink := &fakeSink{}
	store := &fakeInserter{}
	cfg := Config{
		ParentID:        1,
		Store:           store,
		Sink:            sink,
		Locator:         geo.NewProvider(source, nil),
		Destination:     tempDestination(t),
		LocationTimeout: locationTimeout,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewSession(cfg)
	require.NoError(t, err)
	return sessionFixture{session: s, sink: sink, store: store}
}

func waitTerminal(t *testing.T, s *Session) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	st, err := s.Wait(ctx)
	require.NoError(t, err)
	return st
}

// collect reads states until a terminal one arrives.
func collect(t *testing.T, states <-chan State) []StateKind {
	t.Helper()
	var kinds []StateKind
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st, ok := <-states:
			require.True(t, ok, "stream closed early")
			kinds = append(kinds, st.Kind)
			if st.Terminal() {
				return kinds
			}
		case <-deadline:
			t.Fatalf("no terminal state, saw %v", kinds)
		}
	}
}

func TestSessionSucceedsWithFix(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 10.0, Longitude: 20.0}, fixDelay))

	states, cancel := fx.session.Subscribe()
	defer cancel()

	require.NoError(t, fx.session.Start(t.Context(), WithNote("underside of leaves")))

	assert.Equal(t,
		[]StateKind{Idle, Capturing, AwaitingLocation, Persisting, Succeeded},
		collect(t, states))

	final := fx.session.Current()
	require.Equal(t, Succeeded, final.Kind)
	require.NotNil(t, final.Record)
	require.NotNil(t, final.Record.Location)
	assert.Equal(t, Location{Latitude: 10.0, Longitude: 20.0}, *final.Record.Location)
	assert.Equal(t, "underside of leaves", final.Record.Note)
	assert.Equal(t, int64(1), final.Record.ParentID)
	assert.FileExists(t, final.Record.MediaRef)
	assert.Equal(t, 1, fx.store.count())
}

func TestSessionTimeoutPersistsWithoutLocation(t *testing.T) {
	fx := newFixture(t, geo.NoSignal())

	began := time.Now()
	require.NoError(t, fx.session.Start(t.Context()))
	final := waitTerminal(t, fx.session)
	elapsed := time.Since(began)

	require.Equal(t, Succeeded, final.Kind)
	assert.Nil(t, final.Record.Location)
	assert.GreaterOrEqual(t, elapsed, locationTimeout)
	assert.Less(t, elapsed, locationTimeout+epsilon)
	assert.Equal(t, 1, fx.store.count())
}

func TestSessionCaptureBusyFails(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 1, Longitude: 2}, 0))
	fx.sink.err = &camera.Error{Code: camera.CodeBusy}

	require.NoError(t, fx.session.Start(t.Context()))
	final := waitTerminal(t, fx.session)

	require.Equal(t, Failed, final.Kind)
	require.NotNil(t, final.Failure)
	assert.Equal(t, CaptureFailed, final.Failure.Kind)
	assert.NotEmpty(t, final.Failure.Message)
	assert.ErrorIs(t, final.Failure, camera.ErrBusy)
	assert.Nil(t, final.Record)
	assert.Equal(t, 0, fx.store.count())

	require.NoError(t, fx.session.Reset())
	assert.Equal(t, Idle, fx.session.Current().Kind)
}

func TestSessionMissingImageFails(t *testing.T) {
	fx := newFixture(t, geo.NoSignal())
	fx.sink.noWrite = true

	require.NoError(t, fx.session.Start(t.Context()))
	final := waitTerminal(t, fx.session)

	require.Equal(t, Failed, final.Kind)
	assert.Equal(t, CaptureFailed, final.Failure.Kind)
	assert.Equal(t, 0, fx.store.count())
}

func TestSessionDirectoryAtDestinationFails(t *testing.T) {
	fx := newFixture(t, geo.NoSignal())
	fx.sink.makeDir = true

	require.NoError(t, fx.session.Start(t.Context()))
	final := waitTerminal(t, fx.session)

	require.Equal(t, Failed, final.Kind)
	assert.Equal(t, CaptureFailed, final.Failure.Kind)
	assert.Equal(t, 0, fx.store.count())
}

func TestSessionDestinationErrorFails(t *testing.T) {
	fx := newFixture(t, geo.NoSignal(), func(c *Config) {
		c.Destination = func(time.Time) (string, error) { return "", errors.New("read-only file system") }
	})

	require.NoError(t, fx.session.Start(t.Context()))
	final := waitTerminal(t, fx.session)

	require.Equal(t, Failed, final.Kind)
	assert.Equal(t, CaptureFailed, final.Failure.Kind)
	assert.Equal(t, int32(0), fx.sink.calls.Load())
}

func TestSessionPersistFailureKeepsMedia(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 1, Longitude: 2}, 0))
	fx.store.err = errDiskIO

	var dest string
	inner := fx.session.cfg.Destination
	fx.session.cfg.Destination = func(at time.Time) (string, error) {
		p, err := inner(at)
		dest = p
		return p, err
	}

	states, cancel := fx.session.Subscribe()
	defer cancel()
	require.NoError(t, fx.session.Start(t.Context()))

	assert.Equal(t,
		[]StateKind{Idle, Capturing, AwaitingLocation, Persisting, Failed},
		collect(t, states))

	final := fx.session.Current()
	assert.Equal(t, PersistFailed, final.Failure.Kind)
	assert.ErrorIs(t, final.Failure, errDiskIO)
	assert.FileExists(t, dest)
	assert.Equal(t, 0, fx.store.count())
}

func TestSessionStartWhileBusyIsRejected(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 1, Longitude: 2}, 0))
	fx.sink.release = make(chan struct{})

	require.NoError(t, fx.session.Start(t.Context()))
	require.Equal(t, Capturing, fx.session.Current().Kind)

	err := fx.session.Start(t.Context())
	assert.ErrorIs(t, err, ErrNotIdle)
	assert.Equal(t, Capturing, fx.session.Current().Kind)

	assert.ErrorIs(t, fx.session.Reset(), ErrCycleInFlight)
	assert.Equal(t, Capturing, fx.session.Current().Kind)

	close(fx.sink.release)
	final := waitTerminal(t, fx.session)
	require.Equal(t, Succeeded, final.Kind)

	err = fx.session.Start(t.Context())
	assert.ErrorIs(t, err, ErrNotIdle)
	assert.Equal(t, Succeeded, fx.session.Current().Kind)

	assert.Equal(t, int32(1), fx.sink.calls.Load())
	assert.Equal(t, 1, fx.store.count())
}

func TestSessionResetAllowsAnotherCycle(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 1, Longitude: 2}, 0))

	require.NoError(t, fx.session.Reset(), "reset on idle is a no-op")

	for range 3 {
		require.NoError(t, fx.session.Start(t.Context()))
		require.Equal(t, Succeeded, waitTerminal(t, fx.session).Kind)
		require.NoError(t, fx.session.Reset())
	}
	assert.Equal(t, 3, fx.store.count())
}

func TestSessionIgnoresCallerCancellation(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 1, Longitude: 2}, fixDelay))

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, fx.session.Start(ctx))
	cancel()

	final := waitTerminal(t, fx.session)
	require.Equal(t, Succeeded, final.Kind)
	assert.NotNil(t, final.Record.Location)
}

func TestSessionLastKnownFallback(t *testing.T) {
	source := lastKnownOnly{fix: geo.Fix{Latitude: -33.45, Longitude: -70.66}}

	without := newFixture(t, source)
	require.NoError(t, without.session.Start(t.Context()))
	assert.Nil(t, waitTerminal(t, without.session).Record.Location)

	with := newFixture(t, source, func(c *Config) { c.LastKnownFallback = true })
	require.NoError(t, with.session.Start(t.Context()))
	final := waitTerminal(t, with.session)
	require.NotNil(t, final.Record.Location)
	assert.Equal(t, -33.45, final.Record.Location.Latitude)
}

func TestSessionWithoutLocator(t *testing.T) {
	fx := newFixture(t, nil, func(c *Config) { c.Locator = nil })

	require.NoError(t, fx.session.Start(t.Context()))
	final := waitTerminal(t, fx.session)
	require.Equal(t, Succeeded, final.Kind)
	assert.Nil(t, final.Record.Location)
}

func TestSessionSlowSubscriberSeesEveryState(t *testing.T) {
	fx := newFixture(t, geo.NewStaticSource(geo.Fix{Latitude: 1, Longitude: 2}, 0))

	states, cancel := fx.session.Subscribe()
	defer cancel()

	require.NoError(t, fx.session.Start(t.Context()))
	waitTerminal(t, fx.session)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t,
		[]StateKind{Idle, Capturing, AwaitingLocation, Persisting, Succeeded},
		collect(t, states))
}

func TestSessionSubscribeCancelClosesStream(t *testing.T) {
	fx := newFixture(t, geo.NoSignal())

	states, cancel := fx.session.Subscribe()
	first := <-states
	assert.Equal(t, Idle, first.Kind)

	cancel()
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-states:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestNewSessionValidation(t *testing.T) {
	valid := Config{
		ParentID:    1,
		Store:       &fakeInserter{},
		Sink:        &fakeSink{},
		Destination: tempDestination(t),
	}

	_, err := NewSession(valid)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Config){
		"parent":      func(c *Config) { c.ParentID = 0 },
		"store":       func(c *Config) { c.Store = nil },
		"sink":        func(c *Config) { c.Sink = nil },
		"destination": func(c *Config) { c.Destination = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := NewSession(cfg)
			assert.Error(t, err)
		})
	}
}

func TestStateKindNames(t *testing.T) {
	for _, k := range []StateKind{Idle, Capturing, AwaitingLocation, Persisting, Succeeded, Failed} {
		parsed, err := ParseStateKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseStateKind("exploded")
	assert.ErrorIs(t, err, ErrCorruptValue)
	assert.Equal(t, "StateKind(42)", StateKind(42).String())
}

func TestNewRecordValidation(t *testing.T) {
	ok := NewRecord{ParentID: 1, MediaRef: "/tmp/a.jpg", CapturedAt: time.Now()}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.MediaRef = ""
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Location = &Location{Latitude: 91, Longitude: 0}
	assert.ErrorIs(t, bad.Validate(), ErrCorruptValue)
}
