package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biosim/geocap/internal/camera"
	"github.com/biosim/geocap/internal/capture"
	"github.com/biosim/geocap/internal/media"
	"github.com/biosim/geocap/internal/parent"
	"github.com/biosim/geocap/internal/records"
)

var (
	// ErrNotFound is returned when a parent or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoCamera is returned by captures when no sink is configured.
	ErrNoCamera = errors.New("no camera configured (set camera.command or import a file)")
)

// CaptureOptions tunes the location side of a capture.
type CaptureOptions struct {
	LocationTimeout   time.Duration
	LastKnownFallback bool
}

type Capture struct {
	store   *records.Store
	media   *media.Store
	sink    camera.Sink
	locator capture.Locator
	opts    CaptureOptions
	logger  *slog.Logger
}

// NewCapture wires capture sessions to their collaborators. locator may be
// nil, in which case records are stored without location. Pass nil logger
// for default.
func NewCapture(store *records.Store, mediaStore *media.Store, sink camera.Sink, locator capture.Locator, opts CaptureOptions, logger *slog.Logger) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{
		store:   store,
		media:   mediaStore,
		sink:    sink,
		locator: locator,
		opts:    opts,
		logger:  logger,
	}
}

// WithSink returns a copy of u that captures through sink.
func (u *Capture) WithSink(sink camera.Sink) *Capture {
	clone := *u
	clone.sink = sink
	return &clone
}

// HasCamera reports whether sessions can be built.
func (u *Capture) HasCamera() bool {
	return u.sink != nil
}

// NewSession builds an Idle session for an existing parent.
func (u *Capture) NewSession(ctx context.Context, parentID int64) (*capture.Session, error) {
	if u.sink == nil {
		return nil, ErrNoCamera
	}
	p, err := u.parent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return capture.NewSession(capture.Config{
		ParentID:          p.ID,
		Store:             u.store,
		Sink:              u.sink,
		Locator:           u.locator,
		Destination:       capture.DestinationFunc(u.media.Destination(*p)),
		LocationTimeout:   u.opts.LocationTimeout,
		LastKnownFallback: u.opts.LastKnownFallback,
		Logger:            u.logger,
	})
}

// SessionFactory adapts NewSession for a capture.Registry.
func (u *Capture) SessionFactory(ctx context.Context) capture.SessionFactory {
	return func(parentID int64) (*capture.Session, error) {
		return u.NewSession(ctx, parentID)
	}
}

// Take runs one full cycle for parentID and waits for its outcome. A
// failed cycle is returned as a *capture.Failure.
func (u *Capture) Take(ctx context.Context, parentID int64, note string) (*capture.Record, error) {
	session, err := u.NewSession(ctx, parentID)
	if err != nil {
		return nil, err
	}

	if err := session.Start(ctx, capture.WithNote(note)); err != nil {
		return nil, err
	}
	final, err := session.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if final.Kind == capture.Failed {
		return nil, final.Failure
	}
	return final.Record, nil
}

// List returns the parent's records, newest first.
func (u *Capture) List(ctx context.Context, parentID int64) ([]capture.Record, error) {
	if _, err := u.parent(ctx, parentID); err != nil {
		return nil, err
	}
	return u.store.List(ctx, parentID)
}

type InfoResult struct {
	Record      capture.Record `json:"record"`
	Parent      parent.Parent  `json:"parent"`
	MediaExists bool           `json:"media_exists"`
	MediaHash   string         `json:"media_hash,omitempty"`
}

// Info describes one record together with the state of its image file.
func (u *Capture) Info(ctx context.Context, id int64) (*InfoResult, error) {
	rec, err := u.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("capture record %d: %w", id, ErrNotFound)
	}

	p, err := u.parent(ctx, rec.ParentID)
	if err != nil {
		return nil, err
	}

	result := &InfoResult{Record: *rec, Parent: *p, MediaExists: media.Exists(rec.MediaRef)}
	if result.MediaExists {
		hash, err := media.Hash(rec.MediaRef)
		if err != nil {
			return nil, err
		}
		result.MediaHash = hash
	}
	return result, nil
}

// Delete removes a record and then its image file.
func (u *Capture) Delete(ctx context.Context, id int64) (bool, error) {
	rec, err := u.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	deleted, err := u.store.DeleteByID(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if err := media.Remove(rec.MediaRef); err != nil {
		u.logger.Warn("could not remove image file", "record_id", id, "media_ref", rec.MediaRef, "error", err)
	}
	return true, nil
}

func (u *Capture) parent(ctx context.Context, id int64) (*parent.Parent, error) {
	p, err := u.store.GetParent(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("parent %d: %w", id, ErrNotFound)
	}
	return p, nil
}
