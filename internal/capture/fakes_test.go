package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/biosim/geocap/internal/geo"
)

// fakeSink writes a small file to dest unless err is set. When release is
// non-nil the capture blocks until it is closed.
type fakeSink struct {
	err     error
	release chan struct{}
	noWrite bool
	makeDir bool
	calls   atomic.Int32
}

func (f *fakeSink) Capture(_ context.Context, dest string) error {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return f.err
	}
	if f.noWrite {
		return nil
	}
	if f.makeDir {
		return os.Mkdir(dest, 0o750)
	}
	return os.WriteFile(dest, []byte("jpeg"), 0o600)
}

// fakeInserter records successful inserts.
type fakeInserter struct {
	mu      sync.Mutex
	err     error
	records []Record
}

func (f *fakeInserter) Insert(_ context.Context, rec NewRecord) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Record{}, f.err
	}
	stored := Record{
		ID:         int64(len(f.records) + 1),
		ParentID:   rec.ParentID,
		MediaRef:   rec.MediaRef,
		CapturedAt: rec.CapturedAt,
		Location:   rec.Location,
		Note:       rec.Note,
	}
	f.records = append(f.records, stored)
	return stored, nil
}

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// lastKnownOnly never delivers a live fix but remembers one.
type lastKnownOnly struct {
	fix geo.Fix
}

func (s lastKnownOnly) Subscribe(context.Context) (<-chan geo.Reading, func(), error) {
	return make(chan geo.Reading), func() {}, nil
}

func (s lastKnownOnly) LastKnown(context.Context) (geo.Fix, error) {
	return s.fix, nil
}

func tempDestination(t *testing.T) DestinationFunc {
	t.Helper()
	dir := t.TempDir()
	var n atomic.Int32
	return func(time.Time) (string, error) {
		return filepath.Join(dir, fmt.Sprintf("PLAGA_1_%03d.jpg", n.Add(1))), nil
	}
}

// fakeLister hands out subscriptions and logs every open and close.
type fakeLister struct {
	mu       sync.Mutex
	initial  map[int64][]Record
	events   []string
	open     int
	maxOpen  int
	opened   map[int64][]*fakeSubscription
	failOpen error
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		initial: make(map[int64][]Record),
		opened:  make(map[int64][]*fakeSubscription),
	}
}

func (f *fakeLister) ListByParent(_ context.Context, parentID int64) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, fmt.Sprintf("open-%d", parentID))
	f.open++
	if f.open > f.maxOpen {
		f.maxOpen = f.open
	}

	sub := &fakeSubscription{owner: f, parentID: parentID, ch: make(chan ListUpdate, 16)}
	if f.failOpen != nil {
		sub.ch <- ListUpdate{Err: f.failOpen}
	} else {
		sub.ch <- ListUpdate{Records: f.initial[parentID]}
	}
	f.opened[parentID] = append(f.opened[parentID], sub)
	return sub
}

func (f *fakeLister) snapshot() (events []string, open, maxOpen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...), f.open, f.maxOpen
}

func (f *fakeLister) latest(parentID int64) *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.opened[parentID]
	if len(subs) == 0 {
		return nil
	}
	return subs[len(subs)-1]
}

type fakeSubscription struct {
	owner    *fakeLister
	parentID int64

	mu     sync.Mutex
	ch     chan ListUpdate
	closed bool
}

func (s *fakeSubscription) Updates() <-chan ListUpdate { return s.ch }

func (s *fakeSubscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.owner.mu.Lock()
	s.owner.events = append(s.owner.events, fmt.Sprintf("close-%d", s.parentID))
	s.owner.open--
	s.owner.mu.Unlock()
}

// emit delivers u unless the subscription is closed.
func (s *fakeSubscription) emit(u ListUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.ch <- u
	return true
}

var errDiskIO = errors.New("disk I/O error")
