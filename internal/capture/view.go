package capture

import "sync"

// Snapshot is the record list of one parent as the registry last saw it.
// Loading is set between a parent switch and the store's first emission.
// Err carries a *StoreReadError; Records then holds the last good list.
type Snapshot struct {
	ParentID int64
	Records  []Record
	Err      error
	Loading  bool
}

// View is the single live record list a Registry exposes. Subscribers see
// the latest snapshot; intermediate ones may be skipped.
type View struct {
	mu         sync.Mutex
	current    Snapshot
	generation uint64
	subs       map[chan Snapshot]struct{}
	closed     bool
}

func newView() *View {
	return &View{subs: make(map[chan Snapshot]struct{})}
}

// Snapshot returns the current value.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Subscribe returns a channel holding the current snapshot and then each
// newer one, latest wins. The channel is closed by cancel or when the
// registry closes.
func (v *View) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	v.subs[ch] = struct{}{}
	ch <- v.current
	v.mu.Unlock()

	cancel := func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, ok := v.subs[ch]; ok {
			delete(v.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// begin starts a new generation for parentID and publishes the loading
// snapshot. Emissions tagged with older generations are dropped from now on.
func (v *View) begin(parentID int64) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.broadcastLocked(Snapshot{ParentID: parentID, Loading: true})
	return v.generation
}

// apply publishes a store emission if gen is still current.
func (v *View) apply(gen uint64, parentID int64, u ListUpdate) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation || v.closed {
		return false
	}
	next := Snapshot{ParentID: parentID, Records: u.Records}
	if u.Err != nil {
		next.Records = v.current.Records
		next.Err = asStoreReadError(parentID, u.Err)
	}
	v.broadcastLocked(next)
	return true
}

func (v *View) broadcastLocked(s Snapshot) {
	v.current = s
	for ch := range v.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (v *View) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.generation++
	for ch := range v.subs {
		delete(v.subs, ch)
		close(ch)
	}
}
