package capture

import (
	"context"
	"log/slog"
	"sync"
)

// SessionFactory builds the capture session for a parent.
type SessionFactory func(parentID int64) (*Session, error)

// Registry keeps exactly one live record subscription, for the parent
// currently observed, and the capture session bound to that parent.
type Registry struct {
	store      Lister
	newSession SessionFactory
	logger     *slog.Logger
	view       *View

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	active    bool
	parentID  int64
	sub       Subscription
	forwarded chan struct{}
	session   *Session
	closed    bool
}

// NewRegistry creates a registry over store. newSession may be nil when no
// capture sessions are needed. Pass nil logger for default.
func NewRegistry(store Lister, newSession SessionFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:      store,
		newSession: newSession,
		logger:     logger.With("component", "session_registry"),
		view:       newView(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Observe makes parentID the observed parent and returns the live view.
// Observing the active parent again is a no-op. Switching parents closes
// the previous store subscription, and waits for its last emission to be
// handled, before the new one is opened.
func (r *Registry) Observe(parentID int64) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if r.active && r.parentID == parentID {
		return r.view, nil
	}

	var session *Session
	if r.newSession != nil {
		s, err := r.newSession(parentID)
		if err != nil {
			return nil, err
		}
		session = s
	}

	if r.active {
		r.logger.Debug("switching parent", "from", r.parentID, "to", parentID)
	}
	r.releaseLocked()

	gen := r.view.begin(parentID)
	sub := r.store.ListByParent(r.ctx, parentID)
	done := make(chan struct{})
	go r.forward(sub, gen, parentID, done)

	r.active = true
	r.parentID = parentID
	r.sub = sub
	r.forwarded = done
	r.session = session
	return r.view, nil
}

// View returns the live view without changing the observed parent.
func (r *Registry) View() *View {
	return r.view
}

// ParentID returns the observed parent, if any.
func (r *Registry) ParentID() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parentID, r.active
}

// Session returns the capture session of the observed parent, or nil.
func (r *Registry) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Close releases the active subscription and closes the view's streams.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.releaseLocked()
	r.cancel()
	r.view.close()
}

func (r *Registry) releaseLocked() {
	if !r.active {
		return
	}
	r.sub.Close()
	<-r.forwarded
	r.logger.Debug("released subscription", "parent_id", r.parentID)

	r.active = false
	r.sub = nil
	r.forwarded = nil
	r.session = nil
}

func (r *Registry) forward(sub Subscription, gen uint64, parentID int64, done chan struct{}) {
	defer close(done)
	for u := range sub.Updates() {
		if u.Err != nil {
			r.logger.Warn("record list read failed", "parent_id", parentID, "error", u.Err)
		}
		if !r.view.apply(gen, parentID, u) {
			r.logger.Debug("dropped stale emission", "parent_id", parentID)
		}
	}
}
