package records

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// changeBroadcaster fans out "records of this parent changed" signals to
// live list subscriptions. A signal only asks for a reload, so a pending
// signal absorbs later ones.
type changeBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[int64]map[string]chan struct{} // parentID -> subID -> ch
	logger      *slog.Logger
}

func newChangeBroadcaster(logger *slog.Logger) *changeBroadcaster {
	return &changeBroadcaster{
		subscribers: make(map[int64]map[string]chan struct{}),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers for change signals of parentID.
func (b *changeBroadcaster) Subscribe(parentID int64) (<-chan struct{}, string) {
	subID := uuid.New().String()
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if _, ok := b.subscribers[parentID]; !ok {
		b.subscribers[parentID] = make(map[string]chan struct{})
	}
	b.subscribers[parentID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "parent_id", parentID, "sub_id", subID)
	return ch, subID
}

// Publish signals every subscriber of parentID without blocking.
func (b *changeBroadcaster) Publish(parentID int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subID, ch := range b.subscribers[parentID] {
		select {
		case ch <- struct{}{}:
		default:
			b.logger.Debug("reload already pending", "parent_id", parentID, "sub_id", subID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *changeBroadcaster) Unsubscribe(parentID int64, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[parentID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, parentID)
	}

	b.logger.Debug("subscriber removed", "parent_id", parentID, "sub_id", subID)
}

// Count reports the live subscriptions of parentID.
func (b *changeBroadcaster) Count(parentID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[parentID])
}

// Close closes every subscriber channel.
func (b *changeBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for parentID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, parentID)
	}
	b.logger.Debug("broadcaster closed")
}
