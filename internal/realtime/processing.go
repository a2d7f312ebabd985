package realtime

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"feedme-console/internal/model"
)

// Tracker holds the per-conversation processing updates pushed by the
// backend. Terminal updates (completed/failed) are kept visible for a
// retention window and then removed.
type Tracker struct {
	retention time.Duration
	runner    *TaskRunner

	mu      sync.Mutex
	updates map[int64]model.ProcessingUpdate
}

func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = 5 * time.Second
	}
	return &Tracker{
		retention: retention,
		runner:    NewTaskRunner(),
		updates:   make(map[int64]model.ProcessingUpdate),
	}
}

// Apply upserts an update. A terminal status schedules removal; a fresh
// non-terminal update for the same conversation cancels a pending removal
// (the backend reprocessed it).
func (t *Tracker) Apply(update model.ProcessingUpdate) {
	update.ReceivedAt = time.Now()

	t.mu.Lock()
	t.updates[update.ConversationID] = update
	t.mu.Unlock()

	task := removalTask(update.ConversationID)
	if update.Status.Terminal() {
		id := update.ConversationID
		t.runner.Schedule(task, t.retention, func() {
			t.mu.Lock()
			delete(t.updates, id)
			t.mu.Unlock()
		})
	} else {
		t.runner.Cancel(task)
	}
}

// Get returns the current update for a conversation.
func (t *Tracker) Get(conversationID int64) (model.ProcessingUpdate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	update, ok := t.updates[conversationID]
	return update, ok
}

// List returns all live updates ordered by conversation id.
func (t *Tracker) List() []model.ProcessingUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ProcessingUpdate, 0, len(t.updates))
	for _, update := range t.updates {
		out = append(out, update)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConversationID < out[j].ConversationID
	})
	return out
}

// Close cancels all pending removals.
func (t *Tracker) Close() {
	t.runner.StopAll()
}

func removalTask(conversationID int64) string {
	return fmt.Sprintf("processing.remove.%d", conversationID)
}
