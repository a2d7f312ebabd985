package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"feedme-console/internal/bus"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"

	"github.com/google/uuid"
)

// Expiry delays per severity. Info and success toasts fade on their own,
// warnings and errors persist until the user dismisses them.
const (
	infoExpiry    = 3 * time.Second
	successExpiry = 6 * time.Second
)

// Queue is the ordered list of user-facing alerts. Producers publish
// NotificationRaisedEvent on the bus; the queue is the only component that
// mutates the list.
type Queue struct {
	events *bus.Bus
	logger logger.ILogger

	mu            sync.Mutex
	notifications map[uuid.UUID]*model.Notification
	expiryTimers  map[uuid.UUID]*time.Timer
	closed        bool
}

func NewQueue(events *bus.Bus, log logger.ILogger) *Queue {
	return &Queue{
		events:        events,
		logger:        log,
		notifications: make(map[uuid.UUID]*model.Notification),
		expiryTimers:  make(map[uuid.UUID]*time.Timer),
	}
}

// Start subscribes the queue to notification events. Runs until ctx ends.
func (q *Queue) Start(ctx context.Context) error {
	return q.events.Subscribe(ctx, bus.TopicNotificationRaised, func(payload []byte) {
		ev, err := bus.Decode[bus.NotificationRaisedEvent](payload)
		if err != nil {
			q.logger.Warn("NotificationQueue", "Dropping malformed notification event", map[string]interface{}{"error": err.Error()})
			return
		}
		q.Add(ev.Level, ev.Title, ev.Message, ev.Actions...)
	})
}

// Add appends an alert. Adding is skipped when an unread notification with
// the same title already exists, so repeated conditions (reconnect loops,
// flapping heartbeats) do not pile up duplicates.
func (q *Queue) Add(level model.NotificationLevel, title, message string, actions ...model.NotificationAction) *model.Notification {
	if !level.Valid() {
		level = model.NotificationLevelInfo
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}

	for _, existing := range q.notifications {
		if !existing.IsRead && existing.Title == title {
			return existing
		}
	}

	notif := &model.Notification{
		ID:        uuid.New(),
		Level:     level,
		Title:     title,
		Message:   message,
		Actions:   actions,
		CreatedAt: time.Now(),
	}
	q.notifications[notif.ID] = notif

	if delay, ok := expiryFor(level); ok {
		id := notif.ID
		q.expiryTimers[id] = time.AfterFunc(delay, func() {
			q.MarkRead(id)
		})
	}

	copied := *notif
	return &copied
}

func expiryFor(level model.NotificationLevel) (time.Duration, bool) {
	switch level {
	case model.NotificationLevelInfo:
		return infoExpiry, true
	case model.NotificationLevelSuccess:
		return successExpiry, true
	}
	return 0, false
}

// MarkRead flags one notification as read and drops its expiry timer.
func (q *Queue) MarkRead(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	notif, ok := q.notifications[id]
	if !ok {
		return false
	}
	notif.IsRead = true
	q.stopTimerLocked(id)
	return true
}

// MarkAllRead flags everything as read.
func (q *Queue) MarkAllRead() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, notif := range q.notifications {
		notif.IsRead = true
		q.stopTimerLocked(id)
	}
}

// Dismiss removes a notification entirely.
func (q *Queue) Dismiss(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.notifications[id]; !ok {
		return false
	}
	delete(q.notifications, id)
	q.stopTimerLocked(id)
	return true
}

// List returns notifications newest first. With unreadOnly set, read entries
// are filtered out.
func (q *Queue) List(unreadOnly bool) []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.Notification, 0, len(q.notifications))
	for _, notif := range q.notifications {
		if unreadOnly && notif.IsRead {
			continue
		}
		out = append(out, *notif)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UnreadCount returns the number of unread notifications.
func (q *Queue) UnreadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for _, notif := range q.notifications {
		if !notif.IsRead {
			count++
		}
	}
	return count
}

// Close cancels all outstanding expiry timers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for id := range q.expiryTimers {
		q.stopTimerLocked(id)
	}
}

func (q *Queue) stopTimerLocked(id uuid.UUID) {
	if timer, ok := q.expiryTimers[id]; ok {
		timer.Stop()
		delete(q.expiryTimers, id)
	}
}
