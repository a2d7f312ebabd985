package notify

import (
	"context"
	"testing"
	"time"

	"feedme-console/internal/bus"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *bus.Bus) {
	t.Helper()
	events := bus.New(logger.Noop{})
	t.Cleanup(func() { _ = events.Close() })
	q := NewQueue(events, logger.Noop{})
	t.Cleanup(q.Close)
	return q, events
}

func TestQueueAddAndList(t *testing.T) {
	q, _ := newTestQueue(t)

	first := q.Add(model.NotificationLevelError, "Delete failed", "backend said no")
	require.NotNil(t, first)
	second := q.Add(model.NotificationLevelWarning, "Connection unstable", "missed a heartbeat")
	require.NotNil(t, second)

	all := q.List(false)
	require.Len(t, all, 2)
	assert.Equal(t, "Connection unstable", all[0].Title, "newest first")
	assert.Equal(t, 2, q.UnreadCount())
}

func TestQueueDeduplicatesUnreadByTitle(t *testing.T) {
	q, _ := newTestQueue(t)

	first := q.Add(model.NotificationLevelError, "Connection Lost", "attempt 1")
	dup := q.Add(model.NotificationLevelError, "Connection Lost", "attempt 2")

	require.NotNil(t, dup)
	assert.Equal(t, first.ID, dup.ID, "duplicate returns the existing notification")
	assert.Equal(t, 1, q.UnreadCount())

	// Once read, the same title may be raised again.
	assert.True(t, q.MarkRead(first.ID))
	fresh := q.Add(model.NotificationLevelError, "Connection Lost", "attempt 3")
	require.NotNil(t, fresh)
	assert.NotEqual(t, first.ID, fresh.ID)
	assert.Equal(t, 1, q.UnreadCount())
}

func TestQueueUnknownLevelFallsBackToInfo(t *testing.T) {
	q, _ := newTestQueue(t)

	notif := q.Add(model.NotificationLevel("yelling"), "Odd", "strange level")
	require.NotNil(t, notif)
	assert.Equal(t, model.NotificationLevelInfo, notif.Level)
}

func TestQueueExpiryTimersPerSeverity(t *testing.T) {
	q, _ := newTestQueue(t)

	info := q.Add(model.NotificationLevelInfo, "Saved", "")
	success := q.Add(model.NotificationLevelSuccess, "Connected", "")
	warning := q.Add(model.NotificationLevelWarning, "Unstable", "")
	errNotif := q.Add(model.NotificationLevelError, "Lost", "")

	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Contains(t, q.expiryTimers, info.ID, "info toasts expire on their own")
	assert.Contains(t, q.expiryTimers, success.ID, "success toasts expire on their own")
	assert.NotContains(t, q.expiryTimers, warning.ID, "warnings persist until dismissed")
	assert.NotContains(t, q.expiryTimers, errNotif.ID, "errors persist until dismissed")
}

func TestQueueMarkAllReadAndDismiss(t *testing.T) {
	q, _ := newTestQueue(t)

	a := q.Add(model.NotificationLevelError, "One", "")
	q.Add(model.NotificationLevelWarning, "Two", "")

	q.MarkAllRead()
	assert.Equal(t, 0, q.UnreadCount())
	assert.Len(t, q.List(false), 2)
	assert.Empty(t, q.List(true))

	assert.True(t, q.Dismiss(a.ID))
	assert.False(t, q.Dismiss(a.ID))
	assert.Len(t, q.List(false), 1)

	assert.False(t, q.MarkRead(uuid.New()), "unknown id is reported")
}

func TestQueueConsumesBusEvents(t *testing.T) {
	q, events := newTestQueue(t)
	require.NoError(t, q.Start(context.Background()))

	require.NoError(t, events.Publish(bus.NotificationRaisedEvent{
		Level:   model.NotificationLevelError,
		Title:   "Move failed",
		Message: "folder is gone",
		Actions: []model.NotificationAction{{Label: "Retry", Command: "realtime.reconnect"}},
	}))

	assert.Eventually(t, func() bool {
		return q.UnreadCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	all := q.List(true)
	require.Len(t, all, 1)
	assert.Equal(t, "Move failed", all[0].Title)
	require.Len(t, all[0].Actions, 1)
	assert.Equal(t, "Retry", all[0].Actions[0].Label)
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q, _ := newTestQueue(t)
	q.Close()
	assert.Nil(t, q.Add(model.NotificationLevelInfo, "Late", ""))
}
