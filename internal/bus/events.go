package bus

import (
	"feedme-console/internal/model"
)

// Topic names, one per event kind. The set is closed: handlers switch on the
// concrete event type and anything new has to be added here first.
const (
	TopicConnectionStateChanged = "realtime.connection_state_changed"
	TopicProcessingUpdated      = "realtime.processing_updated"
	TopicFolderCountsUpdated    = "realtime.folder_counts_updated"
	TopicNotificationRaised     = "notify.notification_raised"
)

// Event is the contract for everything published on the bus.
type Event interface {
	// EventTopic returns the topic this event is published on.
	EventTopic() string
}

// ConnectionStateChangedEvent is emitted on every connection status
// transition.
type ConnectionStateChangedEvent struct {
	Status   model.ConnectionStatus `json:"status"`
	Attempts int                    `json:"attempts"`
	Reason   string                 `json:"reason,omitempty"`
}

func (ConnectionStateChangedEvent) EventTopic() string { return TopicConnectionStateChanged }

// ProcessingUpdatedEvent carries a server-pushed extraction progress report.
type ProcessingUpdatedEvent struct {
	Update model.ProcessingUpdate `json:"update"`
}

func (ProcessingUpdatedEvent) EventTopic() string { return TopicProcessingUpdated }

// FolderCountsUpdatedEvent refreshes the aggregate conversation counts.
type FolderCountsUpdatedEvent struct {
	Counts map[int64]int `json:"counts"`
}

func (FolderCountsUpdatedEvent) EventTopic() string { return TopicFolderCountsUpdated }

// NotificationRaisedEvent asks the notification queue to surface an alert.
// Producers never touch the queue directly.
type NotificationRaisedEvent struct {
	Level   model.NotificationLevel    `json:"level"`
	Title   string                     `json:"title"`
	Message string                     `json:"message"`
	Actions []model.NotificationAction `json:"actions,omitempty"`
}

func (NotificationRaisedEvent) EventTopic() string { return TopicNotificationRaised }
