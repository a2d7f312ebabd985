package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLevel is the severity of a user-facing alert.
type NotificationLevel string

const (
	NotificationLevelInfo    NotificationLevel = "info"
	NotificationLevelSuccess NotificationLevel = "success"
	NotificationLevelWarning NotificationLevel = "warning"
	NotificationLevelError   NotificationLevel = "error"
)

// Valid reports whether the level is one of the known severities.
func (l NotificationLevel) Valid() bool {
	switch l {
	case NotificationLevelInfo, NotificationLevelSuccess, NotificationLevelWarning, NotificationLevelError:
		return true
	}
	return false
}

// NotificationAction is an operation the UI can offer alongside an alert,
// e.g. a "Retry" button on the connection-lost banner.
type NotificationAction struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Notification is a user-facing alert kept in the in-memory queue.
type Notification struct {
	ID        uuid.UUID            `json:"id"`
	Level     NotificationLevel    `json:"level"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	IsRead    bool                 `json:"is_read"`
	Actions   []NotificationAction `json:"actions,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
