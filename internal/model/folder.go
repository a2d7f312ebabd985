package model

import "time"

// Folder groups conversations for review. Counts are aggregates maintained by
// the backend and refreshed through folder_counts_update pushes.
type Folder struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Color             string    `json:"color,omitempty"`
	Description       string    `json:"description,omitempty"`
	ConversationCount int       `json:"conversation_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
