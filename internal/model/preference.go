package model

import "time"

// Preferences is the subset of client state persisted between sessions.
// Connection and cache state is deliberately excluded, it is rebuilt fresh.
type Preferences struct {
	ViewMode    string `json:"view_mode"`
	PanelLayout string `json:"panel_layout"`
	Theme       string `json:"theme"`
}

// DefaultPreferences returns the out-of-the-box client settings.
func DefaultPreferences() Preferences {
	return Preferences{
		ViewMode:    "grid",
		PanelLayout: "split",
		Theme:       "system",
	}
}

// SavedSearch is a named, reusable set of list query parameters.
type SavedSearch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Params    string    `json:"params"` // serialized query parameters
	CreatedAt time.Time `json:"created_at"`
}

// SearchHistoryEntry is one remembered search input.
type SearchHistoryEntry struct {
	ID         int64     `json:"id"`
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searched_at"`
}
