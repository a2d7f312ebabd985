package realtime

import "encoding/json"

// MessageType discriminates inbound and outbound realtime payloads.
type MessageType string

const (
	MessageTypePing               MessageType = "ping"
	MessageTypePong               MessageType = "pong"
	MessageTypeProcessingUpdate   MessageType = "processing_update"
	MessageTypeFolderCountsUpdate MessageType = "folder_counts_update"
	MessageTypeNotification       MessageType = "notification"
)

// envelope is the minimal decode used to pick a handler. Type-specific fields
// are decoded in a second pass so one malformed field never poisons routing.
type envelope struct {
	Type MessageType `json:"type"`
}

type pingMessage struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
}

// pongMessage keeps the echoed timestamp raw: servers have been observed
// sending it as a number, a numeric string, or an ISO timestamp.
type pongMessage struct {
	Type      MessageType     `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type processingUpdateMessage struct {
	Type              MessageType `json:"type"`
	ConversationID    int64       `json:"conversation_id"`
	Status            string      `json:"status"`
	Progress          float64     `json:"progress"`
	Message           string      `json:"message,omitempty"`
	ExamplesExtracted *int        `json:"examples_extracted,omitempty"`
}

type folderCountsMessage struct {
	Type   MessageType    `json:"type"`
	Counts map[string]int `json:"folder_counts"`
}

type notificationMessage struct {
	Type    MessageType `json:"type"`
	Level   string      `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}
