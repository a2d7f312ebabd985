package model

import "time"

// ProcessingStatus tracks the backend extraction pipeline for a transcript.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// Terminal reports whether no further processing updates are expected.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingStatusCompleted || s == ProcessingStatusFailed
}

// ApprovalStatus is the review state of a conversation's extracted examples.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Conversation is a single uploaded transcript together with its extraction
// and review state. The backend is the source of truth; the store keeps a
// client-side copy that may briefly run ahead of it (optimistic writes).
type Conversation struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"`
	OriginalFilename string           `json:"original_filename,omitempty"`
	FolderID         *int64           `json:"folder_id,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ApprovalStatus   ApprovalStatus   `json:"approval_status"`
	TotalExamples    int              `json:"total_examples"`
	ApprovedExamples int              `json:"approved_examples"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Example is one extracted Q&A pair belonging to a conversation.
type Example struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	Confidence     float64        `json:"confidence"`
	Status         ApprovalStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ProcessingUpdate is a server-pushed progress report, keyed by conversation.
type ProcessingUpdate struct {
	ConversationID    int64            `json:"conversation_id"`
	Status            ProcessingStatus `json:"status"`
	Progress          float64          `json:"progress"`
	Message           string           `json:"message,omitempty"`
	ExamplesExtracted *int             `json:"examples_extracted,omitempty"`
	ReceivedAt        time.Time        `json:"received_at"`
}
