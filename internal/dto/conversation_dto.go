package dto

import (
	"fmt"
	"strings"

	"feedme-console/internal/model"
)

// ConversationListParams carries every parameter that affects a list result.
// All of them participate in the cache fingerprint.
type ConversationListParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	SortDesc bool   `json:"sort_desc,omitempty"`
	// FolderID scopes the list to one folder. Nil together with ShowAll=true
	// means "all conversations"; nil with ShowAll=false means "unassigned".
	FolderID *int64 `json:"folder_id,omitempty"`
	ShowAll  bool   `json:"show_all,omitempty"`
}

// Normalized returns a copy with defaults applied.
func (p ConversationListParams) Normalized() ConversationListParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.SortBy == "" {
		p.SortBy = "created_at"
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// Fingerprint is a deterministic cache key covering every effective query
// parameter. Two parameter sets that differ in any field never collide.
func (p ConversationListParams) Fingerprint() string {
	p = p.Normalized()
	folder := "none"
	if p.ShowAll {
		folder = "all"
	} else if p.FolderID != nil {
		folder = fmt.Sprintf("%d", *p.FolderID)
	}
	dir := "asc"
	if p.SortDesc {
		dir = "desc"
	}
	return fmt.Sprintf("page=%d&size=%d&search=%s&sort=%s&dir=%s&folder=%s",
		p.Page, p.PageSize, p.Search, p.SortBy, dir, folder)
}

type ConversationListResponse struct {
	Conversations []model.Conversation `json:"conversations"`
	Total         int                  `json:"total"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"page_size"`
}

type UpdateConversationRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	FolderID *int64  `json:"folder_id,omitempty"`
}

type UploadTranscriptRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=255"`
	Content  string `json:"content" validate:"required"`
	FolderID *int64 `json:"folder_id,omitempty"`
}

type AssignFolderRequest struct {
	ConversationIDs []int64 `json:"conversation_ids" validate:"required,min=1"`
	// Nil removes the conversations from any folder.
	FolderID *int64 `json:"folder_id"`
}
