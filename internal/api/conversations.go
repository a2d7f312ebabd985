package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"feedme-console/internal/dto"
	"feedme-console/internal/model"
)

func (c *HTTPClient) ListConversations(ctx context.Context, params dto.ConversationListParams) (*dto.ConversationListResponse, error) {
	params = params.Normalized()
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", params.Page))
	q.Set("page_size", fmt.Sprintf("%d", params.PageSize))
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	q.Set("sort_by", params.SortBy)
	if params.SortDesc {
		q.Set("sort_order", "desc")
	} else {
		q.Set("sort_order", "asc")
	}
	if !params.ShowAll && params.FolderID != nil {
		q.Set("folder_id", fmt.Sprintf("%d", *params.FolderID))
	}

	var out dto.ConversationListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/conversations?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/conversations/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateConversation(ctx context.Context, id int64, req dto.UpdateConversationRequest) (*model.Conversation, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/conversations/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteConversation(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/conversations/%d", id), nil, nil)
}

func (c *HTTPClient) ApproveConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/conversations/%d/approve", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RejectConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/conversations/%d/reject", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ReprocessConversation(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/conversations/%d/reprocess", id), nil, nil)
}

func (c *HTTPClient) AssignFolder(ctx context.Context, req dto.AssignFolderRequest) error {
	if err := c.validateRequest(req); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, "/conversations/assign-folder", req, nil)
}

func (c *HTTPClient) UploadTranscript(ctx context.Context, req dto.UploadTranscriptRequest) (*model.Conversation, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/conversations/upload-text", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UploadTranscriptFile(ctx context.Context, filename string, content io.Reader) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.uploadMultipart(ctx, "/conversations/upload", filename, content, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListExamples(ctx context.Context, conversationID int64) ([]model.Example, error) {
	var out struct {
		Examples []model.Example `json:"examples"`
	}
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/conversations/%d/examples", conversationID), nil, &out); err != nil {
		return nil, err
	}
	return out.Examples, nil
}
