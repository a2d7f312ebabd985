package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"feedme-console/internal/dto"
	"feedme-console/internal/model"
)

func (c *HTTPClient) ListFolders(ctx context.Context) ([]model.Folder, error) {
	var out dto.FolderListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/folders", nil, &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

func (c *HTTPClient) CreateFolder(ctx context.Context, req dto.CreateFolderRequest) (*model.Folder, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	var out model.Folder
	if err := c.doJSON(ctx, http.MethodPost, "/folders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateFolder(ctx context.Context, id int64, req dto.UpdateFolderRequest) (*model.Folder, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	var out model.Folder
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/folders/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteFolder(ctx context.Context, id int64, moveTo *int64) error {
	path := fmt.Sprintf("/folders/%d", id)
	if moveTo != nil {
		q := url.Values{}
		q.Set("move_to", fmt.Sprintf("%d", *moveTo))
		path += "?" + q.Encode()
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) GetFolderCounts(ctx context.Context) (dto.FolderCounts, error) {
	var out struct {
		Counts map[string]int `json:"counts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/folders/counts", nil, &out); err != nil {
		return nil, err
	}
	counts := make(dto.FolderCounts, len(out.Counts))
	for k, v := range out.Counts {
		var id int64
		if _, err := fmt.Sscanf(k, "%d", &id); err == nil {
			counts[id] = v
		}
	}
	return counts, nil
}
