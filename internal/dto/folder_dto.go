package dto

import "feedme-console/internal/model"

type CreateFolderRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type UpdateFolderRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type FolderListResponse struct {
	Folders []model.Folder `json:"folders"`
}

// FolderCounts maps folder id to its conversation count, as pushed by the
// backend after reassignments and processing runs.
type FolderCounts map[int64]int
