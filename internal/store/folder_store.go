package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedme-console/internal/api"
	"feedme-console/internal/bus"
	"feedme-console/internal/dto"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"
)

// FolderStore keeps the folder list with a read TTL and applies writes
// optimistically. Aggregate counts arrive through folder_counts_update
// events rather than by refetching.
type FolderStore struct {
	api    api.Client
	events *bus.Bus
	logger logger.ILogger
	ttl    time.Duration

	mu        sync.Mutex
	folders   []model.Folder
	fetchedAt time.Time
	pending   map[int64]bool
}

func NewFolderStore(apiClient api.Client, events *bus.Bus, log logger.ILogger, ttl time.Duration) *FolderStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FolderStore{
		api:     apiClient,
		events:  events,
		logger:  log,
		ttl:     ttl,
		pending: make(map[int64]bool),
	}
}

// Start subscribes the store to count refreshes pushed by the backend.
func (s *FolderStore) Start(ctx context.Context) error {
	return s.events.Subscribe(ctx, bus.TopicFolderCountsUpdated, func(payload []byte) {
		ev, err := bus.Decode[bus.FolderCountsUpdatedEvent](payload)
		if err != nil {
			s.logger.Warn("FolderStore", "Dropping malformed counts event", map[string]interface{}{"error": err.Error()})
			return
		}
		s.ApplyCounts(ev.Counts)
	})
}

// List returns all folders, served from memory while the TTL holds.
func (s *FolderStore) List(ctx context.Context) ([]model.Folder, error) {
	s.mu.Lock()
	if s.fetchedAt.After(time.Now().Add(-s.ttl)) && s.folders != nil {
		out := append([]model.Folder(nil), s.folders...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	folders, err := s.api.ListFolders(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.folders = append([]model.Folder(nil), folders...)
	s.fetchedAt = time.Now()
	out := append([]model.Folder(nil), s.folders...)
	s.mu.Unlock()
	return out, nil
}

// Create adds a folder. Creation is not optimistic: the server assigns the
// id, so the folder appears once confirmed.
func (s *FolderStore) Create(ctx context.Context, req dto.CreateFolderRequest) (*model.Folder, error) {
	folder, err := s.api.CreateFolder(ctx, req)
	if err != nil {
		s.notifyError("Create folder failed", err)
		return nil, err
	}

	s.mu.Lock()
	if s.folders != nil {
		s.folders = append(s.folders, *folder)
	}
	s.mu.Unlock()
	return folder, nil
}

// Update renames or recolors a folder optimistically.
func (s *FolderStore) Update(ctx context.Context, id int64, req dto.UpdateFolderRequest) (*model.Folder, error) {
	release, prior, err := s.beginMutation(id)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	for i := range s.folders {
		if s.folders[i].ID != id {
			continue
		}
		if req.Name != nil {
			s.folders[i].Name = *req.Name
		}
		if req.Color != nil {
			s.folders[i].Color = *req.Color
		}
		if req.Description != nil {
			s.folders[i].Description = *req.Description
		}
		break
	}
	s.mu.Unlock()

	updated, err := s.api.UpdateFolder(ctx, id, req)
	if err != nil {
		s.restore(prior)
		s.notifyError("Update folder failed", err)
		return nil, err
	}

	s.mu.Lock()
	for i := range s.folders {
		if s.folders[i].ID == id {
			s.folders[i] = *updated
			break
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// Delete removes a folder optimistically, optionally moving its
// conversations elsewhere first.
func (s *FolderStore) Delete(ctx context.Context, id int64, moveTo *int64) error {
	release, prior, err := s.beginMutation(id)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	for i := range s.folders {
		if s.folders[i].ID == id {
			s.folders = append(s.folders[:i], s.folders[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.api.DeleteFolder(ctx, id, moveTo); err != nil {
		s.restore(prior)
		s.notifyError("Delete folder failed", err)
		return err
	}
	return nil
}

// ApplyCounts refreshes aggregate conversation counts in place.
func (s *FolderStore) ApplyCounts(counts map[int64]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.folders {
		if count, ok := counts[s.folders[i].ID]; ok {
			s.folders[i].ConversationCount = count
		}
	}
}

// Folders returns a copy of the in-memory folder list without fetching.
func (s *FolderStore) Folders() []model.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Folder(nil), s.folders...)
}

// Invalidate forces the next List to hit the backend.
func (s *FolderStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchedAt = time.Time{}
}

func (s *FolderStore) beginMutation(id int64) (func(), []model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[id] {
		return nil, nil, fmt.Errorf("folder %d: %w", id, ErrMutationPending)
	}
	s.pending[id] = true
	snap := append([]model.Folder(nil), s.folders...)
	release := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
	return release, snap, nil
}

func (s *FolderStore) restore(snap []model.Folder) {
	s.mu.Lock()
	s.folders = append([]model.Folder(nil), snap...)
	s.mu.Unlock()
}

func (s *FolderStore) notifyError(title string, err error) {
	_ = s.events.Publish(bus.NotificationRaisedEvent{
		Level:   model.NotificationLevelError,
		Title:   title,
		Message: err.Error(),
	})
}
