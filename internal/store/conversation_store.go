package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"feedme-console/internal/api"
	"feedme-console/internal/bus"
	"feedme-console/internal/dto"
	"feedme-console/internal/model"
	"feedme-console/internal/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ConversationStore owns the client-side view of conversations: the active
// list, short-TTL read caches keyed by request fingerprint, and optimistic
// mutations that roll back exactly on failure. The backend stays the source
// of truth; this layer only makes it feel instantaneous.
type ConversationStore struct {
	api       api.Client
	events    *bus.Bus
	logger    logger.ILogger
	chunkSize int

	listCache   *gocache.Cache
	detailCache *gocache.Cache
	flight      singleflight.Group

	mu           sync.Mutex
	items        []model.Conversation
	total        int
	activeFolder *int64
	showAll      bool
	pending      map[int64]bool
}

func NewConversationStore(apiClient api.Client, events *bus.Bus, log logger.ILogger, listTTL, detailTTL time.Duration, chunkSize int) *ConversationStore {
	if listTTL <= 0 {
		listTTL = 5 * time.Minute
	}
	if detailTTL <= 0 {
		detailTTL = 10 * time.Minute
	}
	if chunkSize <= 0 {
		chunkSize = 3
	}
	return &ConversationStore{
		api:         apiClient,
		events:      events,
		logger:      log,
		chunkSize:   chunkSize,
		listCache:   gocache.New(listTTL, 2*listTTL),
		detailCache: gocache.New(detailTTL, 2*detailTTL),
		pending:     make(map[int64]bool),
		showAll:     true,
	}
}

// Start subscribes the store to server-driven updates. Processing completion
// refreshes the matching conversation in place.
func (s *ConversationStore) Start(ctx context.Context) error {
	return s.events.Subscribe(ctx, bus.TopicProcessingUpdated, func(payload []byte) {
		ev, err := bus.Decode[bus.ProcessingUpdatedEvent](payload)
		if err != nil {
			s.logger.Warn("ConversationStore", "Dropping malformed processing event", map[string]interface{}{"error": err.Error()})
			return
		}
		s.applyProcessingUpdate(ev.Update)
	})
}

func (s *ConversationStore) applyProcessingUpdate(update model.ProcessingUpdate) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == update.ConversationID {
			s.items[i].ProcessingStatus = update.Status
			if update.ExamplesExtracted != nil {
				s.items[i].TotalExamples = *update.ExamplesExtracted
			}
			break
		}
	}
	s.mu.Unlock()

	// The cached detail is stale now regardless of whether the conversation
	// is in the active view.
	s.detailCache.Delete(detailKey(update.ConversationID))
	if update.Status.Terminal() {
		s.listCache.Flush()
	}
}

// List fetches a page of conversations, served from cache when an identical
// parameter set was fetched within the TTL. The active view scope follows
// the last List call.
func (s *ConversationStore) List(ctx context.Context, params dto.ConversationListParams) (*dto.ConversationListResponse, error) {
	params = params.Normalized()
	fingerprint := params.Fingerprint()

	if cached, ok := s.listCache.Get(fingerprint); ok {
		resp := cached.(*dto.ConversationListResponse)
		s.adoptView(params, resp)
		return resp, nil
	}

	resp, err := s.api.ListConversations(ctx, params)
	if err != nil {
		if api.IsNotFound(err) && !params.ShowAll && params.FolderID != nil {
			// The scoped folder is gone (deleted elsewhere). Reset the scope
			// to "all" instead of propagating the failure to the view.
			s.logger.Warn("ConversationStore", "Active folder no longer exists, resetting scope", map[string]interface{}{"folder_id": *params.FolderID})
			params.FolderID = nil
			params.ShowAll = true
			return s.List(ctx, params)
		}
		return nil, err
	}

	s.listCache.Set(params.Fingerprint(), resp, gocache.DefaultExpiration)
	s.adoptView(params, resp)
	return resp, nil
}

func (s *ConversationStore) adoptView(params dto.ConversationListParams, resp *dto.ConversationListResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]model.Conversation(nil), resp.Conversations...)
	s.total = resp.Total
	s.activeFolder = params.FolderID
	s.showAll = params.ShowAll
}

// Get fetches one conversation, caching it and coalescing concurrent
// requests for the same id into a single backend call.
func (s *ConversationStore) Get(ctx context.Context, id int64) (*model.Conversation, error) {
	key := detailKey(id)
	if cached, ok := s.detailCache.Get(key); ok {
		conv := cached.(model.Conversation)
		return &conv, nil
	}

	result, err, _ := s.flight.Do(key, func() (interface{}, error) {
		conv, err := s.api.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		s.detailCache.Set(key, *conv, gocache.DefaultExpiration)
		return *conv, nil
	})
	if err != nil {
		return nil, err
	}
	conv := result.(model.Conversation)
	return &conv, nil
}

// Update applies an edit optimistically and reconciles with the server's
// authoritative copy, rolling the view back exactly on failure.
func (s *ConversationStore) Update(ctx context.Context, id int64, req dto.UpdateConversationRequest) (*model.Conversation, error) {
	release, prior, err := s.beginMutation(id)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if req.Title != nil {
			s.items[i].Title = *req.Title
		}
		if req.FolderID != nil {
			s.items[i].FolderID = req.FolderID
		}
		break
	}
	s.mu.Unlock()

	updated, err := s.api.UpdateConversation(ctx, id, req)
	if err != nil {
		s.restore(prior)
		s.notifyError("Update failed", err)
		return nil, err
	}

	s.reconcile(*updated)
	return updated, nil
}

// Delete removes a conversation optimistically.
func (s *ConversationStore) Delete(ctx context.Context, id int64) error {
	release, prior, err := s.beginMutation(id)
	if err != nil {
		return err
	}
	defer release()

	s.removeFromView(id)

	if err := s.api.DeleteConversation(ctx, id); err != nil {
		s.restore(prior)
		s.notifyError("Delete failed", err)
		return err
	}

	s.detailCache.Delete(detailKey(id))
	s.listCache.Flush()
	return nil
}

// Approve marks a conversation's examples approved.
func (s *ConversationStore) Approve(ctx context.Context, id int64) (*model.Conversation, error) {
	return s.review(ctx, id, model.ApprovalStatusApproved, s.api.ApproveConversation)
}

// Reject marks a conversation's examples rejected.
func (s *ConversationStore) Reject(ctx context.Context, id int64) (*model.Conversation, error) {
	return s.review(ctx, id, model.ApprovalStatusRejected, s.api.RejectConversation)
}

func (s *ConversationStore) review(ctx context.Context, id int64, status model.ApprovalStatus, call func(context.Context, int64) (*model.Conversation, error)) (*model.Conversation, error) {
	release, prior, err := s.beginMutation(id)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].ApprovalStatus = status
			break
		}
	}
	s.mu.Unlock()

	updated, err := call(ctx, id)
	if err != nil {
		s.restore(prior)
		s.notifyError("Review failed", err)
		return nil, err
	}

	s.reconcile(*updated)
	return updated, nil
}

// Reprocess asks the backend to rerun extraction. Progress then arrives via
// processing updates; there is nothing to apply optimistically.
func (s *ConversationStore) Reprocess(ctx context.Context, id int64) error {
	if err := s.api.ReprocessConversation(ctx, id); err != nil {
		s.notifyError("Reprocess failed", err)
		return err
	}
	s.detailCache.Delete(detailKey(id))
	return nil
}

// AssignToFolder moves conversations between folders. Conversations moved out
// of the active scope disappear from the view immediately ("hide after
// move") even though they still exist server-side.
func (s *ConversationStore) AssignToFolder(ctx context.Context, ids []int64, folderID *int64) error {
	if len(ids) == 0 {
		return nil
	}
	releases := make([]func(), 0, len(ids))
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	var prior viewSnapshot
	for i, id := range ids {
		release, snap, err := s.beginMutation(id)
		if err != nil {
			return err
		}
		releases = append(releases, release)
		if i == 0 {
			prior = snap
		}
	}

	s.mu.Lock()
	hide := s.hidesAfterMoveLocked(folderID)
	assigned := make(map[int64]bool, len(ids))
	for _, id := range ids {
		assigned[id] = true
	}
	if hide {
		kept := s.items[:0]
		for _, item := range s.items {
			if !assigned[item.ID] {
				kept = append(kept, item)
			}
		}
		removed := len(s.items) - len(kept)
		s.items = kept
		s.total -= removed
	} else {
		for i := range s.items {
			if assigned[s.items[i].ID] {
				s.items[i].FolderID = folderID
			}
		}
	}
	s.mu.Unlock()

	err := s.api.AssignFolder(ctx, dto.AssignFolderRequest{ConversationIDs: ids, FolderID: folderID})
	if err != nil {
		s.restore(prior)
		s.notifyError("Move failed", err)
		return err
	}

	// Reassignment touches an unknown number of list results; flush them all.
	s.listCache.Flush()
	for _, id := range ids {
		s.detailCache.Delete(detailKey(id))
	}
	return nil
}

// hidesAfterMoveLocked: hide when the view is scoped (not "all") and the
// target differs from the active scope.
func (s *ConversationStore) hidesAfterMoveLocked(target *int64) bool {
	if s.showAll {
		return false
	}
	if s.activeFolder == nil && target == nil {
		return false
	}
	if s.activeFolder != nil && target != nil && *s.activeFolder == *target {
		return false
	}
	return true
}

// Upload sends a raw transcript for processing.
func (s *ConversationStore) Upload(ctx context.Context, req dto.UploadTranscriptRequest) (*model.Conversation, error) {
	conv, err := s.api.UploadTranscript(ctx, req)
	if err != nil {
		s.notifyError("Upload failed", err)
		return nil, err
	}
	s.listCache.Flush()
	return conv, nil
}

// BulkDelete removes many conversations, a few at a time. Partial failures
// are collected; successes stay committed.
func (s *ConversationStore) BulkDelete(ctx context.Context, ids []int64) error {
	failures := s.fanOut(ctx, ids, func(ctx context.Context, id int64) error {
		if err := s.api.DeleteConversation(ctx, id); err != nil {
			return err
		}
		s.removeFromView(id)
		s.detailCache.Delete(detailKey(id))
		return nil
	})
	s.listCache.Flush()
	return s.finishBulk("bulk delete", len(ids), failures)
}

// BulkApprove approves many conversations.
func (s *ConversationStore) BulkApprove(ctx context.Context, ids []int64) error {
	return s.bulkReview(ctx, "bulk approve", ids, s.api.ApproveConversation)
}

// BulkReject rejects many conversations.
func (s *ConversationStore) BulkReject(ctx context.Context, ids []int64) error {
	return s.bulkReview(ctx, "bulk reject", ids, s.api.RejectConversation)
}

func (s *ConversationStore) bulkReview(ctx context.Context, op string, ids []int64, call func(context.Context, int64) (*model.Conversation, error)) error {
	failures := s.fanOut(ctx, ids, func(ctx context.Context, id int64) error {
		updated, err := call(ctx, id)
		if err != nil {
			return err
		}
		s.reconcile(*updated)
		return nil
	})
	return s.finishBulk(op, len(ids), failures)
}

// fanOut runs the operation over ids in chunks, each chunk fanned out to one
// goroutine per item, and fans the failures back in.
func (s *ConversationStore) fanOut(ctx context.Context, ids []int64, op func(context.Context, int64) error) map[int64]error {
	failures := make(map[int64]error)
	var failMu sync.Mutex

	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if err := op(ctx, id); err != nil {
					failMu.Lock()
					failures[id] = err
					failMu.Unlock()
				}
			}(id)
		}
		wg.Wait()
	}
	return failures
}

func (s *ConversationStore) finishBulk(op string, total int, failures map[int64]error) error {
	if len(failures) == 0 {
		return nil
	}
	err := &BulkError{Op: op, Total: total, Failures: failures}
	s.notifyError(fmt.Sprintf("%s partially failed", op), err)
	return err
}

// Items returns a copy of the active view.
func (s *ConversationStore) Items() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Conversation(nil), s.items...)
}

// Total returns the backend's total for the active view.
func (s *ConversationStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// InvalidateAll drops every cached read.
func (s *ConversationStore) InvalidateAll() {
	s.listCache.Flush()
	s.detailCache.Flush()
}

type viewSnapshot struct {
	items []model.Conversation
	total int
}

// beginMutation enforces the one-pending-mutation-per-entity rule and
// captures the rollback baseline. The returned release must be called when
// the mutation settles either way.
func (s *ConversationStore) beginMutation(id int64) (func(), viewSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[id] {
		return nil, viewSnapshot{}, fmt.Errorf("conversation %d: %w", id, ErrMutationPending)
	}
	s.pending[id] = true
	snap := viewSnapshot{
		items: append([]model.Conversation(nil), s.items...),
		total: s.total,
	}
	release := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
	return release, snap, nil
}

// restore puts the view back exactly as captured before the optimistic
// apply. Rollback-then-apply is the identity on the view.
func (s *ConversationStore) restore(snap viewSnapshot) {
	s.mu.Lock()
	s.items = append([]model.Conversation(nil), snap.items...)
	s.total = snap.total
	s.mu.Unlock()
}

// reconcile merges a server-confirmed copy over the optimistic shadow and
// invalidates reads touching the entity.
func (s *ConversationStore) reconcile(conv model.Conversation) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == conv.ID {
			s.items[i] = conv
			break
		}
	}
	s.mu.Unlock()

	s.detailCache.Set(detailKey(conv.ID), conv, gocache.DefaultExpiration)
	s.listCache.Flush()
}

func (s *ConversationStore) removeFromView(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.total--
			return
		}
	}
}

func (s *ConversationStore) notifyError(title string, err error) {
	_ = s.events.Publish(bus.NotificationRaisedEvent{
		Level:   model.NotificationLevelError,
		Title:   title,
		Message: err.Error(),
	})
}

func detailKey(id int64) string {
	return "conversation." + strconv.FormatInt(id, 10)
}
