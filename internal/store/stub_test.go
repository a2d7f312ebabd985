package store

import (
	"context"
	"fmt"
	"io"

	"feedme-console/internal/dto"
	"feedme-console/internal/model"
)

// stubClient satisfies api.Client with overridable behavior per method. A
// call without a matching func is a test bug and fails loudly.
type stubClient struct {
	listConversations   func(ctx context.Context, params dto.ConversationListParams) (*dto.ConversationListResponse, error)
	getConversation     func(ctx context.Context, id int64) (*model.Conversation, error)
	updateConversation  func(ctx context.Context, id int64, req dto.UpdateConversationRequest) (*model.Conversation, error)
	deleteConversation  func(ctx context.Context, id int64) error
	approveConversation func(ctx context.Context, id int64) (*model.Conversation, error)
	rejectConversation  func(ctx context.Context, id int64) (*model.Conversation, error)
	reprocess           func(ctx context.Context, id int64) error
	assignFolder        func(ctx context.Context, req dto.AssignFolderRequest) error
	uploadTranscript    func(ctx context.Context, req dto.UploadTranscriptRequest) (*model.Conversation, error)
	listExamples        func(ctx context.Context, conversationID int64) ([]model.Example, error)
	listFolders         func(ctx context.Context) ([]model.Folder, error)
	createFolder        func(ctx context.Context, req dto.CreateFolderRequest) (*model.Folder, error)
	updateFolder        func(ctx context.Context, id int64, req dto.UpdateFolderRequest) (*model.Folder, error)
	deleteFolder        func(ctx context.Context, id int64, moveTo *int64) error
	getFolderCounts     func(ctx context.Context) (dto.FolderCounts, error)
}

func (s *stubClient) ListConversations(ctx context.Context, params dto.ConversationListParams) (*dto.ConversationListResponse, error) {
	if s.listConversations == nil {
		panic("unexpected ListConversations call")
	}
	return s.listConversations(ctx, params)
}

func (s *stubClient) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	if s.getConversation == nil {
		panic("unexpected GetConversation call")
	}
	return s.getConversation(ctx, id)
}

func (s *stubClient) UpdateConversation(ctx context.Context, id int64, req dto.UpdateConversationRequest) (*model.Conversation, error) {
	if s.updateConversation == nil {
		panic("unexpected UpdateConversation call")
	}
	return s.updateConversation(ctx, id, req)
}

func (s *stubClient) DeleteConversation(ctx context.Context, id int64) error {
	if s.deleteConversation == nil {
		panic("unexpected DeleteConversation call")
	}
	return s.deleteConversation(ctx, id)
}

func (s *stubClient) ApproveConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	if s.approveConversation == nil {
		panic("unexpected ApproveConversation call")
	}
	return s.approveConversation(ctx, id)
}

func (s *stubClient) RejectConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	if s.rejectConversation == nil {
		panic("unexpected RejectConversation call")
	}
	return s.rejectConversation(ctx, id)
}

func (s *stubClient) ReprocessConversation(ctx context.Context, id int64) error {
	if s.reprocess == nil {
		panic("unexpected ReprocessConversation call")
	}
	return s.reprocess(ctx, id)
}

func (s *stubClient) AssignFolder(ctx context.Context, req dto.AssignFolderRequest) error {
	if s.assignFolder == nil {
		panic("unexpected AssignFolder call")
	}
	return s.assignFolder(ctx, req)
}

func (s *stubClient) UploadTranscript(ctx context.Context, req dto.UploadTranscriptRequest) (*model.Conversation, error) {
	if s.uploadTranscript == nil {
		panic("unexpected UploadTranscript call")
	}
	return s.uploadTranscript(ctx, req)
}

func (s *stubClient) UploadTranscriptFile(ctx context.Context, filename string, content io.Reader) (*model.Conversation, error) {
	panic("unexpected UploadTranscriptFile call")
}

func (s *stubClient) ListExamples(ctx context.Context, conversationID int64) ([]model.Example, error) {
	if s.listExamples == nil {
		panic("unexpected ListExamples call")
	}
	return s.listExamples(ctx, conversationID)
}

func (s *stubClient) ListFolders(ctx context.Context) ([]model.Folder, error) {
	if s.listFolders == nil {
		panic("unexpected ListFolders call")
	}
	return s.listFolders(ctx)
}

func (s *stubClient) CreateFolder(ctx context.Context, req dto.CreateFolderRequest) (*model.Folder, error) {
	if s.createFolder == nil {
		panic("unexpected CreateFolder call")
	}
	return s.createFolder(ctx, req)
}

func (s *stubClient) UpdateFolder(ctx context.Context, id int64, req dto.UpdateFolderRequest) (*model.Folder, error) {
	if s.updateFolder == nil {
		panic("unexpected UpdateFolder call")
	}
	return s.updateFolder(ctx, id, req)
}

func (s *stubClient) DeleteFolder(ctx context.Context, id int64, moveTo *int64) error {
	if s.deleteFolder == nil {
		panic("unexpected DeleteFolder call")
	}
	return s.deleteFolder(ctx, id, moveTo)
}

func (s *stubClient) GetFolderCounts(ctx context.Context) (dto.FolderCounts, error) {
	if s.getFolderCounts == nil {
		panic("unexpected GetFolderCounts call")
	}
	return s.getFolderCounts(ctx)
}

func conversationFixture(id int64, title string, folderID *int64) model.Conversation {
	return model.Conversation{
		ID:               id,
		Title:            title,
		FolderID:         folderID,
		ProcessingStatus: model.ProcessingStatusCompleted,
		ApprovalStatus:   model.ApprovalStatusPending,
		TotalExamples:    int(id) * 2,
	}
}

func listResponse(convs ...model.Conversation) *dto.ConversationListResponse {
	return &dto.ConversationListResponse{
		Conversations: convs,
		Total:         len(convs),
		Page:          1,
		PageSize:      20,
	}
}

func int64Ptr(v int64) *int64 { return &v }

var errBackend = fmt.Errorf("backend rejected the request")
