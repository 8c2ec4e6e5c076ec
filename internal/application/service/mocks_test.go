package service

import (
	"context"
	"sync"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/event"
	"github.com/garyjia/approval-letters/internal/letter"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockStore struct {
	createFunc         func(ctx context.Context, req *entity.ApprovalRequest) error
	getByIDFunc        func(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	listFunc           func(ctx context.Context, filter port.ListFilter) ([]*entity.ApprovalRequest, error)
	appendApprovalFunc func(ctx context.Context, id string, expectedVersion int64, entry entity.ApprovalLogEntry, status entity.Status) (*entity.ApprovalRequest, error)
	markRejectedFunc   func(ctx context.Context, id string, expectedVersion int64, reason string) (*entity.ApprovalRequest, error)
}

func (m *mockStore) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	req.ID = "req-1"
	req.Version = 1
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.ApprovalRequest{ID: id, Status: entity.StatusPending, Version: 1}, nil
}

func (m *mockStore) List(ctx context.Context, filter port.ListFilter) ([]*entity.ApprovalRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.ApprovalRequest{}, nil
}

func (m *mockStore) AppendApproval(ctx context.Context, id string, expectedVersion int64, entry entity.ApprovalLogEntry, status entity.Status) (*entity.ApprovalRequest, error) {
	if m.appendApprovalFunc != nil {
		return m.appendApprovalFunc(ctx, id, expectedVersion, entry, status)
	}
	return &entity.ApprovalRequest{ID: id, Status: status, Approvals: []entity.ApprovalLogEntry{entry}}, nil
}

func (m *mockStore) MarkRejected(ctx context.Context, id string, expectedVersion int64, reason string) (*entity.ApprovalRequest, error) {
	if m.markRejectedFunc != nil {
		return m.markRejectedFunc(ctx, id, expectedVersion, reason)
	}
	return &entity.ApprovalRequest{ID: id, Status: entity.StatusRejected, Rejected: true, RejectionReason: reason}, nil
}

type mockSuggester struct {
	suggestFunc func(ctx context.Context, form *entity.SubmissionForm) (string, error)
}

func (m *mockSuggester) SuggestContent(ctx context.Context, form *entity.SubmissionForm) (string, error) {
	return m.suggestFunc(ctx, form)
}

type mockNotifier struct {
	notifyFunc func(ctx context.Context, evt *event.Event, req *entity.ApprovalRequest) error
}

func (m *mockNotifier) Notify(ctx context.Context, evt *event.Event, req *entity.ApprovalRequest) error {
	return m.notifyFunc(ctx, evt, req)
}

type mockRenderer struct {
	renderFunc func(l *letter.Letter) ([]byte, error)
}

func (m *mockRenderer) Render(l *letter.Letter) ([]byte, error) {
	return m.renderFunc(l)
}
