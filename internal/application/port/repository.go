package port

import (
	"context"
	"errors"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no request exists for the given id
	ErrNotFound = errors.New("request not found")

	// ErrStoreUnavailable wraps transport or driver failures of the backing store
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVersionConflict is returned when a guarded write lost a race with another writer
	ErrVersionConflict = errors.New("version conflict")
)

// ListFilter narrows List results. A zero filter matches every request.
type ListFilter struct {
	Statuses []entity.Status
	Limit    int
}

// Matches reports whether req satisfies the status part of the filter
func (f ListFilter) Matches(req *entity.ApprovalRequest) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if req.Status == s {
			return true
		}
	}
	return false
}

// RequestStore persists approval requests. Every mutation after creation is
// guarded by the version the caller read, so a concurrent writer surfaces as
// ErrVersionConflict instead of a lost update.
type RequestStore interface {
	// Create assigns ID, Version and persists req
	Create(ctx context.Context, req *entity.ApprovalRequest) error

	// GetByID returns a snapshot of the request
	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)

	// List returns matching requests ordered by SubmittedAt, newest first
	List(ctx context.Context, filter ListFilter) ([]*entity.ApprovalRequest, error)

	// AppendApproval appends entry and sets status in one atomic step
	AppendApproval(ctx context.Context, id string, expectedVersion int64, entry entity.ApprovalLogEntry, status entity.Status) (*entity.ApprovalRequest, error)

	// MarkRejected sets the rejected status, flag and reason, leaving approvals untouched
	MarkRejected(ctx context.Context, id string, expectedVersion int64, reason string) (*entity.ApprovalRequest, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
