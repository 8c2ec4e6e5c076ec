// Package memory provides an in-process RequestStore. It applies the same
// version guard as the sqlite store and is used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/view"
)

// Option configures the store
type Option func(*Store)

// WithIDGenerator overrides uuid-based ids
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store keeps requests in a map guarded by a single mutex
type Store struct {
	mu       sync.RWMutex
	requests map[string]*entity.ApprovalRequest
	newID    func() string
}

var _ port.RequestStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		requests: make(map[string]*entity.ApprovalRequest),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", port.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req.ID = s.newID()
	req.Version = 1
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	return req.Clone(), nil
}

func (s *Store) List(ctx context.Context, filter port.ListFilter) ([]*entity.ApprovalRequest, error) {
	s.mu.RLock()
	out := make([]*entity.ApprovalRequest, 0, len(s.requests))
	for _, r := range s.requests {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	view.SortBySubmittedDesc(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) AppendApproval(ctx context.Context, id string, expectedVersion int64, entry entity.ApprovalLogEntry, status entity.Status) (*entity.ApprovalRequest, error) {
	return s.mutate(id, expectedVersion, func(r *entity.ApprovalRequest) error {
		if r.HasApprovalFrom(entry.ApproverID) {
			return fmt.Errorf("%w: approver %s already recorded", port.ErrVersionConflict, entry.ApproverID)
		}
		if _, taken := r.ApprovalAt(entry.Level); taken {
			return fmt.Errorf("%w: level %d already recorded", port.ErrVersionConflict, entry.Level)
		}
		r.Approvals = append(r.Approvals, entry)
		r.Status = status
		return nil
	})
}

func (s *Store) MarkRejected(ctx context.Context, id string, expectedVersion int64, reason string) (*entity.ApprovalRequest, error) {
	return s.mutate(id, expectedVersion, func(r *entity.ApprovalRequest) error {
		r.Status = entity.StatusRejected
		r.Rejected = true
		r.RejectionReason = reason
		return nil
	})
}

func (s *Store) mutate(id string, expectedVersion int64, fn func(r *entity.ApprovalRequest) error) (*entity.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s at version %d, expected %d", port.ErrVersionConflict, id, current.Version, expectedVersion)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version++
	s.requests[id] = next
	return next.Clone(), nil
}
