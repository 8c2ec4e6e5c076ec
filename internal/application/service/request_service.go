package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/approval-letters/internal/application/dispatcher"
	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/event"
	"github.com/garyjia/approval-letters/internal/domain/view"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
)

// maxWriteAttempts bounds how often a guarded write is recomputed after losing a race
const maxWriteAttempts = 5

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Capabilities tells a client which actions are currently available on a request
type Capabilities struct {
	CanApprove bool `json:"can_approve"`
	CanReject  bool `json:"can_reject"`
	CanPrint   bool `json:"can_print"`
}

// CapabilitiesFor evaluates the transition guards for req and a possibly nil actor
func CapabilitiesFor(req *entity.ApprovalRequest, actor *entity.Actor) Capabilities {
	return Capabilities{
		CanApprove: workflow.CanApprove(req, actor),
		CanReject:  actor != nil && workflow.CanReject(req),
		CanPrint:   workflow.CanPrint(req),
	}
}

// RequestService runs the approval request lifecycle
type RequestService interface {
	Submit(ctx context.Context, form *entity.SubmissionForm) (*entity.ApprovalRequest, error)
	Get(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	List(ctx context.Context, tab view.Tab) ([]*entity.ApprovalRequest, error)
	Approve(ctx context.Context, id string, actor *entity.Actor) (*entity.ApprovalRequest, error)
	Reject(ctx context.Context, id string, actor *entity.Actor, reason string) (*entity.ApprovalRequest, error)
}

// RequestOption configures the request service
type RequestOption func(*requestServiceImpl)

// WithClock overrides time.Now
func WithClock(now func() time.Time) RequestOption {
	return func(s *requestServiceImpl) { s.now = now }
}

type requestServiceImpl struct {
	store  port.RequestStore
	events dispatcher.Dispatcher
	logger Logger
	now    func() time.Time
}

// NewRequestService creates a RequestService. events may be nil.
func NewRequestService(store port.RequestStore, events dispatcher.Dispatcher, logger Logger, opts ...RequestOption) RequestService {
	s := &requestServiceImpl{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates form and stores a new Pending request
func (s *requestServiceImpl) Submit(ctx context.Context, form *entity.SubmissionForm) (*entity.ApprovalRequest, error) {
	if form == nil {
		return nil, fmt.Errorf("%w: submission is required", workflow.ErrValidation)
	}

	form = sanitizeForm(form)
	now := s.now()
	requestDate, err := validateSubmission(form, now)
	if err != nil {
		return nil, err
	}

	req := &entity.ApprovalRequest{
		SubmitterName:    form.SubmitterName,
		SubmitterEmail:   form.SubmitterEmail,
		OrganisationName: form.OrganisationName,
		SubmitterIDNo:    form.SubmitterIDNo,
		Purpose:          form.Purpose,
		RequestDate:      requestDate,
		RequestTime:      form.RequestTime,
		NumberOfItems:    form.NumberOfItems,
		SelectedItems:    form.SelectedItems(),
		SubmittedAt:      now.UTC(),
		Status:           entity.StatusPending,
		Approvals:        []entity.ApprovalLogEntry{},
	}

	if err := s.store.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create request", "error", err, "submitter_email", req.SubmitterEmail)
		return nil, err
	}

	s.logger.Info("Request submitted", "request_id", req.ID, "items", len(req.SelectedItems))
	s.publish(ctx, event.NewEvent(event.TypeRequestSubmitted, req.ID, req.Status, map[string]interface{}{
		event.KeySubmitter: req.SubmitterEmail,
	}))
	return req, nil
}

// Get looks a request up by id, ignoring surrounding whitespace
func (s *requestServiceImpl) Get(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: request id is required", workflow.ErrValidation)
	}

	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			s.logger.Error("Failed to get request", "error", err, "request_id", id)
		}
		return nil, err
	}
	return req, nil
}

// List returns the requests on a dashboard tab, newest first
func (s *requestServiceImpl) List(ctx context.Context, tab view.Tab) ([]*entity.ApprovalRequest, error) {
	reqs, err := s.store.List(ctx, port.ListFilter{Statuses: tab.Statuses()})
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "tab", tab)
		return nil, err
	}
	return reqs, nil
}

// Approve records the next approval level for actor. The decision is recomputed
// from a fresh read whenever the guarded append loses a race.
func (s *requestServiceImpl) Approve(ctx context.Context, id string, actor *entity.Actor) (*entity.ApprovalRequest, error) {
	if actor == nil {
		return nil, workflow.ErrUnauthenticated
	}

	for attempt := 1; ; attempt++ {
		req, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		out, err := workflow.Approve(ctx, req, actor, s.now().UTC())
		if err != nil {
			s.logger.Info("Approval refused", "request_id", req.ID, "actor_id", actor.ID, "reason", err.Error())
			return nil, err
		}

		updated, err := s.store.AppendApproval(ctx, req.ID, req.Version, *out.Entry, out.Status)
		if errors.Is(err, port.ErrVersionConflict) && attempt < maxWriteAttempts {
			s.logger.Info("Approval lost a concurrent write, retrying", "request_id", req.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			s.logger.Error("Failed to append approval", "error", err, "request_id", req.ID, "actor_id", actor.ID)
			return nil, err
		}

		s.logger.Info("Request approved",
			"request_id", updated.ID,
			"actor_id", actor.ID,
			"level", out.Entry.Level,
			"status", updated.Status,
		)

		evtType := event.TypeRequestApproved
		if updated.Status == entity.StatusFullyApproved {
			evtType = event.TypeRequestFullyApproved
		}
		s.publish(ctx, event.NewEvent(evtType, updated.ID, updated.Status, map[string]interface{}{
			event.KeyActorID: actor.ID,
			event.KeyLevel:   out.Entry.Level,
		}))
		return updated, nil
	}
}

// Reject finalizes the request as rejected, keeping its approvals log
func (s *requestServiceImpl) Reject(ctx context.Context, id string, actor *entity.Actor, reason string) (*entity.ApprovalRequest, error) {
	if actor == nil {
		return nil, workflow.ErrUnauthenticated
	}

	for attempt := 1; ; attempt++ {
		req, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		out, err := workflow.Reject(ctx, req, actor, reason)
		if err != nil {
			s.logger.Info("Rejection refused", "request_id", req.ID, "actor_id", actor.ID, "reason", err.Error())
			return nil, err
		}

		updated, err := s.store.MarkRejected(ctx, req.ID, req.Version, out.Reason)
		if errors.Is(err, port.ErrVersionConflict) && attempt < maxWriteAttempts {
			s.logger.Info("Rejection lost a concurrent write, retrying", "request_id", req.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			s.logger.Error("Failed to reject request", "error", err, "request_id", req.ID, "actor_id", actor.ID)
			return nil, err
		}

		s.logger.Info("Request rejected", "request_id", updated.ID, "actor_id", actor.ID)
		s.publish(ctx, event.NewEvent(event.TypeRequestRejected, updated.ID, updated.Status, map[string]interface{}{
			event.KeyActorID: actor.ID,
			event.KeyReason:  out.Reason,
		}))
		return updated, nil
	}
}

func (s *requestServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	s.events.DispatchAsync(ctx, evt.WithCorrelation(CorrelationID(ctx)))
}

type correlationKey struct{}

// ContextWithCorrelationID tags ctx so events raised while serving it share the id
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by ContextWithCorrelationID, if any
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
