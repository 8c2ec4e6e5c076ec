package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approval-letters/internal/application/dispatcher"
	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/domain/event"
	"github.com/garyjia/approval-letters/internal/domain/view"
	"github.com/garyjia/approval-letters/internal/domain/workflow"
	"github.com/garyjia/approval-letters/internal/infrastructure/persistence/memory"
)

var fixedNow = time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)

func validForm() *entity.SubmissionForm {
	return &entity.SubmissionForm{
		SubmitterName:    "Anil Sharma",
		SubmitterEmail:   "anil@example.com",
		OrganisationName: "Jet Tooling Ltd",
		SubmitterIDNo:    "V-1002",
		Purpose:          "Firmware update on test rig",
		RequestDate:      "2026-06-16",
		RequestTime:      "10:00",
		NumberOfItems:    2,
		Pendrive:         true,
		Laptop:           true,
		Others:           true,
		OtherItemName:    " 3 Probe cables ",
	}
}

func newTestService(store port.RequestStore, d dispatcher.Dispatcher) RequestService {
	return NewRequestService(store, d, &mockLogger{}, WithClock(func() time.Time { return fixedNow }))
}

func TestRequestService_Submit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	d := dispatcher.NewDispatcher()

	var got []*event.Event
	var mu sync.Mutex
	d.Subscribe("capture", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt)
		return nil
	})

	svc := newTestService(store, d)
	req, err := svc.Submit(ContextWithCorrelationID(ctx, "http-1"), validForm())
	require.NoError(t, err)
	require.NoError(t, d.Close())

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, entity.StatusPending, req.Status)
	assert.Empty(t, req.Approvals)
	assert.Equal(t, []string{entity.ItemLaptop, entity.ItemPendrive, "3 Probe cables"}, req.SelectedItems)
	assert.Equal(t, fixedNow, req.SubmittedAt)
	assert.Equal(t, "2026-06-16", req.RequestDate.Format("2006-01-02"))

	require.Len(t, got, 1)
	assert.Equal(t, event.TypeRequestSubmitted, got[0].Type)
	assert.Equal(t, req.ID, got[0].RequestID)
	assert.Equal(t, "http-1", got[0].CorrelationID)
}

func TestRequestService_SubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *entity.SubmissionForm)
		field  string
	}{
		{"short name", func(f *entity.SubmissionForm) { f.SubmitterName = "A" }, "submitter_name"},
		{"bad email", func(f *entity.SubmissionForm) { f.SubmitterEmail = "anil" }, "submitter_email"},
		{"short organisation", func(f *entity.SubmissionForm) { f.OrganisationName = "J" }, "organisation_name"},
		{"empty id", func(f *entity.SubmissionForm) { f.SubmitterIDNo = "  " }, "submitter_id_no"},
		{"short purpose", func(f *entity.SubmissionForm) { f.Purpose = "visit" }, "purpose"},
		{"missing date", func(f *entity.SubmissionForm) { f.RequestDate = "" }, "request_date"},
		{"malformed date", func(f *entity.SubmissionForm) { f.RequestDate = "16/06/2026" }, "request_date"},
		{"date before yesterday", func(f *entity.SubmissionForm) { f.RequestDate = "2026-06-13" }, "request_date"},
		{"bad time", func(f *entity.SubmissionForm) { f.RequestTime = "25:00" }, "request_time"},
		{"zero items", func(f *entity.SubmissionForm) { f.NumberOfItems = 0 }, "number_of_items"},
		{"no gadgets", func(f *entity.SubmissionForm) {
			f.Laptop, f.Pendrive, f.Others = false, false, false
		}, "gadgets"},
		{"others without name", func(f *entity.SubmissionForm) { f.OtherItemName = "   " }, "other_item_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{createFunc: func(ctx context.Context, req *entity.ApprovalRequest) error {
				t.Fatal("store must not be called for invalid input")
				return nil
			}}
			svc := newTestService(store, nil)

			form := validForm()
			tt.mutate(form)

			_, err := svc.Submit(context.Background(), form)
			require.Error(t, err)
			assert.ErrorIs(t, err, workflow.ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	t.Run("yesterday is accepted", func(t *testing.T) {
		svc := newTestService(&mockStore{}, nil)
		form := validForm()
		form.RequestDate = "2026-06-14"
		_, err := svc.Submit(context.Background(), form)
		assert.NoError(t, err)
	})
}

func TestRequestService_Get(t *testing.T) {
	var requested string
	svc := newTestService(&mockStore{getByIDFunc: func(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
		requested = id
		return nil, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}}, nil)

	_, err := svc.Get(context.Background(), "  abc  ")
	assert.ErrorIs(t, err, port.ErrNotFound)
	assert.Equal(t, "abc", requested)

	_, err = svc.Get(context.Background(), "   ")
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestRequestService_List(t *testing.T) {
	var filter port.ListFilter
	svc := newTestService(&mockStore{listFunc: func(ctx context.Context, f port.ListFilter) ([]*entity.ApprovalRequest, error) {
		filter = f
		return nil, nil
	}}, nil)

	_, err := svc.List(context.Background(), view.TabApproved)
	require.NoError(t, err)
	assert.Equal(t, view.TabApproved.Statuses(), filter.Statuses)
}

func submitPending(t *testing.T, svc RequestService) *entity.ApprovalRequest {
	t.Helper()
	req, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	return req
}

func TestRequestService_ApprovalLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewStore(), nil)
	req := submitPending(t, svc)

	a := &entity.Actor{ID: "A", Contact: "a@example.com"}
	b := &entity.Actor{ID: "B", Contact: "b@example.com"}
	c := &entity.Actor{ID: "C", Contact: "c@example.com"}

	got, err := svc.Approve(ctx, req.ID, a)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusLevel1Approved, got.Status)
	require.Len(t, got.Approvals, 1)
	assert.Equal(t, entity.ApprovalLogEntry{ApproverID: "A", ApproverContact: "a@example.com", ApprovedAt: fixedNow, Level: 1}, got.Approvals[0])

	// same actor again
	_, err = svc.Approve(ctx, req.ID, a)
	assert.ErrorIs(t, err, workflow.ErrDuplicateApprover)
	assert.ErrorIs(t, err, workflow.ErrPreconditionFailed)

	got, err = svc.Approve(ctx, req.ID, b)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusLevel2Approved, got.Status)

	got, err = svc.Approve(ctx, req.ID, c)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFullyApproved, got.Status)
	require.Len(t, got.Approvals, 3)
	for i, e := range view.SortApprovals(got.Approvals) {
		assert.Equal(t, i+1, e.Level)
	}

	// terminal: nothing changes any more
	_, err = svc.Approve(ctx, req.ID, &entity.Actor{ID: "D"})
	assert.ErrorIs(t, err, workflow.ErrAlreadyFinalized)
	_, err = svc.Reject(ctx, req.ID, &entity.Actor{ID: "D"}, "too late")
	assert.ErrorIs(t, err, workflow.ErrAlreadyFinalized)

	final, err := svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFullyApproved, final.Status)
	assert.Len(t, final.Approvals, 3)
}

func TestRequestService_RejectAfterPartialApproval(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewStore(), nil)
	req := submitPending(t, svc)

	_, err := svc.Approve(ctx, req.ID, &entity.Actor{ID: "A"})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, req.ID, &entity.Actor{ID: "B"}, "  ")
	assert.ErrorIs(t, err, workflow.ErrValidation)
	unchanged, _ := svc.Get(ctx, req.ID)
	assert.Equal(t, entity.StatusLevel1Approved, unchanged.Status)

	got, err := svc.Reject(ctx, req.ID, &entity.Actor{ID: "B"}, "policy violation")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, got.Status)
	assert.True(t, got.Rejected)
	assert.Equal(t, "policy violation", got.RejectionReason)
	require.Len(t, got.Approvals, 1)
	assert.Equal(t, "A", got.Approvals[0].ApproverID)
}

func TestRequestService_Unauthenticated(t *testing.T) {
	svc := newTestService(&mockStore{getByIDFunc: func(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
		t.Fatal("store must not be read without an actor")
		return nil, nil
	}}, nil)

	_, err := svc.Approve(context.Background(), "req-1", nil)
	assert.ErrorIs(t, err, workflow.ErrUnauthenticated)
	_, err = svc.Reject(context.Background(), "req-1", nil, "reason")
	assert.ErrorIs(t, err, workflow.ErrUnauthenticated)
}

func TestRequestService_ApproveRetriesOnVersionConflict(t *testing.T) {
	reads := 0
	appends := 0
	store := &mockStore{
		getByIDFunc: func(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
			reads++
			if reads == 1 {
				return &entity.ApprovalRequest{ID: id, Status: entity.StatusPending, Version: 1}, nil
			}
			// another admin got level 1 in between
			return &entity.ApprovalRequest{
				ID:        id,
				Status:    entity.StatusLevel1Approved,
				Version:   2,
				Approvals: []entity.ApprovalLogEntry{{ApproverID: "other", Level: 1}},
			}, nil
		},
		appendApprovalFunc: func(ctx context.Context, id string, expectedVersion int64, entry entity.ApprovalLogEntry, status entity.Status) (*entity.ApprovalRequest, error) {
			appends++
			if expectedVersion == 1 {
				return nil, port.ErrVersionConflict
			}
			assert.Equal(t, 2, entry.Level)
			assert.Equal(t, entity.StatusLevel2Approved, status)
			return &entity.ApprovalRequest{ID: id, Status: status}, nil
		},
	}

	got, err := newTestService(store, nil).Approve(context.Background(), "req-1", &entity.Actor{ID: "me"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusLevel2Approved, got.Status)
	assert.Equal(t, 2, reads)
	assert.Equal(t, 2, appends)
}

func TestRequestService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	appends := 0
	store := &mockStore{appendApprovalFunc: func(ctx context.Context, id string, v int64, e entity.ApprovalLogEntry, s entity.Status) (*entity.ApprovalRequest, error) {
		appends++
		return nil, port.ErrVersionConflict
	}}

	_, err := newTestService(store, nil).Approve(context.Background(), "req-1", &entity.Actor{ID: "me"})
	assert.ErrorIs(t, err, port.ErrVersionConflict)
	assert.Equal(t, maxWriteAttempts, appends)
}

func TestRequestService_StoreUnavailableIsNotRetried(t *testing.T) {
	appends := 0
	store := &mockStore{markRejectedFunc: func(ctx context.Context, id string, v int64, reason string) (*entity.ApprovalRequest, error) {
		appends++
		return nil, fmt.Errorf("%w: disk full", port.ErrStoreUnavailable)
	}}

	_, err := newTestService(store, nil).Reject(context.Background(), "req-1", &entity.Actor{ID: "me"}, "no")
	assert.ErrorIs(t, err, port.ErrStoreUnavailable)
	assert.Equal(t, 1, appends)
}

func TestRequestService_ConcurrentApprovalsGetDistinctLevels(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx := context.Background()
		svc := newTestService(memory.NewStore(), nil)
		req := submitPending(t, svc)

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, id := range []string{"A", "B"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := svc.Approve(ctx, req.ID, &entity.Actor{ID: id})
				errs <- err
			}(id)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := svc.Get(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, got.Approvals, 2)
		assert.Equal(t, entity.StatusLevel2Approved, got.Status)

		levels := map[int]string{}
		for _, e := range got.Approvals {
			levels[e.Level] = e.ApproverID
		}
		assert.Len(t, levels, 2, "both approvals landed on the same level")
		assert.NotEqual(t, levels[1], levels[2])
	}
}

func TestRequestService_PublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	d := dispatcher.NewDispatcher()
	var mu sync.Mutex
	var types []event.Type
	d.Subscribe("capture", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, evt.Type)
		return nil
	})

	svc := newTestService(memory.NewStore(), d)
	req := submitPending(t, svc)
	for _, id := range []string{"A", "B", "C"} {
		_, err := svc.Approve(ctx, req.ID, &entity.Actor{ID: id})
		require.NoError(t, err)
	}
	_, err := svc.Approve(ctx, req.ID, &entity.Actor{ID: "D"})
	require.Error(t, err)
	require.NoError(t, d.Close())

	counts := map[event.Type]int{}
	for _, typ := range types {
		counts[typ]++
	}
	assert.Equal(t, map[event.Type]int{
		event.TypeRequestSubmitted:     1,
		event.TypeRequestApproved:      2,
		event.TypeRequestFullyApproved: 1,
	}, counts)
}

func TestCapabilitiesFor(t *testing.T) {
	req := &entity.ApprovalRequest{Status: entity.StatusPending}
	assert.Equal(t, Capabilities{}, CapabilitiesFor(req, nil))
	assert.Equal(t, Capabilities{CanApprove: true, CanReject: true}, CapabilitiesFor(req, &entity.Actor{ID: "a"}))

	done := &entity.ApprovalRequest{Status: entity.StatusFullyApproved}
	assert.Equal(t, Capabilities{CanPrint: true}, CapabilitiesFor(done, &entity.Actor{ID: "a"}))
}
