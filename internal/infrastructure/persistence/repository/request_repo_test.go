package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-letters/migrations"
	"github.com/garyjia/approval-letters/pkg/database"
)

func setupStore(t *testing.T) port.RequestStore {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "approvals.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))
	return NewRequestRepository(sqlite.NewDB(db.DB, logger), logger)
}

func sampleRequest(submitted time.Time) *entity.ApprovalRequest {
	return &entity.ApprovalRequest{
		SubmitterName:    "Ravi Kumar",
		SubmitterEmail:   "ravi@example.com",
		OrganisationName: "Aero Systems",
		SubmitterIDNo:    "EMP-42",
		Purpose:          "Calibration of avionics test bench",
		RequestDate:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		RequestTime:      "09:30",
		NumberOfItems:    2,
		SelectedItems:    []string{entity.ItemLaptop, "2 Multimeter"},
		SubmittedAt:      submitted,
		Status:           entity.StatusPending,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	req := sampleRequest(time.Now())
	require.NoError(t, store.Create(ctx, req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, int64(1), req.Version)

	got, err := store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.SubmitterName, got.SubmitterName)
	assert.Equal(t, []string{entity.ItemLaptop, "2 Multimeter"}, got.SelectedItems)
	assert.Equal(t, "2026-03-10", got.RequestDate.Format("2006-01-02"))
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Empty(t, got.Approvals)
	assert.False(t, got.Rejected)

	_, err = store.GetByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestRequestRepository_AppendApproval(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	req := sampleRequest(time.Now())
	require.NoError(t, store.Create(ctx, req))

	at := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	updated, err := store.AppendApproval(ctx, req.ID, 1,
		entity.ApprovalLogEntry{ApproverID: "u1", ApproverContact: "gm@example.com", ApprovedAt: at, Level: 1},
		entity.StatusLevel1Approved)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusLevel1Approved, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
	require.Len(t, updated.Approvals, 1)
	assert.Equal(t, "gm@example.com", updated.Approvals[0].ApproverContact)
	assert.True(t, at.Equal(updated.Approvals[0].ApprovedAt))

	t.Run("stale version", func(t *testing.T) {
		_, err := store.AppendApproval(ctx, req.ID, 1,
			entity.ApprovalLogEntry{ApproverID: "u2", ApprovedAt: at, Level: 2},
			entity.StatusLevel2Approved)
		assert.ErrorIs(t, err, port.ErrVersionConflict)
	})

	t.Run("duplicate level rolls back the version bump", func(t *testing.T) {
		_, err := store.AppendApproval(ctx, req.ID, 2,
			entity.ApprovalLogEntry{ApproverID: "u2", ApprovedAt: at, Level: 1},
			entity.StatusLevel1Approved)
		assert.ErrorIs(t, err, port.ErrVersionConflict)

		got, err := store.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Len(t, got.Approvals, 1)
	})

	t.Run("duplicate approver", func(t *testing.T) {
		_, err := store.AppendApproval(ctx, req.ID, 2,
			entity.ApprovalLogEntry{ApproverID: "u1", ApprovedAt: at, Level: 2},
			entity.StatusLevel2Approved)
		assert.ErrorIs(t, err, port.ErrVersionConflict)
	})

	t.Run("missing request", func(t *testing.T) {
		_, err := store.AppendApproval(ctx, "nope", 1,
			entity.ApprovalLogEntry{ApproverID: "u1", ApprovedAt: at, Level: 1},
			entity.StatusLevel1Approved)
		assert.ErrorIs(t, err, port.ErrNotFound)
	})
}

func TestRequestRepository_MarkRejected(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	req := sampleRequest(time.Now())
	require.NoError(t, store.Create(ctx, req))
	_, err := store.AppendApproval(ctx, req.ID, 1,
		entity.ApprovalLogEntry{ApproverID: "u1", ApprovedAt: time.Now(), Level: 1},
		entity.StatusLevel1Approved)
	require.NoError(t, err)

	got, err := store.MarkRejected(ctx, req.ID, 2, "policy violation")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, got.Status)
	assert.True(t, got.Rejected)
	assert.Equal(t, "policy violation", got.RejectionReason)
	assert.Equal(t, int64(3), got.Version)
	assert.Len(t, got.Approvals, 1)

	_, err = store.MarkRejected(ctx, req.ID, 2, "again")
	assert.ErrorIs(t, err, port.ErrVersionConflict)
}

func TestRequestRepository_List(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		req := sampleRequest(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, store.Create(ctx, req))
		ids = append(ids, req.ID)
	}
	_, err := store.MarkRejected(ctx, ids[0], 1, "no")
	require.NoError(t, err)
	_, err = store.AppendApproval(ctx, ids[1], 1,
		entity.ApprovalLogEntry{ApproverID: "u1", ApprovedAt: base, Level: 1},
		entity.StatusLevel1Approved)
	require.NoError(t, err)

	all, err := store.List(ctx, port.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Len(t, all[1].Approvals, 1)

	approved, err := store.List(ctx, port.ListFilter{Statuses: []entity.Status{
		entity.StatusLevel1Approved, entity.StatusLevel2Approved, entity.StatusFullyApproved,
	}})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, ids[1], approved[0].ID)

	limited, err := store.List(ctx, port.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRequestRepository_ConcurrentAppendsNeverShareALevel(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	req := sampleRequest(time.Now())
	require.NoError(t, store.Create(ctx, req))

	// both writers read version 1 and try to claim level 1
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, approver := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, approver string) {
			defer wg.Done()
			_, errs[i] = store.AppendApproval(ctx, req.ID, 1,
				entity.ApprovalLogEntry{ApproverID: approver, ApprovedAt: time.Now(), Level: 1},
				entity.StatusLevel1Approved)
		}(i, approver)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, port.ErrVersionConflict)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, got.Approvals, 1)
}

func TestRequestRepository_AppendReturnsItsOwnWrite(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	req := sampleRequest(time.Now())
	require.NoError(t, store.Create(ctx, req))

	statuses := []entity.Status{entity.StatusLevel1Approved, entity.StatusLevel2Approved, entity.StatusFullyApproved}
	var wg sync.WaitGroup
	for _, approver := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(approver string) {
			defer wg.Done()
			for {
				cur, err := store.GetByID(ctx, req.ID)
				if !assert.NoError(t, err) {
					return
				}
				level := len(cur.Approvals) + 1
				updated, err := store.AppendApproval(ctx, req.ID, cur.Version,
					entity.ApprovalLogEntry{ApproverID: approver, ApprovedAt: time.Now(), Level: level},
					statuses[level-1])
				if errors.Is(err, port.ErrVersionConflict) {
					continue
				}
				if !assert.NoError(t, err) {
					return
				}

				assert.Equal(t, cur.Version+1, updated.Version)
				assert.Equal(t, statuses[level-1], updated.Status)
				if assert.Len(t, updated.Approvals, level) {
					assert.Equal(t, approver, updated.Approvals[level-1].ApproverID)
				}
				return
			}
		}(approver)
	}
	wg.Wait()

	got, err := store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFullyApproved, got.Status)
	assert.Len(t, got.Approvals, 3)
}
