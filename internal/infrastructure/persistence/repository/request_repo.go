package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/entity"
	"github.com/garyjia/approval-letters/internal/infrastructure/persistence/sqlite"
)

const dateLayout = "2006-01-02"

// RequestRepository implements port.RequestStore on sqlite
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) port.RequestStore {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request with a generated id at version 1
func (r *RequestRepository) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	items, err := json.Marshal(nonNil(req.SelectedItems))
	if err != nil {
		return fmt.Errorf("failed to encode selected items: %w", err)
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO approval_requests (
			id, submitter_name, submitter_email, organisation_name, submitter_id_no,
			purpose, request_date, request_time, number_of_items, selected_items,
			status, version, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	`

	id := uuid.NewString()
	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		id,
		req.SubmitterName,
		req.SubmitterEmail,
		req.OrganisationName,
		req.SubmitterIDNo,
		req.Purpose,
		req.RequestDate.Format(dateLayout),
		req.RequestTime,
		req.NumberOfItems,
		string(items),
		req.Status,
		req.SubmittedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return storeError("create request", err)
	}

	req.ID = id
	req.Version = 1
	return nil
}

// GetByID loads a request together with its approvals log
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	query := selectRequest + ` WHERE id = ?`

	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id), zap.Error(err))
		return nil, storeError("get request", err)
	}

	byRequest, err := r.loadApprovals(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	req.Approvals = byRequest[id]
	return req, nil
}

// List returns requests matching filter, newest submission first
func (r *RequestRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.ApprovalRequest, error) {
	query := selectRequest
	args := make([]interface{}, 0, len(filter.Statuses)+1)

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY submitted_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, storeError("list requests", err)
	}
	defer rows.Close()

	var (
		requests []*entity.ApprovalRequest
		ids      []string
	)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, storeError("scan request", err)
		}
		requests = append(requests, req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate requests", err)
	}

	byRequest, err := r.loadApprovals(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		req.Approvals = byRequest[req.ID]
	}
	return requests, nil
}

// AppendApproval bumps the version and inserts the log entry in one transaction.
// A stale version or a level/approver collision surfaces as port.ErrVersionConflict.
// The returned record is read inside the same transaction.
func (r *RequestRepository) AppendApproval(ctx context.Context, id string, expectedVersion int64, entry entity.ApprovalLogEntry, status entity.Status) (*entity.ApprovalRequest, error) {
	var updated *entity.ApprovalRequest
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.bumpVersion(ctx, id, expectedVersion,
			`UPDATE approval_requests
			 SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND version = ?`,
			status, id, expectedVersion,
		); err != nil {
			return err
		}

		_, err := r.db.Executor(ctx).ExecContext(ctx, `
			INSERT INTO approval_log_entries (request_id, level, approver_id, approver_contact, approved_at)
			VALUES (?, ?, ?, ?, ?)`,
			id, entry.Level, entry.ApproverID, entry.ApproverContact, entry.ApprovedAt.UTC(),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: level %d or approver %s already recorded on %s", port.ErrVersionConflict, entry.Level, entry.ApproverID, id)
		}
		if err != nil {
			r.logger.Error("Failed to insert approval", zap.String("id", id), zap.Error(err))
			return storeError("insert approval", err)
		}

		updated, err = r.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkRejected records the rejection under the same version guard
func (r *RequestRepository) MarkRejected(ctx context.Context, id string, expectedVersion int64, reason string) (*entity.ApprovalRequest, error) {
	var updated *entity.ApprovalRequest
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.bumpVersion(ctx, id, expectedVersion,
			`UPDATE approval_requests
			 SET status = ?, rejected = 1, rejection_reason = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND version = ?`,
			entity.StatusRejected, reason, id, expectedVersion,
		); err != nil {
			return err
		}

		var err error
		updated, err = r.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// bumpVersion runs a version-guarded update and classifies a miss
func (r *RequestRepository) bumpVersion(ctx context.Context, id string, expectedVersion int64, query string, args ...interface{}) error {
	exec := r.db.Executor(ctx)

	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", id), zap.Error(err))
		return storeError("update request", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storeError("read rows affected", err)
	}
	if affected == 1 {
		return nil
	}

	var current int64
	err = exec.QueryRowContext(ctx, `SELECT version FROM approval_requests WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	if err != nil {
		return storeError("read version", err)
	}
	return fmt.Errorf("%w: %s at version %d, expected %d", port.ErrVersionConflict, id, current, expectedVersion)
}

func (r *RequestRepository) loadApprovals(ctx context.Context, ids []string) (map[string][]entity.ApprovalLogEntry, error) {
	out := make(map[string][]entity.ApprovalLogEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT request_id, level, approver_id, approver_contact, approved_at
		FROM approval_log_entries
		WHERE request_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY request_id, level
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load approvals", zap.Error(err))
		return nil, storeError("load approvals", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			requestID string
			e         entity.ApprovalLogEntry
		)
		if err := rows.Scan(&requestID, &e.Level, &e.ApproverID, &e.ApproverContact, &e.ApprovedAt); err != nil {
			return nil, storeError("scan approval", err)
		}
		out[requestID] = append(out[requestID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate approvals", err)
	}
	return out, nil
}

const selectRequest = `
	SELECT id, submitter_name, submitter_email, organisation_name, submitter_id_no,
		purpose, request_date, request_time, number_of_items, selected_items,
		status, rejected, rejection_reason, version, submitted_at
	FROM approval_requests`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row scanner) (*entity.ApprovalRequest, error) {
	var (
		req         entity.ApprovalRequest
		requestDate string
		items       string
	)

	err := row.Scan(
		&req.ID,
		&req.SubmitterName,
		&req.SubmitterEmail,
		&req.OrganisationName,
		&req.SubmitterIDNo,
		&req.Purpose,
		&requestDate,
		&req.RequestTime,
		&req.NumberOfItems,
		&items,
		&req.Status,
		&req.Rejected,
		&req.RejectionReason,
		&req.Version,
		&req.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.RequestDate, err = time.Parse(dateLayout, requestDate); err != nil {
		return nil, fmt.Errorf("invalid request_date %q: %w", requestDate, err)
	}
	if err := json.Unmarshal([]byte(items), &req.SelectedItems); err != nil {
		return nil, fmt.Errorf("invalid selected_items: %w", err)
	}
	return &req, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func storeError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, port.ErrStoreUnavailable, err)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
