package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusq/queuedesk/internal/model"
	"github.com/campusq/queuedesk/internal/repository/base"
)

type EmergencyRepository struct {
	pool *pgxpool.Pool
}

func NewEmergencyRepository(pool *pgxpool.Pool) *EmergencyRepository {
	return &EmergencyRepository{pool: pool}
}

const emergencyColumns = `id, student_id, counter_id, requested_date, requested_time, deadline,
		proof_document, work_type, description, status, responded_by, responded_at,
		rejection_reason, approved_booking_id, created_at`

func scanEmergency(row pgx.Row) (*model.EmergencyRequest, error) {
	var req model.EmergencyRequest
	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.CounterID,
		&req.RequestedDate,
		&req.RequestedTime,
		&req.Deadline,
		&req.ProofDocument,
		&req.WorkType,
		&req.Description,
		&req.Status,
		&req.RespondedBy,
		&req.RespondedAt,
		&req.RejectionReason,
		&req.ApprovedBookingID,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create persists a new pending request. A partial unique index on
// (student_id) WHERE status = 'pending' backs the one-in-flight rule even
// when two submissions race past the service-level check.
func (r *EmergencyRepository) Create(ctx context.Context, req *model.EmergencyRequest) error {
	query := `
		INSERT INTO emergency_requests (student_id, counter_id, requested_date, requested_time,
			deadline, proof_document, work_type, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		req.StudentID,
		req.CounterID,
		req.RequestedDate,
		req.RequestedTime,
		req.Deadline,
		req.ProofDocument,
		req.WorkType,
		req.Description,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrAlreadyPending
		}
		return fmt.Errorf("create emergency request: %w", err)
	}

	return nil
}

// GetByID returns the request or ErrNotFound.
func (r *EmergencyRepository) GetByID(ctx context.Context, id int64) (*model.EmergencyRequest, error) {
	query := `
		SELECT ` + emergencyColumns + `
		FROM emergency_requests
		WHERE id = $1
	`

	req, err := scanEmergency(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get emergency request: %w", err)
	}

	return req, nil
}

// HasPending reports whether the student has a pending request on any counter.
func (r *EmergencyRepository) HasPending(ctx context.Context, studentID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM emergency_requests
			WHERE student_id = $1 AND status = 'pending'
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}

	return exists, nil
}

// ListPending returns pending requests oldest-first, optionally filtered by
// counter.
func (r *EmergencyRepository) ListPending(ctx context.Context, counterID *int64) ([]*model.EmergencyRequest, error) {
	query := `
		SELECT ` + emergencyColumns + `
		FROM emergency_requests
		WHERE status = 'pending'
		  AND ($1::bigint IS NULL OR counter_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, counterID)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	return collectEmergencies(rows)
}

// ListByStudent returns the student's requests, newest first.
func (r *EmergencyRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.EmergencyRequest, error) {
	query := `
		SELECT ` + emergencyColumns + `
		FROM emergency_requests
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list requests by student: %w", err)
	}
	defer rows.Close()

	return collectEmergencies(rows)
}

// MarkApproved stamps an approval onto a still-pending request. Zero
// affected rows means another responder got there first.
func (r *EmergencyRepository) MarkApproved(ctx context.Context, id, facultyID, bookingID int64, at time.Time) error {
	query := `
		UPDATE emergency_requests
		SET status = 'approved', responded_by = $1, responded_at = $2, approved_booking_id = $3
		WHERE id = $4 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, facultyID, at, bookingID, id)
	if err != nil {
		return fmt.Errorf("mark request approved: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

// MarkRejected stamps a rejection onto a still-pending request.
func (r *EmergencyRepository) MarkRejected(ctx context.Context, id, facultyID int64, reason string, at time.Time) error {
	query := `
		UPDATE emergency_requests
		SET status = 'rejected', responded_by = $1, responded_at = $2, rejection_reason = $3
		WHERE id = $4 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, query, facultyID, at, reason, id)
	if err != nil {
		return fmt.Errorf("mark request rejected: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

// SweepAutoReject transitions every pending request dated on or before the
// given civil date to auto_rejected and returns the affected requests.
// Re-running the sweep is harmless: already-transitioned requests no longer
// match the pending guard.
func (r *EmergencyRepository) SweepAutoReject(ctx context.Context, upTo time.Time, reason string, at time.Time) ([]*model.EmergencyRequest, error) {
	query := `
		UPDATE emergency_requests
		SET status = 'auto_rejected', rejection_reason = $1, responded_at = $2
		WHERE status = 'pending' AND requested_date <= $3
		RETURNING ` + emergencyColumns + `
	`

	rows, err := r.pool.Query(ctx, query, reason, at, upTo)
	if err != nil {
		return nil, fmt.Errorf("sweep auto-reject: %w", err)
	}
	defer rows.Close()

	return collectEmergencies(rows)
}

func collectEmergencies(rows pgx.Rows) ([]*model.EmergencyRequest, error) {
	var requests []*model.EmergencyRequest
	for rows.Next() {
		req, err := scanEmergency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emergency request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emergency requests: %w", err)
	}

	return requests, nil
}
