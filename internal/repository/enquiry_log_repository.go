package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusq/queuedesk/internal/model"
)

// EnquiryLogRepository is append-only: entries are never updated or
// deleted, and the rolling-window count is always recomputed from here
// rather than from the cached counter on the user row.
type EnquiryLogRepository struct {
	pool *pgxpool.Pool
}

func NewEnquiryLogRepository(pool *pgxpool.Pool) *EnquiryLogRepository {
	return &EnquiryLogRepository{pool: pool}
}

// Append records one negative action.
func (r *EnquiryLogRepository) Append(ctx context.Context, entry *model.EnquiryLogEntry) error {
	query := `
		INSERT INTO fake_enquiry_log (student_id, action, slot_id, counter_id, booking_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		entry.StudentID,
		entry.Action,
		entry.SlotID,
		entry.CounterID,
		entry.BookingID,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("append enquiry log: %w", err)
	}

	return nil
}

// CountSince returns the number of entries for the student at or after the
// given instant.
func (r *EnquiryLogRepository) CountSince(ctx context.Context, studentID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM fake_enquiry_log
		WHERE student_id = $1 AND created_at >= $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, studentID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count enquiry log: %w", err)
	}

	return count, nil
}
