package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusq/queuedesk/internal/model"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, student_id, slot_id, counter_id, slot_date, start_time, end_time,
		work_type, work_description, status, token_number, is_parent_request,
		verification_data, faculty_feedback, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking  model.Booking
		feedback []byte
	)
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.SlotID,
		&booking.CounterID,
		&booking.SlotDate,
		&booking.StartTime,
		&booking.EndTime,
		&booking.WorkType,
		&booking.WorkDescription,
		&booking.Status,
		&booking.TokenNumber,
		&booking.IsParentRequest,
		&booking.VerificationData,
		&feedback,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(feedback) > 0 {
		var fb model.FacultyFeedback
		if err := json.Unmarshal(feedback, &fb); err != nil {
			return nil, fmt.Errorf("decode faculty feedback: %w", err)
		}
		booking.Feedback = &fb
	}
	return &booking, nil
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, slot_id, counter_id, slot_date, start_time, end_time,
			work_type, work_description, status, token_number, is_parent_request, verification_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.SlotID,
		booking.CounterID,
		booking.SlotDate,
		booking.StartTime,
		booking.EndTime,
		booking.WorkType,
		booking.WorkDescription,
		booking.Status,
		booking.TokenNumber,
		booking.IsParentRequest,
		booking.VerificationData,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID returns the booking or ErrNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetActiveForStudent returns the student's active booking by booking id,
// or ErrNotFound if no confirmed/pending booking matches.
func (r *BookingRepository) GetActiveForStudent(ctx context.Context, bookingID, studentID int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1 AND student_id = $2 AND status IN ('confirmed', 'pending')
	`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, bookingID, studentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get active booking: %w", err)
	}

	return booking, nil
}

// HasActiveOnSlot reports whether the student already holds an active
// booking for the slot.
func (r *BookingRepository) HasActiveOnSlot(ctx context.Context, studentID, slotID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE student_id = $1 AND slot_id = $2 AND status IN ('confirmed', 'pending')
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, studentID, slotID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active on slot: %w", err)
	}

	return exists, nil
}

// HasActiveAtTime reports whether the student holds an active booking at
// the same date and start time on any counter.
func (r *BookingRepository) HasActiveAtTime(ctx context.Context, studentID int64, date time.Time, startTime string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE student_id = $1 AND slot_date = $2 AND start_time = $3
			  AND status IN ('confirmed', 'pending')
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, studentID, date, startTime).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active at time: %w", err)
	}

	return exists, nil
}

// ListByStudent returns all of a student's bookings, newest slot first.
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE student_id = $1
		ORDER BY slot_date DESC, start_time DESC
	`

	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by student: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListForCounterDay returns bookings for one civil day, ordered by start
// time then token number, optionally filtered by counter. Cancelled
// bookings are excluded; the faculty desk view has no use for them.
func (r *BookingRepository) ListForCounterDay(ctx context.Context, counterID *int64, date time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE slot_date = $1
		  AND status IN ('confirmed', 'pending', 'completed', 'missed')
		  AND ($2::bigint IS NULL OR counter_id = $2)
		ORDER BY start_time, token_number
	`

	rows, err := r.pool.Query(ctx, query, date, counterID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for day: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// TransitionStatus moves a booking between statuses with the expected
// current statuses as a guard. Zero affected rows means another request
// already transitioned it (or it no longer exists); the caller decides
// which by re-fetching.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	tag, err := r.pool.Exec(ctx, query, to, id, fromStrs)
	if err != nil {
		return fmt.Errorf("transition booking status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

// TransitionWithFeedback is TransitionStatus plus the faculty stamp,
// applied in the same guarded update.
func (r *BookingRepository) TransitionWithFeedback(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, fb *model.FacultyFeedback) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("encode faculty feedback: %w", err)
	}

	query := `
		UPDATE bookings
		SET status = $1, faculty_feedback = $2, updated_at = now()
		WHERE id = $3 AND status = ANY($4)
	`

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	tag, err := r.pool.Exec(ctx, query, to, payload, id, fromStrs)
	if err != nil {
		return fmt.Errorf("transition booking with feedback: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}
