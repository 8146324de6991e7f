package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusq/queuedesk/internal/model"
)

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

const slotColumns = `id, counter_id, slot_date, start_time, end_time, max_capacity, current_bookings, booked_students, is_active, created_at`

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.CounterID,
		&slot.SlotDate,
		&slot.StartTime,
		&slot.EndTime,
		&slot.MaxCapacity,
		&slot.CurrentBookings,
		&slot.BookedStudents,
		&slot.IsActive,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// GetByID returns the slot or ErrNotFound.
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE id = $1
	`

	slot, err := scanSlot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// ListByCounterDate returns all slots for a counter on a calendar date,
// ordered by start time.
func (r *SlotRepository) ListByCounterDate(ctx context.Context, counterID int64, date time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE counter_id = $1 AND slot_date = $2
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, counterID, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// CreateIfAbsent inserts the given slots, skipping any that already exist
// for the same (counter, date, start time) key. Racing callers creating the
// same day never produce duplicates; the unique index arbitrates.
func (r *SlotRepository) CreateIfAbsent(ctx context.Context, slots []*model.Slot) error {
	query := `
		INSERT INTO slots (counter_id, slot_date, start_time, end_time, max_capacity, current_bookings, booked_students, is_active)
		VALUES ($1, $2, $3, $4, $5, 0, '{}', $6)
		ON CONFLICT (counter_id, slot_date, start_time) DO NOTHING
	`

	for _, slot := range slots {
		_, err := r.pool.Exec(ctx, query,
			slot.CounterID,
			slot.SlotDate,
			slot.StartTime,
			slot.EndTime,
			slot.MaxCapacity,
			slot.IsActive,
		)
		if err != nil {
			return fmt.Errorf("create slot %s: %w", slot.StartTime, err)
		}
	}

	return nil
}

// GetByCounterDateStart returns the slot at a compound key, or ErrNotFound.
func (r *SlotRepository) GetByCounterDateStart(ctx context.Context, counterID int64, date time.Time, startTime string) (*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE counter_id = $1 AND slot_date = $2 AND start_time = $3
	`

	slot, err := scanSlot(r.pool.QueryRow(ctx, query, counterID, date, startTime))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot by key: %w", err)
	}

	return slot, nil
}

// Reserve atomically claims one seat for the student. The capacity check,
// the increment and the holder-list append happen in a single conditional
// UPDATE so concurrent callers can never both take the last seat. The
// returned token number is the post-increment booking count.
func (r *SlotRepository) Reserve(ctx context.Context, slotID, studentID int64) (int, error) {
	query := `
		UPDATE slots
		SET current_bookings = current_bookings + 1,
		    booked_students  = array_append(booked_students, $2)
		WHERE id = $1
		  AND is_active
		  AND current_bookings < max_capacity
		RETURNING current_bookings
	`

	var token int
	err := r.pool.QueryRow(ctx, query, slotID, studentID).Scan(&token)
	if err == nil {
		return token, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("reserve seat: %w", err)
	}

	// The conditional update matched nothing: either the slot is full or it
	// does not exist at all.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check slot exists: %w", err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrSlotFull
}

// Release returns the student's seat. The guard on holder membership and a
// positive count means a release the student never held is refused instead
// of corrupting the counter, and the count can never go below zero.
func (r *SlotRepository) Release(ctx context.Context, slotID, studentID int64) error {
	query := `
		UPDATE slots
		SET current_bookings = current_bookings - 1,
		    booked_students  = array_remove(booked_students, $2)
		WHERE id = $1
		  AND current_bookings > 0
		  AND $2 = ANY(booked_students)
	`

	tag, err := r.pool.Exec(ctx, query, slotID, studentID)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotHolder
	}

	return nil
}
