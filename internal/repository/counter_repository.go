package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusq/queuedesk/internal/model"
)

type CounterRepository struct {
	pool *pgxpool.Pool
}

func NewCounterRepository(pool *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{pool: pool}
}

const counterColumns = `id, name, number, department, assigned_faculty, is_active, created_at`

func scanCounter(row pgx.Row) (*model.Counter, error) {
	var counter model.Counter
	err := row.Scan(
		&counter.ID,
		&counter.Name,
		&counter.Number,
		&counter.Department,
		&counter.AssignedFaculty,
		&counter.IsActive,
		&counter.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

// GetByID returns the counter or ErrNotFound.
func (r *CounterRepository) GetByID(ctx context.Context, id int64) (*model.Counter, error) {
	query := `
		SELECT ` + counterColumns + `
		FROM counters
		WHERE id = $1
	`

	counter, err := scanCounter(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get counter by id: %w", err)
	}

	return counter, nil
}

// ListActive returns all active counters ordered by counter number.
func (r *CounterRepository) ListActive(ctx context.Context) ([]*model.Counter, error) {
	query := `
		SELECT ` + counterColumns + `
		FROM counters
		WHERE is_active
		ORDER BY number
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active counters: %w", err)
	}
	defer rows.Close()

	var counters []*model.Counter
	for rows.Next() {
		counter, err := scanCounter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		counters = append(counters, counter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}

	return counters, nil
}
