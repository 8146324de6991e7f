package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusq/queuedesk/internal/model"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, full_name, email, user_type, linked_student_id, account_status,
		warning_status, warning_issued_at, fake_enquiry_count, last_fake_enquiry_date, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.UserType,
		&user.LinkedStudentID,
		&user.AccountStatus,
		&user.WarningStatus,
		&user.WarningIssuedAt,
		&user.FakeEnquiryCount,
		&user.LastFakeEnquiryDate,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the user or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// UpdateEnquiryStats refreshes the cached fake-enquiry counter on the
// account. Display and audit only; escalation decisions recompute from the
// log.
func (r *UserRepository) UpdateEnquiryStats(ctx context.Context, id int64, count int, at time.Time) error {
	query := `
		UPDATE users
		SET fake_enquiry_count = $1, last_fake_enquiry_date = $2
		WHERE id = $3
	`

	tag, err := r.pool.Exec(ctx, query, count, at, id)
	if err != nil {
		return fmt.Errorf("update enquiry stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// EscalateWarning moves the account one step up the warning ladder.
func (r *UserRepository) EscalateWarning(ctx context.Context, id int64, status model.WarningStatus, count int, at time.Time) error {
	query := `
		UPDATE users
		SET warning_status = $1, warning_issued_at = $2, fake_enquiry_count = $3, last_fake_enquiry_date = $2
		WHERE id = $4
	`

	tag, err := r.pool.Exec(ctx, query, status, at, count, id)
	if err != nil {
		return fmt.Errorf("escalate warning: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// FlagAccount sets the account status to flagged. The warning status is
// left where it is; the flag itself is terminal for the policy.
func (r *UserRepository) FlagAccount(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET account_status = 'flagged'
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("flag account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ResetWarnings is the administrative escape hatch: clears the enquiry
// counter, the warning ladder and the account flag in one go.
func (r *UserRepository) ResetWarnings(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET fake_enquiry_count = 0,
		    warning_status = 'none',
		    warning_issued_at = NULL,
		    account_status = 'active'
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reset warnings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFaculty returns faculty accounts, restricted to the given ids when
// ids is non-empty.
func (r *UserRepository) ListFaculty(ctx context.Context, ids []int64) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE user_type = 'faculty'
		  AND (cardinality($1::bigint[]) = 0 OR id = ANY($1))
		ORDER BY id
	`

	if ids == nil {
		ids = []int64{}
	}

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}
