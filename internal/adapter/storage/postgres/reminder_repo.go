package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reminderColumns = `id, merchant_id, user_id, link_id, message, target_date, status, dismissed_by, created_at, updated_at`

// ReminderRepo implements ports.ReminderRepository.
type ReminderRepo struct {
	pool Pool
}

// NewReminderRepo creates a new ReminderRepo.
func NewReminderRepo(pool Pool) *ReminderRepo {
	return &ReminderRepo{pool: pool}
}

// Create inserts a new reminder.
func (r *ReminderRepo) Create(ctx context.Context, rem *domain.Reminder) error {
	query := `INSERT INTO reminders (` + reminderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		rem.ID, rem.MerchantID, rem.UserID, rem.LinkID, rem.Message,
		rem.TargetDate, rem.Status, rem.DismissedBy, rem.CreatedAt, rem.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", mapWriteError(err))
	}
	return nil
}

// GetByID fetches a reminder by its UUID.
func (r *ReminderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`

	rem, err := scanReminder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reminder by id: %w", err)
	}
	return rem, nil
}

// Dismiss moves an active reminder to dismissed.
func (r *ReminderRepo) Dismiss(ctx context.Context, id uuid.UUID, by string, at time.Time) error {
	query := `UPDATE reminders SET status = 'dismissed', dismissed_by = $1, updated_at = $2
		WHERE id = $3 AND status = 'active'`

	tag, err := r.pool.Exec(ctx, query, by, at, id)
	if err != nil {
		return fmt.Errorf("dismiss reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotPending
	}
	return nil
}

// ListActiveByUser returns a user's active reminders due today or later.
func (r *ReminderRepo) ListActiveByUser(ctx context.Context, userID string, today time.Time) ([]domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
		WHERE user_id = $1 AND status = 'active' AND target_date >= $2
		ORDER BY target_date ASC, created_at DESC`
	return r.list(ctx, query, userID, today)
}

// ListByMerchant returns every reminder a merchant created, newest first.
func (r *ReminderRepo) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE merchant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, merchantID)
}

// ExpireBefore marks active reminders whose target day has passed as expired.
func (r *ReminderRepo) ExpireBefore(ctx context.Context, today time.Time) (int64, error) {
	query := `UPDATE reminders SET status = 'expired', updated_at = $1 WHERE status = 'active' AND target_date < $2`

	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), today)
	if err != nil {
		return 0, fmt.Errorf("expire reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DismissAllByUser dismisses every active reminder addressed to the user.
func (r *ReminderRepo) DismissAllByUser(ctx context.Context, tx pgx.Tx, userID string, at time.Time) (int64, error) {
	query := `UPDATE reminders SET status = 'dismissed', dismissed_by = $1, updated_at = $2
		WHERE user_id = $1 AND status = 'active'`

	tag, err := tx.Exec(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("dismiss user reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ReminderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Reminder, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder row: %w", err)
		}
		reminders = append(reminders, *rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminder rows: %w", err)
	}
	return reminders, nil
}

func scanReminder(row pgx.Row) (*domain.Reminder, error) {
	rem := &domain.Reminder{}
	err := row.Scan(
		&rem.ID, &rem.MerchantID, &rem.UserID, &rem.LinkID, &rem.Message,
		&rem.TargetDate, &rem.Status, &rem.DismissedBy, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rem, nil
}
