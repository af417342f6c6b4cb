package postgres

import (
	"context"
	"testing"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReminder() *domain.Reminder {
	now := testNow()
	return &domain.Reminder{
		ID:         uuid.New(),
		MerchantID: "MR0A1B2C",
		UserID:     "UR3D4E5F",
		LinkID:     uuid.New(),
		Message:    "Please settle your tab",
		TargetDate: domain.Day(now.AddDate(0, 0, 3)),
		Status:     domain.ReminderActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func reminderRows(rems ...*domain.Reminder) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "merchant_id", "user_id", "link_id", "message", "target_date",
		"status", "dismissed_by", "created_at", "updated_at",
	})
	for _, r := range rems {
		rows.AddRow(r.ID, r.MerchantID, r.UserID, r.LinkID, r.Message, r.TargetDate,
			r.Status, r.DismissedBy, r.CreatedAt, r.UpdatedAt)
	}
	return rows
}

func TestReminderRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReminderRepo(mock)
	rem := newTestReminder()

	mock.ExpectExec("INSERT INTO reminders").
		WithArgs(rem.ID, rem.MerchantID, rem.UserID, rem.LinkID, rem.Message,
			rem.TargetDate, rem.Status, rem.DismissedBy, rem.CreatedAt, rem.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), rem))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReminderRepo(mock)
	rem := newTestReminder()

	mock.ExpectQuery("SELECT .+ FROM reminders WHERE id").
		WithArgs(rem.ID).
		WillReturnRows(reminderRows(rem))

	result, err := repo.GetByID(context.Background(), rem.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, rem.Message, result.Message)
	assert.Equal(t, rem.TargetDate, result.TargetDate)
}

func TestReminderRepo_Dismiss(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"active reminder", 1, nil},
		{"already dismissed", 0, ports.ErrNotPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewReminderRepo(mock)
			id := uuid.New()
			at := testNow()

			mock.ExpectExec("UPDATE reminders SET status = 'dismissed'").
				WithArgs("UR3D4E5F", at, id).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.rows))

			err = repo.Dismiss(context.Background(), id, "UR3D4E5F", at)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReminderRepo_ListActiveByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReminderRepo(mock)
	rem := newTestReminder()
	today := domain.Day(time.Now())

	mock.ExpectQuery("SELECT .+ FROM reminders WHERE user_id = \\$1 AND status = 'active' AND target_date >= \\$2").
		WithArgs(rem.UserID, today).
		WillReturnRows(reminderRows(rem))

	reminders, err := repo.ListActiveByUser(context.Background(), rem.UserID, today)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, rem.ID, reminders[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepo_ListByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReminderRepo(mock)
	a, b := newTestReminder(), newTestReminder()
	b.Status = domain.ReminderDismissed
	b.DismissedBy = strPtr("UR3D4E5F")

	mock.ExpectQuery("SELECT .+ FROM reminders WHERE merchant_id").
		WithArgs("MR0A1B2C").
		WillReturnRows(reminderRows(a, b))

	reminders, err := repo.ListByMerchant(context.Background(), "MR0A1B2C")
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, "UR3D4E5F", *reminders[1].DismissedBy)
}

func TestReminderRepo_ExpireBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReminderRepo(mock)
	today := domain.Day(time.Now())

	mock.ExpectExec("UPDATE reminders SET status = 'expired'").
		WithArgs(pgxmock.AnyArg(), today).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := repo.ExpireBefore(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestReminderRepo_DismissAllByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReminderRepo(mock)
	at := testNow()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reminders SET status = 'dismissed'").
		WithArgs("UR3D4E5F", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.DismissAllByUser(context.Background(), tx, "UR3D4E5F", at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
