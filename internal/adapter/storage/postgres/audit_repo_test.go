package postgres

import (
	"context"
	"testing"

	"linkpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	actorType := domain.PartyMerchant
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		ActorType:    &actorType,
		ActorID:      strPtr("MR0A1B2C"),
		Action:       domain.AuditActionAddBalance,
		ResourceType: "link",
		Details:      `{"status":200}`,
		IPAddress:    "10.0.0.1",
		CreatedAt:    testNow(),
	}
	details := entry.Details

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.ActorType, entry.ActorID, "ADD_BALANCE", "link",
			"", &details, "10.0.0.1", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_EmptyDetailsStoredAsNull(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionRegister,
		ResourceType: "auth",
		CreatedAt:    testNow(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.ActorType, entry.ActorID, "REGISTER", "auth",
			"", (*string)(nil), "", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
}
