package postgres

import (
	"context"
	"testing"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction() *domain.Transaction {
	l := newTestLink()
	_, txn := domain.Mutation{
		Delta:  decimal.RequireFromString("-20.50"),
		Source: domain.SourcePurchase,
	}.Apply(l, testNow())
	return txn
}

func transactionRows(txns ...*domain.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "seq", "merchant_id", "user_id", "amount", "kind",
		"balance_after", "source", "request_id", "description", "created_at",
	})
	for _, t := range txns {
		rows.AddRow(t.ID, t.Seq, t.MerchantID, t.UserID, t.Amount, t.Kind,
			t.BalanceAfter, t.Source, t.RequestID, t.Description, t.CreatedAt)
	}
	return rows
}

func TestTransactionRepo_Create_AssignsSeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions .+ RETURNING seq").
		WithArgs(txn.ID, txn.MerchantID, txn.UserID, txn.Amount, txn.Kind,
			txn.BalanceAfter, txn.Source, txn.RequestID, txn.Description, txn.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(42)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), tx, txn))
	assert.Equal(t, int64(42), txn.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_Pair(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	first := newTestTransaction()
	first.Seq = 2
	second := newTestTransaction()
	second.Seq = 1

	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE merchant_id = \$1 AND user_id = \$2 ORDER BY seq DESC LIMIT \$3`).
		WithArgs(first.MerchantID, first.UserID, 50).
		WillReturnRows(transactionRows(first, second))

	txns, err := repo.List(context.Background(), ports.TransactionListParams{
		MerchantID: first.MerchantID,
		UserID:     first.UserID,
		Limit:      50,
	})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(2), txns[0].Seq)
	assert.Equal(t, domain.TransactionDebit, txns[0].Kind)
	assert.True(t, first.BalanceAfter.Equal(txns[0].BalanceAfter))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_ByUserNoLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery(`SELECT .+ FROM transactions WHERE user_id = \$1 ORDER BY seq DESC$`).
		WithArgs("UR3D4E5F").
		WillReturnRows(transactionRows())

	txns, err := repo.List(context.Background(), ports.TransactionListParams{UserID: "UR3D4E5F"})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
