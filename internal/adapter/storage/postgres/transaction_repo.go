package postgres

import (
	"context"
	"fmt"
	"strings"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, seq, merchant_id, user_id, amount, kind, balance_after, source, request_id, description, created_at`

// TransactionRepo implements ports.TransactionRepository. Entries are append-only.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction and assigns
// its sequence number.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, merchant_id, user_id, amount, kind, balance_after, source, request_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		t.ID, t.MerchantID, t.UserID, t.Amount, t.Kind,
		t.BalanceAfter, t.Source, t.RequestID, t.Description, t.CreatedAt,
	).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapWriteError(err))
	}
	return nil
}

// List returns ledger entries newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.MerchantID != "" {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
		args = append(args, params.MerchantID)
		argIdx++
	}
	if params.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, params.UserID)
		argIdx++
	}

	var where string
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY seq DESC`, transactionColumns, where)
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, params.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.Seq, &t.MerchantID, &t.UserID, &t.Amount, &t.Kind,
			&t.BalanceAfter, &t.Source, &t.RequestID, &t.Description, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
