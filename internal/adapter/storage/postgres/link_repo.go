package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const linkColumns = `id, merchant_id, user_id, balance, created_at, updated_at`

// LinkRepo implements ports.LinkRepository.
type LinkRepo struct {
	pool Pool
}

// NewLinkRepo creates a new LinkRepo.
func NewLinkRepo(pool Pool) *LinkRepo {
	return &LinkRepo{pool: pool}
}

// Create inserts a new link within a database transaction.
func (r *LinkRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.Link) error {
	query := `INSERT INTO links (` + linkColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, l.ID, l.MerchantID, l.UserID, l.Balance, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert link: %w", mapWriteError(err))
	}
	return nil
}

// Get fetches the link for a merchant/user pair (non-locking read).
func (r *LinkRepo) Get(ctx context.Context, merchantID, userID string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE merchant_id = $1 AND user_id = $2`
	return scanLink(r.pool.QueryRow(ctx, query, merchantID, userID), "get link")
}

// GetByID fetches a link by its UUID.
func (r *LinkRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return scanLink(r.pool.QueryRow(ctx, query, id), "get link by id")
}

// GetForUpdate fetches the link with a row-level lock (SELECT ... FOR UPDATE).
// Must be called within a database transaction.
func (r *LinkRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID, userID string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE merchant_id = $1 AND user_id = $2 FOR UPDATE`
	return scanLink(tx.QueryRow(ctx, query, merchantID, userID), "get link for update")
}

// UpdateBalance sets the balance of a locked link.
func (r *LinkRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE links SET balance = $1, updated_at = $2 WHERE id = $3`

	tag, err := tx.Exec(ctx, query, balance, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update link balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link not found: %s", id)
	}
	return nil
}

// Delete removes the link for a merchant/user pair.
func (r *LinkRepo) Delete(ctx context.Context, tx pgx.Tx, merchantID, userID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM links WHERE merchant_id = $1 AND user_id = $2`, merchantID, userID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link not found: %s/%s", merchantID, userID)
	}
	return nil
}

// ListByMerchant lists a merchant's links with counterpart names.
func (r *LinkRepo) ListByMerchant(ctx context.Context, merchantID string) ([]domain.LinkSummary, error) {
	return r.listSummaries(ctx, "l.merchant_id", merchantID)
}

// ListByUser lists a user's links with counterpart names.
func (r *LinkRepo) ListByUser(ctx context.Context, userID string) ([]domain.LinkSummary, error) {
	return r.listSummaries(ctx, "l.user_id", userID)
}

func (r *LinkRepo) listSummaries(ctx context.Context, column, id string) ([]domain.LinkSummary, error) {
	query := `SELECT l.id, l.merchant_id, l.user_id, l.balance, l.created_at, l.updated_at,
		m.store_name, u.user_name
		FROM links l
		JOIN merchants m ON m.id = l.merchant_id
		JOIN users u ON u.id = l.user_id
		WHERE ` + column + ` = $1
		ORDER BY l.created_at DESC`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []domain.LinkSummary
	for rows.Next() {
		s := domain.LinkSummary{}
		if err := rows.Scan(
			&s.ID, &s.MerchantID, &s.UserID, &s.Balance, &s.CreatedAt, &s.UpdatedAt,
			&s.StoreName, &s.UserName,
		); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		links = append(links, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return links, nil
}

func scanLink(row pgx.Row, op string) (*domain.Link, error) {
	l := &domain.Link{}
	err := row.Scan(&l.ID, &l.MerchantID, &l.UserID, &l.Balance, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}
