package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, kind, merchant_id, user_id, amount, pin_ciphertext, description, status, created_at, responded_at`

// RequestRepo implements ports.RequestRepository.
type RequestRepo struct {
	pool Pool
}

// NewRequestRepo creates a new RequestRepo.
func NewRequestRepo(pool Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

// Create inserts a new pending request.
func (r *RequestRepo) Create(ctx context.Context, req *domain.Request) error {
	query := `INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		req.ID, req.Kind, req.MerchantID, req.UserID, req.Amount,
		req.PinCiphertext, req.Description, req.Status, req.CreatedAt, req.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", mapWriteError(err))
	}
	return nil
}

// GetByID fetches a request by its UUID.
func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request by id: %w", err)
	}
	return req, nil
}

// Resolve moves a pending request to a terminal status. The status guard
// makes concurrent responders race on a single row update.
func (r *RequestRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus, at time.Time) error {
	query := `UPDATE requests SET status = $1, responded_at = $2 WHERE id = $3 AND status = 'pending'`

	tag, err := tx.Exec(ctx, query, status, at, id)
	if err != nil {
		return fmt.Errorf("resolve request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotPending
	}
	return nil
}

// HasPending reports whether a pending request of kind exists for the pair.
func (r *RequestRepo) HasPending(ctx context.Context, kind domain.RequestKind, merchantID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM requests WHERE kind = $1 AND merchant_id = $2 AND user_id = $3 AND status = 'pending')`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, kind, merchantID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// List fetches requests with filtering, newest first.
func (r *RequestRepo) List(ctx context.Context, params ports.RequestListParams) ([]domain.Request, error) {
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
	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, string(*params.Kind))
		argIdx++
	}
	if len(params.Statuses) > 0 {
		statuses := make([]string, len(params.Statuses))
		for i, s := range params.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, statuses)
		argIdx++
	}
	if params.RespondedSince != nil {
		conditions = append(conditions, fmt.Sprintf("responded_at >= $%d", argIdx))
		args = append(args, *params.RespondedSince)
		argIdx++
	}

	var where string
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	order := "created_at DESC"
	if params.ByResponded {
		order = "responded_at DESC NULLS LAST, created_at DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM requests %s ORDER BY %s`, requestColumns, where, order)
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, params.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request rows: %w", err)
	}
	return requests, nil
}

// RejectPendingByUser rejects every pending request involving the user.
func (r *RequestRepo) RejectPendingByUser(ctx context.Context, tx pgx.Tx, userID string, at time.Time) (int64, error) {
	query := `UPDATE requests SET status = 'rejected', responded_at = $1 WHERE user_id = $2 AND status = 'pending'`

	tag, err := tx.Exec(ctx, query, at, userID)
	if err != nil {
		return 0, fmt.Errorf("reject pending requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeResolved deletes resolved requests of the given kinds answered before the cutoff.
func (r *RequestRepo) PurgeResolved(ctx context.Context, kinds []domain.RequestKind, before time.Time) (int64, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	query := `DELETE FROM requests WHERE kind = ANY($1) AND status <> 'pending' AND responded_at < $2`

	tag, err := r.pool.Exec(ctx, query, names, before)
	if err != nil {
		return 0, fmt.Errorf("purge resolved requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	req := &domain.Request{}
	err := row.Scan(
		&req.ID, &req.Kind, &req.MerchantID, &req.UserID, &req.Amount,
		&req.PinCiphertext, &req.Description, &req.Status, &req.CreatedAt, &req.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
