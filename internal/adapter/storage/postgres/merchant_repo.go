package postgres

import (
	"context"
	"errors"
	"fmt"

	"linkpay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const merchantColumns = `id, store_name, owner_name, phone, store_address, password_hash,
	google_subject, google_email, profile_completed, created_at, updated_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a new merchant into the database.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.StoreName, m.OwnerName, m.Phone, m.StoreAddress, m.PasswordHash,
		m.GoogleSubject, m.GoogleEmail, m.ProfileCompleted, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", mapWriteError(err))
	}
	return nil
}

// GetByID fetches a merchant by its party id.
func (r *MerchantRepo) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	return r.getBy(ctx, "id", id)
}

// GetByPhone fetches a merchant by phone number.
func (r *MerchantRepo) GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error) {
	return r.getBy(ctx, "phone", phone)
}

// GetByGoogleSubject fetches a merchant by its bound OAuth subject.
func (r *MerchantRepo) GetByGoogleSubject(ctx context.Context, subject string) (*domain.Merchant, error) {
	return r.getBy(ctx, "google_subject", subject)
}

// GetByGoogleEmail fetches a merchant by its bound OAuth email.
func (r *MerchantRepo) GetByGoogleEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	return r.getBy(ctx, "google_email", email)
}

// Update persists mutable merchant fields.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants SET store_name = $1, owner_name = $2, phone = $3, store_address = $4,
		password_hash = $5, google_subject = $6, google_email = $7, profile_completed = $8, updated_at = $9
		WHERE id = $10`

	tag, err := r.pool.Exec(ctx, query,
		m.StoreName, m.OwnerName, m.Phone, m.StoreAddress,
		m.PasswordHash, m.GoogleSubject, m.GoogleEmail, m.ProfileCompleted, m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update merchant: %w", mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant not found: %s", m.ID)
	}
	return nil
}

// column is always a package constant, never caller input.
func (r *MerchantRepo) getBy(ctx context.Context, column, value string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE ` + column + ` = $1`

	m := &domain.Merchant{}
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&m.ID, &m.StoreName, &m.OwnerName, &m.Phone, &m.StoreAddress, &m.PasswordHash,
		&m.GoogleSubject, &m.GoogleEmail, &m.ProfileCompleted, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by %s: %w", column, err)
	}
	return m, nil
}
