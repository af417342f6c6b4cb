package postgres

import (
	"context"
	"errors"
	"fmt"

	"linkpay/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, user_name, phone, password_hash, pin_hash,
	google_subject, google_email, profile_completed, created_at, updated_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user into the database.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.UserName, u.Phone, u.PasswordHash, u.PinHash,
		u.GoogleSubject, u.GoogleEmail, u.ProfileCompleted, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapWriteError(err))
	}
	return nil
}

// GetByID fetches a user by its party id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByPhone fetches a user by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getBy(ctx, "phone", phone)
}

// GetByGoogleSubject fetches a user by its bound OAuth subject.
func (r *UserRepo) GetByGoogleSubject(ctx context.Context, subject string) (*domain.User, error) {
	return r.getBy(ctx, "google_subject", subject)
}

// GetByGoogleEmail fetches a user by its bound OAuth email.
func (r *UserRepo) GetByGoogleEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "google_email", email)
}

// Update persists mutable user fields.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	query := `UPDATE users SET user_name = $1, phone = $2, password_hash = $3, pin_hash = $4,
		google_subject = $5, google_email = $6, profile_completed = $7, updated_at = $8
		WHERE id = $9`

	tag, err := r.pool.Exec(ctx, query,
		u.UserName, u.Phone, u.PasswordHash, u.PinHash,
		u.GoogleSubject, u.GoogleEmail, u.ProfileCompleted, u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", u.ID)
	}
	return nil
}

// Delete removes a user row inside the account-deletion transaction.
func (r *UserRepo) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&u.ID, &u.UserName, &u.Phone, &u.PasswordHash, &u.PinHash,
		&u.GoogleSubject, &u.GoogleEmail, &u.ProfileCompleted, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}
