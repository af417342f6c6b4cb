package ports

import (
	"context"
	"errors"
	"time"

	"linkpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Storage sentinel errors. Adapters wrap them so services can use errors.Is.
var (
	// ErrDuplicateID is returned when a generated primary key collides.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrAlreadyExists is returned when a natural unique key (phone, OAuth
	// subject, merchant/user pair) is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotPending is returned by compare-and-swap status updates when the
	// row is no longer in its initial state.
	ErrNotPending = errors.New("not pending")
)

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id string) (*domain.Merchant, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*domain.Merchant, error)
	GetByGoogleEmail(ctx context.Context, email string) (*domain.Merchant, error)
	Update(ctx context.Context, merchant *domain.Merchant) error
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*domain.User, error)
	GetByGoogleEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, tx pgx.Tx, id string) error
}

// LinkRepository defines persistence operations for links.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type LinkRepository interface {
	Create(ctx context.Context, tx pgx.Tx, link *domain.Link) error
	Get(ctx context.Context, merchantID, userID string) (*domain.Link, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Link, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID, userID string) (*domain.Link, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	Delete(ctx context.Context, tx pgx.Tx, merchantID, userID string) error
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.LinkSummary, error)
	ListByUser(ctx context.Context, userID string) ([]domain.LinkSummary, error)
}

// TransactionRepository defines persistence operations for ledger entries.
// Entries are append-only.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, error)
}

// TransactionListParams filters transaction history. Empty ids are ignored.
type TransactionListParams struct {
	MerchantID string
	UserID     string
	Limit      int
}

// RequestRepository defines persistence operations for workflow requests.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	// Resolve moves a pending request to status. It returns ErrNotPending
	// when the request was already resolved.
	Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus, at time.Time) error
	HasPending(ctx context.Context, kind domain.RequestKind, merchantID, userID string) (bool, error)
	List(ctx context.Context, params RequestListParams) ([]domain.Request, error)
	RejectPendingByUser(ctx context.Context, tx pgx.Tx, userID string, at time.Time) (int64, error)
	PurgeResolved(ctx context.Context, kinds []domain.RequestKind, before time.Time) (int64, error)
}

// RequestListParams filters request listings. Empty fields are ignored.
type RequestListParams struct {
	MerchantID     string
	UserID         string
	Kind           *domain.RequestKind
	Statuses       []domain.RequestStatus
	RespondedSince *time.Time
	// ByResponded orders by responded_at instead of created_at, newest first.
	ByResponded    bool
	Limit          int
}

// ReminderRepository defines persistence operations for reminders.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *domain.Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reminder, error)
	// Dismiss moves an active reminder to dismissed, or returns ErrNotPending.
	Dismiss(ctx context.Context, id uuid.UUID, by string, at time.Time) error
	ListActiveByUser(ctx context.Context, userID string, today time.Time) ([]domain.Reminder, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.Reminder, error)
	ExpireBefore(ctx context.Context, today time.Time) (int64, error)
	DismissAllByUser(ctx context.Context, tx pgx.Tx, userID string, at time.Time) (int64, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
