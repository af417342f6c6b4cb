package ports

import (
	"context"
	"time"

	"linkpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HashService handles password and PIN hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles session JWT operations.
type TokenService interface {
	Generate(actor domain.Actor) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session claims.
type TokenClaims struct {
	Actor domain.Actor
}

// IdentityVerifier verifies identity-provider id tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*VerifiedIdentity, error)
}

// VerifiedIdentity is what the identity provider asserts about the caller.
type VerifiedIdentity struct {
	Subject string
	Email   string
	Name    string
}

// PinAttemptLimiter tracks failed PIN attempts per user.
type PinAttemptLimiter interface {
	Locked(ctx context.Context, userID string) (bool, error)
	RecordFailure(ctx context.Context, userID string) (int64, error)
	Reset(ctx context.Context, userID string) error
}

// EventPublisher delivers realtime events. Delivery is best-effort and
// never reports failure to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// --- Service Ports (Business Logic) ---

// PinAuthorizer gates money-moving and relationship-destroying operations.
type PinAuthorizer interface {
	AuthorizeByPin(ctx context.Context, userID string, pin string) error
	// VerifyStoredPin checks a PIN the user sealed into a request earlier.
	// A mismatch never counts toward the user's lockout.
	VerifyStoredPin(ctx context.Context, userID string, pin string) error
}

// IdentityService defines account lifecycle business logic.
type IdentityService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, kind domain.PartyType, identifier, password string) (*AuthResult, error)
	OAuthLogin(ctx context.Context, kind domain.PartyType, idToken string) (*AuthResult, error)
	GetProfile(ctx context.Context, actor domain.Actor) (*Profile, error)
	CompleteProfile(ctx context.Context, actor domain.Actor, targetID string, req CompleteProfileRequest) (*Profile, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, targetID string, req UpdateProfileRequest) (*Profile, error)
	CheckPhone(ctx context.Context, phone string) (*PhoneCheck, error)
	ChangePassword(ctx context.Context, actor domain.Actor, oldPassword, newPassword string) error
	ChangePin(ctx context.Context, actor domain.Actor, oldPin, newPin string) error
	LinkGoogle(ctx context.Context, actor domain.Actor, idToken string) error
	DeleteAccount(ctx context.Context, actor domain.Actor) error
}

// RegisterRequest holds input for direct registration.
type RegisterRequest struct {
	Kind      domain.PartyType
	Name      string // store name or user name
	Phone     string
	Password  string
	Pin       string // users only
	OwnerName string // merchants only
	Address   string // merchants only
}

// AuthResult is returned by every login path.
type AuthResult struct {
	Actor            domain.Actor
	Token            string
	ExpiresAt        time.Time
	ProfileCompleted bool
	Created          bool
}

// CompleteProfileRequest holds fields set when finishing an OAuth signup.
type CompleteProfileRequest struct {
	Name      string
	Phone     string
	Pin       string // users only, required
	OwnerName string // merchants only
	Address   string // merchants only
}

// UpdateProfileRequest edits a party's details. Nil fields are left as is.
type UpdateProfileRequest struct {
	Name      *string
	Phone     *string
	OwnerName *string // merchants only
	Address   *string // merchants only
}

// PhoneCheck reports whether a phone number is bound to an account.
type PhoneCheck struct {
	Exists    bool             `json:"exists"`
	PartyType domain.PartyType `json:"party_type,omitempty"`
}

// Profile is the public view of a party.
type Profile struct {
	Merchant *domain.Merchant `json:"merchant,omitempty"`
	User     *domain.User     `json:"user,omitempty"`
}

// LedgerService defines link balance business logic.
type LedgerService interface {
	GetBalance(ctx context.Context, actor domain.Actor, merchantID, userID string) (*domain.Link, error)
	ListLinks(ctx context.Context, actor domain.Actor) ([]domain.LinkSummary, error)
	ListTransactions(ctx context.Context, actor domain.Actor, params TransactionListParams) ([]domain.Transaction, error)
	Purchase(ctx context.Context, actor domain.Actor, req PurchaseRequest) (*LedgerResult, error)
	AddBalance(ctx context.Context, actor domain.Actor, userID string, amount decimal.Decimal) (*LedgerResult, error)
	AddLink(ctx context.Context, actor domain.Actor, userID string) (*domain.Link, error)
	Delink(ctx context.Context, actor domain.Actor, merchantID, userID, pin string) error
}

// PurchaseRequest holds validated input for a PIN-authorized debit.
type PurchaseRequest struct {
	MerchantID string
	UserID     string
	Amount     decimal.Decimal
	Pin        string
}

// LedgerResult is the outcome of one balance mutation.
type LedgerResult struct {
	Link        *domain.Link
	Transaction *domain.Transaction
}

// RequestService defines the three request workflows.
type RequestService interface {
	Create(ctx context.Context, actor domain.Actor, req CreateRequestInput) (*domain.Request, error)
	Accept(ctx context.Context, actor domain.Actor, requestID uuid.UUID, pin string) (*AcceptResult, error)
	Reject(ctx context.Context, actor domain.Actor, requestID uuid.UUID) (*domain.Request, error)
	List(ctx context.Context, actor domain.Actor, kind *domain.RequestKind, status *domain.RequestStatus) ([]domain.Request, error)
}

// CreateRequestInput holds input for creating a request of any kind.
type CreateRequestInput struct {
	Kind        domain.RequestKind
	MerchantID  string
	UserID      string
	Amount      *decimal.Decimal
	Pin         string
	Description string
}

// AcceptResult carries the accepted request and its ledger effect.
type AcceptResult struct {
	Request     *domain.Request
	Link        *domain.Link
	Transaction *domain.Transaction // nil for link requests
}

// ReminderService defines reminder lifecycle and feed composition.
type ReminderService interface {
	Create(ctx context.Context, actor domain.Actor, req CreateReminderInput) (*domain.Reminder, error)
	Dismiss(ctx context.Context, actor domain.Actor, reminderID uuid.UUID) (*domain.Reminder, error)
	ListByMerchant(ctx context.Context, actor domain.Actor) ([]domain.Reminder, error)
	Feed(ctx context.Context, actor domain.Actor) ([]domain.FeedItem, error)
}

// CreateReminderInput holds input for a merchant-authored reminder.
type CreateReminderInput struct {
	UserID     string
	LinkID     uuid.UUID
	Message    string
	TargetDate time.Time
}

// AuditService records audit entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
