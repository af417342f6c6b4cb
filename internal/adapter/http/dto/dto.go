package dto

import (
	"time"

	"linkpay/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Secrets are tagged sanitize:"-" so SanitizeStruct leaves them byte-exact.

// RegisterRequest is the request body for direct registration.
// Pin is required for users and ignored for merchants.
type RegisterRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Phone     string `json:"phone" binding:"required,phone"`
	Password  string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Pin       string `json:"pin" binding:"omitempty,pin" sanitize:"-"`
	OwnerName string `json:"owner_name" binding:"max=100"`
	Address   string `json:"address" binding:"max=255"`
}

// LoginRequest is the request body for password login. Identifier is a
// phone number or a party id.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required,max=32"`
	Password   string `json:"password" binding:"required" sanitize:"-"`
}

// GoogleTokenRequest carries an identity-provider id token.
type GoogleTokenRequest struct {
	IDToken string `json:"id_token" binding:"required" sanitize:"-"`
}

// AuthResponse is returned by every login path.
type AuthResponse struct {
	Token            string           `json:"token"`
	Expiry           int64            `json:"expiry"` // Unix timestamp
	PartyType        domain.PartyType `json:"party_type"`
	PartyID          string           `json:"party_id"`
	ProfileCompleted bool             `json:"profile_completed"`
	Created          bool             `json:"created"`
}

// CompleteProfileRequest finishes an OAuth signup. ID defaults to the caller.
type CompleteProfileRequest struct {
	ID        string `json:"id" binding:"omitempty,party_id"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
	Pin       string `json:"pin" binding:"omitempty,pin" sanitize:"-"`
	OwnerName string `json:"owner_name" binding:"max=100"`
	Address   string `json:"address" binding:"max=255"`
}

// UpdateProfileRequest edits profile fields. Omitted fields are unchanged.
type UpdateProfileRequest struct {
	ID        string  `json:"id" binding:"omitempty,party_id"`
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,phone"`
	OwnerName *string `json:"owner_name" binding:"omitempty,max=100"`
	Address   *string `json:"address" binding:"omitempty,max=255"`
}

// CheckPhoneRequest asks whether a phone number is already registered.
type CheckPhoneRequest struct {
	Phone string `json:"phone" binding:"required,phone"`
}

// ChangePasswordRequest replaces the password. OldPassword may be empty for
// accounts created through OAuth.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" sanitize:"-"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128" sanitize:"-"`
}

// ChangePinRequest replaces the user's PIN.
type ChangePinRequest struct {
	OldPin string `json:"old_pin" binding:"required,pin" sanitize:"-"`
	NewPin string `json:"new_pin" binding:"required,pin" sanitize:"-"`
}

// AddLinkRequest is the merchant's direct link creation body.
type AddLinkRequest struct {
	UserID string `json:"user_id" binding:"required,party_id"`
}

// PurchaseRequest debits a link after PIN authorization.
type PurchaseRequest struct {
	MerchantID string          `json:"merchant_id" binding:"required,party_id"`
	UserID     string          `json:"user_id" binding:"required,party_id"`
	Amount     decimal.Decimal `json:"amount"`
	Pin        string          `json:"pin" binding:"required,pin" sanitize:"-"`
}

// AddBalanceRequest credits a link on the merchant's own authority.
type AddBalanceRequest struct {
	UserID string          `json:"user_id" binding:"required,party_id"`
	Amount decimal.Decimal `json:"amount"`
}

// DelinkRequest removes a zero-balance link.
type DelinkRequest struct {
	MerchantID string `json:"merchant_id" binding:"required,party_id"`
	UserID     string `json:"user_id" binding:"required,party_id"`
	Pin        string `json:"pin" binding:"required,pin" sanitize:"-"`
}

// LedgerResponse is the outcome of one balance mutation.
type LedgerResponse struct {
	Link        *domain.Link        `json:"link"`
	Transaction *domain.Transaction `json:"transaction"`
}

// CreateRequestBody opens a request of the kind named in the path.
type CreateRequestBody struct {
	MerchantID  string           `json:"merchant_id" binding:"required,party_id"`
	UserID      string           `json:"user_id" binding:"required,party_id"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Pin         string           `json:"pin" binding:"omitempty,pin" sanitize:"-"`
	Description string           `json:"description" binding:"max=255"`
}

// AcceptRequestBody carries the accepting user's PIN for pay requests.
type AcceptRequestBody struct {
	Pin string `json:"pin" binding:"omitempty,pin" sanitize:"-"`
}

// CreateReminderRequest attaches a reminder to a link.
type CreateReminderRequest struct {
	UserID     string `json:"user_id" binding:"required,party_id"`
	LinkID     string `json:"link_id" binding:"required,uuid"`
	Message    string `json:"message" binding:"required,max=500"`
	TargetDate string `json:"target_date" binding:"required,datetime=2006-01-02"`
}

// ParseTargetDate reads a YYYY-MM-DD date as UTC midnight.
func ParseTargetDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
