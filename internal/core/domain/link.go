package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Link is the single (merchant, user) relationship carrying one balance.
// Balance may go negative (overdraft).
type Link struct {
	ID         uuid.UUID       `json:"id"`
	MerchantID string          `json:"merchant_id"`
	UserID     string          `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewLink returns a zero-balance link for the pair.
func NewLink(merchantID, userID string, now time.Time) *Link {
	return &Link{
		ID:         uuid.New(),
		MerchantID: merchantID,
		UserID:     userID,
		Balance:    decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Overdrawn reports whether the balance is below zero.
func (l *Link) Overdrawn() bool {
	return l.Balance.IsNegative()
}

// HasParticipant reports whether the actor is one side of the link.
func (l *Link) HasParticipant(a Actor) bool {
	return a.Is(PartyMerchant, l.MerchantID) || a.Is(PartyUser, l.UserID)
}

// LinkSummary is a link annotated with both parties' display names.
type LinkSummary struct {
	Link
	StoreName string `json:"store_name"`
	UserName  string `json:"user_name"`
}
