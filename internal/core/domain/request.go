package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestKind selects one of the three request workflows.
type RequestKind string

const (
	RequestBalance RequestKind = "balance"
	RequestLink    RequestKind = "link"
	RequestPay     RequestKind = "pay"
)

// RequestStatus is the lifecycle state of a request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// Valid reports whether k is a known request kind.
func (k RequestKind) Valid() bool {
	return k == RequestBalance || k == RequestLink || k == RequestPay
}

// Initiator is the party type allowed to create requests of this kind.
func (k RequestKind) Initiator() PartyType {
	if k == RequestPay {
		return PartyMerchant
	}
	return PartyUser
}

// Responder is the party type allowed to accept or reject.
func (k RequestKind) Responder() PartyType {
	if k == RequestPay {
		return PartyUser
	}
	return PartyMerchant
}

// CarriesPin reports whether the requester attaches PIN material at creation.
func (k RequestKind) CarriesPin() bool {
	return k == RequestBalance || k == RequestLink
}

// HasAmount reports whether requests of this kind carry an amount.
func (k RequestKind) HasAmount() bool {
	return k != RequestLink
}

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestAccepted || s == RequestRejected
}

// Request is a proposed change awaiting the counterparty's decision.
type Request struct {
	ID            uuid.UUID        `json:"id"`
	Kind          RequestKind      `json:"kind"`
	MerchantID    string           `json:"merchant_id"`
	UserID        string           `json:"user_id"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	PinCiphertext *string          `json:"-"` // Encrypted requester PIN, never exposed
	Description   *string          `json:"description,omitempty"`
	Status        RequestStatus    `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
}

// IsTerminal returns true once the request is accepted or rejected.
func (r *Request) IsTerminal() bool {
	return r.Status == RequestAccepted || r.Status == RequestRejected
}

// CanRespond reports whether the actor is the counterparty for this kind.
func (r *Request) CanRespond(a Actor) bool {
	if r.Kind.Responder() == PartyMerchant {
		return a.Is(PartyMerchant, r.MerchantID)
	}
	return a.Is(PartyUser, r.UserID)
}

// Requester returns the party that created the request.
func (r *Request) Requester() Actor {
	if r.Kind.Initiator() == PartyMerchant {
		return MerchantActor(r.MerchantID)
	}
	return UserActor(r.UserID)
}

// LedgerDelta is the signed balance change applied on acceptance.
// Link requests have no ledger delta.
func (r *Request) LedgerDelta() decimal.Decimal {
	if r.Amount == nil {
		return decimal.Zero
	}
	if r.Kind == RequestPay {
		return r.Amount.Neg()
	}
	return *r.Amount
}

// LedgerSource is the transaction source recorded on acceptance.
func (r *Request) LedgerSource() TransactionSource {
	if r.Kind == RequestPay {
		return SourcePayRequest
	}
	return SourceBalanceRequest
}
