package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a balance mutation.
type TransactionKind string

const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

// TransactionSource records which operation produced the mutation.
type TransactionSource string

const (
	SourcePurchase       TransactionSource = "purchase"
	SourceAddBalance     TransactionSource = "add_balance"
	SourceBalanceRequest TransactionSource = "balance_request"
	SourcePayRequest     TransactionSource = "pay_request"
)

// Transaction is an immutable ledger entry. Amount is signed: credits are
// positive, debits negative. BalanceAfter equals the link balance at the
// instant the entry was appended.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	Seq          int64             `json:"seq"`
	MerchantID   string            `json:"merchant_id"`
	UserID       string            `json:"user_id"`
	Amount       decimal.Decimal   `json:"amount"`
	Kind         TransactionKind   `json:"kind"`
	BalanceAfter decimal.Decimal   `json:"balance_after"`
	Source       TransactionSource `json:"source"`
	RequestID    *uuid.UUID        `json:"request_id,omitempty"`
	Description  *string           `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// KindOf returns credit for non-negative deltas and debit otherwise.
func KindOf(delta decimal.Decimal) TransactionKind {
	if delta.IsNegative() {
		return TransactionDebit
	}
	return TransactionCredit
}

// Mutation describes a signed change to one link balance.
type Mutation struct {
	MerchantID  string
	UserID      string
	Delta       decimal.Decimal
	Source      TransactionSource
	RequestID   *uuid.UUID
	Description *string
}

// Apply computes the new balance for l and the transaction recording it.
// It does not modify l.
func (m Mutation) Apply(l *Link, now time.Time) (decimal.Decimal, *Transaction) {
	newBalance := l.Balance.Add(m.Delta)
	return newBalance, &Transaction{
		ID:           uuid.New(),
		MerchantID:   l.MerchantID,
		UserID:       l.UserID,
		Amount:       m.Delta,
		Kind:         KindOf(m.Delta),
		BalanceAfter: newBalance,
		Source:       m.Source,
		RequestID:    m.RequestID,
		Description:  m.Description,
		CreatedAt:    now,
	}
}
