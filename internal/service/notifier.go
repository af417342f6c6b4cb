package service

import (
	"context"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceEvent is the payload of balance_updated, payment_received and
// balance_added.
type BalanceEvent struct {
	MerchantID    string                   `json:"merchant_id"`
	UserID        string                   `json:"user_id"`
	Amount        decimal.Decimal          `json:"amount"`
	Balance       decimal.Decimal          `json:"balance"`
	Overdrawn     bool                     `json:"overdrawn"`
	Source        domain.TransactionSource `json:"source"`
	TransactionID uuid.UUID                `json:"transaction_id"`
	RequestID     *uuid.UUID               `json:"request_id,omitempty"`
}

// notifier turns committed state changes into addressed events.
// A nil publisher discards everything.
type notifier struct {
	pub ports.EventPublisher
}

func (n notifier) send(ctx context.Context, t domain.EventType, to domain.Actor, data interface{}) {
	if n.pub == nil {
		return
	}
	n.pub.Publish(ctx, domain.NewEvent(t, to, data))
}

// balanceChanged tells the user the new balance and the merchant what moved.
// merchantEvent is payment_received for debits and balance_added for credits.
func (n notifier) balanceChanged(ctx context.Context, link *domain.Link, txn *domain.Transaction) {
	payload := BalanceEvent{
		MerchantID:    link.MerchantID,
		UserID:        link.UserID,
		Amount:        txn.Amount,
		Balance:       link.Balance,
		Overdrawn:     link.Overdrawn(),
		Source:        txn.Source,
		TransactionID: txn.ID,
		RequestID:     txn.RequestID,
	}

	merchantEvent := domain.EventBalanceAdded
	if txn.Kind == domain.TransactionDebit {
		merchantEvent = domain.EventPaymentReceived
	}

	n.send(ctx, domain.EventBalanceUpdated, domain.UserActor(link.UserID), payload)
	n.send(ctx, merchantEvent, domain.MerchantActor(link.MerchantID), payload)
}

func (n notifier) requestCreated(ctx context.Context, req *domain.Request) {
	if req.Kind == domain.RequestPay {
		n.send(ctx, domain.EventPaymentRequested, domain.UserActor(req.UserID), req)
		return
	}
	n.send(ctx, domain.EventRequestReceived, domain.MerchantActor(req.MerchantID), req)
}

func (n notifier) requestResolved(ctx context.Context, req *domain.Request) {
	n.send(ctx, domain.EventRequestResolved, req.Requester(), req)
}

func (n notifier) reminder(ctx context.Context, t domain.EventType, r *domain.Reminder) {
	n.send(ctx, t, domain.UserActor(r.UserID), r)
}
