package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestRequestService_BalanceRequestLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)
	h.events.reset()

	req, err := h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID,
		Amount: amountPtr("40.00"), Pin: "1234", Description: "top up",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)
	require.NotNil(t, req.PinCiphertext)
	assert.NotEqual(t, "1234", *req.PinCiphertext)
	assert.Equal(t, []domain.EventType{domain.EventRequestReceived}, h.events.to(merchant))

	listed, err := h.requestSvc.List(ctx, merchant, nil, nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	raw, err := json.Marshal(listed[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pin")

	h.events.reset()
	res, err := h.requestSvc.Accept(ctx, merchant, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestAccepted, res.Request.Status)
	assert.NotNil(t, res.Request.RespondedAt)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, domain.SourceBalanceRequest, res.Transaction.Source)
	assert.Equal(t, req.ID, *res.Transaction.RequestID)
	assert.True(t, h.balance(t, merchant, user).Equal(dec("40")))

	assert.Equal(t, []domain.EventType{domain.EventBalanceUpdated, domain.EventRequestResolved}, h.events.to(user))
	assert.Equal(t, []domain.EventType{domain.EventBalanceAdded}, h.events.to(merchant))

	_, err = h.requestSvc.Accept(ctx, merchant, req.ID, "")
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved())
	_, err = h.requestSvc.Reject(ctx, merchant, req.ID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved())
	assert.True(t, h.balance(t, merchant, user).Equal(dec("40")), "no second credit")
}

func TestRequestService_Create_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)
	other := h.registerUser(t, "1234")
	unlinkedMerchant := h.registerMerchant(t)

	_, err := h.requestSvc.Create(ctx, other, ports.CreateRequestInput{
		Kind: domain.RequestLink, MerchantID: unlinkedMerchant.ID, UserID: other.ID, Pin: "1234",
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor domain.Actor
		in    ports.CreateRequestInput
		want  *apperror.AppError
	}{
		{"merchant creates balance request", merchant,
			ports.CreateRequestInput{Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("1"), Pin: "1234"},
			apperror.ErrNotAuthorized()},
		{"user creates for someone else", other,
			ports.CreateRequestInput{Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("1"), Pin: "1234"},
			apperror.ErrNotAuthorized()},
		{"user creates pay request", user,
			ports.CreateRequestInput{Kind: domain.RequestPay, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("1")},
			apperror.ErrNotAuthorized()},
		{"missing amount", other,
			ports.CreateRequestInput{Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: other.ID, Pin: "1234"},
			apperror.ErrInvalidAmount()},
		{"amount on link request", other,
			ports.CreateRequestInput{Kind: domain.RequestLink, MerchantID: merchant.ID, UserID: other.ID, Amount: amountPtr("1"), Pin: "1234"},
			apperror.ErrInvalidAmount()},
		{"malformed pin", other,
			ports.CreateRequestInput{Kind: domain.RequestLink, MerchantID: merchant.ID, UserID: other.ID, Pin: "12"},
			apperror.ErrInvalidPin()},
		{"wrong pin", other,
			ports.CreateRequestInput{Kind: domain.RequestLink, MerchantID: merchant.ID, UserID: other.ID, Pin: "9999"},
			apperror.ErrWrongPin()},
		{"balance without link", user,
			ports.CreateRequestInput{Kind: domain.RequestBalance, MerchantID: unlinkedMerchant.ID, UserID: user.ID, Amount: amountPtr("1"), Pin: "1234"},
			apperror.ErrLinkRequired()},
		{"pay without link", unlinkedMerchant,
			ports.CreateRequestInput{Kind: domain.RequestPay, MerchantID: unlinkedMerchant.ID, UserID: user.ID, Amount: amountPtr("1")},
			apperror.ErrLinkRequired()},
		{"link request on existing link", user,
			ports.CreateRequestInput{Kind: domain.RequestLink, MerchantID: merchant.ID, UserID: user.ID, Pin: "1234"},
			apperror.ErrDuplicateLink()},
		{"duplicate pending link request", other,
			ports.CreateRequestInput{Kind: domain.RequestLink, MerchantID: unlinkedMerchant.ID, UserID: other.ID, Pin: "1234"},
			apperror.ErrDuplicatePending()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.requestSvc.Create(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestLink, MerchantID: "MR404404", UserID: user.ID, Pin: "1234",
	})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestRequestService_LinkRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant := h.registerMerchant(t)
	user := h.registerUser(t, "1234")

	req, err := h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestLink, MerchantID: merchant.ID, UserID: user.ID, Pin: "1234",
	})
	require.NoError(t, err)
	assert.Nil(t, req.Amount)

	_, err = h.requestSvc.Accept(ctx, user, req.ID, "1234")
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized(), "only the merchant accepts link requests")

	res, err := h.requestSvc.Accept(ctx, merchant, req.ID, "")
	require.NoError(t, err)
	assert.Nil(t, res.Transaction)
	require.NotNil(t, res.Link)
	assert.True(t, h.balance(t, merchant, user).IsZero())
}

func TestRequestService_LinkRequest_LinkedMeanwhile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant := h.registerMerchant(t)
	user := h.registerUser(t, "1234")

	req, err := h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestLink, MerchantID: merchant.ID, UserID: user.ID, Pin: "1234",
	})
	require.NoError(t, err)

	_, err = h.ledger.AddLink(ctx, merchant, user.ID)
	require.NoError(t, err)

	_, err = h.requestSvc.Accept(ctx, merchant, req.ID, "")
	assert.ErrorIs(t, err, apperror.ErrDuplicateLink())

	stored, err := h.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, stored.Status, "failed accept leaves the request pending")
}

func TestRequestService_PayRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)
	h.credit(t, merchant, user, "10")
	h.events.reset()

	req, err := h.requestSvc.Create(ctx, merchant, ports.CreateRequestInput{
		Kind: domain.RequestPay, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("15.25"),
	})
	require.NoError(t, err)
	assert.Nil(t, req.PinCiphertext)
	assert.Equal(t, []domain.EventType{domain.EventPaymentRequested}, h.events.to(user))

	_, err = h.requestSvc.Accept(ctx, merchant, req.ID, "1234")
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized())

	_, err = h.requestSvc.Accept(ctx, user, req.ID, "4321")
	assert.ErrorIs(t, err, apperror.ErrWrongPin())
	assert.True(t, h.balance(t, merchant, user).Equal(dec("10")))

	h.events.reset()
	res, err := h.requestSvc.Accept(ctx, user, req.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, domain.SourcePayRequest, res.Transaction.Source)
	assert.True(t, res.Link.Balance.Equal(dec("-5.25")))
	assert.True(t, res.Link.Overdrawn())

	assert.Equal(t, []domain.EventType{domain.EventBalanceUpdated}, h.events.to(user))
	assert.Equal(t, []domain.EventType{domain.EventPaymentReceived, domain.EventRequestResolved}, h.events.to(merchant))
}

func TestRequestService_Reject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)
	stranger := h.registerUser(t, "1234")

	req, err := h.requestSvc.Create(ctx, merchant, ports.CreateRequestInput{
		Kind: domain.RequestPay, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("3"),
	})
	require.NoError(t, err)

	_, err = h.requestSvc.Reject(ctx, stranger, req.ID)
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized())

	rejected, err := h.requestSvc.Reject(ctx, user, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, rejected.Status)
	assert.True(t, h.balance(t, merchant, user).IsZero())

	_, err = h.requestSvc.Accept(ctx, user, req.ID, "1234")
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved())

	_, err = h.requestSvc.Reject(ctx, user, uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestRequestService_AcceptAfterDelink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)

	req, err := h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("5"), Pin: "1234",
	})
	require.NoError(t, err)
	require.NoError(t, h.ledger.Delink(ctx, user, merchant.ID, user.ID, "1234"))

	_, err = h.requestSvc.Accept(ctx, merchant, req.ID, "")
	assert.ErrorIs(t, err, apperror.ErrLinkNotFound())

	link, err := h.links.Get(ctx, merchant.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, link, "acceptance never recreates a link")
}

func TestRequestService_StoredPinRecheckedOnAccept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)

	req, err := h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("5"), Pin: "1234",
	})
	require.NoError(t, err)
	require.NoError(t, h.identity.ChangePin(ctx, user, "1234", "5678"))

	_, err = h.requestSvc.Accept(ctx, merchant, req.ID, "")
	assert.ErrorIs(t, err, apperror.ErrWrongPin())
}

// countingLimiter locks a user after max recorded failures.
type countingLimiter struct {
	mu       sync.Mutex
	max      int64
	failures map[string]int64
}

func (l *countingLimiter) Locked(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[userID] >= l.max, nil
}

func (l *countingLimiter) RecordFailure(_ context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[userID]++
	return l.failures[userID], nil
}

func (l *countingLimiter) Reset(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, userID)
	return nil
}

func TestRequestService_StaleStoredPinCannotLockUser(t *testing.T) {
	h := newHarness(t)
	limiter := &countingLimiter{max: 5, failures: map[string]int64{}}
	h.gate.attempts = limiter
	ctx := context.Background()
	merchant, user := h.linked(t)
	other := h.registerMerchant(t)
	_, err := h.ledger.AddLink(ctx, other, user.ID)
	require.NoError(t, err)

	req, err := h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("5"), Pin: "1234",
	})
	require.NoError(t, err)
	require.NoError(t, h.identity.ChangePin(ctx, user, "1234", "5678"))

	for i := 0; i < 10; i++ {
		_, err = h.requestSvc.Accept(ctx, merchant, req.ID, "")
		require.ErrorIs(t, err, apperror.ErrWrongPin())
	}
	locked, err := limiter.Locked(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = h.ledger.Purchase(ctx, other, ports.PurchaseRequest{
		MerchantID: other.ID, UserID: user.ID, Amount: dec("1.00"), Pin: "5678",
	})
	assert.NoError(t, err)
}

func TestRequestService_ConcurrentAcceptOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)
	h.credit(t, merchant, user, "100")

	req, err := h.requestSvc.Create(ctx, merchant, ports.CreateRequestInput{
		Kind: domain.RequestPay, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("10"),
	})
	require.NoError(t, err)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		resolved int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.requestSvc.Accept(ctx, user, req.ID, "1234")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperror.ErrAlreadyResolved()):
				resolved++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, resolved)
	assert.True(t, h.balance(t, merchant, user).Equal(dec("90")), "debited exactly once")
}

func TestRequestService_ListFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	merchant, user := h.linked(t)

	pay, err := h.requestSvc.Create(ctx, merchant, ports.CreateRequestInput{
		Kind: domain.RequestPay, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("1"),
	})
	require.NoError(t, err)
	_, err = h.requestSvc.Create(ctx, user, ports.CreateRequestInput{
		Kind: domain.RequestBalance, MerchantID: merchant.ID, UserID: user.ID, Amount: amountPtr("1"), Pin: "1234",
	})
	require.NoError(t, err)
	_, err = h.requestSvc.Reject(ctx, user, pay.ID)
	require.NoError(t, err)

	all, err := h.requestSvc.List(ctx, user, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	payKind := domain.RequestPay
	pays, err := h.requestSvc.List(ctx, user, &payKind, nil)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, pay.ID, pays[0].ID)

	pending := domain.RequestPending
	open, err := h.requestSvc.List(ctx, merchant, nil, &pending)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, domain.RequestBalance, open[0].Kind)

	bogus := domain.RequestStatus("archived")
	_, err = h.requestSvc.List(ctx, merchant, nil, &bogus)
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}
