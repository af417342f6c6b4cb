package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"linkpay/internal/adapter/storage/memory"
	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/internal/core/ports/mocks"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for gomock-driven tests.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// to returns the event types addressed to actor, in publish order.
func (p *recordingPublisher) to(actor domain.Actor) []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.EventType
	for _, e := range p.events {
		if e.Recipient() == actor {
			out = append(out, e.Type)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

var phoneSeq atomic.Int64

func nextPhone() string {
	return fmt.Sprintf("09%08d", phoneSeq.Add(1))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testClock() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

// harness wires every service to one in-memory store.
type harness struct {
	store     *memory.Store
	merchants *memory.MerchantRepo
	users     *memory.UserRepo
	links     *memory.LinkRepo
	txns      *memory.TransactionRepo
	requests  *memory.RequestRepo
	reminders *memory.ReminderRepo

	events   *recordingPublisher
	verifier *mocks.MockIdentityVerifier
	gate     *PinGate

	identity    *IdentityServiceImpl
	ledger      *LedgerServiceImpl
	requestSvc  *RequestServiceImpl
	reminderSvc *ReminderServiceImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	store := memory.NewStore()
	h := &harness{
		store:     store,
		merchants: memory.NewMerchantRepo(store),
		users:     memory.NewUserRepo(store),
		links:     memory.NewLinkRepo(store),
		txns:      memory.NewTransactionRepo(store),
		requests:  memory.NewRequestRepo(store),
		reminders: memory.NewReminderRepo(store),
		events:    &recordingPublisher{},
		verifier:  mocks.NewMockIdentityVerifier(ctrl),
	}

	hashSvc := NewArgon2HashServiceWithParams(cheapArgon2)
	encSvc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	tokens := NewJWTTokenService("test-secret", time.Hour, "linkpay")
	log := zerolog.Nop()

	h.gate = NewPinGate(h.users, hashSvc, nil, nil, log)
	h.identity = NewIdentityService(h.merchants, h.users, h.links, h.requests, h.reminders,
		hashSvc, tokens, h.verifier, h.gate, store, log)
	h.ledger = NewLedgerService(h.links, h.txns, h.users, h.gate, store, h.events, nil, log)
	h.requestSvc = NewRequestService(h.requests, h.links, h.txns, h.merchants, h.users,
		h.gate, encSvc, store, h.events, nil, log)
	h.reminderSvc = NewReminderService(h.reminders, h.requests, h.links, h.merchants,
		DefaultFeedOptions, h.events, log)
	return h
}

func (h *harness) registerMerchant(t *testing.T) domain.Actor {
	t.Helper()
	res, err := h.identity.Register(context.Background(), ports.RegisterRequest{
		Kind:     domain.PartyMerchant,
		Name:     "Corner Store",
		Phone:    nextPhone(),
		Password: "password123",
	})
	require.NoError(t, err)
	return res.Actor
}

func (h *harness) registerUser(t *testing.T, pin string) domain.Actor {
	t.Helper()
	res, err := h.identity.Register(context.Background(), ports.RegisterRequest{
		Kind:     domain.PartyUser,
		Name:     "Ana",
		Phone:    nextPhone(),
		Password: "password123",
		Pin:      pin,
	})
	require.NoError(t, err)
	return res.Actor
}

// linked registers a merchant and a user with PIN 1234 and links them.
func (h *harness) linked(t *testing.T) (merchant, user domain.Actor) {
	t.Helper()
	merchant = h.registerMerchant(t)
	user = h.registerUser(t, "1234")
	_, err := h.ledger.AddLink(context.Background(), merchant, user.ID)
	require.NoError(t, err)
	return merchant, user
}

func (h *harness) credit(t *testing.T, merchant, user domain.Actor, amount string) {
	t.Helper()
	_, err := h.ledger.AddBalance(context.Background(), merchant, user.ID, dec(amount))
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, merchant, user domain.Actor) decimal.Decimal {
	t.Helper()
	link, err := h.links.Get(context.Background(), merchant.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, link)
	return link.Balance
}
