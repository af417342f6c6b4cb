package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"
	"linkpay/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

// ledgerWriter applies balance mutations inside a caller-owned transaction.
type ledgerWriter struct {
	linkRepo ports.LinkRepository
	txRepo   ports.TransactionRepository
}

// lock takes the pair's row lock and returns the link, or LinkNotFound.
func (w ledgerWriter) lock(ctx context.Context, dbTx pgx.Tx, merchantID, userID string) (*domain.Link, error) {
	link, err := w.linkRepo.GetForUpdate(ctx, dbTx, merchantID, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock link: %w", err))
	}
	if link == nil {
		return nil, apperror.ErrLinkNotFound()
	}
	return link, nil
}

// apply writes the new balance of a locked link and appends the entry that
// records it. The returned link carries the new balance.
func (w ledgerWriter) apply(ctx context.Context, dbTx pgx.Tx, link *domain.Link, m domain.Mutation, now time.Time) (*domain.Link, *domain.Transaction, error) {
	newBalance, txn := m.Apply(link, now)

	if err := w.linkRepo.UpdateBalance(ctx, dbTx, link.ID, newBalance); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := w.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	updated := *link
	updated.Balance = newBalance
	updated.UpdatedAt = now
	return &updated, txn, nil
}

// mutate is lock followed by apply.
func (w ledgerWriter) mutate(ctx context.Context, dbTx pgx.Tx, m domain.Mutation, now time.Time) (*domain.Link, *domain.Transaction, error) {
	link, err := w.lock(ctx, dbTx, m.MerchantID, m.UserID)
	if err != nil {
		return nil, nil, err
	}
	return w.apply(ctx, dbTx, link, m, now)
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	ledger     ledgerWriter
	linkRepo   ports.LinkRepository
	txRepo     ports.TransactionRepository
	userRepo   ports.UserRepository
	gate       ports.PinAuthorizer
	transactor ports.DBTransactor
	notify     notifier
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	linkRepo ports.LinkRepository,
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	gate ports.PinAuthorizer,
	transactor ports.DBTransactor,
	events ports.EventPublisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledger:     ledgerWriter{linkRepo: linkRepo, txRepo: txRepo},
		linkRepo:   linkRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		gate:       gate,
		transactor: transactor,
		notify:     notifier{pub: events},
		metrics:    m,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func isParticipant(actor domain.Actor, merchantID, userID string) bool {
	return actor.Is(domain.PartyMerchant, merchantID) || actor.Is(domain.PartyUser, userID)
}

// GetBalance returns the link between the pair. Only its participants may read it.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, actor domain.Actor, merchantID, userID string) (*domain.Link, error) {
	if !isParticipant(actor, merchantID, userID) {
		return nil, apperror.ErrNotAuthorized()
	}

	link, err := s.linkRepo.Get(ctx, merchantID, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get link: %w", err))
	}
	if link == nil {
		return nil, apperror.ErrLinkNotFound()
	}
	return link, nil
}

// ListLinks returns a merchant's users or a user's merchants.
func (s *LedgerServiceImpl) ListLinks(ctx context.Context, actor domain.Actor) ([]domain.LinkSummary, error) {
	var (
		links []domain.LinkSummary
		err   error
	)
	switch actor.Type {
	case domain.PartyMerchant:
		links, err = s.linkRepo.ListByMerchant(ctx, actor.ID)
	case domain.PartyUser:
		links, err = s.linkRepo.ListByUser(ctx, actor.ID)
	default:
		return nil, apperror.ErrNotAuthorized()
	}
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list links: %w", err))
	}
	return links, nil
}

// ListTransactions returns history scoped to the actor. The actor's own id
// is always applied as a filter, so history survives delink but never leaks
// across parties.
func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, actor domain.Actor, params ports.TransactionListParams) ([]domain.Transaction, error) {
	switch actor.Type {
	case domain.PartyMerchant:
		if params.MerchantID != "" && params.MerchantID != actor.ID {
			return nil, apperror.ErrNotAuthorized()
		}
		params.MerchantID = actor.ID
	case domain.PartyUser:
		if params.UserID != "" && params.UserID != actor.ID {
			return nil, apperror.ErrNotAuthorized()
		}
		params.UserID = actor.ID
	default:
		return nil, apperror.ErrNotAuthorized()
	}

	if params.Limit <= 0 {
		params.Limit = defaultTransactionLimit
	}
	if params.Limit > maxTransactionLimit {
		params.Limit = maxTransactionLimit
	}

	txns, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

// Purchase debits the link after the user's PIN is verified. Either
// participant may submit it; the balance may go negative.
func (s *LedgerServiceImpl) Purchase(ctx context.Context, actor domain.Actor, req ports.PurchaseRequest) (*ports.LedgerResult, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !isParticipant(actor, req.MerchantID, req.UserID) {
		return nil, apperror.ErrNotAuthorized()
	}
	if err := s.gate.AuthorizeByPin(ctx, req.UserID, req.Pin); err != nil {
		return nil, err
	}

	result, err := s.commitMutation(ctx, domain.Mutation{
		MerchantID: req.MerchantID,
		UserID:     req.UserID,
		Delta:      req.Amount.Neg(),
		Source:     domain.SourcePurchase,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("tx_id", result.Transaction.ID.String()).
		Str("merchant_id", req.MerchantID).
		Str("user_id", req.UserID).
		Str("amount", req.Amount.StringFixed(domain.AmountScale)).
		Bool("overdrawn", result.Link.Overdrawn()).
		Msg("purchase processed")

	return result, nil
}

// AddBalance credits a user's link on the merchant's word alone.
func (s *LedgerServiceImpl) AddBalance(ctx context.Context, actor domain.Actor, userID string, amount decimal.Decimal) (*ports.LedgerResult, error) {
	if !actor.IsMerchant() {
		return nil, apperror.ErrNotAuthorized()
	}
	if !domain.ValidAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	result, err := s.commitMutation(ctx, domain.Mutation{
		MerchantID: actor.ID,
		UserID:     userID,
		Delta:      amount,
		Source:     domain.SourceAddBalance,
	})
	if err != nil {
		return nil, err
	}

	s.log.Warn().
		Str("tx_id", result.Transaction.ID.String()).
		Str("merchant_id", actor.ID).
		Str("user_id", userID).
		Str("amount", amount.StringFixed(domain.AmountScale)).
		Bool("pin_authorized", false).
		Msg("merchant credited balance without user authorization")

	return result, nil
}

func (s *LedgerServiceImpl) commitMutation(ctx context.Context, m domain.Mutation) (*ports.LedgerResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	link, txn, err := s.ledger.mutate(ctx, dbTx, m, s.now())
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.LedgerMutation(string(m.Source))
	s.notify.balanceChanged(ctx, link, txn)
	return &ports.LedgerResult{Link: link, Transaction: txn}, nil
}

// AddLink links a known user to the acting merchant with a zero balance.
func (s *LedgerServiceImpl) AddLink(ctx context.Context, actor domain.Actor, userID string) (*domain.Link, error) {
	if !actor.IsMerchant() {
		return nil, apperror.ErrNotAuthorized()
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	link, err := createLink(ctx, s.linkRepo, dbTx, actor.ID, userID, s.now())
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("merchant_id", actor.ID).Str("user_id", userID).Msg("link created")
	return link, nil
}

func createLink(ctx context.Context, repo ports.LinkRepository, dbTx pgx.Tx, merchantID, userID string, now time.Time) (*domain.Link, error) {
	link := domain.NewLink(merchantID, userID, now)
	if err := repo.Create(ctx, dbTx, link); err != nil {
		if errors.Is(err, ports.ErrAlreadyExists) {
			return nil, apperror.ErrDuplicateLink()
		}
		return nil, apperror.InternalError(fmt.Errorf("create link: %w", err))
	}
	return link, nil
}

// Delink removes the pair's link after the user's PIN is verified.
// Ledger history is kept.
func (s *LedgerServiceImpl) Delink(ctx context.Context, actor domain.Actor, merchantID, userID, pin string) error {
	if !isParticipant(actor, merchantID, userID) {
		return apperror.ErrNotAuthorized()
	}
	if err := s.gate.AuthorizeByPin(ctx, userID, pin); err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.ledger.lock(ctx, dbTx, merchantID, userID); err != nil {
		return err
	}
	if err := s.linkRepo.Delete(ctx, dbTx, merchantID, userID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete link: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("merchant_id", merchantID).Str("user_id", userID).Msg("link removed")
	return nil
}
