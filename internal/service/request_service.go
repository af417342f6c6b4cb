package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"
	"linkpay/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const maxRequestDescription = 255

// RequestServiceImpl implements ports.RequestService for balance, link and
// pay requests.
type RequestServiceImpl struct {
	ledger       ledgerWriter
	requestRepo  ports.RequestRepository
	linkRepo     ports.LinkRepository
	merchantRepo ports.MerchantRepository
	userRepo     ports.UserRepository
	gate         ports.PinAuthorizer
	encSvc       ports.EncryptionService
	transactor   ports.DBTransactor
	notify       notifier
	metrics      *metrics.Metrics
	log          zerolog.Logger
	now          func() time.Time
}

// NewRequestService creates a new RequestServiceImpl.
func NewRequestService(
	requestRepo ports.RequestRepository,
	linkRepo ports.LinkRepository,
	txRepo ports.TransactionRepository,
	merchantRepo ports.MerchantRepository,
	userRepo ports.UserRepository,
	gate ports.PinAuthorizer,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	events ports.EventPublisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *RequestServiceImpl {
	return &RequestServiceImpl{
		ledger:       ledgerWriter{linkRepo: linkRepo, txRepo: txRepo},
		requestRepo:  requestRepo,
		linkRepo:     linkRepo,
		merchantRepo: merchantRepo,
		userRepo:     userRepo,
		gate:         gate,
		encSvc:       encSvc,
		transactor:   transactor,
		notify:       notifier{pub: events},
		metrics:      m,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a pending request. Balance and link requests are created by
// the user and carry the user's PIN, encrypted at rest; pay requests are
// created by the merchant.
func (s *RequestServiceImpl) Create(ctx context.Context, actor domain.Actor, in ports.CreateRequestInput) (*domain.Request, error) {
	if !in.Kind.Valid() {
		return nil, apperror.Validation("unknown request kind")
	}
	if in.Kind.Initiator() == domain.PartyMerchant {
		if !actor.Is(domain.PartyMerchant, in.MerchantID) {
			return nil, apperror.ErrNotAuthorized()
		}
	} else if !actor.Is(domain.PartyUser, in.UserID) {
		return nil, apperror.ErrNotAuthorized()
	}

	if in.Kind.HasAmount() {
		if in.Amount == nil || !domain.ValidAmount(*in.Amount) {
			return nil, apperror.ErrInvalidAmount()
		}
	} else if in.Amount != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	description := strings.TrimSpace(in.Description)
	if len(description) > maxRequestDescription {
		return nil, apperror.Validation(fmt.Sprintf("description must be at most %d characters", maxRequestDescription))
	}

	if err := s.ensureCounterparty(ctx, in); err != nil {
		return nil, err
	}

	link, err := s.linkRepo.Get(ctx, in.MerchantID, in.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get link: %w", err))
	}
	if in.Kind == domain.RequestLink {
		if link != nil {
			return nil, apperror.ErrDuplicateLink()
		}
	} else if link == nil {
		return nil, apperror.ErrLinkRequired()
	}

	req := &domain.Request{
		ID:         uuid.New(),
		Kind:       in.Kind,
		MerchantID: in.MerchantID,
		UserID:     in.UserID,
		Amount:     in.Amount,
		Status:     domain.RequestPending,
		CreatedAt:  s.now(),
	}
	if description != "" {
		req.Description = &description
	}

	// Only one link can come out of a link request, so a second pending one
	// is refused. Balance requests may stack.
	if in.Kind == domain.RequestLink {
		pending, err := s.requestRepo.HasPending(ctx, in.Kind, in.MerchantID, in.UserID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check pending: %w", err))
		}
		if pending {
			return nil, apperror.ErrDuplicatePending()
		}
	}

	if in.Kind.CarriesPin() {
		if err := s.gate.AuthorizeByPin(ctx, in.UserID, in.Pin); err != nil {
			return nil, err
		}
		sealed, err := s.encSvc.Encrypt(in.Pin)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt pin: %w", err))
		}
		req.PinCiphertext = &sealed
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create request: %w", err))
	}

	s.notify.requestCreated(ctx, req)
	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("kind", string(req.Kind)).
		Str("merchant_id", req.MerchantID).
		Str("user_id", req.UserID).
		Msg("request created")

	return req, nil
}

func (s *RequestServiceImpl) ensureCounterparty(ctx context.Context, in ports.CreateRequestInput) error {
	if in.Kind.Initiator() == domain.PartyUser {
		merchant, err := s.merchantRepo.GetByID(ctx, in.MerchantID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("find merchant: %w", err))
		}
		if merchant == nil {
			return apperror.ErrNotFound("merchant")
		}
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return apperror.ErrNotFound("user")
	}
	return nil
}

// load fetches a request the actor may respond to.
func (s *RequestServiceImpl) load(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get request: %w", err))
	}
	if req == nil {
		return nil, apperror.ErrNotFound("request")
	}
	if req.IsTerminal() {
		return nil, apperror.ErrAlreadyResolved()
	}
	if !req.CanRespond(actor) {
		return nil, apperror.ErrNotAuthorized()
	}
	return req, nil
}

// Accept resolves a pending request and applies its ledger effect in one
// storage transaction. Of two concurrent accepts only one succeeds; the
// other sees AlreadyResolved.
func (s *RequestServiceImpl) Accept(ctx context.Context, actor domain.Actor, id uuid.UUID, pin string) (*ports.AcceptResult, error) {
	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Kind.CarriesPin() {
		if req.PinCiphertext == nil {
			return nil, apperror.ErrWrongPin()
		}
		stored, err := s.encSvc.Decrypt(*req.PinCiphertext)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt pin: %w", err))
		}
		if err := s.gate.VerifyStoredPin(ctx, req.UserID, stored); err != nil {
			return nil, err
		}
	} else if err := s.gate.AuthorizeByPin(ctx, req.UserID, pin); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := s.now()

	// The link row is locked before the request row on every path.
	link, err := s.linkRepo.GetForUpdate(ctx, dbTx, req.MerchantID, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock link: %w", err))
	}
	if req.Kind == domain.RequestLink && link != nil {
		return nil, apperror.ErrDuplicateLink()
	}
	if req.Kind != domain.RequestLink && link == nil {
		return nil, apperror.ErrLinkNotFound()
	}

	if err := s.resolve(ctx, dbTx, req, domain.RequestAccepted, now); err != nil {
		return nil, err
	}

	result := &ports.AcceptResult{Request: req}
	if req.Kind == domain.RequestLink {
		if result.Link, err = createLink(ctx, s.linkRepo, dbTx, req.MerchantID, req.UserID, now); err != nil {
			return nil, err
		}
	} else {
		reqID := req.ID
		result.Link, result.Transaction, err = s.ledger.apply(ctx, dbTx, link, domain.Mutation{
			MerchantID:  req.MerchantID,
			UserID:      req.UserID,
			Delta:       req.LedgerDelta(),
			Source:      req.LedgerSource(),
			RequestID:   &reqID,
			Description: req.Description,
		}, now)
		if err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.RequestResolved(string(req.Kind), string(req.Status))
	if result.Transaction != nil {
		s.metrics.LedgerMutation(string(result.Transaction.Source))
		s.notify.balanceChanged(ctx, result.Link, result.Transaction)
	}
	s.notify.requestResolved(ctx, req)

	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("kind", string(req.Kind)).
		Str("responder", actor.ID).
		Msg("request accepted")

	return result, nil
}

// Reject resolves a pending request without touching the ledger.
func (s *RequestServiceImpl) Reject(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Request, error) {
	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.resolve(ctx, dbTx, req, domain.RequestRejected, s.now()); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.RequestResolved(string(req.Kind), string(req.Status))
	s.notify.requestResolved(ctx, req)

	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("kind", string(req.Kind)).
		Str("responder", actor.ID).
		Msg("request rejected")

	return req, nil
}

// resolve performs the pending CAS and mirrors the result onto req.
func (s *RequestServiceImpl) resolve(ctx context.Context, dbTx pgx.Tx, req *domain.Request, status domain.RequestStatus, at time.Time) error {
	if err := s.requestRepo.Resolve(ctx, dbTx, req.ID, status, at); err != nil {
		if errors.Is(err, ports.ErrNotPending) {
			return apperror.ErrAlreadyResolved()
		}
		return apperror.InternalError(fmt.Errorf("resolve request: %w", err))
	}
	req.Status = status
	req.RespondedAt = &at
	return nil
}

// List returns the actor's requests, newest first.
func (s *RequestServiceImpl) List(ctx context.Context, actor domain.Actor, kind *domain.RequestKind, status *domain.RequestStatus) ([]domain.Request, error) {
	params := ports.RequestListParams{Kind: kind}
	switch actor.Type {
	case domain.PartyMerchant:
		params.MerchantID = actor.ID
	case domain.PartyUser:
		params.UserID = actor.ID
	default:
		return nil, apperror.ErrNotAuthorized()
	}
	if kind != nil && !kind.Valid() {
		return nil, apperror.Validation("unknown request kind")
	}
	if status != nil {
		if !status.Valid() {
			return nil, apperror.Validation("unknown request status")
		}
		params.Statuses = []domain.RequestStatus{*status}
	}

	requests, err := s.requestRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list requests: %w", err))
	}
	return requests, nil
}
