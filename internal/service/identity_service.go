package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	minPasswordLength = 8
	maxIDAttempts     = 5
)

// IdentityServiceImpl implements ports.IdentityService.
type IdentityServiceImpl struct {
	merchantRepo ports.MerchantRepository
	userRepo     ports.UserRepository
	linkRepo     ports.LinkRepository
	requestRepo  ports.RequestRepository
	reminderRepo ports.ReminderRepository
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
	verifier     ports.IdentityVerifier
	gate         ports.PinAuthorizer
	transactor   ports.DBTransactor
	log          zerolog.Logger
	now          func() time.Time
}

// NewIdentityService creates a new IdentityServiceImpl.
func NewIdentityService(
	merchantRepo ports.MerchantRepository,
	userRepo ports.UserRepository,
	linkRepo ports.LinkRepository,
	requestRepo ports.RequestRepository,
	reminderRepo ports.ReminderRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	verifier ports.IdentityVerifier,
	gate ports.PinAuthorizer,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		merchantRepo: merchantRepo,
		userRepo:     userRepo,
		linkRepo:     linkRepo,
		requestRepo:  requestRepo,
		reminderRepo: reminderRepo,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
		verifier:     verifier,
		gate:         gate,
		transactor:   transactor,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a profile-complete party and signs it in.
func (s *IdentityServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error) {
	if !req.Kind.Valid() {
		return nil, apperror.Validation("unknown party type")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if !domain.ValidPhone(req.Phone) {
		return nil, apperror.Validation("phone must be 10 digits")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if req.Kind == domain.PartyUser && !domain.ValidPin(req.Pin) {
		return nil, apperror.ErrInvalidPin()
	}

	taken, err := s.phoneTaken(ctx, req.Kind, req.Phone, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.ErrDuplicateCredential()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := s.now()
	phone := req.Phone
	var id string
	switch req.Kind {
	case domain.PartyMerchant:
		m := &domain.Merchant{
			StoreName:        name,
			OwnerName:        strings.TrimSpace(req.OwnerName),
			Phone:            &phone,
			StoreAddress:     strings.TrimSpace(req.Address),
			PasswordHash:     &passwordHash,
			ProfileCompleted: true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		id, err = createWithID(domain.PartyMerchant, func(id string) error {
			m.ID = id
			return s.merchantRepo.Create(ctx, m)
		})
	case domain.PartyUser:
		pinHash, herr := s.hashSvc.Hash(req.Pin)
		if herr != nil {
			return nil, apperror.InternalError(fmt.Errorf("hash pin: %w", herr))
		}
		u := &domain.User{
			UserName:         name,
			Phone:            &phone,
			PasswordHash:     &passwordHash,
			PinHash:          &pinHash,
			ProfileCompleted: true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		id, err = createWithID(domain.PartyUser, func(id string) error {
			u.ID = id
			return s.userRepo.Create(ctx, u)
		})
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("party_type", string(req.Kind)).Str("party_id", id).Msg("party registered")
	return s.issue(domain.Actor{Type: req.Kind, ID: id}, true, true)
}

// createWithID retries insert with a fresh party id while the generated
// id collides.
func createWithID(kind domain.PartyType, insert func(id string) error) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := domain.NewPartyID(kind)
		if err != nil {
			return "", apperror.InternalError(err)
		}
		err = insert(id)
		switch {
		case err == nil:
			return id, nil
		case errors.Is(err, ports.ErrDuplicateID):
			continue
		case errors.Is(err, ports.ErrAlreadyExists):
			return "", apperror.ErrDuplicateCredential()
		default:
			return "", apperror.InternalError(fmt.Errorf("create %s: %w", kind, err))
		}
	}
	return "", apperror.InternalError(fmt.Errorf("create %s: no free id after %d attempts", kind, maxIDAttempts))
}

// phoneTaken reports whether phone is bound to a party of kind other than exceptID.
func (s *IdentityServiceImpl) phoneTaken(ctx context.Context, kind domain.PartyType, phone, exceptID string) (bool, error) {
	var (
		id  string
		err error
	)
	if kind == domain.PartyMerchant {
		var m *domain.Merchant
		if m, err = s.merchantRepo.GetByPhone(ctx, phone); m != nil {
			id = m.ID
		}
	} else {
		var u *domain.User
		if u, err = s.userRepo.GetByPhone(ctx, phone); u != nil {
			id = u.ID
		}
	}
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("check phone: %w", err))
	}
	return id != "" && id != exceptID, nil
}

// Login authenticates by phone or party id plus password.
func (s *IdentityServiceImpl) Login(ctx context.Context, kind domain.PartyType, identifier, password string) (*ports.AuthResult, error) {
	if !kind.Valid() {
		return nil, apperror.Validation("unknown party type")
	}
	identifier = strings.TrimSpace(identifier)

	var (
		id           string
		passwordHash *string
		completed    bool
		err          error
	)
	if kind == domain.PartyMerchant {
		var m *domain.Merchant
		if domain.ValidPhone(identifier) {
			m, err = s.merchantRepo.GetByPhone(ctx, identifier)
		} else {
			m, err = s.merchantRepo.GetByID(ctx, identifier)
		}
		if m != nil {
			id, passwordHash, completed = m.ID, m.PasswordHash, m.ProfileCompleted
		}
	} else {
		var u *domain.User
		if domain.ValidPhone(identifier) {
			u, err = s.userRepo.GetByPhone(ctx, identifier)
		} else {
			u, err = s.userRepo.GetByID(ctx, identifier)
		}
		if u != nil {
			id, passwordHash, completed = u.ID, u.PasswordHash, u.ProfileCompleted
		}
	}
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find %s: %w", kind, err))
	}
	if id == "" || passwordHash == nil || *passwordHash == "" {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, *passwordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	return s.issue(domain.Actor{Type: kind, ID: id}, completed, false)
}

// OAuthLogin signs in with an identity-provider id token. The party is found
// by email, then by subject; otherwise an incomplete party is created.
func (s *IdentityServiceImpl) OAuthLogin(ctx context.Context, kind domain.PartyType, idToken string) (*ports.AuthResult, error) {
	if !kind.Valid() {
		return nil, apperror.Validation("unknown party type")
	}
	ident, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.log.Info().Err(err).Msg("id token rejected")
		return nil, apperror.ErrInvalidToken()
	}
	if ident.Email == "" {
		return nil, apperror.ErrInvalidToken()
	}

	if kind == domain.PartyMerchant {
		return s.oauthMerchant(ctx, ident)
	}
	return s.oauthUser(ctx, ident)
}

func (s *IdentityServiceImpl) oauthMerchant(ctx context.Context, ident *ports.VerifiedIdentity) (*ports.AuthResult, error) {
	m, err := s.merchantRepo.GetByGoogleEmail(ctx, ident.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find merchant by email: %w", err))
	}
	if m != nil && m.GoogleSubject == nil {
		m.GoogleSubject = &ident.Subject
		m.UpdatedAt = s.now()
		if err := s.merchantRepo.Update(ctx, m); err != nil {
			return nil, mapUpdateError("bind google subject", err)
		}
	}
	if m == nil {
		if m, err = s.merchantRepo.GetByGoogleSubject(ctx, ident.Subject); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("find merchant by subject: %w", err))
		}
	}
	if m != nil {
		return s.issue(domain.MerchantActor(m.ID), m.ProfileCompleted, false)
	}

	now := s.now()
	m = &domain.Merchant{
		OwnerName:     ident.Name,
		GoogleSubject: &ident.Subject,
		GoogleEmail:   &ident.Email,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := createWithID(domain.PartyMerchant, func(id string) error {
		m.ID = id
		return s.merchantRepo.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("party_id", id).Msg("merchant created via oauth")
	return s.issue(domain.MerchantActor(id), false, true)
}

func (s *IdentityServiceImpl) oauthUser(ctx context.Context, ident *ports.VerifiedIdentity) (*ports.AuthResult, error) {
	u, err := s.userRepo.GetByGoogleEmail(ctx, ident.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user by email: %w", err))
	}
	if u != nil && u.GoogleSubject == nil {
		u.GoogleSubject = &ident.Subject
		u.UpdatedAt = s.now()
		if err := s.userRepo.Update(ctx, u); err != nil {
			return nil, mapUpdateError("bind google subject", err)
		}
	}
	if u == nil {
		if u, err = s.userRepo.GetByGoogleSubject(ctx, ident.Subject); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("find user by subject: %w", err))
		}
	}
	if u != nil {
		return s.issue(domain.UserActor(u.ID), u.ProfileCompleted, false)
	}

	name := ident.Name
	if name == "" {
		name, _, _ = strings.Cut(ident.Email, "@")
	}
	now := s.now()
	u = &domain.User{
		UserName:      name,
		GoogleSubject: &ident.Subject,
		GoogleEmail:   &ident.Email,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := createWithID(domain.PartyUser, func(id string) error {
		u.ID = id
		return s.userRepo.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("party_id", id).Msg("user created via oauth")
	return s.issue(domain.UserActor(id), false, true)
}

func (s *IdentityServiceImpl) issue(actor domain.Actor, completed, created bool) (*ports.AuthResult, error) {
	token, expiresAt, err := s.tokenSvc.Generate(actor)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return &ports.AuthResult{
		Actor:            actor,
		Token:            token,
		ExpiresAt:        expiresAt,
		ProfileCompleted: completed,
		Created:          created,
	}, nil
}

func mapUpdateError(op string, err error) error {
	if errors.Is(err, ports.ErrAlreadyExists) {
		return apperror.ErrDuplicateCredential()
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}

// GetProfile returns the actor's own record.
func (s *IdentityServiceImpl) GetProfile(ctx context.Context, actor domain.Actor) (*ports.Profile, error) {
	switch actor.Type {
	case domain.PartyMerchant:
		m, err := s.loadMerchant(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return &ports.Profile{Merchant: m}, nil
	case domain.PartyUser:
		u, err := s.loadUser(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return &ports.Profile{User: u}, nil
	}
	return nil, apperror.ErrNotAuthorized()
}

func (s *IdentityServiceImpl) loadMerchant(ctx context.Context, id string) (*domain.Merchant, error) {
	m, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find merchant: %w", err))
	}
	if m == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return m, nil
}

func (s *IdentityServiceImpl) loadUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if u == nil {
		return nil, apperror.ErrNotFound("user")
	}
	return u, nil
}

// CompleteProfile fills the fields an OAuth signup left empty. A user must
// set a PIN here before any PIN-gated operation.
func (s *IdentityServiceImpl) CompleteProfile(ctx context.Context, actor domain.Actor, targetID string, req ports.CompleteProfileRequest) (*ports.Profile, error) {
	if actor.ID != targetID {
		return nil, apperror.ErrNotOwner()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.Phone != "" {
		if !domain.ValidPhone(req.Phone) {
			return nil, apperror.Validation("phone must be 10 digits")
		}
		taken, err := s.phoneTaken(ctx, actor.Type, req.Phone, actor.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.ErrDuplicateCredential()
		}
	}

	now := s.now()
	switch actor.Type {
	case domain.PartyMerchant:
		m, err := s.loadMerchant(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if m.ProfileCompleted {
			return nil, apperror.ErrProfileAlreadyComplete()
		}
		m.StoreName = name
		m.OwnerName = strings.TrimSpace(req.OwnerName)
		m.StoreAddress = strings.TrimSpace(req.Address)
		if req.Phone != "" {
			phone := req.Phone
			m.Phone = &phone
		}
		m.ProfileCompleted = true
		m.UpdatedAt = now
		if err := s.merchantRepo.Update(ctx, m); err != nil {
			return nil, mapUpdateError("update merchant", err)
		}
		return &ports.Profile{Merchant: m}, nil

	case domain.PartyUser:
		if !domain.ValidPin(req.Pin) {
			return nil, apperror.ErrInvalidPin()
		}
		u, err := s.loadUser(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if u.ProfileCompleted {
			return nil, apperror.ErrProfileAlreadyComplete()
		}
		pinHash, err := s.hashSvc.Hash(req.Pin)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("hash pin: %w", err))
		}
		u.UserName = name
		u.PinHash = &pinHash
		if req.Phone != "" {
			phone := req.Phone
			u.Phone = &phone
		}
		u.ProfileCompleted = true
		u.UpdatedAt = now
		if err := s.userRepo.Update(ctx, u); err != nil {
			return nil, mapUpdateError("update user", err)
		}
		return &ports.Profile{User: u}, nil
	}
	return nil, apperror.ErrNotAuthorized()
}

// UpdateProfile edits name, phone and, for merchants, owner and address.
// Completion state and the PIN are left untouched.
func (s *IdentityServiceImpl) UpdateProfile(ctx context.Context, actor domain.Actor, targetID string, req ports.UpdateProfileRequest) (*ports.Profile, error) {
	if actor.ID != targetID {
		return nil, apperror.ErrNotOwner()
	}
	if req.Name == nil && req.Phone == nil && req.OwnerName == nil && req.Address == nil {
		return nil, apperror.Validation("no fields to update")
	}

	var name string
	if req.Name != nil {
		if name = strings.TrimSpace(*req.Name); name == "" {
			return nil, apperror.Validation("name must not be empty")
		}
	}
	if req.Phone != nil {
		if !domain.ValidPhone(*req.Phone) {
			return nil, apperror.Validation("phone must be 10 digits")
		}
		taken, err := s.phoneTaken(ctx, actor.Type, *req.Phone, actor.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.ErrDuplicateCredential()
		}
	}

	switch actor.Type {
	case domain.PartyMerchant:
		m, err := s.loadMerchant(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if req.Name != nil {
			m.StoreName = name
		}
		if req.Phone != nil {
			phone := *req.Phone
			m.Phone = &phone
		}
		if req.OwnerName != nil {
			m.OwnerName = strings.TrimSpace(*req.OwnerName)
		}
		if req.Address != nil {
			m.StoreAddress = strings.TrimSpace(*req.Address)
		}
		m.UpdatedAt = s.now()
		if err := s.merchantRepo.Update(ctx, m); err != nil {
			return nil, mapUpdateError("update merchant", err)
		}
		return &ports.Profile{Merchant: m}, nil

	case domain.PartyUser:
		if req.OwnerName != nil || req.Address != nil {
			return nil, apperror.Validation("owner_name and address apply to merchants only")
		}
		u, err := s.loadUser(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if req.Name != nil {
			u.UserName = name
		}
		if req.Phone != nil {
			phone := *req.Phone
			u.Phone = &phone
		}
		u.UpdatedAt = s.now()
		if err := s.userRepo.Update(ctx, u); err != nil {
			return nil, mapUpdateError("update user", err)
		}
		return &ports.Profile{User: u}, nil
	}
	return nil, apperror.ErrNotAuthorized()
}

// CheckPhone reports which kind of account, if any, holds phone. Users are
// checked first.
func (s *IdentityServiceImpl) CheckPhone(ctx context.Context, phone string) (*ports.PhoneCheck, error) {
	if !domain.ValidPhone(phone) {
		return nil, apperror.Validation("phone must be 10 digits")
	}
	for _, kind := range []domain.PartyType{domain.PartyUser, domain.PartyMerchant} {
		taken, err := s.phoneTaken(ctx, kind, phone, "")
		if err != nil {
			return nil, err
		}
		if taken {
			return &ports.PhoneCheck{Exists: true, PartyType: kind}, nil
		}
	}
	return &ports.PhoneCheck{}, nil
}

// ChangePassword replaces the password. Accounts created through OAuth have
// no password yet; for them the old password is not checked.
func (s *IdentityServiceImpl) ChangePassword(ctx context.Context, actor domain.Actor, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	check := func(current *string) error {
		if current == nil || *current == "" {
			return nil
		}
		ok, err := s.hashSvc.Verify(oldPassword, *current)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("verify password: %w", err))
		}
		if !ok {
			return apperror.ErrInvalidCredentials()
		}
		return nil
	}

	switch actor.Type {
	case domain.PartyMerchant:
		m, err := s.loadMerchant(ctx, actor.ID)
		if err != nil {
			return err
		}
		if err := check(m.PasswordHash); err != nil {
			return err
		}
		hash, err := s.hashSvc.Hash(newPassword)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("hash password: %w", err))
		}
		m.PasswordHash = &hash
		m.UpdatedAt = s.now()
		if err := s.merchantRepo.Update(ctx, m); err != nil {
			return mapUpdateError("update merchant", err)
		}

	case domain.PartyUser:
		u, err := s.loadUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		if err := check(u.PasswordHash); err != nil {
			return err
		}
		hash, err := s.hashSvc.Hash(newPassword)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("hash password: %w", err))
		}
		u.PasswordHash = &hash
		u.UpdatedAt = s.now()
		if err := s.userRepo.Update(ctx, u); err != nil {
			return mapUpdateError("update user", err)
		}

	default:
		return apperror.ErrNotAuthorized()
	}

	s.log.Info().Str("party_id", actor.ID).Msg("password changed")
	return nil
}

// ChangePin replaces the user's PIN after the old one passes the gate.
func (s *IdentityServiceImpl) ChangePin(ctx context.Context, actor domain.Actor, oldPin, newPin string) error {
	if !actor.IsUser() {
		return apperror.ErrNotAuthorized()
	}
	if !domain.ValidPin(newPin) {
		return apperror.ErrInvalidPin()
	}
	if err := s.gate.AuthorizeByPin(ctx, actor.ID, oldPin); err != nil {
		return err
	}

	u, err := s.loadUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	hash, err := s.hashSvc.Hash(newPin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}
	u.PinHash = &hash
	u.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, u); err != nil {
		return mapUpdateError("update user", err)
	}

	s.log.Info().Str("user_id", actor.ID).Msg("pin changed")
	return nil
}

// LinkGoogle binds an identity-provider subject to the actor's account.
func (s *IdentityServiceImpl) LinkGoogle(ctx context.Context, actor domain.Actor, idToken string) error {
	ident, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.log.Info().Err(err).Msg("id token rejected")
		return apperror.ErrInvalidToken()
	}

	var email *string
	if ident.Email != "" {
		email = &ident.Email
	}

	switch actor.Type {
	case domain.PartyMerchant:
		other, err := s.merchantRepo.GetByGoogleSubject(ctx, ident.Subject)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("find merchant by subject: %w", err))
		}
		if other != nil {
			if other.ID == actor.ID {
				return nil
			}
			return apperror.ErrDuplicateCredential()
		}
		m, err := s.loadMerchant(ctx, actor.ID)
		if err != nil {
			return err
		}
		m.GoogleSubject = &ident.Subject
		m.GoogleEmail = email
		m.UpdatedAt = s.now()
		if err := s.merchantRepo.Update(ctx, m); err != nil {
			return mapUpdateError("update merchant", err)
		}

	case domain.PartyUser:
		other, err := s.userRepo.GetByGoogleSubject(ctx, ident.Subject)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("find user by subject: %w", err))
		}
		if other != nil {
			if other.ID == actor.ID {
				return nil
			}
			return apperror.ErrDuplicateCredential()
		}
		u, err := s.loadUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		u.GoogleSubject = &ident.Subject
		u.GoogleEmail = email
		u.UpdatedAt = s.now()
		if err := s.userRepo.Update(ctx, u); err != nil {
			return mapUpdateError("update user", err)
		}

	default:
		return apperror.ErrNotAuthorized()
	}
	return nil
}

// DeleteAccount removes a user whose links all hold a zero balance. Pending
// requests are rejected, active reminders dismissed and links deleted in the
// same storage transaction; ledger history is kept.
func (s *IdentityServiceImpl) DeleteAccount(ctx context.Context, actor domain.Actor) error {
	if !actor.IsUser() {
		return apperror.ErrNotAuthorized()
	}
	if _, err := s.loadUser(ctx, actor.ID); err != nil {
		return err
	}

	links, err := s.linkRepo.ListByUser(ctx, actor.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list links: %w", err))
	}
	sort.Slice(links, func(i, j int) bool { return links[i].MerchantID < links[j].MerchantID })

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var locked []*domain.Link
	for _, l := range links {
		link, err := s.linkRepo.GetForUpdate(ctx, dbTx, l.MerchantID, actor.ID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock link: %w", err))
		}
		if link == nil {
			continue
		}
		if !link.Balance.IsZero() {
			return apperror.ErrNonZeroBalance()
		}
		locked = append(locked, link)
	}

	now := s.now()
	rejected, err := s.requestRepo.RejectPendingByUser(ctx, dbTx, actor.ID, now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("reject pending requests: %w", err))
	}
	dismissed, err := s.reminderRepo.DismissAllByUser(ctx, dbTx, actor.ID, now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("dismiss reminders: %w", err))
	}
	for _, link := range locked {
		if err := s.linkRepo.Delete(ctx, dbTx, link.MerchantID, link.UserID); err != nil {
			return apperror.InternalError(fmt.Errorf("delete link: %w", err))
		}
	}
	if err := s.userRepo.Delete(ctx, dbTx, actor.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete user: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", actor.ID).
		Int("links", len(locked)).
		Int64("requests_rejected", rejected).
		Int64("reminders_dismissed", dismissed).
		Msg("account deleted")
	return nil
}
