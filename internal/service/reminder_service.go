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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FeedOptions bounds the notification feed.
type FeedOptions struct {
	Window time.Duration
	Limit  int
}

// DefaultFeedOptions is a 30-day window capped at 100 items.
var DefaultFeedOptions = FeedOptions{Window: 30 * 24 * time.Hour, Limit: 100}

// ReminderServiceImpl implements ports.ReminderService.
type ReminderServiceImpl struct {
	reminderRepo ports.ReminderRepository
	requestRepo  ports.RequestRepository
	linkRepo     ports.LinkRepository
	merchantRepo ports.MerchantRepository
	feed         FeedOptions
	notify       notifier
	log          zerolog.Logger
	now          func() time.Time
}

// NewReminderService creates a new ReminderServiceImpl.
func NewReminderService(
	reminderRepo ports.ReminderRepository,
	requestRepo ports.RequestRepository,
	linkRepo ports.LinkRepository,
	merchantRepo ports.MerchantRepository,
	feed FeedOptions,
	events ports.EventPublisher,
	log zerolog.Logger,
) *ReminderServiceImpl {
	if feed.Window <= 0 {
		feed.Window = DefaultFeedOptions.Window
	}
	if feed.Limit <= 0 {
		feed.Limit = DefaultFeedOptions.Limit
	}
	return &ReminderServiceImpl{
		reminderRepo: reminderRepo,
		requestRepo:  requestRepo,
		linkRepo:     linkRepo,
		merchantRepo: merchantRepo,
		feed:         feed,
		notify:       notifier{pub: events},
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create attaches a reminder to one of the merchant's links.
func (s *ReminderServiceImpl) Create(ctx context.Context, actor domain.Actor, in ports.CreateReminderInput) (*domain.Reminder, error) {
	if !actor.IsMerchant() {
		return nil, apperror.ErrNotAuthorized()
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, apperror.Validation("message is required")
	}
	if len(message) > domain.MaxReminderMessage {
		return nil, apperror.Validation(fmt.Sprintf("message must be at most %d characters", domain.MaxReminderMessage))
	}

	now := s.now()
	target := domain.Day(in.TargetDate)
	if target.Before(domain.Day(now)) {
		return nil, apperror.Validation("target date must not be in the past")
	}

	link, err := s.linkRepo.GetByID(ctx, in.LinkID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get link: %w", err))
	}
	if link == nil || link.UserID != in.UserID {
		return nil, apperror.ErrLinkNotFound()
	}
	if link.MerchantID != actor.ID {
		return nil, apperror.ErrNotAuthorized()
	}

	reminder := &domain.Reminder{
		ID:         uuid.New(),
		MerchantID: actor.ID,
		UserID:     in.UserID,
		LinkID:     link.ID,
		Message:    message,
		TargetDate: target,
		Status:     domain.ReminderActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.reminderRepo.Create(ctx, reminder); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create reminder: %w", err))
	}

	s.notify.reminder(ctx, domain.EventReminderCreated, reminder)
	s.log.Info().
		Str("reminder_id", reminder.ID.String()).
		Str("merchant_id", actor.ID).
		Str("user_id", in.UserID).
		Msg("reminder created")

	return reminder, nil
}

// Dismiss closes an active reminder on behalf of its merchant or user.
func (s *ReminderServiceImpl) Dismiss(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Reminder, error) {
	reminder, err := s.reminderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get reminder: %w", err))
	}
	if reminder == nil {
		return nil, apperror.ErrNotFound("reminder")
	}
	if !reminder.CanDismiss(actor) {
		return nil, apperror.ErrNotAuthorized()
	}

	now := s.now()
	if reminder.EffectiveStatus(now) != domain.ReminderActive {
		return nil, apperror.ErrAlreadyResolved()
	}

	if err := s.reminderRepo.Dismiss(ctx, id, actor.ID, now); err != nil {
		if errors.Is(err, ports.ErrNotPending) {
			return nil, apperror.ErrAlreadyResolved()
		}
		return nil, apperror.InternalError(fmt.Errorf("dismiss reminder: %w", err))
	}

	by := actor.ID
	reminder.Status = domain.ReminderDismissed
	reminder.DismissedBy = &by
	reminder.UpdatedAt = now

	s.notify.reminder(ctx, domain.EventReminderDismissed, reminder)
	return reminder, nil
}

// ListByMerchant returns the merchant's reminders with expiry applied.
func (s *ReminderServiceImpl) ListByMerchant(ctx context.Context, actor domain.Actor) ([]domain.Reminder, error) {
	if !actor.IsMerchant() {
		return nil, apperror.ErrNotAuthorized()
	}

	reminders, err := s.reminderRepo.ListByMerchant(ctx, actor.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list reminders: %w", err))
	}

	now := s.now()
	for i := range reminders {
		reminders[i].Status = reminders[i].EffectiveStatus(now)
	}
	return reminders, nil
}

// Feed merges the user's live reminders with their resolved pay requests
// inside the feed window, newest first. Nothing is stored; the feed is
// recomputed on every call.
func (s *ReminderServiceImpl) Feed(ctx context.Context, actor domain.Actor) ([]domain.FeedItem, error) {
	if !actor.IsUser() {
		return nil, apperror.ErrNotAuthorized()
	}

	now := s.now()
	reminders, err := s.reminderRepo.ListActiveByUser(ctx, actor.ID, domain.Day(now))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list reminders: %w", err))
	}

	since := now.Add(-s.feed.Window)
	payKind := domain.RequestPay
	requests, err := s.requestRepo.List(ctx, ports.RequestListParams{
		UserID:         actor.ID,
		Kind:           &payKind,
		Statuses:       []domain.RequestStatus{domain.RequestAccepted, domain.RequestRejected},
		RespondedSince: &since,
		ByResponded:    true,
		Limit:          s.feed.Limit,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pay requests: %w", err))
	}

	names := map[string]string{}
	storeName := func(merchantID string) string {
		if name, ok := names[merchantID]; ok {
			return name
		}
		name := ""
		m, err := s.merchantRepo.GetByID(ctx, merchantID)
		if err != nil {
			s.log.Warn().Err(err).Str("merchant_id", merchantID).Msg("feed: merchant lookup failed")
		} else if m != nil {
			name = m.StoreName
		}
		names[merchantID] = name
		return name
	}

	items := make([]domain.FeedItem, 0, len(reminders)+len(requests))
	for _, r := range reminders {
		if r.ExpiredAt(now) {
			continue
		}
		item := domain.ReminderFeedItem(r)
		item.StoreName = storeName(r.MerchantID)
		link, err := s.linkRepo.Get(ctx, r.MerchantID, r.UserID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get link: %w", err))
		}
		if link != nil {
			balance := link.Balance
			item.Balance = &balance
		}
		items = append(items, item)
	}
	for _, r := range requests {
		item := domain.PayRequestFeedItem(r)
		item.StoreName = storeName(r.MerchantID)
		items = append(items, item)
	}

	return domain.SortFeed(items, s.feed.Limit), nil
}
