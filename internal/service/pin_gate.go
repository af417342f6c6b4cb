package service

import (
	"context"
	"fmt"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"
	"linkpay/pkg/metrics"

	"github.com/rs/zerolog"
)

// PinGate implements ports.PinAuthorizer. Every money-moving or
// relationship-destroying operation passes through it.
type PinGate struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	attempts ports.PinAttemptLimiter // optional
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewPinGate creates a PIN gate. attempts may be nil to disable lockout.
func NewPinGate(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	attempts ports.PinAttemptLimiter,
	m *metrics.Metrics,
	log zerolog.Logger,
) *PinGate {
	return &PinGate{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		attempts: attempts,
		metrics:  m,
		log:      log,
	}
}

// AuthorizeByPin verifies pin against the user's stored PIN hash.
func (g *PinGate) AuthorizeByPin(ctx context.Context, userID string, pin string) error {
	return g.verify(ctx, userID, pin, true)
}

// VerifyStoredPin is used when a merchant accepts a request carrying the
// user's sealed PIN. The merchant can retry at will, so a mismatch (the
// user changed their PIN since) neither counts as a failure nor clears
// earlier ones.
func (g *PinGate) VerifyStoredPin(ctx context.Context, userID string, pin string) error {
	return g.verify(ctx, userID, pin, false)
}

func (g *PinGate) verify(ctx context.Context, userID string, pin string, track bool) error {
	if !domain.ValidPin(pin) {
		return apperror.ErrInvalidPin()
	}

	if g.attempts != nil {
		locked, err := g.attempts.Locked(ctx, userID)
		if err != nil {
			// fail open: the hash check below still applies
			g.log.Warn().Err(err).Str("user_id", userID).Msg("pin attempt lookup failed")
		} else if locked {
			return apperror.ErrPinLocked()
		}
	}

	user, err := g.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return apperror.ErrNotFound("user")
	}
	if !user.HasPin() {
		return apperror.ErrProfileIncomplete()
	}

	ok, err := g.hashSvc.Verify(pin, *user.PinHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}
	if !ok {
		if track {
			g.recordFailure(ctx, userID)
		} else {
			g.log.Info().Str("user_id", userID).Msg("stored pin no longer matches")
		}
		return apperror.ErrWrongPin()
	}

	if track && g.attempts != nil {
		if err := g.attempts.Reset(ctx, userID); err != nil {
			g.log.Warn().Err(err).Str("user_id", userID).Msg("failed to reset pin attempts")
		}
	}
	return nil
}

func (g *PinGate) recordFailure(ctx context.Context, userID string) {
	g.metrics.PinFailure()
	if g.attempts == nil {
		return
	}
	count, err := g.attempts.RecordFailure(ctx, userID)
	if err != nil {
		g.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record pin failure")
		return
	}
	g.log.Info().Str("user_id", userID).Int64("failures", count).Msg("wrong pin")
}
