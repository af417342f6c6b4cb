package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RequestRepo implements ports.RequestRepository.
type RequestRepo struct{ s *Store }

// NewRequestRepo creates a memory-backed request repository.
func NewRequestRepo(s *Store) *RequestRepo { return &RequestRepo{s: s} }

func (r *RequestRepo) Create(_ context.Context, req *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[req.ID]; ok {
		return fmt.Errorf("insert request: %w", ports.ErrDuplicateID)
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r *RequestRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if req, ok := r.s.requests[id]; ok {
		return &req, nil
	}
	return nil, nil
}

// Resolve holds the request's row lock until the transaction ends, so a
// second responder waits and then observes the committed status.
func (r *RequestRepo) Resolve(_ context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus, at time.Time) error {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return err
	}
	if err := mt.lock("request:" + id.String()); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Status != domain.RequestPending {
		return ports.ErrNotPending
	}
	prev := req
	req.Status = status
	req.RespondedAt = &at
	r.s.requests[id] = req
	mt.onRollback(func() { r.s.requests[id] = prev })
	return nil
}

func (r *RequestRepo) HasPending(_ context.Context, kind domain.RequestKind, merchantID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.requests {
		if req.Kind == kind && req.MerchantID == merchantID && req.UserID == userID && req.Status == domain.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *RequestRepo) List(_ context.Context, params ports.RequestListParams) ([]domain.Request, error) {
	r.s.mu.RLock()
	var out []domain.Request
	for _, req := range r.s.requests {
		if matchRequest(&req, params) {
			out = append(out, req)
		}
	}
	r.s.mu.RUnlock()

	if params.ByResponded {
		sort.Slice(out, func(i, j int) bool { return respondedAfter(&out[i], &out[j]) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func respondedAfter(a, b *domain.Request) bool {
	switch {
	case a.RespondedAt == nil && b.RespondedAt == nil:
		return a.CreatedAt.After(b.CreatedAt)
	case a.RespondedAt == nil:
		return false
	case b.RespondedAt == nil:
		return true
	case !a.RespondedAt.Equal(*b.RespondedAt):
		return a.RespondedAt.After(*b.RespondedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func matchRequest(req *domain.Request, p ports.RequestListParams) bool {
	if p.MerchantID != "" && req.MerchantID != p.MerchantID {
		return false
	}
	if p.UserID != "" && req.UserID != p.UserID {
		return false
	}
	if p.Kind != nil && req.Kind != *p.Kind {
		return false
	}
	if len(p.Statuses) > 0 {
		found := false
		for _, s := range p.Statuses {
			if req.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if p.RespondedSince != nil && (req.RespondedAt == nil || req.RespondedAt.Before(*p.RespondedSince)) {
		return false
	}
	return true
}

func (r *RequestRepo) RejectPendingByUser(_ context.Context, tx pgx.Tx, userID string, at time.Time) (int64, error) {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, req := range r.s.requests {
		if req.UserID != userID || req.Status != domain.RequestPending {
			continue
		}
		prev := req
		req.Status = domain.RequestRejected
		req.RespondedAt = &at
		r.s.requests[id] = req
		mt.onRollback(func() { r.s.requests[prev.ID] = prev })
		n++
	}
	return n, nil
}

func (r *RequestRepo) PurgeResolved(_ context.Context, kinds []domain.RequestKind, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, req := range r.s.requests {
		if req.Status == domain.RequestPending || req.RespondedAt == nil || !req.RespondedAt.Before(before) {
			continue
		}
		for _, k := range kinds {
			if req.Kind == k {
				delete(r.s.requests, id)
				n++
				break
			}
		}
	}
	return n, nil
}

// ReminderRepo implements ports.ReminderRepository.
type ReminderRepo struct{ s *Store }

// NewReminderRepo creates a memory-backed reminder repository.
func NewReminderRepo(s *Store) *ReminderRepo { return &ReminderRepo{s: s} }

func (r *ReminderRepo) Create(_ context.Context, rem *domain.Reminder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reminders[rem.ID]; ok {
		return fmt.Errorf("insert reminder: %w", ports.ErrDuplicateID)
	}
	r.s.reminders[rem.ID] = *rem
	return nil
}

func (r *ReminderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Reminder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if rem, ok := r.s.reminders[id]; ok {
		return &rem, nil
	}
	return nil, nil
}

func (r *ReminderRepo) Dismiss(_ context.Context, id uuid.UUID, by string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rem, ok := r.s.reminders[id]
	if !ok || rem.Status != domain.ReminderActive {
		return ports.ErrNotPending
	}
	rem.Status = domain.ReminderDismissed
	rem.DismissedBy = &by
	rem.UpdatedAt = at
	r.s.reminders[id] = rem
	return nil
}

func (r *ReminderRepo) ListActiveByUser(_ context.Context, userID string, today time.Time) ([]domain.Reminder, error) {
	out := r.filter(func(rem *domain.Reminder) bool {
		return rem.UserID == userID && rem.Status == domain.ReminderActive && !rem.TargetDate.Before(today)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TargetDate.Equal(out[j].TargetDate) {
			return out[i].TargetDate.Before(out[j].TargetDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ReminderRepo) ListByMerchant(_ context.Context, merchantID string) ([]domain.Reminder, error) {
	out := r.filter(func(rem *domain.Reminder) bool { return rem.MerchantID == merchantID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ReminderRepo) ExpireBefore(_ context.Context, today time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for id, rem := range r.s.reminders {
		if rem.Status == domain.ReminderActive && rem.TargetDate.Before(today) {
			rem.Status = domain.ReminderExpired
			rem.UpdatedAt = now
			r.s.reminders[id] = rem
			n++
		}
	}
	return n, nil
}

func (r *ReminderRepo) DismissAllByUser(_ context.Context, tx pgx.Tx, userID string, at time.Time) (int64, error) {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, rem := range r.s.reminders {
		if rem.UserID != userID || rem.Status != domain.ReminderActive {
			continue
		}
		prev := rem
		rem.Status = domain.ReminderDismissed
		rem.DismissedBy = &userID
		rem.UpdatedAt = at
		r.s.reminders[id] = rem
		mt.onRollback(func() { r.s.reminders[prev.ID] = prev })
		n++
	}
	return n, nil
}

func (r *ReminderRepo) filter(match func(*domain.Reminder) bool) []domain.Reminder {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Reminder
	for _, rem := range r.s.reminders {
		if match(&rem) {
			out = append(out, rem)
		}
	}
	return out
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

// NewAuditRepo creates a memory-backed audit repository.
func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

// Entries returns a copy of the audit trail, oldest first.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AuditLog, len(r.s.audits))
	copy(out, r.s.audits)
	return out
}
