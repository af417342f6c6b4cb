package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

const (
	ReminderActive    ReminderStatus = "active"
	ReminderDismissed ReminderStatus = "dismissed"
	ReminderExpired   ReminderStatus = "expired"
)

// MaxReminderMessage bounds the reminder text length.
const MaxReminderMessage = 500

// Reminder is a merchant-authored note attached to a link.
type Reminder struct {
	ID          uuid.UUID      `json:"id"`
	MerchantID  string         `json:"merchant_id"`
	UserID      string         `json:"user_id"`
	LinkID      uuid.UUID      `json:"link_id"`
	Message     string         `json:"message"`
	TargetDate  time.Time      `json:"target_date"` // UTC midnight
	Status      ReminderStatus `json:"status"`
	DismissedBy *string        `json:"dismissed_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpiredAt reports whether the reminder's target date is before the
// calendar day of now.
func (r *Reminder) ExpiredAt(now time.Time) bool {
	return Day(r.TargetDate).Before(Day(now))
}

// EffectiveStatus folds time-based expiry into the stored status.
func (r *Reminder) EffectiveStatus(now time.Time) ReminderStatus {
	if r.Status == ReminderActive && r.ExpiredAt(now) {
		return ReminderExpired
	}
	return r.Status
}

// CanDismiss reports whether the actor is the reminder's merchant or user.
func (r *Reminder) CanDismiss(a Actor) bool {
	return a.Is(PartyMerchant, r.MerchantID) || a.Is(PartyUser, r.UserID)
}
