package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeedItemType distinguishes the sources merged into a feed.
type FeedItemType string

const (
	FeedReminder   FeedItemType = "reminder"
	FeedPayRequest FeedItemType = "pay_request"
)

// FeedItem is one entry of a user's notification feed. The feed is derived
// from reminders and resolved pay requests at read time.
type FeedItem struct {
	Type       FeedItemType     `json:"type"`
	ID         uuid.UUID        `json:"id"`
	MerchantID string           `json:"merchant_id"`
	StoreName  string           `json:"store_name,omitempty"`
	Message    string           `json:"message,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	Status     string           `json:"status"`
	TargetDate *time.Time       `json:"target_date,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// ReminderFeedItem projects a reminder into the feed.
func ReminderFeedItem(r Reminder) FeedItem {
	target := r.TargetDate
	return FeedItem{
		Type:       FeedReminder,
		ID:         r.ID,
		MerchantID: r.MerchantID,
		Message:    r.Message,
		Status:     string(r.Status),
		TargetDate: &target,
		OccurredAt: r.CreatedAt,
	}
}

// PayRequestFeedItem projects a resolved pay request into the feed.
func PayRequestFeedItem(r Request) FeedItem {
	occurred := r.CreatedAt
	if r.RespondedAt != nil {
		occurred = *r.RespondedAt
	}
	item := FeedItem{
		Type:       FeedPayRequest,
		ID:         r.ID,
		MerchantID: r.MerchantID,
		Amount:     r.Amount,
		Status:     string(r.Status),
		OccurredAt: occurred,
	}
	if r.Description != nil {
		item.Message = *r.Description
	}
	return item
}

// SortFeed orders items by event time, newest first, and truncates to limit
// when limit is positive.
func SortFeed(items []FeedItem, limit int) []FeedItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
