package domain

import "time"

// EventType names a realtime event pushed to live channels.
type EventType string

const (
	EventBalanceUpdated    EventType = "balance_updated"
	EventPaymentReceived   EventType = "payment_received"
	EventBalanceAdded      EventType = "balance_added"
	EventPaymentRequested  EventType = "payment_requested"
	EventRequestReceived   EventType = "request_received"
	EventRequestResolved   EventType = "request_resolved"
	EventReminderCreated   EventType = "reminder_created"
	EventReminderDismissed EventType = "reminder_dismissed"
)

// Event is addressed to exactly one party's live channel.
type Event struct {
	Type       EventType   `json:"event"`
	PartyType  PartyType   `json:"party_type"`
	PartyID    string      `json:"party_id"`
	Data       interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEvent builds an event addressed to the given party.
func NewEvent(t EventType, to Actor, data interface{}) Event {
	return Event{
		Type:       t,
		PartyType:  to.Type,
		PartyID:    to.ID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Recipient returns the addressed party.
func (e Event) Recipient() Actor {
	return Actor{Type: e.PartyType, ID: e.PartyID}
}
