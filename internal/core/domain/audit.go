package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister        AuditAction = "REGISTER"
	AuditActionLogin           AuditAction = "LOGIN"
	AuditActionCompleteProfile AuditAction = "COMPLETE_PROFILE"
	AuditActionChangeSecret    AuditAction = "CHANGE_SECRET"
	AuditActionDeleteAccount   AuditAction = "DELETE_ACCOUNT"
	AuditActionPurchase        AuditAction = "PURCHASE"
	AuditActionAddBalance      AuditAction = "ADD_BALANCE"
	AuditActionAddLink         AuditAction = "ADD_LINK"
	AuditActionDelink          AuditAction = "DELINK"
	AuditActionCreateRequest   AuditAction = "CREATE_REQUEST"
	AuditActionAcceptRequest   AuditAction = "ACCEPT_REQUEST"
	AuditActionRejectRequest   AuditAction = "REJECT_REQUEST"
	AuditActionCreateReminder  AuditAction = "CREATE_REMINDER"
	AuditActionDismissReminder AuditAction = "DISMISS_REMINDER"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorType    *PartyType  `json:"actor_type,omitempty"`
	ActorID      *string     `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
