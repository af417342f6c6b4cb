package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// Actions are keyed on the matched route template, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		entry := &domain.AuditLog{
			ID:           uuid.New(),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			CreatedAt:    time.Now().UTC(),
		}
		if actor, ok := ActorFrom(c); ok {
			entry.ActorType = &actor.Type
			entry.ActorID = &actor.ID
		}

		details := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		}
		// merchant credits skip the user's PIN
		if action == domain.AuditActionAddBalance {
			details["pin_authorized"] = false
		}
		raw, _ := json.Marshal(details)
		entry.Details = string(raw)

		auditSvc.Log(c.Request.Context(), entry)
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch method {
	case http.MethodPost:
		switch route {
		case "/api/v1/auth/:party/register":
			return domain.AuditActionRegister, "party"
		case "/api/v1/auth/:party/login", "/api/v1/auth/:party/google":
			return domain.AuditActionLogin, "session"
		case "/api/v1/profile/complete":
			return domain.AuditActionCompleteProfile, "party"
		case "/api/v1/profile/google":
			return domain.AuditActionChangeSecret, "credential"
		case "/api/v1/links":
			return domain.AuditActionAddLink, "link"
		case "/api/v1/ledger/purchase":
			return domain.AuditActionPurchase, "transaction"
		case "/api/v1/ledger/add-balance":
			return domain.AuditActionAddBalance, "transaction"
		case "/api/v1/ledger/delink":
			return domain.AuditActionDelink, "link"
		case "/api/v1/requests/:id":
			return domain.AuditActionCreateRequest, "request"
		case "/api/v1/requests/:id/accept":
			return domain.AuditActionAcceptRequest, "request"
		case "/api/v1/requests/:id/reject":
			return domain.AuditActionRejectRequest, "request"
		case "/api/v1/reminders":
			return domain.AuditActionCreateReminder, "reminder"
		case "/api/v1/reminders/:id/dismiss":
			return domain.AuditActionDismissReminder, "reminder"
		}
	case http.MethodPut:
		switch route {
		case "/api/v1/profile/password", "/api/v1/profile/pin":
			return domain.AuditActionChangeSecret, "credential"
		}
	case http.MethodDelete:
		if route == "/api/v1/profile" {
			return domain.AuditActionDeleteAccount, "party"
		}
	}
	return "", ""
}
