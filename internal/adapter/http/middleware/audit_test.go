package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_AcceptRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	done := make(chan *domain.AuditLog, 1)
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) {
			done <- entry
		},
	)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/requests/:id/accept", func(c *gin.Context) {
		c.Set(CtxActor, domain.MerchantActor("MR00AA11"))
		c.Set(CtxResourceID, c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/requests/abc/accept", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case entry := <-done:
		assert.Equal(t, domain.AuditActionAcceptRequest, entry.Action)
		assert.Equal(t, "request", entry.ResourceType)
		assert.Equal(t, "abc", entry.ResourceID)
		require.NotNil(t, entry.ActorType)
		assert.Equal(t, domain.PartyMerchant, *entry.ActorType)
		assert.Equal(t, "MR00AA11", *entry.ActorID)
	case <-time.After(time.Second):
		t.Fatal("audit not called")
	}
}

func TestAuditLog_AddBalanceFlagsMissingPin(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	done := make(chan *domain.AuditLog, 1)
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) {
			done <- entry
		},
	)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/ledger/add-balance", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ledger/add-balance", nil))

	entry := <-done
	assert.Equal(t, domain.AuditActionAddBalance, entry.Action)
	assert.Nil(t, entry.ActorID)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entry.Details), &details))
	assert.Equal(t, false, details["pin_authorized"])
}

func TestAuditLog_SkipsGET(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/links", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/links", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsFailedRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/ledger/purchase", func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong pin"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ledger/purchase", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMapRouteToAction(t *testing.T) {
	tests := []struct {
		route    string
		method   string
		action   domain.AuditAction
		resource string
	}{
		{"/api/v1/auth/:party/register", "POST", domain.AuditActionRegister, "party"},
		{"/api/v1/auth/:party/login", "POST", domain.AuditActionLogin, "session"},
		{"/api/v1/auth/:party/google", "POST", domain.AuditActionLogin, "session"},
		{"/api/v1/profile/complete", "POST", domain.AuditActionCompleteProfile, "party"},
		{"/api/v1/profile/password", "PUT", domain.AuditActionChangeSecret, "credential"},
		{"/api/v1/profile/pin", "PUT", domain.AuditActionChangeSecret, "credential"},
		{"/api/v1/profile/google", "POST", domain.AuditActionChangeSecret, "credential"},
		{"/api/v1/profile", "DELETE", domain.AuditActionDeleteAccount, "party"},
		{"/api/v1/links", "POST", domain.AuditActionAddLink, "link"},
		{"/api/v1/ledger/purchase", "POST", domain.AuditActionPurchase, "transaction"},
		{"/api/v1/ledger/add-balance", "POST", domain.AuditActionAddBalance, "transaction"},
		{"/api/v1/ledger/delink", "POST", domain.AuditActionDelink, "link"},
		{"/api/v1/requests/:id", "POST", domain.AuditActionCreateRequest, "request"},
		{"/api/v1/requests/:id/reject", "POST", domain.AuditActionRejectRequest, "request"},
		{"/api/v1/reminders", "POST", domain.AuditActionCreateReminder, "reminder"},
		{"/api/v1/reminders/:id/dismiss", "POST", domain.AuditActionDismissReminder, "reminder"},
		{"/api/v1/profile", "POST", "", ""},
		{"/unknown", "POST", "", ""},
	}

	for _, tc := range tests {
		action, resource := mapRouteToAction(tc.route, tc.method)
		assert.Equal(t, tc.action, action, "route=%s method=%s", tc.route, tc.method)
		assert.Equal(t, tc.resource, resource, "route=%s method=%s", tc.route, tc.method)
	}
}
