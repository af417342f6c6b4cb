package handler

import (
	"net/http"

	"linkpay/internal/adapter/http/dto"
	"linkpay/internal/adapter/http/middleware"
	"linkpay/internal/core/ports"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles the public login and registration endpoints.
type AuthHandler struct {
	identitySvc ports.IdentityService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identitySvc ports.IdentityService) *AuthHandler {
	return &AuthHandler{identitySvc: identitySvc}
}

// Register handles POST /api/v1/auth/:party/register.
func (h *AuthHandler) Register(c *gin.Context) {
	party, ok := partyParam(c)
	if !ok {
		return
	}
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.identitySvc.Register(c.Request.Context(), ports.RegisterRequest{
		Kind:      party,
		Name:      req.Name,
		Phone:     req.Phone,
		Password:  req.Password,
		Pin:       req.Pin,
		OwnerName: req.OwnerName,
		Address:   req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, result, http.StatusCreated)
}

// Login handles POST /api/v1/auth/:party/login.
func (h *AuthHandler) Login(c *gin.Context) {
	party, ok := partyParam(c)
	if !ok {
		return
	}
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.identitySvc.Login(c.Request.Context(), party, req.Identifier, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, result, http.StatusOK)
}

// Google handles POST /api/v1/auth/:party/google. A first sign-in creates
// an incomplete account and answers 201.
func (h *AuthHandler) Google(c *gin.Context) {
	party, ok := partyParam(c)
	if !ok {
		return
	}
	var req dto.GoogleTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.identitySvc.OAuthLogin(c.Request.Context(), party, req.IDToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.respond(c, result, status)
}

// CheckPhone handles POST /api/v1/check/phone.
func (h *AuthHandler) CheckPhone(c *gin.Context) {
	var req dto.CheckPhoneRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.identitySvc.CheckPhone(c.Request.Context(), req.Phone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *AuthHandler) respond(c *gin.Context, result *ports.AuthResult, status int) {
	// public routes have no session yet; expose the actor to the audit log
	c.Set(middleware.CtxActor, result.Actor)
	setResource(c, result.Actor.ID)

	body := dto.AuthResponse{
		Token:            result.Token,
		Expiry:           result.ExpiresAt.Unix(),
		PartyType:        result.Actor.Type,
		PartyID:          result.Actor.ID,
		ProfileCompleted: result.ProfileCompleted,
		Created:          result.Created,
	}
	if status == http.StatusCreated {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}

// HealthCheck handles GET /health, pinging every configured dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
