package handler

import (
	"linkpay/internal/adapter/http/dto"
	"linkpay/internal/core/ports"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProfileHandler handles account maintenance for the authenticated party.
type ProfileHandler struct {
	identitySvc ports.IdentityService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(identitySvc ports.IdentityService) *ProfileHandler {
	return &ProfileHandler{identitySvc: identitySvc}
}

// Get handles GET /api/v1/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	profile, err := h.identitySvc.GetProfile(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// Complete handles POST /api/v1/profile/complete.
func (h *ProfileHandler) Complete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.CompleteProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	target := req.ID
	if target == "" {
		target = actor.ID
	}

	profile, err := h.identitySvc.CompleteProfile(c.Request.Context(), actor, target, ports.CompleteProfileRequest{
		Name:      req.Name,
		Phone:     req.Phone,
		Pin:       req.Pin,
		OwnerName: req.OwnerName,
		Address:   req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, target)
	response.OK(c, profile)
}

// Update handles PUT /api/v1/profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	target := req.ID
	if target == "" {
		target = actor.ID
	}

	profile, err := h.identitySvc.UpdateProfile(c.Request.Context(), actor, target, ports.UpdateProfileRequest{
		Name:      req.Name,
		Phone:     req.Phone,
		OwnerName: req.OwnerName,
		Address:   req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, target)
	response.OK(c, profile)
}

// ChangePassword handles PUT /api/v1/profile/password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.identitySvc.ChangePassword(c.Request.Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, actor.ID)
	response.OK(c, gin.H{"message": "Password updated"})
}

// ChangePin handles PUT /api/v1/profile/pin.
func (h *ProfileHandler) ChangePin(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.ChangePinRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.identitySvc.ChangePin(c.Request.Context(), actor, req.OldPin, req.NewPin); err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, actor.ID)
	response.OK(c, gin.H{"message": "PIN updated"})
}

// LinkGoogle handles POST /api/v1/profile/google.
func (h *ProfileHandler) LinkGoogle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.GoogleTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.identitySvc.LinkGoogle(c.Request.Context(), actor, req.IDToken); err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, actor.ID)
	response.OK(c, gin.H{"message": "Google account linked"})
}

// Delete handles DELETE /api/v1/profile.
func (h *ProfileHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.identitySvc.DeleteAccount(c.Request.Context(), actor); err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, actor.ID)
	response.OK(c, gin.H{"message": "Account deleted"})
}
