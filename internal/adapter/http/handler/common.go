package handler

import (
	"strconv"

	"linkpay/internal/adapter/http/dto"
	"linkpay/internal/adapter/http/middleware"
	"linkpay/internal/core/domain"
	"linkpay/pkg/apperror"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentActor returns the authenticated caller or writes AUTH_003.
func currentActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return actor, ok
}

// bindJSON decodes and sanitizes the body, writing VAL_002 on failure.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(v)
	return true
}

func partyParam(c *gin.Context) (domain.PartyType, bool) {
	party := domain.PartyType(c.Param("party"))
	if !party.Valid() {
		response.Error(c, apperror.Validation("party must be merchant or user"))
		return "", false
	}
	return party, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.Error(c, apperror.Validation("limit must be a positive integer"))
		return 0, false
	}
	return n, true
}

func setResource(c *gin.Context, id string) {
	c.Set(middleware.CtxResourceID, id)
}
