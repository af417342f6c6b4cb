package handler

import (
	"linkpay/internal/adapter/http/dto"
	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequestHandler handles the balance, link and pay request workflows.
type RequestHandler struct {
	requestSvc ports.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestSvc ports.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// Create handles POST /api/v1/requests/:kind. The router names the segment
// :id because it shares a tree node with /requests/:id/accept.
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.CreateRequestBody
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.requestSvc.Create(c.Request.Context(), actor, ports.CreateRequestInput{
		Kind:        domain.RequestKind(c.Param("id")),
		MerchantID:  req.MerchantID,
		UserID:      req.UserID,
		Amount:      req.Amount,
		Pin:         req.Pin,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, created.ID.String())
	response.Created(c, created)
}

// List handles GET /api/v1/requests?kind=&status=.
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var kind *domain.RequestKind
	if v := c.Query("kind"); v != "" {
		k := domain.RequestKind(v)
		kind = &k
	}
	var status *domain.RequestStatus
	if v := c.Query("status"); v != "" {
		s := domain.RequestStatus(v)
		status = &s
	}

	requests, err := h.requestSvc.List(c.Request.Context(), actor, kind, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	if requests == nil {
		requests = []domain.Request{}
	}
	response.List(c, requests, len(requests))
}

// Accept handles POST /api/v1/requests/:id/accept.
func (h *RequestHandler) Accept(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AcceptRequestBody
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.requestSvc.Accept(c.Request.Context(), actor, id, req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, id.String())
	response.OK(c, gin.H{
		"request":     result.Request,
		"link":        result.Link,
		"transaction": result.Transaction,
	})
}

// Reject handles POST /api/v1/requests/:id/reject.
func (h *RequestHandler) Reject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rejected, err := h.requestSvc.Reject(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, id.String())
	response.OK(c, rejected)
}
