package handler

import (
	"linkpay/internal/adapter/http/dto"
	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles links, balances and ledger mutations.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// ListLinks handles GET /api/v1/links.
func (h *LedgerHandler) ListLinks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	links, err := h.ledgerSvc.ListLinks(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if links == nil {
		links = []domain.LinkSummary{}
	}
	response.List(c, links, len(links))
}

// AddLink handles POST /api/v1/links.
func (h *LedgerHandler) AddLink(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.AddLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := h.ledgerSvc.AddLink(c.Request.Context(), actor, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, link.ID.String())
	response.Created(c, link)
}

// GetBalance handles GET /api/v1/links/:merchant_id/:user_id/balance.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	link, err := h.ledgerSvc.GetBalance(c.Request.Context(), actor, c.Param("merchant_id"), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"link_id":     link.ID,
		"merchant_id": link.MerchantID,
		"user_id":     link.UserID,
		"balance":     link.Balance,
		"overdrawn":   link.Overdrawn(),
	})
}

// ListLinkTransactions handles GET /api/v1/links/:merchant_id/:user_id/transactions.
func (h *LedgerHandler) ListLinkTransactions(c *gin.Context) {
	h.listTransactions(c, ports.TransactionListParams{
		MerchantID: c.Param("merchant_id"),
		UserID:     c.Param("user_id"),
	})
}

// ListTransactions handles GET /api/v1/transactions. The optional
// merchant_id or user_id query narrows to one counterparty.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	h.listTransactions(c, ports.TransactionListParams{
		MerchantID: c.Query("merchant_id"),
		UserID:     c.Query("user_id"),
	})
}

func (h *LedgerHandler) listTransactions(c *gin.Context, params ports.TransactionListParams) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	params.Limit = limit

	txns, err := h.ledgerSvc.ListTransactions(c.Request.Context(), actor, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	response.List(c, txns, len(txns))
}

// Purchase handles POST /api/v1/ledger/purchase.
func (h *LedgerHandler) Purchase(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledgerSvc.Purchase(c.Request.Context(), actor, ports.PurchaseRequest{
		MerchantID: req.MerchantID,
		UserID:     req.UserID,
		Amount:     req.Amount,
		Pin:        req.Pin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondMutation(c, result)
}

// AddBalance handles POST /api/v1/ledger/add-balance.
func (h *LedgerHandler) AddBalance(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.AddBalanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.ledgerSvc.AddBalance(c.Request.Context(), actor, req.UserID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondMutation(c, result)
}

// Delink handles POST /api/v1/ledger/delink.
func (h *LedgerHandler) Delink(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.DelinkRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.ledgerSvc.Delink(c.Request.Context(), actor, req.MerchantID, req.UserID, req.Pin); err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, req.MerchantID+":"+req.UserID)
	response.OK(c, gin.H{"message": "Link removed"})
}

func (h *LedgerHandler) respondMutation(c *gin.Context, result *ports.LedgerResult) {
	setResource(c, result.Transaction.ID.String())
	response.OK(c, dto.LedgerResponse{
		Link:        result.Link,
		Transaction: result.Transaction,
	})
}
