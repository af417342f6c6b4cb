package handler

import (
	"linkpay/internal/adapter/http/dto"
	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"
	"linkpay/pkg/apperror"
	"linkpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReminderHandler handles reminders and the user's notification feed.
type ReminderHandler struct {
	reminderSvc ports.ReminderService
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderSvc ports.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderSvc: reminderSvc}
}

// Create handles POST /api/v1/reminders.
func (h *ReminderHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.CreateReminderRequest
	if !bindJSON(c, &req) {
		return
	}
	linkID, err := uuid.Parse(req.LinkID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid link_id"))
		return
	}
	target, err := dto.ParseTargetDate(req.TargetDate)
	if err != nil {
		response.Error(c, apperror.Validation("target_date must be YYYY-MM-DD"))
		return
	}

	reminder, err := h.reminderSvc.Create(c.Request.Context(), actor, ports.CreateReminderInput{
		UserID:     req.UserID,
		LinkID:     linkID,
		Message:    req.Message,
		TargetDate: target,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, reminder.ID.String())
	response.Created(c, reminder)
}

// List handles GET /api/v1/reminders for the authoring merchant.
func (h *ReminderHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	reminders, err := h.reminderSvc.ListByMerchant(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	response.List(c, reminders, len(reminders))
}

// Dismiss handles POST /api/v1/reminders/:id/dismiss.
func (h *ReminderHandler) Dismiss(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	reminder, err := h.reminderSvc.Dismiss(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	setResource(c, id.String())
	response.OK(c, reminder)
}

// Feed handles GET /api/v1/notifications.
func (h *ReminderHandler) Feed(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	items, err := h.reminderSvc.Feed(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []domain.FeedItem{}
	}
	response.List(c, items, len(items))
}
