package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/audit"
	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/utils"
)

// SenderContact is the wire shape a sender poll receives
type SenderContact struct {
	ContactID string `json:"contactId"`
	Phone     string `json:"phone"`
	Name      string `json:"nome"`
	Company   string `json:"empresa"`
	Email     string `json:"email,omitempty"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
}

type SenderQueueResponse struct {
	Contacts []SenderContact `json:"contacts"`
	Count    int             `json:"count"`
	Total    int64           `json:"total"`
	Message  string          `json:"message,omitempty"`
}

type MarkSentRequest struct {
	ContactID string `json:"contactId" binding:"required"`
	SentAt    string `json:"sentAt" binding:"required"`
}

type MarkFailedRequest struct {
	ContactID string `json:"contactId" binding:"required"`
	Error     string `json:"error" binding:"required"`
}

// senderScope narrows queue and confirmation operations to the caller.
// SDR tokens see only their own leads; the desktop sender and admins may
// request a specific SDR's scope via query param.
func (h *Handler) senderScope(c *gin.Context) sending.Scope {
	p, _ := middlewarePrincipal(c)
	if !p.IsAdmin() && !p.IsService() {
		return sending.Scope{SDRID: p.UserID, CampaignID: c.Query("campaignId")}
	}
	return sending.Scope{SDRID: c.Query("sdrId"), CampaignID: c.Query("campaignId")}
}

// GetSenderQueue returns the next batch of leads cleared to send right
// now. When a coarse policy gate blocks the whole batch, the response is
// empty with an explanatory message and still a 200: pollers treat that
// as "wait", not as an error.
func (h *Handler) GetSenderQueue(c *gin.Context) {
	scope := h.senderScope(c)
	now := time.Now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := h.queue.Fetch(ctx, scope, "whatsapp", h.settings, now, h.cfg.SendBatchLimit)
	if err != nil {
		h.logger.Error("Failed to build sender queue", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	contacts := make([]SenderContact, 0, len(result.Contacts))
	for _, lead := range result.Contacts {
		contacts = append(contacts, SenderContact{
			ContactID: lead.ID,
			Phone:     lead.Phone,
			Name:      lead.Name,
			Company:   lead.Company,
			Email:     lead.Email,
			Channel:   lead.Channel,
			Message:   lead.Message,
		})
	}

	if result.Message != "" {
		h.logger.Info("Sender queue blocked by policy",
			zap.String("scope", scope.Key()),
			zap.String("reason", result.Message),
		)
	}

	c.JSON(http.StatusOK, SenderQueueResponse{
		Contacts: contacts,
		Count:    len(contacts),
		Total:    result.Total,
		Message:  result.Message,
	})
}

// MarkSent confirms a send reported by the external sender. Policy gates
// are re-checked against the server clock before anything commits.
func (h *Handler) MarkSent(c *gin.Context) {
	var req MarkSentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	sentAt, err := time.Parse(time.RFC3339, req.SentAt)
	if err != nil {
		errors.BadRequest(c, "sentAt must be an ISO 8601 timestamp")
		return
	}

	p, _ := middlewarePrincipal(c)
	now := time.Now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	err = h.confirmer.ConfirmSent(ctx, req.ContactID, sentAt, p, h.settings, now)
	if err != nil {
		h.respondConfirmError(c, req.ContactID, err)
		return
	}

	h.queue.ReleaseClaim(ctx, req.ContactID)

	audit.LogAction(h.mongoClient, c, audit.ActionMarkSent, "lead", req.ContactID, map[string]interface{}{
		"sent_at": sentAt.Format(time.RFC3339),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"contactId": req.ContactID,
		"status":    sending.StatusSent,
	})
}

// MarkFailed records a failed attempt. No policy gate, last write wins.
func (h *Handler) MarkFailed(c *gin.Context) {
	var req MarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	p, _ := middlewarePrincipal(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	err := h.confirmer.MarkFailed(ctx, req.ContactID, utils.TruncateString(req.Error, 500), p)
	if err != nil {
		h.respondConfirmError(c, req.ContactID, err)
		return
	}

	h.queue.ReleaseClaim(ctx, req.ContactID)

	audit.LogAction(h.mongoClient, c, audit.ActionMarkFailed, "lead", req.ContactID, map[string]interface{}{
		"error": req.Error,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"contactId": req.ContactID,
		"status":    sending.StatusFailed,
	})
}

func (h *Handler) respondConfirmError(c *gin.Context, contactID string, err error) {
	var rejection *sending.PolicyRejectionError

	switch {
	case stderrors.Is(err, sending.ErrNotFound):
		errors.NotFound(c, "contact not found")
	case stderrors.Is(err, sending.ErrForbiddenScope):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Contact not assigned to this SDR",
			"message": "this contact belongs to another SDR's queue",
		})
	case stderrors.As(err, &rejection):
		c.JSON(http.StatusForbidden, gin.H{
			"error":       rejection.Reason,
			"message":     rejection.Error(),
			"currentDay":  rejection.Details.CurrentDay,
			"currentTime": rejection.Details.CurrentTime,
			"window":      rejection.Details.Window,
		})
	case stderrors.Is(err, sending.ErrAlreadyProcessed):
		errors.Conflict(c, "contact already left the pending state")
	default:
		h.logger.Error("Send confirmation failed",
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
		errors.InternalError(c, err, h.logger)
	}
}
