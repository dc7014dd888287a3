package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/audit"
	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/middleware"
	"github.com/leadpilot/outreach-backend/pkg/utils"
	"github.com/leadpilot/outreach-backend/pkg/validation"
)

type ImportLeadsRequest struct {
	Leads      []LeadImport `json:"leads" binding:"required"`
	CampaignID string       `json:"campaign_id"`
}

type LeadImport struct {
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Company       string `json:"company"`
	Channel       string `json:"channel"`
	AssignedSDRID string `json:"assigned_sdr_id"`
}

type LeadResponse struct {
	ID              string `json:"id"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	Channel         string `json:"channel"`
	Message         string `json:"message"`
	Status          string `json:"status"`
	AssignedSDRID   string `json:"assigned_sdr_id"`
	CampaignID      string `json:"campaign_id"`
	ScheduledSendAt string `json:"scheduled_send_at"`
	SentAt          string `json:"sent_at"`
	ErrorMessage    string `json:"error_message"`
	CreatedAt       string `json:"created_at"`
}

func leadResponseFromDoc(doc map[string]interface{}) LeadResponse {
	return LeadResponse{
		ID:              getString(doc, "id"),
		Phone:           getString(doc, "phone"),
		Email:           getString(doc, "email"),
		Name:            getString(doc, "name"),
		Company:         getString(doc, "company"),
		Channel:         getString(doc, "channel"),
		Message:         getString(doc, "message"),
		Status:          getString(doc, "status"),
		AssignedSDRID:   getString(doc, "assigned_sdr_id"),
		CampaignID:      getString(doc, "campaign_id"),
		ScheduledSendAt: getString(doc, "scheduled_send_at"),
		SentAt:          getString(doc, "sent_at"),
		ErrorMessage:    getString(doc, "error_message"),
		CreatedAt:       getString(doc, "created_at"),
	}
}

// ImportLeads bulk-creates leads as pending. Phones are normalized to
// E.164; a lead needs at least a phone or an email to be importable.
func (h *Handler) ImportLeads(c *gin.Context) {
	var req ImportLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	var validLeads []map[string]interface{}
	var validationErrors []string

	for i, lead := range req.Leads {
		phone := ""
		if lead.Phone != "" {
			normalized, err := validation.NormalizeE164(lead.Phone)
			if err != nil {
				validationErrors = append(validationErrors, "lead "+strconv.Itoa(i)+": "+err.Error())
				continue
			}
			phone = normalized
		}
		if phone == "" && lead.Email == "" {
			validationErrors = append(validationErrors, "lead "+strconv.Itoa(i)+": phone or email required")
			continue
		}

		channel := lead.Channel
		if channel == "" {
			if phone != "" {
				channel = "whatsapp"
			} else {
				channel = "email"
			}
		}

		validLeads = append(validLeads, map[string]interface{}{
			"id":              uuid.New().String(),
			"phone":           phone,
			"email":           middleware.SanitizeString(lead.Email),
			"name":            middleware.SanitizeString(lead.Name),
			"company":         middleware.SanitizeString(lead.Company),
			"channel":         channel,
			"status":          sending.StatusPending,
			"assigned_sdr_id": lead.AssignedSDRID,
			"campaign_id":     req.CampaignID,
			"created_at":      time.Now().Format(time.RFC3339),
		})
	}

	if len(validLeads) == 0 {
		errors.BadRequest(c, "no valid leads to import")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	// Upsert by phone/email so re-imports refresh instead of duplicating
	for _, lead := range validLeads {
		filter := map[string]interface{}{"campaign_id": lead["campaign_id"]}
		if phone, _ := lead["phone"].(string); phone != "" {
			filter["phone"] = phone
		} else {
			filter["email"] = lead["email"]
		}

		_, err := h.mongoClient.NewQuery("leads").Upsert(ctx, filter, lead)
		if err != nil {
			h.logger.Error("Failed to upsert lead", zap.Error(err),
				zap.String("phone", utils.MaskPhoneNumber(getString(lead, "phone"))))
		}
	}

	audit.LogAction(h.mongoClient, c, audit.ActionImport, "leads", req.CampaignID, map[string]interface{}{
		"imported": len(validLeads),
		"rejected": len(validationErrors),
	})

	c.JSON(http.StatusCreated, gin.H{
		"imported": len(validLeads),
		"errors":   validationErrors,
	})
}

func (h *Handler) SearchLeads(c *gin.Context) {
	pagination := utils.ParsePagination(c)
	status := c.Query("status")
	campaignID := c.Query("campaignId")
	sdrID := c.Query("sdrId")

	// SDRs only see their own leads
	if p, ok := middlewarePrincipal(c); ok && !p.IsAdmin() && !p.IsService() {
		sdrID = p.UserID
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	query := h.mongoClient.NewQuery("leads").Select("*")
	if status != "" {
		query = query.Eq("status", status)
	}
	if campaignID != "" {
		query = query.Eq("campaign_id", campaignID)
	}
	if sdrID != "" {
		query = query.Eq("assigned_sdr_id", sdrID)
	}

	totalCount, countErr := query.Count(ctx)
	if countErr != nil {
		h.logger.Warn("Failed to get total count", zap.Error(countErr))
		totalCount = 0
	}

	query = query.Sort("created_at", true).
		Skip(int64((pagination.Page - 1) * pagination.Limit)).
		Limit(int64(pagination.Limit))

	docs, err := query.Find(ctx)
	if err != nil {
		h.logger.Error("Failed to search leads", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	leads := make([]LeadResponse, 0, len(docs))
	for _, doc := range docs {
		leads = append(leads, leadResponseFromDoc(doc))
	}

	c.JSON(http.StatusOK, utils.PaginatedResponse{
		Data:  leads,
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Total: totalCount,
		Count: len(leads),
	})
}

func (h *Handler) GetLead(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.mongoClient.NewQuery("leads").
		Select("*").
		Eq("id", id).
		FindOne(ctx)

	if err != nil || doc == nil {
		errors.NotFound(c, "lead not found")
		return
	}

	if p, ok := middlewarePrincipal(c); ok && !p.CanActFor(getString(doc, "assigned_sdr_id")) {
		errors.Forbidden(c, "lead belongs to another SDR")
		return
	}

	c.JSON(http.StatusOK, leadResponseFromDoc(doc))
}

func (h *Handler) UpdateLead(c *gin.Context) {
	id := c.Param("id")

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	// Send-pipeline fields transition only through the sender endpoints
	for _, reserved := range []string{"id", "status", "sent_at", "error_message", "created_at"} {
		delete(updates, reserved)
	}

	if phone, ok := updates["phone"].(string); ok {
		normalized, err := validation.NormalizeE164(phone)
		if err != nil {
			errors.BadRequest(c, err.Error())
			return
		}
		updates["phone"] = normalized
	}
	if name, ok := updates["name"].(string); ok {
		updates["name"] = middleware.SanitizeString(name)
	}
	if msg, ok := updates["message"].(string); ok {
		updates["message"] = middleware.SanitizeString(msg)
	}
	if scheduled, ok := updates["scheduled_send_at"].(string); ok && scheduled != "" {
		if _, err := time.Parse(time.RFC3339, scheduled); err != nil {
			errors.BadRequest(c, "scheduled_send_at must be an ISO 8601 timestamp")
			return
		}
	}
	updates["updated_at"] = time.Now().Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("leads").
		Eq("id", id).
		UpdateOne(ctx, updates)

	if err != nil {
		h.logger.Error("Failed to update lead", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "lead updated"})
}

func (h *Handler) DeleteLead(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("leads").
		Eq("id", id).
		DeleteOne(ctx)

	if err != nil {
		h.logger.Error("Failed to delete lead", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionDelete, "lead", id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "lead deleted"})
}
