package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/audit"
	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/middleware"
	"github.com/leadpilot/outreach-backend/pkg/utils"
)

type CreateCampaignRequest struct {
	Name            string `json:"name" binding:"required"`
	Channel         string `json:"channel" binding:"required,oneof=whatsapp email"`
	MessageTemplate string `json:"message_template" binding:"required"`
	Subject         string `json:"subject"`
	Segment         string `json:"segment"`
}

type CampaignResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Channel         string `json:"channel"`
	MessageTemplate string `json:"message_template"`
	Subject         string `json:"subject"`
	Segment         string `json:"segment"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

func campaignFromDoc(doc map[string]interface{}) CampaignResponse {
	return CampaignResponse{
		ID:              getString(doc, "id"),
		Name:            getString(doc, "name"),
		Channel:         getString(doc, "channel"),
		MessageTemplate: getString(doc, "message_template"),
		Subject:         getString(doc, "subject"),
		Segment:         getString(doc, "segment"),
		Status:          getString(doc, "status"),
		CreatedAt:       getString(doc, "created_at"),
	}
}

func (h *Handler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	campaignID := uuid.New().String()
	doc := map[string]interface{}{
		"id":               campaignID,
		"name":             middleware.SanitizeString(req.Name),
		"channel":          req.Channel,
		"message_template": req.MessageTemplate,
		"subject":          middleware.SanitizeString(req.Subject),
		"segment":          middleware.SanitizeString(req.Segment),
		"status":           "active",
		"created_at":       time.Now().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.mongoClient.NewQuery("campaigns").Insert(ctx, doc); err != nil {
		h.logger.Error("Failed to create campaign", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionCreate, "campaign", campaignID, nil)

	c.JSON(http.StatusCreated, campaignFromDoc(doc))
}

func (h *Handler) ListCampaigns(c *gin.Context) {
	pagination := utils.ParsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	query := h.mongoClient.NewQuery("campaigns").Select("*")
	if status := c.Query("status"); status != "" {
		query = query.Eq("status", status)
	}

	total, _ := query.Count(ctx)

	docs, err := query.
		Sort("created_at", false).
		Skip(int64((pagination.Page - 1) * pagination.Limit)).
		Limit(int64(pagination.Limit)).
		Find(ctx)
	if err != nil {
		h.logger.Error("Failed to list campaigns", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	campaigns := make([]CampaignResponse, 0, len(docs))
	for _, doc := range docs {
		campaigns = append(campaigns, campaignFromDoc(doc))
	}

	c.JSON(http.StatusOK, utils.PaginatedResponse{
		Data:  campaigns,
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Total: total,
		Count: len(campaigns),
	})
}

func (h *Handler) GetCampaign(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.mongoClient.NewQuery("campaigns").
		Select("*").
		Eq("id", id).
		FindOne(ctx)
	if err != nil || doc == nil {
		errors.NotFound(c, "campaign not found")
		return
	}

	c.JSON(http.StatusOK, campaignFromDoc(doc))
}

func (h *Handler) UpdateCampaign(c *gin.Context) {
	id := c.Param("id")

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	delete(updates, "id")
	delete(updates, "created_at")
	if name, ok := updates["name"].(string); ok {
		updates["name"] = middleware.SanitizeString(name)
	}
	updates["updated_at"] = time.Now().Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.mongoClient.NewQuery("campaigns").Eq("id", id).UpdateOne(ctx, updates); err != nil {
		h.logger.Error("Failed to update campaign", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	audit.LogAction(h.mongoClient, c, audit.ActionUpdate, "campaign", id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "campaign updated"})
}

// SetCampaignStatus pauses or resumes a campaign. Paused campaigns keep
// their leads but the queue only serves active ones.
func (h *Handler) SetCampaignStatus(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required,oneof=active paused archived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.mongoClient.NewQuery("campaigns").
		Eq("id", id).
		UpdateOne(ctx, map[string]interface{}{
			"status":     req.Status,
			"updated_at": time.Now().Format(time.RFC3339),
		})
	if err != nil {
		h.logger.Error("Failed to set campaign status", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	action := audit.ActionResume
	if req.Status != "active" {
		action = audit.ActionPause
	}
	audit.LogAction(h.mongoClient, c, action, "campaign", id, map[string]interface{}{"status": req.Status})

	c.JSON(http.StatusOK, gin.H{"message": "campaign status updated", "status": req.Status})
}

func (h *Handler) DeleteCampaign(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if _, err := h.mongoClient.NewQuery("campaigns").Eq("id", id).DeleteOne(ctx); err != nil {
		h.logger.Error("Failed to delete campaign", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	// Orphaned leads are removed with the campaign
	if _, err := h.mongoClient.NewQuery("leads").Eq("campaign_id", id).Delete(ctx); err != nil {
		h.logger.Warn("Failed to delete campaign leads", zap.Error(err))
	}

	audit.LogAction(h.mongoClient, c, audit.ActionDelete, "campaign", id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "campaign deleted"})
}
