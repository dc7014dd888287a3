package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/ai"
	"github.com/leadpilot/outreach-backend/pkg/errors"
)

type GenerateVariationsRequest struct {
	BaseMessage string `json:"base_message" binding:"required"`
	Channel     string `json:"channel" binding:"required,oneof=whatsapp email"`
	Count       int    `json:"count"`
	Tone        string `json:"tone"`
}

// GenerateVariations produces message rewrites for a campaign template
func (h *Handler) GenerateVariations(c *gin.Context) {
	if !h.cfg.FeatureAI {
		errors.Forbidden(c, "AI features are disabled")
		return
	}

	var req GenerateVariationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}
	if req.Count <= 0 || req.Count > 10 {
		req.Count = 3
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.cfg.AITimeoutMs)*time.Millisecond)
	defer cancel()

	resp, err := h.aiManager.GenerateVariations(ctx, &ai.VariationRequest{
		BaseMessage: req.BaseMessage,
		Channel:     req.Channel,
		Count:       req.Count,
		Tone:        req.Tone,
	})
	if err != nil {
		h.logger.Error("Variation generation failed", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type AssignMessagesRequest struct {
	CampaignID  string `json:"campaign_id" binding:"required"`
	Personalize bool   `json:"personalize"`
}

// AssignMessages fills the message payload of every pending lead in a
// campaign from its template, optionally AI-personalized per lead.
// Leads that already carry a message are left alone.
func (h *Handler) AssignMessages(c *gin.Context) {
	var req AssignMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	campaign, err := h.mongoClient.NewQuery("campaigns").
		Select("id", "message_template", "segment").
		Eq("id", req.CampaignID).
		FindOne(ctx)
	if err != nil || campaign == nil {
		errors.NotFound(c, "campaign not found")
		return
	}
	template := getString(campaign, "message_template")

	leads, err := h.mongoClient.NewQuery("leads").
		Select("*").
		Eq("campaign_id", req.CampaignID).
		Eq("status", "pending").
		Find(ctx)
	if err != nil {
		h.logger.Error("Failed to load campaign leads", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	assigned := 0
	for _, doc := range leads {
		if getString(doc, "message") != "" {
			continue
		}

		message := template
		if req.Personalize && h.cfg.FeatureAI {
			personalized, err := h.aiManager.PersonalizeMessage(ctx, &ai.PersonalizeRequest{
				Template: template,
				LeadName: getString(doc, "name"),
				Company:  getString(doc, "company"),
				Segment:  getString(campaign, "segment"),
			})
			if err != nil {
				h.logger.Warn("Personalization failed, using template",
					zap.String("lead_id", getString(doc, "id")),
					zap.Error(err),
				)
			} else {
				message = personalized
			}
		}

		_, err := h.mongoClient.NewQuery("leads").
			Eq("id", getString(doc, "id")).
			UpdateOne(ctx, map[string]interface{}{
				"message":    message,
				"updated_at": time.Now().Format(time.RFC3339),
			})
		if err != nil {
			h.logger.Error("Failed to assign message", zap.Error(err))
			continue
		}
		assigned++
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign_id": req.CampaignID,
		"assigned":    assigned,
	})
}
