package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/webhook"
)

const webhookBodyLimit = 1 << 20 // 1MB

type resendEvent struct {
	Type string `json:"type"`
	Data struct {
		EmailID string   `json:"email_id"`
		To      []string `json:"to"`
	} `json:"data"`
}

// statuses worth persisting from Resend delivery events
var resendEventStatus = map[string]string{
	"email.sent":             "sent",
	"email.delivered":        "delivered",
	"email.delivery_delayed": "delayed",
	"email.bounced":          "bounced",
	"email.complained":       "complained",
	"email.opened":           "opened",
	"email.clicked":          "clicked",
}

// ResendWebhook receives delivery events from Resend. Signature is the
// Svix scheme (svix-id / svix-timestamp / svix-signature headers over
// the raw body). Events are deduplicated by message id in Redis.
func (h *Handler) ResendWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		errors.BadRequest(c, "failed to read request body")
		return
	}

	msgID := c.GetHeader("svix-id")
	timestamp := c.GetHeader("svix-timestamp")
	signature := c.GetHeader("svix-signature")

	if err := webhook.VerifyResendSignature(h.cfg.ResendWebhookSecret, msgID, timestamp, signature, body); err != nil {
		h.logger.Warn("Rejected webhook with bad signature",
			zap.String("svix_id", msgID),
			zap.Error(err),
		)
		errors.Unauthorized(c, "invalid webhook signature")
		return
	}

	var event resendEvent
	if err := json.Unmarshal(body, &event); err != nil {
		errors.BadRequest(c, "invalid webhook payload")
		return
	}

	status, known := resendEventStatus[event.Type]
	if !known || event.Data.EmailID == "" {
		// Acknowledge unknown event types so Resend stops retrying
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if msgID != "" && h.redisClient != nil {
		set, err := h.redisClient.SetNX(ctx, "webhook:resend:"+msgID, "1", 24*time.Hour).Result()
		if err != nil {
			h.logger.Warn("Webhook dedup check failed", zap.Error(err))
		} else if !set {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	res, err := h.mongoClient.NewQuery("leads").
		Eq("email_provider_id", event.Data.EmailID).
		UpdateOne(ctx, map[string]interface{}{
			"email_status": status,
		})
	if err != nil {
		h.logger.Error("Failed to update lead from webhook",
			zap.String("email_id", event.Data.EmailID),
			zap.Error(err),
		)
		errors.InternalError(c, err, h.logger)
		return
	}
	if res.MatchedCount == 0 {
		h.logger.Debug("Webhook event for unknown email", zap.String("email_id", event.Data.EmailID))
	}

	// Hard failures also flip the lead itself so it shows up in reporting
	if status == "bounced" || status == "complained" {
		if _, err := h.mongoClient.NewQuery("leads").
			Eq("email_provider_id", event.Data.EmailID).
			UpdateOne(ctx, map[string]interface{}{
				"status":        "failed",
				"error_message": "email " + status,
			}); err != nil {
			h.logger.Warn("Failed to mark bounced lead", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
