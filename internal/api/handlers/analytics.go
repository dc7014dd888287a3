package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/errors"
)

var leadStatuses = []string{
	sending.StatusPending,
	sending.StatusQueued,
	sending.StatusSent,
	sending.StatusFailed,
}

// GetAnalyticsSummary reports lead counts by status plus today's send
// activity against the daily limit, scoped to the caller
func (h *Handler) GetAnalyticsSummary(c *gin.Context) {
	scope := h.senderScope(c)
	now := time.Now()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	byStatus := make(map[string]int64, len(leadStatuses))
	for _, status := range leadStatuses {
		query := h.mongoClient.NewQuery("leads").Eq("status", status)
		if scope.SDRID != "" {
			query = query.Eq("assigned_sdr_id", scope.SDRID)
		}
		if scope.CampaignID != "" {
			query = query.Eq("campaign_id", scope.CampaignID)
		}
		count, err := query.Count(ctx)
		if err != nil {
			h.logger.Error("Failed to count leads", zap.String("status", status), zap.Error(err))
			errors.InternalError(c, err, h.logger)
			return
		}
		byStatus[status] = count
	}

	sentToday, err := h.quota.CountSentToday(ctx, scope, h.settings, now)
	if err != nil {
		h.logger.Error("Failed to count today's sends", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	remaining := int64(h.settings.DailyLimit) - sentToday
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"leads_by_status": byStatus,
		"sent_today":      sentToday,
		"daily_limit":     h.settings.DailyLimit,
		"remaining_today": remaining,
	})
}

// GetCampaignAnalytics breaks lead progress down per campaign
func (h *Handler) GetCampaignAnalytics(c *gin.Context) {
	scope := h.senderScope(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	campaigns, err := h.mongoClient.NewQuery("campaigns").
		Select("id", "name", "channel", "status").
		Sort("created_at", false).
		Limit(50).
		Find(ctx)
	if err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}

	results := make([]gin.H, 0, len(campaigns))
	for _, campaign := range campaigns {
		campaignID := getString(campaign, "id")
		entry := gin.H{
			"id":      campaignID,
			"name":    getString(campaign, "name"),
			"channel": getString(campaign, "channel"),
			"status":  getString(campaign, "status"),
		}

		for _, status := range leadStatuses {
			query := h.mongoClient.NewQuery("leads").
				Eq("campaign_id", campaignID).
				Eq("status", status)
			if scope.SDRID != "" {
				query = query.Eq("assigned_sdr_id", scope.SDRID)
			}
			count, err := query.Count(ctx)
			if err != nil {
				errors.InternalError(c, err, h.logger)
				return
			}
			entry[status] = count
		}
		results = append(results, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"campaigns": results,
		"count":     len(results),
	})
}
