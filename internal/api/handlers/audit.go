package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/utils"
)

type AuditLogResponse struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    string                 `json:"created_at"`
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	pagination := utils.ParsePagination(c)

	userID := c.Query("user_id")
	action := c.Query("action")
	resourceType := c.Query("resource_type")
	resourceID := c.Query("resource_id")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	query := h.mongoClient.NewQuery("audit_log").Select("*")

	if userID != "" {
		query = query.Eq("user_id", userID)
	}
	if action != "" {
		query = query.Eq("action", action)
	}
	if resourceType != "" {
		query = query.Eq("resource_type", resourceType)
	}
	if resourceID != "" {
		query = query.Eq("resource_id", resourceID)
	}

	if startDate != "" || endDate != "" {
		if startDate != "" {
			query = query.Gte("created_at", startDate)
		}
		if endDate != "" {
			query = query.Lte("created_at", endDate)
		}
	} else {
		// Default to last 30 days
		query = query.Gte("created_at", time.Now().AddDate(0, 0, -30).Format(time.RFC3339))
	}

	query = query.Sort("created_at", false).Limit(int64(pagination.Limit))

	logs, err := query.Find(ctx)
	if err != nil {
		h.logger.Error("Failed to fetch audit logs", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	auditLogs := make([]AuditLogResponse, 0, len(logs))
	for _, log := range logs {
		metadataStr, _ := log["metadata"].(string)
		var metadata map[string]interface{}
		json.Unmarshal([]byte(metadataStr), &metadata)

		auditLogs = append(auditLogs, AuditLogResponse{
			ID:           getString(log, "id"),
			UserID:       getString(log, "user_id"),
			Action:       getString(log, "action"),
			ResourceType: getString(log, "resource_type"),
			ResourceID:   getString(log, "resource_id"),
			Metadata:     metadata,
			CreatedAt:    getString(log, "created_at"),
		})
	}

	c.JSON(http.StatusOK, utils.PaginatedResponse{
		Data:  auditLogs,
		Page:  pagination.Page,
		Limit: pagination.Limit,
		Count: len(auditLogs),
	})
}
