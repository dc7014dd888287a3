package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{
		"api":      "healthy",
		"database": "unknown",
		"redis":    "unknown",
	}

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		services["redis"] = "unhealthy"
	} else {
		services["redis"] = "healthy"
	}

	if err := h.mongoClient.Ping(ctx); err != nil {
		services["database"] = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	if h.cfg.FeatureAI {
		if h.aiManager != nil {
			if provider := h.aiManager.GetAvailableProvider(); provider != nil {
				services["ai_provider"] = provider.Name()
			} else {
				services["ai_provider"] = "unavailable"
			}
		} else {
			services["ai_provider"] = "unavailable"
		}
	} else {
		services["ai"] = "disabled"
	}

	if h.resend.IsConfigured() {
		services["email"] = "configured"
	} else {
		services["email"] = "disabled"
	}
	if h.leadgen.IsConfigured() {
		services["leadgen"] = "configured"
	} else {
		services["leadgen"] = "disabled"
	}

	overallStatus := "healthy"
	for _, status := range services {
		if status == "unhealthy" {
			overallStatus = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().Format(time.RFC3339),
		Services:  services,
	})
}
