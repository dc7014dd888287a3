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
	"github.com/leadpilot/outreach-backend/pkg/leadgen"
	"github.com/leadpilot/outreach-backend/pkg/validation"
)

// SearchCompanies proxies a prospect search to the lead generation
// service without persisting anything
func (h *Handler) SearchCompanies(c *gin.Context) {
	if !h.leadgen.IsConfigured() {
		errors.Forbidden(c, "lead generation service is not configured")
		return
	}

	minScore, _ := strconv.Atoi(c.Query("minScore"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	companies, err := h.leadgen.SearchCompanies(ctx, leadgen.SearchParams{
		Segment:  c.Query("segment"),
		City:     c.Query("city"),
		State:    c.Query("state"),
		MinScore: minScore,
		Limit:    limit,
	})
	if err != nil {
		h.logger.Error("Leadgen search failed", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"companies": companies,
		"count":     len(companies),
	})
}

// GetCompanyDetail fetches one prospect from the lead generation
// service, typically before deciding whether to import it
func (h *Handler) GetCompanyDetail(c *gin.Context) {
	if !h.leadgen.IsConfigured() {
		errors.Forbidden(c, "lead generation service is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	company, err := h.leadgen.GetCompany(ctx, c.Param("id"))
	if err != nil {
		h.logger.Error("Leadgen company lookup failed", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}
	if company == nil {
		errors.NotFound(c, "company not found")
		return
	}

	c.JSON(http.StatusOK, company)
}

type ImportCompaniesRequest struct {
	CampaignID    string `json:"campaign_id" binding:"required"`
	Segment       string `json:"segment"`
	City          string `json:"city"`
	State         string `json:"state"`
	MinScore      int    `json:"min_score"`
	Limit         int    `json:"limit"`
	AssignedSDRID string `json:"assigned_sdr_id"`
}

// ImportCompanies searches the lead generation service and turns the
// results into pending leads on a campaign. Companies without a usable
// phone or email are skipped.
func (h *Handler) ImportCompanies(c *gin.Context) {
	if !h.leadgen.IsConfigured() {
		errors.Forbidden(c, "lead generation service is not configured")
		return
	}

	var req ImportCompaniesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	campaign, err := h.mongoClient.NewQuery("campaigns").
		Select("id", "channel").
		Eq("id", req.CampaignID).
		FindOne(ctx)
	if err != nil || campaign == nil {
		errors.NotFound(c, "campaign not found")
		return
	}

	companies, err := h.leadgen.SearchCompanies(ctx, leadgen.SearchParams{
		Segment:  req.Segment,
		City:     req.City,
		State:    req.State,
		MinScore: req.MinScore,
		Limit:    req.Limit,
	})
	if err != nil {
		h.logger.Error("Leadgen search failed", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	imported := 0
	skipped := 0
	for _, company := range companies {
		phone := ""
		if company.Phone != "" {
			if normalized, err := validation.NormalizeE164(company.Phone); err == nil {
				phone = normalized
			}
		}
		if phone == "" && company.Email == "" {
			skipped++
			continue
		}

		channel := "whatsapp"
		if phone == "" {
			channel = "email"
		}

		lead := map[string]interface{}{
			"id":              uuid.New().String(),
			"phone":           phone,
			"email":           company.Email,
			"name":            company.Name,
			"company":         company.Name,
			"channel":         channel,
			"status":          sending.StatusPending,
			"assigned_sdr_id": req.AssignedSDRID,
			"campaign_id":     req.CampaignID,
			"source":          "leadgen:" + company.ID,
			"created_at":      time.Now().Format(time.RFC3339),
		}

		filter := map[string]interface{}{"campaign_id": req.CampaignID}
		if phone != "" {
			filter["phone"] = phone
		} else {
			filter["email"] = company.Email
		}

		if _, err := h.mongoClient.NewQuery("leads").Upsert(ctx, filter, lead); err != nil {
			h.logger.Error("Failed to upsert imported company", zap.Error(err),
				zap.String("company_id", company.ID))
			skipped++
			continue
		}
		imported++
	}

	audit.LogAction(h.mongoClient, c, audit.ActionImport, "leads", req.CampaignID, map[string]interface{}{
		"source":   "leadgen",
		"imported": imported,
		"skipped":  skipped,
	})

	c.JSON(http.StatusCreated, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}
