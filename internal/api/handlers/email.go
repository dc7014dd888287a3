package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/errors"
	"github.com/leadpilot/outreach-backend/pkg/resend"
	"github.com/leadpilot/outreach-backend/pkg/utils"
)

type emailSender interface {
	SendEmail(ctx context.Context, req resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type emailConfirmer interface {
	ConfirmSent(ctx context.Context, leadID string, reportedSentAt time.Time, actor auth.Principal, settings sending.BehaviorSettings, now time.Time) error
	MarkFailed(ctx context.Context, leadID, errorMessage string, actor auth.Principal) error
}

type claimReleaser interface {
	ReleaseClaim(ctx context.Context, leadID string)
}

// emailDispatcher walks a claimed batch through delivery and
// confirmation. clock is read once per lead so each confirmation
// reports the moment its own delivery completed, not the batch start.
type emailDispatcher struct {
	sender     emailSender
	confirmer  emailConfirmer
	claims     claimReleaser
	settings   sending.BehaviorSettings
	logger     *zap.Logger
	clock      func() time.Time
	subjectFor func(ctx context.Context, campaignID string) string
	onDelivery func(ctx context.Context, leadID, providerID string)
}

func (d *emailDispatcher) run(ctx context.Context, leads []sending.Lead) (sent, failed int) {
	for _, lead := range leads {
		subject := d.subjectFor(ctx, lead.CampaignID)

		resp, sendErr := d.sender.SendEmail(ctx, resend.SendEmailRequest{
			To:      []string{lead.Email},
			Subject: subject,
			Text:    lead.Message,
		})
		if sendErr != nil {
			d.logger.Warn("Email delivery failed",
				zap.String("lead_id", lead.ID),
				zap.String("email", utils.MaskEmail(lead.Email)),
				zap.Error(sendErr),
			)
			if err := d.confirmer.MarkFailed(ctx, lead.ID, utils.TruncateString(sendErr.Error(), 500), auth.ServicePrincipal()); err != nil {
				d.logger.Error("Failed to record email failure", zap.String("lead_id", lead.ID), zap.Error(err))
			}
			d.claims.ReleaseClaim(ctx, lead.ID)
			failed++
			continue
		}

		sentAt := d.clock()
		confirmErr := d.confirmer.ConfirmSent(ctx, lead.ID, sentAt, auth.ServicePrincipal(), d.settings, sentAt)
		if confirmErr != nil {
			// The email already left; a policy rejection here means the
			// window closed mid-batch. Record what happened either way.
			var rejection *sending.PolicyRejectionError
			if stderrors.As(confirmErr, &rejection) {
				d.logger.Warn("Window closed during email batch, stopping",
					zap.String("lead_id", lead.ID),
					zap.String("reason", rejection.Reason),
				)
				d.claims.ReleaseClaim(ctx, lead.ID)
				break
			}
			d.logger.Error("Failed to confirm email send",
				zap.String("lead_id", lead.ID),
				zap.Error(confirmErr),
			)
			d.claims.ReleaseClaim(ctx, lead.ID)
			failed++
			continue
		}

		d.onDelivery(ctx, lead.ID, resp.ID)
		d.claims.ReleaseClaim(ctx, lead.ID)
		sent++
	}

	return sent, failed
}

// DispatchEmailBatch pulls email-channel leads through the same policy
// gates as the WhatsApp queue, delivers them via Resend, and confirms
// each result. Used by the background dispatch loop and the manual
// trigger endpoint.
func (h *Handler) DispatchEmailBatch(ctx context.Context) (sent, failed int, err error) {
	if !h.resend.IsConfigured() {
		return 0, 0, nil
	}

	batch, err := h.queue.Fetch(ctx, sending.Scope{}, "email", h.settings, time.Now(), h.cfg.SendBatchLimit)
	if err != nil {
		return 0, 0, err
	}
	if batch.Message != "" || len(batch.Contacts) == 0 {
		return 0, 0, nil
	}

	dispatcher := &emailDispatcher{
		sender:     h.resend,
		confirmer:  h.confirmer,
		claims:     h.queue,
		settings:   h.settings,
		logger:     h.logger,
		clock:      time.Now,
		subjectFor: h.emailSubject,
		onDelivery: h.recordEmailDelivery,
	}
	sent, failed = dispatcher.run(ctx, batch.Contacts)
	return sent, failed, nil
}

func (h *Handler) emailSubject(ctx context.Context, campaignID string) string {
	if campaignID == "" {
		return "Quick question"
	}
	campaign, err := h.mongoClient.NewQuery("campaigns").
		Select("subject").
		Eq("id", campaignID).
		FindOne(ctx)
	if err != nil || campaign == nil {
		return "Quick question"
	}
	if subject := getString(campaign, "subject"); subject != "" {
		return subject
	}
	return "Quick question"
}

// recordEmailDelivery stores the provider id for webhook correlation
func (h *Handler) recordEmailDelivery(ctx context.Context, leadID, providerID string) {
	if _, err := h.mongoClient.NewQuery("leads").
		Eq("id", leadID).
		UpdateOne(ctx, map[string]interface{}{
			"email_provider_id": providerID,
			"email_status":      "dispatched",
		}); err != nil {
		h.logger.Warn("Failed to store email provider id", zap.Error(err))
	}
}

// GetLeadEmailStatus reconciles a lead's delivery status against the
// provider. Webhooks normally keep email_status current; this endpoint
// covers missed or delayed events by asking Resend directly.
func (h *Handler) GetLeadEmailStatus(c *gin.Context) {
	if !h.resend.IsConfigured() {
		errors.Forbidden(c, "email sending is not configured")
		return
	}

	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	doc, err := h.mongoClient.NewQuery("leads").
		Select("id", "assigned_sdr_id", "email_provider_id", "email_status").
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

	providerID := getString(doc, "email_provider_id")
	if providerID == "" {
		errors.NotFound(c, "lead has no dispatched email")
		return
	}

	status, err := h.resend.GetEmail(ctx, providerID)
	if err != nil {
		h.logger.Error("Email status lookup failed",
			zap.String("lead_id", id),
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
		errors.InternalError(c, err, h.logger)
		return
	}

	if status.LastEvent != "" && status.LastEvent != getString(doc, "email_status") {
		if _, err := h.mongoClient.NewQuery("leads").
			Eq("id", id).
			UpdateOne(ctx, map[string]interface{}{"email_status": status.LastEvent}); err != nil {
			h.logger.Warn("Failed to reconcile email status", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"lead_id":           id,
		"email_provider_id": providerID,
		"email_status":      status.LastEvent,
		"provider_created":  status.CreatedAt,
	})
}

// TriggerEmailDispatch runs one dispatch batch on demand
func (h *Handler) TriggerEmailDispatch(c *gin.Context) {
	if !h.resend.IsConfigured() {
		errors.Forbidden(c, "email sending is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	sent, failed, err := h.DispatchEmailBatch(ctx)
	if err != nil {
		h.logger.Error("Email dispatch batch failed", zap.Error(err))
		errors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sent":   sent,
		"failed": failed,
	})
}
