package sending

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/auth"
)

// leadTransitioner is the slice of LeadStore the confirmer needs
type leadTransitioner interface {
	GetByID(ctx context.Context, id string) (*Lead, error)
	CompleteSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	CompleteFailed(ctx context.Context, id, errorMessage string) error
}

type historyAppender interface {
	Append(ctx context.Context, rec HistoryRecord) error
}

type controlRecorder interface {
	RecordSend(ctx context.Context, scope Scope, settings BehaviorSettings, sentAt time.Time) error
}

// Confirmer commits send outcomes reported by external senders.
//
// The queue was computed at poll time; the sender may act much later.
// ConfirmSent therefore re-validates the working window against the
// server's current clock, never the caller-supplied sentAt, so a delayed
// or skewed client cannot record a send outside policy windows.
type Confirmer struct {
	leads   leadTransitioner
	history historyAppender
	control controlRecorder
	quota   *QuotaTracker
	logger  *zap.Logger
}

func NewConfirmer(leads leadTransitioner, history historyAppender, control controlRecorder, quota *QuotaTracker, logger *zap.Logger) *Confirmer {
	return &Confirmer{
		leads:   leads,
		history: history,
		control: control,
		quota:   quota,
		logger:  logger,
	}
}

// ConfirmSent transitions a lead to sent. now is the server clock at the
// moment the confirmation arrived; reportedSentAt is what gets recorded
// as the send time.
//
// Returns ErrNotFound, ErrForbiddenScope, *PolicyRejectionError,
// ErrAlreadyProcessed, or an infra error.
func (c *Confirmer) ConfirmSent(ctx context.Context, leadID string, reportedSentAt time.Time, actor auth.Principal, settings BehaviorSettings, now time.Time) error {
	lead, err := c.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead == nil {
		return ErrNotFound
	}

	if lead.AssignedSDRID != "" && !actor.CanActFor(lead.AssignedSDRID) {
		return ErrForbiddenScope
	}

	if IsBlockedDay(settings, now) {
		return &PolicyRejectionError{Reason: ReasonWeekend, Details: DescribeWindow(settings, now)}
	}
	if !IsWithinWindow(settings, now) {
		return &PolicyRejectionError{Reason: ReasonOutsideHours, Details: DescribeWindow(settings, now)}
	}

	scope := Scope{SDRID: lead.AssignedSDRID, CampaignID: lead.CampaignID}
	remaining, err := c.quota.Remaining(ctx, scope, settings, now)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return &PolicyRejectionError{Reason: ReasonQuotaExceeded, Details: DescribeWindow(settings, now)}
	}

	if reportedSentAt.IsZero() {
		reportedSentAt = now
	}

	ok, err := c.leads.CompleteSent(ctx, leadID, reportedSentAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyProcessed
	}

	channel := lead.Channel
	if channel == "" {
		channel = "whatsapp"
	}

	if err := c.history.Append(ctx, HistoryRecord{
		Phone:      lead.Phone,
		Email:      lead.Email,
		Channel:    channel,
		CampaignID: lead.CampaignID,
		SDRID:      lead.AssignedSDRID,
		Outcome:    "sent",
		Timestamp:  reportedSentAt,
	}); err != nil {
		// The status transition already committed; a missing history row
		// under-counts quota, which is recoverable. Surface loudly.
		c.logger.Error("send confirmed but history append failed",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
		return err
	}

	if err := c.control.RecordSend(ctx, scope, settings, reportedSentAt); err != nil {
		c.logger.Warn("failed to update control state after send",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}

	return nil
}

// MarkFailed records a failed send attempt. No policy gate: failures are
// always acceptable to record, and repeated calls are last-write-wins.
func (c *Confirmer) MarkFailed(ctx context.Context, leadID, errorMessage string, actor auth.Principal) error {
	lead, err := c.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead == nil {
		return ErrNotFound
	}

	if lead.AssignedSDRID != "" && !actor.CanActFor(lead.AssignedSDRID) {
		return ErrForbiddenScope
	}

	return c.leads.CompleteFailed(ctx, leadID, errorMessage)
}
