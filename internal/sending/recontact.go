package sending

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RecontactResult carries the policy decision plus the evidence it was
// based on, for diagnostics and logging.
type RecontactResult struct {
	Allowed         bool
	LastContactedAt *time.Time
}

// RecontactPolicy decides whether a lead may be contacted again given
// the minimum interval since its last recorded contact.
//
// When failOpen is set, a history lookup error allows the contact with a
// logged warning instead of blocking it. Operators who prefer blocking
// on infra errors disable RECONTACT_FAIL_OPEN.
type RecontactPolicy struct {
	history  HistoryReader
	failOpen bool
	logger   *zap.Logger
}

func NewRecontactPolicy(history HistoryReader, failOpen bool, logger *zap.Logger) *RecontactPolicy {
	return &RecontactPolicy{
		history:  history,
		failOpen: failOpen,
		logger:   logger,
	}
}

// CanContact allows a lead with no prior history, and otherwise requires
// at least minDays elapsed since the last contact. The boundary is
// inclusive: exactly minDays elapsed counts as allowed.
func (p *RecontactPolicy) CanContact(ctx context.Context, identity Identity, minDays int, now time.Time) (RecontactResult, error) {
	last, err := p.history.LastContact(ctx, identity)
	if err != nil {
		if p.failOpen {
			p.logger.Warn("history lookup failed, allowing contact",
				zap.String("phone", identity.Phone),
				zap.Error(err),
			)
			return RecontactResult{Allowed: true}, nil
		}
		return RecontactResult{}, err
	}

	if last == nil {
		return RecontactResult{Allowed: true}, nil
	}

	elapsed := now.Sub(*last)
	required := time.Duration(minDays) * 24 * time.Hour

	return RecontactResult{
		Allowed:         elapsed >= required,
		LastContactedAt: last,
	}, nil
}
