package sending

import (
	"context"
	"fmt"
	"time"
)

// SkippedStats breaks down why candidates were not selected
type SkippedStats struct {
	TooRecent    int `json:"too_recent"`
	Weekend      int `json:"weekend"`
	OutsideHours int `json:"outside_hours"`
}

// SelectResult is the outcome of one queue selection pass. BlockMessage
// is set when a coarse gate rejected the whole batch, so pollers can
// tell "not allowed right now" apart from "nothing to send".
type SelectResult struct {
	Ready        []Lead
	Skipped      SkippedStats
	BlockMessage string
}

// Selector filters candidate leads down to "ready to send now" by
// combining the working-window, recontact and quota policies.
type Selector struct {
	recontact *RecontactPolicy
	quota     *QuotaTracker
}

func NewSelector(recontact *RecontactPolicy, quota *QuotaTracker) *Selector {
	return &Selector{recontact: recontact, quota: quota}
}

// SelectReady runs the coarse day/hour gates before any per-lead work:
// when the whole batch is going to be rejected there is no reason to pay
// for N history lookups. Per-lead checks then run in stable input order
// and stop once batchLimit leads are ready, leaving the rest for the
// next poll.
func (s *Selector) SelectReady(ctx context.Context, candidates []Lead, settings BehaviorSettings, scope Scope, now time.Time, batchLimit int) (SelectResult, error) {
	if IsBlockedDay(settings, now) {
		details := DescribeWindow(settings, now)
		return SelectResult{
			Skipped:      SkippedStats{Weekend: len(candidates)},
			BlockMessage: fmt.Sprintf("Sending blocked: %s is not a working day", details.CurrentDay),
		}, nil
	}

	if !IsWithinWindow(settings, now) {
		details := DescribeWindow(settings, now)
		return SelectResult{
			Skipped:      SkippedStats{OutsideHours: len(candidates)},
			BlockMessage: fmt.Sprintf("Sending blocked: %s is outside working hours (%s)", details.CurrentTime, details.Window),
		}, nil
	}

	remaining, err := s.quota.Remaining(ctx, scope, settings, now)
	if err != nil {
		return SelectResult{}, err
	}
	if remaining == 0 {
		return SelectResult{
			BlockMessage: fmt.Sprintf("Sending blocked: daily limit of %d reached", settings.DailyLimit),
		}, nil
	}

	limit := batchLimit
	if limit <= 0 || int64(limit) > remaining {
		limit = int(remaining)
	}

	result := SelectResult{}
	seenPhone := make(map[string]bool)
	seenEmail := make(map[string]bool)
	for _, lead := range candidates {
		if len(result.Ready) >= limit {
			break
		}

		// Not yet due: skipped silently, not counted in stats
		if lead.ScheduledSendAt != nil && lead.ScheduledSendAt.After(now) {
			continue
		}

		// Two leads sharing a phone or email are the same person as far
		// as the recontact interval is concerned; only the first one in
		// the batch may go out, the rest wait for the interval.
		if (lead.Phone != "" && seenPhone[lead.Phone]) || (lead.Email != "" && seenEmail[lead.Email]) {
			result.Skipped.TooRecent++
			continue
		}

		decision, err := s.recontact.CanContact(ctx, lead.Identity(), settings.DaysSinceLastContact, now)
		if err != nil {
			return SelectResult{}, err
		}
		if !decision.Allowed {
			result.Skipped.TooRecent++
			continue
		}

		if lead.Phone != "" {
			seenPhone[lead.Phone] = true
		}
		if lead.Email != "" {
			seenEmail[lead.Email] = true
		}
		result.Ready = append(result.Ready, lead)
	}

	return result, nil
}
