package sending

import (
	"context"
	"time"
)

// QuotaTracker counts messages sent in the current calendar day against
// the configured daily limit. Counts are derived from contact history at
// call time, so they survive restarts.
type QuotaTracker struct {
	history HistoryReader
}

func NewQuotaTracker(history HistoryReader) *QuotaTracker {
	return &QuotaTracker{history: history}
}

// CountSentToday counts history records in [midnight, now) in the
// settings timezone, optionally narrowed by scope.
func (t *QuotaTracker) CountSentToday(ctx context.Context, scope Scope, settings BehaviorSettings, now time.Time) (int64, error) {
	return t.history.CountBetween(ctx, scope, StartOfDay(settings, now), now)
}

// Remaining returns how many sends the scope has left today, floored at
// zero.
func (t *QuotaTracker) Remaining(ctx context.Context, scope Scope, settings BehaviorSettings, now time.Time) (int64, error) {
	count, err := t.CountSentToday(ctx, scope, settings, now)
	if err != nil {
		return 0, err
	}
	remaining := int64(settings.DailyLimit) - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
