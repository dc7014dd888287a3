package sending

import (
	"context"
	"testing"
	"time"
)

func TestQuotaTracker_CountSentToday(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 15:00")

	history := newFakeHistory()
	// Two sends today, one yesterday, one later today (excluded: range end
	// is now)
	history.records = []HistoryRecord{
		{Phone: "+5511900000001", SDRID: "sdr-1", Timestamp: localTime(t, settings, "2025-03-04 09:30")},
		{Phone: "+5511900000002", SDRID: "sdr-2", Timestamp: localTime(t, settings, "2025-03-04 11:00")},
		{Phone: "+5511900000003", SDRID: "sdr-1", Timestamp: localTime(t, settings, "2025-03-03 16:00")},
		{Phone: "+5511900000004", SDRID: "sdr-1", Timestamp: localTime(t, settings, "2025-03-04 17:00")},
	}

	tracker := NewQuotaTracker(history)

	count, err := tracker.CountSentToday(context.Background(), Scope{}, settings, now)
	if err != nil {
		t.Fatalf("CountSentToday() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountSentToday() = %d, want 2", count)
	}

	count, err = tracker.CountSentToday(context.Background(), Scope{SDRID: "sdr-1"}, settings, now)
	if err != nil {
		t.Fatalf("CountSentToday() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountSentToday(sdr-1) = %d, want 1", count)
	}
}

func TestQuotaTracker_Remaining(t *testing.T) {
	settings := testSettings()
	settings.DailyLimit = 2
	now := localTime(t, settings, "2025-03-04 15:00")

	history := newFakeHistory()
	for i := 0; i < 3; i++ {
		history.records = append(history.records, HistoryRecord{
			Timestamp: localTime(t, settings, "2025-03-04 10:00").Add(time.Duration(i) * time.Minute),
		})
	}

	tracker := NewQuotaTracker(history)
	remaining, err := tracker.Remaining(context.Background(), Scope{}, settings, now)
	if err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}
	if remaining != 0 {
		t.Errorf("Remaining() = %d, want 0 (floored, not negative)", remaining)
	}
}
