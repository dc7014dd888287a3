package sending

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func makeLeads(phones ...string) []Lead {
	leads := make([]Lead, 0, len(phones))
	for i, phone := range phones {
		leads = append(leads, Lead{
			ID:        "lead-" + phone,
			Phone:     phone,
			Status:    StatusPending,
			CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		})
	}
	return leads
}

func newTestSelector(history *fakeHistory) *Selector {
	policy := NewRecontactPolicy(history, true, zap.NewNop())
	return NewSelector(policy, NewQuotaTracker(history))
}

func TestSelector_WeekendShortCircuit(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-01 11:00") // Saturday

	history := newFakeHistory()
	// Leads individually eligible; the day gate must still reject all of
	// them without any per-lead lookups
	history.lookupErr = context.DeadlineExceeded

	candidates := makeLeads("+5511900000001", "+5511900000002", "+5511900000003")
	result, err := newTestSelector(history).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 0 {
		t.Errorf("Ready = %d leads, want 0 on a blocked day", len(result.Ready))
	}
	if result.Skipped.Weekend != len(candidates) {
		t.Errorf("Skipped.Weekend = %d, want %d", result.Skipped.Weekend, len(candidates))
	}
	if !strings.Contains(result.BlockMessage, "Saturday") {
		t.Errorf("BlockMessage = %q, want it to name the blocked day", result.BlockMessage)
	}
}

func TestSelector_OutsideHoursShortCircuit(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 20:00") // Tuesday evening

	candidates := makeLeads("+5511900000001", "+5511900000002")
	result, err := newTestSelector(newFakeHistory()).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 0 {
		t.Errorf("Ready = %d leads, want 0 outside working hours", len(result.Ready))
	}
	if result.Skipped.OutsideHours != len(candidates) {
		t.Errorf("Skipped.OutsideHours = %d, want %d", result.Skipped.OutsideHours, len(candidates))
	}
	if result.BlockMessage == "" {
		t.Error("expected a block message explaining the empty batch")
	}
}

func TestSelector_PerLeadFiltering(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:00") // Tuesday morning

	history := newFakeHistory()
	history.lastContact["+5511900000002"] = now.AddDate(0, 0, -2) // too recent
	history.lastContact["+5511900000003"] = now.AddDate(0, 0, -8) // eligible again

	future := now.Add(2 * time.Hour)
	candidates := makeLeads("+5511900000001", "+5511900000002", "+5511900000003", "+5511900000004")
	candidates[3].ScheduledSendAt = &future

	result, err := newTestSelector(history).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 2 {
		t.Fatalf("Ready = %d leads, want 2", len(result.Ready))
	}
	// Stable input order preserved
	if result.Ready[0].Phone != "+5511900000001" || result.Ready[1].Phone != "+5511900000003" {
		t.Errorf("Ready order = [%s, %s], want input order", result.Ready[0].Phone, result.Ready[1].Phone)
	}
	if result.Skipped.TooRecent != 1 {
		t.Errorf("Skipped.TooRecent = %d, want 1", result.Skipped.TooRecent)
	}
	// The future-scheduled lead is not due yet: skipped silently
	if result.Skipped.Weekend != 0 || result.Skipped.OutsideHours != 0 {
		t.Errorf("unexpected coarse skips: %+v", result.Skipped)
	}
}

func TestSelector_SharedIdentityDedup(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:00")

	// Two lead records for the same phone number: selecting both would
	// let the second be confirmed minutes after the first, bypassing the
	// recontact interval entirely.
	candidates := makeLeads("+5511900000001", "+5511900000002")
	dup := candidates[0]
	dup.ID = "lead-dup"
	candidates = append(candidates, dup)

	result, err := newTestSelector(newFakeHistory()).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 2 {
		t.Fatalf("Ready = %d leads, want 2 distinct identities", len(result.Ready))
	}
	for _, lead := range result.Ready {
		if lead.ID == "lead-dup" {
			t.Error("duplicate-phone lead selected in the same batch as its twin")
		}
	}
	if result.Skipped.TooRecent != 1 {
		t.Errorf("Skipped.TooRecent = %d, want 1 for the duplicate", result.Skipped.TooRecent)
	}
}

func TestSelector_SharedEmailDedup(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:00")

	candidates := makeLeads("+5511900000001", "+5511900000002")
	candidates[0].Email = "buyer@acme.example"
	candidates[1].Email = "buyer@acme.example"

	result, err := newTestSelector(newFakeHistory()).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 1 {
		t.Fatalf("Ready = %d leads, want 1 per shared email", len(result.Ready))
	}
	if result.Ready[0].Phone != "+5511900000001" {
		t.Errorf("Ready[0] = %s, want the first lead for the identity", result.Ready[0].Phone)
	}
	if result.Skipped.TooRecent != 1 {
		t.Errorf("Skipped.TooRecent = %d, want 1", result.Skipped.TooRecent)
	}
}

func TestSelector_BatchLimit(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:00")

	candidates := makeLeads("+5511900000001", "+5511900000002", "+5511900000003", "+5511900000004")
	result, err := newTestSelector(newFakeHistory()).SelectReady(context.Background(), candidates, settings, Scope{}, now, 2)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 2 {
		t.Errorf("Ready = %d leads, want batch limit of 2", len(result.Ready))
	}
	if result.Ready[0].Phone != "+5511900000001" {
		t.Errorf("first ready lead = %s, want FIFO head", result.Ready[0].Phone)
	}
}

func TestSelector_QuotaCapsBatch(t *testing.T) {
	settings := testSettings()
	settings.DailyLimit = 3
	now := localTime(t, settings, "2025-03-04 10:00")

	history := newFakeHistory()
	// Two already sent today leaves room for one more
	history.records = []HistoryRecord{
		{Phone: "+5511911111111", Timestamp: localTime(t, settings, "2025-03-04 09:10")},
		{Phone: "+5511922222222", Timestamp: localTime(t, settings, "2025-03-04 09:20")},
	}

	candidates := makeLeads("+5511900000001", "+5511900000002", "+5511900000003")
	result, err := newTestSelector(history).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 1 {
		t.Errorf("Ready = %d leads, want 1 (remaining quota)", len(result.Ready))
	}
}

func TestSelector_QuotaExhausted(t *testing.T) {
	settings := testSettings()
	settings.DailyLimit = 1
	now := localTime(t, settings, "2025-03-04 10:00")

	history := newFakeHistory()
	history.records = []HistoryRecord{
		{Phone: "+5511911111111", Timestamp: localTime(t, settings, "2025-03-04 09:10")},
	}

	candidates := makeLeads("+5511900000001")
	result, err := newTestSelector(history).SelectReady(context.Background(), candidates, settings, Scope{}, now, 10)
	if err != nil {
		t.Fatalf("SelectReady() error = %v", err)
	}

	if len(result.Ready) != 0 {
		t.Errorf("Ready = %d leads, want 0 with exhausted quota", len(result.Ready))
	}
	if !strings.Contains(result.BlockMessage, "daily limit") {
		t.Errorf("BlockMessage = %q, want daily limit explanation", result.BlockMessage)
	}
}
