package sending

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/pkg/auth"
)

// fakeLeadStore is an in-memory leadTransitioner
type fakeLeadStore struct {
	leads map[string]*Lead
}

func newFakeLeadStore(leads ...Lead) *fakeLeadStore {
	s := &fakeLeadStore{leads: map[string]*Lead{}}
	for i := range leads {
		lead := leads[i]
		s.leads[lead.ID] = &lead
	}
	return s
}

func (s *fakeLeadStore) GetByID(ctx context.Context, id string) (*Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return nil, nil
	}
	copied := *lead
	return &copied, nil
}

func (s *fakeLeadStore) CompleteSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	lead, ok := s.leads[id]
	if !ok || (lead.Status != StatusPending && lead.Status != StatusQueued) {
		return false, nil
	}
	lead.Status = StatusSent
	lead.SentAt = &sentAt
	lead.ErrorMessage = ""
	return true, nil
}

func (s *fakeLeadStore) CompleteFailed(ctx context.Context, id, errorMessage string) error {
	lead, ok := s.leads[id]
	if !ok {
		return errors.New("missing lead")
	}
	lead.Status = StatusFailed
	lead.SentAt = nil
	lead.ErrorMessage = errorMessage
	return nil
}

type fakeControl struct {
	sends int
}

func (f *fakeControl) RecordSend(ctx context.Context, scope Scope, settings BehaviorSettings, sentAt time.Time) error {
	f.sends++
	return nil
}

func newTestConfirmer(leads *fakeLeadStore, history *fakeHistory, control *fakeControl) *Confirmer {
	return NewConfirmer(leads, history, control, NewQuotaTracker(history), zap.NewNop())
}

func TestConfirmer_SuccessfulConfirmation(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:01") // Tuesday morning
	sentAt := localTime(t, settings, "2025-03-04 10:00")

	leads := newFakeLeadStore(Lead{
		ID:            "lead-1",
		Phone:         "+5511987654321",
		Status:        StatusPending,
		AssignedSDRID: "sdr-1",
		CampaignID:    "camp-1",
		Channel:       "whatsapp",
	})
	history := newFakeHistory()
	control := &fakeControl{}
	confirmer := newTestConfirmer(leads, history, control)

	err := confirmer.ConfirmSent(context.Background(), "lead-1", sentAt, auth.SDRPrincipal("sdr-1", "sdr@leadpilot.io"), settings, now)
	if err != nil {
		t.Fatalf("ConfirmSent() error = %v", err)
	}

	lead := leads.leads["lead-1"]
	if lead.Status != StatusSent {
		t.Errorf("status = %v, want sent", lead.Status)
	}
	if lead.SentAt == nil || !lead.SentAt.Equal(sentAt) {
		t.Errorf("sent_at = %v, want reported time %v", lead.SentAt, sentAt)
	}
	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	rec := history.records[0]
	if rec.Outcome != "sent" || rec.SDRID != "sdr-1" || rec.CampaignID != "camp-1" || !rec.Timestamp.Equal(sentAt) {
		t.Errorf("unexpected history record: %+v", rec)
	}
	if control.sends != 1 {
		t.Errorf("control sends = %d, want 1", control.sends)
	}
}

func TestConfirmer_ServerClockRecheck(t *testing.T) {
	settings := testSettings()
	// Reported send time is inside the window, but the confirmation
	// arrives in the evening: the server clock decides
	sentAt := localTime(t, settings, "2025-03-04 17:30")
	now := localTime(t, settings, "2025-03-04 20:00")

	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending})
	history := newFakeHistory()
	confirmer := newTestConfirmer(leads, history, &fakeControl{})

	err := confirmer.ConfirmSent(context.Background(), "lead-1", sentAt, auth.ServicePrincipal(), settings, now)

	var rejection *PolicyRejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("ConfirmSent() error = %v, want PolicyRejectionError", err)
	}
	if rejection.Reason != ReasonOutsideHours {
		t.Errorf("reason = %v, want %v", rejection.Reason, ReasonOutsideHours)
	}
	if leads.leads["lead-1"].Status != StatusPending {
		t.Error("rejected confirmation must not transition the lead")
	}
	if len(history.records) != 0 {
		t.Error("rejected confirmation must not append history")
	}
}

func TestConfirmer_WeekendRecheck(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-01 11:00") // Saturday

	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending})
	confirmer := newTestConfirmer(leads, newFakeHistory(), &fakeControl{})

	err := confirmer.ConfirmSent(context.Background(), "lead-1", now, auth.ServicePrincipal(), settings, now)

	var rejection *PolicyRejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("ConfirmSent() error = %v, want PolicyRejectionError", err)
	}
	if rejection.Reason != ReasonWeekend {
		t.Errorf("reason = %v, want %v", rejection.Reason, ReasonWeekend)
	}
	if rejection.Details.CurrentDay != "Saturday" {
		t.Errorf("details day = %v, want Saturday", rejection.Details.CurrentDay)
	}
}

func TestConfirmer_QuotaRecheck(t *testing.T) {
	settings := testSettings()
	settings.DailyLimit = 1
	now := localTime(t, settings, "2025-03-04 10:00")

	history := newFakeHistory()
	history.records = []HistoryRecord{
		{Phone: "+5511911111111", Timestamp: localTime(t, settings, "2025-03-04 09:30")},
	}
	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending})
	confirmer := newTestConfirmer(leads, history, &fakeControl{})

	err := confirmer.ConfirmSent(context.Background(), "lead-1", now, auth.ServicePrincipal(), settings, now)

	var rejection *PolicyRejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("ConfirmSent() error = %v, want PolicyRejectionError", err)
	}
	if rejection.Reason != ReasonQuotaExceeded {
		t.Errorf("reason = %v, want %v", rejection.Reason, ReasonQuotaExceeded)
	}
}

func TestConfirmer_SDRScope(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:00")

	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending, AssignedSDRID: "sdr-1"})
	confirmer := newTestConfirmer(leads, newFakeHistory(), &fakeControl{})

	t.Run("wrong SDR is forbidden", func(t *testing.T) {
		err := confirmer.ConfirmSent(context.Background(), "lead-1", now, auth.SDRPrincipal("sdr-2", "other@leadpilot.io"), settings, now)
		if !errors.Is(err, ErrForbiddenScope) {
			t.Errorf("ConfirmSent() error = %v, want ErrForbiddenScope", err)
		}
	})

	t.Run("admin bypasses scope", func(t *testing.T) {
		err := confirmer.ConfirmSent(context.Background(), "lead-1", now, auth.AdminPrincipal("admin-1", "admin@leadpilot.io"), settings, now)
		if err != nil {
			t.Errorf("ConfirmSent() error = %v, want nil for admin", err)
		}
	})
}

func TestConfirmer_DoubleConfirmRejected(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:01")

	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending})
	history := newFakeHistory()
	confirmer := newTestConfirmer(leads, history, &fakeControl{})

	if err := confirmer.ConfirmSent(context.Background(), "lead-1", now, auth.ServicePrincipal(), settings, now); err != nil {
		t.Fatalf("first ConfirmSent() error = %v", err)
	}

	err := confirmer.ConfirmSent(context.Background(), "lead-1", now.Add(time.Minute), auth.ServicePrincipal(), settings, now.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("second ConfirmSent() error = %v, want ErrAlreadyProcessed", err)
	}
	if len(history.records) != 1 {
		t.Errorf("history records = %d, want exactly 1 after double confirm", len(history.records))
	}
}

func TestConfirmer_NotFound(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 10:00")
	confirmer := newTestConfirmer(newFakeLeadStore(), newFakeHistory(), &fakeControl{})

	err := confirmer.ConfirmSent(context.Background(), "missing", now, auth.ServicePrincipal(), settings, now)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ConfirmSent() error = %v, want ErrNotFound", err)
	}
}

func TestConfirmer_MarkFailedIdempotent(t *testing.T) {
	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending})
	confirmer := newTestConfirmer(leads, newFakeHistory(), &fakeControl{})

	if err := confirmer.MarkFailed(context.Background(), "lead-1", "number unreachable", auth.ServicePrincipal()); err != nil {
		t.Fatalf("first MarkFailed() error = %v", err)
	}
	if err := confirmer.MarkFailed(context.Background(), "lead-1", "blocked by recipient", auth.ServicePrincipal()); err != nil {
		t.Fatalf("second MarkFailed() error = %v", err)
	}

	lead := leads.leads["lead-1"]
	if lead.Status != StatusFailed {
		t.Errorf("status = %v, want failed", lead.Status)
	}
	if lead.ErrorMessage != "blocked by recipient" {
		t.Errorf("error message = %q, want latest write", lead.ErrorMessage)
	}
	if lead.SentAt != nil {
		t.Error("sent_at must be cleared on failure")
	}
}

func TestConfirmer_MarkFailedNoPolicyGate(t *testing.T) {
	// Failures are recordable on a Saturday evening too
	leads := newFakeLeadStore(Lead{ID: "lead-1", Phone: "+5511987654321", Status: StatusPending})
	confirmer := newTestConfirmer(leads, newFakeHistory(), &fakeControl{})

	if err := confirmer.MarkFailed(context.Background(), "lead-1", "timeout", auth.ServicePrincipal()); err != nil {
		t.Errorf("MarkFailed() error = %v, want nil regardless of window", err)
	}
}
