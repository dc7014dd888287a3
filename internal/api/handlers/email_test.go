package handlers

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/resend"
)

type fakeEmailSender struct {
	sent    []resend.SendEmailRequest
	failFor map[string]error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, req resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.sent = append(f.sent, req)
	if len(req.To) > 0 {
		if err, ok := f.failFor[req.To[0]]; ok {
			return nil, err
		}
	}
	return &resend.SendEmailResponse{ID: "re_" + req.To[0]}, nil
}

type fakeEmailConfirmer struct {
	confirmedAt map[string]time.Time
	failedLeads []string
	rejectAfter int // reject with a policy error once this many confirms happened
}

func (f *fakeEmailConfirmer) ConfirmSent(_ context.Context, leadID string, reportedSentAt time.Time, _ auth.Principal, _ sending.BehaviorSettings, _ time.Time) error {
	if f.rejectAfter > 0 && len(f.confirmedAt) >= f.rejectAfter {
		return &sending.PolicyRejectionError{Reason: "Outside sending hours"}
	}
	if f.confirmedAt == nil {
		f.confirmedAt = make(map[string]time.Time)
	}
	f.confirmedAt[leadID] = reportedSentAt
	return nil
}

func (f *fakeEmailConfirmer) MarkFailed(_ context.Context, leadID, _ string, _ auth.Principal) error {
	f.failedLeads = append(f.failedLeads, leadID)
	return nil
}

type fakeClaims struct {
	released []string
}

func (f *fakeClaims) ReleaseClaim(_ context.Context, leadID string) {
	f.released = append(f.released, leadID)
}

func newTestDispatcher(sender *fakeEmailSender, confirmer *fakeEmailConfirmer, claims *fakeClaims, clock func() time.Time) *emailDispatcher {
	return &emailDispatcher{
		sender:     sender,
		confirmer:  confirmer,
		claims:     claims,
		settings:   sending.BehaviorSettings{DailyLimit: 50},
		logger:     zap.NewNop(),
		clock:      clock,
		subjectFor: func(context.Context, string) string { return "Quick question" },
		onDelivery: func(context.Context, string, string) {},
	}
}

func emailLeads(addrs ...string) []sending.Lead {
	leads := make([]sending.Lead, 0, len(addrs))
	for _, addr := range addrs {
		leads = append(leads, sending.Lead{
			ID:      "lead-" + addr,
			Email:   addr,
			Message: "hello",
			Status:  sending.StatusQueued,
		})
	}
	return leads
}

func TestEmailDispatcher_PerLeadSentTimestamps(t *testing.T) {
	// The clock advances between deliveries; each lead's confirmation
	// must carry its own reading, never the batch-start one
	base := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}

	confirmer := &fakeEmailConfirmer{}
	sender := &fakeEmailSender{}
	claims := &fakeClaims{}

	leads := emailLeads("a@x.example", "b@x.example", "c@x.example")
	sent, failed := newTestDispatcher(sender, confirmer, claims, clock).run(context.Background(), leads)

	if sent != 3 || failed != 0 {
		t.Fatalf("run() = (%d sent, %d failed), want (3, 0)", sent, failed)
	}

	seen := make(map[time.Time]bool)
	for _, lead := range leads {
		at, ok := confirmer.confirmedAt[lead.ID]
		if !ok {
			t.Fatalf("lead %s never confirmed", lead.ID)
		}
		if seen[at] {
			t.Errorf("lead %s confirmed with a reused timestamp %v", lead.ID, at)
		}
		seen[at] = true
	}
}

func TestEmailDispatcher_DeliveryFailureMarksFailed(t *testing.T) {
	confirmer := &fakeEmailConfirmer{}
	sender := &fakeEmailSender{failFor: map[string]error{"b@x.example": context.DeadlineExceeded}}
	claims := &fakeClaims{}

	leads := emailLeads("a@x.example", "b@x.example")
	sent, failed := newTestDispatcher(sender, confirmer, claims, time.Now).run(context.Background(), leads)

	if sent != 1 || failed != 1 {
		t.Fatalf("run() = (%d sent, %d failed), want (1, 1)", sent, failed)
	}
	if len(confirmer.failedLeads) != 1 || confirmer.failedLeads[0] != "lead-b@x.example" {
		t.Errorf("failedLeads = %v, want the undeliverable lead", confirmer.failedLeads)
	}
	// Claims always come back, success or failure
	if len(claims.released) != 2 {
		t.Errorf("released %d claims, want 2", len(claims.released))
	}
}

func TestEmailDispatcher_StopsWhenWindowCloses(t *testing.T) {
	confirmer := &fakeEmailConfirmer{rejectAfter: 1}
	sender := &fakeEmailSender{}
	claims := &fakeClaims{}

	leads := emailLeads("a@x.example", "b@x.example", "c@x.example")
	sent, failed := newTestDispatcher(sender, confirmer, claims, time.Now).run(context.Background(), leads)

	if sent != 1 || failed != 0 {
		t.Fatalf("run() = (%d sent, %d failed), want (1, 0)", sent, failed)
	}
	// The third lead must not even be attempted once the window closed
	if len(sender.sent) != 2 {
		t.Errorf("sender saw %d requests, want 2", len(sender.sent))
	}
}
