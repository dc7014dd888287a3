package sending

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leadpilot/outreach-backend/pkg/mongo"
)

const leadsCollection = "leads"

// Lead send statuses. pending→sent happens only through policy-gated
// confirmation; pending→failed is unconditional. queued marks a lead
// handed to an external sender that has not confirmed yet.
const (
	StatusPending = "pending"
	StatusQueued  = "queued"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Lead is the send-pipeline view of a contact record
type Lead struct {
	ID              string
	Phone           string
	Email           string
	Name            string
	Company         string
	Message         string
	Channel         string
	Status          string
	AssignedSDRID   string
	CampaignID      string
	ScheduledSendAt *time.Time
	SentAt          *time.Time
	ErrorMessage    string
	CreatedAt       time.Time
}

func (l Lead) Identity() Identity {
	return Identity{Phone: l.Phone, Email: l.Email}
}

// LeadStore reads and transitions leads in MongoDB
type LeadStore struct {
	db *mongo.Client
}

func NewLeadStore(db *mongo.Client) *LeadStore {
	return &LeadStore{db: db}
}

func (s *LeadStore) GetByID(ctx context.Context, id string) (*Lead, error) {
	doc, err := s.db.NewQuery(leadsCollection).Eq("id", id).FindOne(ctx)
	if err != nil {
		return nil, fmt.Errorf("lead lookup failed: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	lead := leadFromDoc(doc)
	return &lead, nil
}

// Candidates returns dispatchable leads for the scope in created_at
// order, oldest first. Both pending and queued leads qualify: a queued
// lead whose claim lease expired must be re-claimable, otherwise a
// crashed sender would strand it. channel narrows to one delivery
// channel; empty means all.
func (s *LeadStore) Candidates(ctx context.Context, scope Scope, channel string, limit int64) ([]Lead, error) {
	q := s.db.NewQuery(leadsCollection).
		In("status", []string{StatusPending, StatusQueued}).
		Sort("created_at", true)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if channel != "" {
		q = q.Eq("channel", channel)
	}
	if scope.SDRID != "" {
		q = q.Eq("assigned_sdr_id", scope.SDRID)
	}
	if scope.CampaignID != "" {
		q = q.Eq("campaign_id", scope.CampaignID)
	}

	docs, err := q.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}

	leads := make([]Lead, 0, len(docs))
	for _, doc := range docs {
		leads = append(leads, leadFromDoc(doc))
	}
	return leads, nil
}

// CountDispatchable counts pending/queued leads in scope, for diagnostics
func (s *LeadStore) CountDispatchable(ctx context.Context, scope Scope, channel string) (int64, error) {
	q := s.db.NewQuery(leadsCollection).
		In("status", []string{StatusPending, StatusQueued})
	if channel != "" {
		q = q.Eq("channel", channel)
	}
	if scope.SDRID != "" {
		q = q.Eq("assigned_sdr_id", scope.SDRID)
	}
	if scope.CampaignID != "" {
		q = q.Eq("campaign_id", scope.CampaignID)
	}
	return q.Count(ctx)
}

// MarkQueued flips a dispatchable lead to queued. Returns false when the
// lead was concurrently taken past the dispatchable states.
func (s *LeadStore) MarkQueued(ctx context.Context, id string) (bool, error) {
	prev, err := s.db.NewQuery(leadsCollection).
		Eq("id", id).
		In("status", []string{StatusPending, StatusQueued}).
		FindOneAndUpdate(ctx, bson.M{
			"status":     StatusQueued,
			"updated_at": time.Now().Format(time.RFC3339),
		})
	if err != nil {
		return false, fmt.Errorf("failed to queue lead: %w", err)
	}
	return prev != nil, nil
}

// CompleteSent is the compare-and-swap that commits the sent transition:
// it succeeds only while the lead is still dispatchable, so a second
// confirmation of the same lead fails cleanly.
func (s *LeadStore) CompleteSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	prev, err := s.db.NewQuery(leadsCollection).
		Eq("id", id).
		In("status", []string{StatusPending, StatusQueued}).
		FindOneAndUpdate(ctx, bson.M{
			"status":        StatusSent,
			"sent_at":       sentAt.Format(time.RFC3339),
			"error_message": "",
			"updated_at":    time.Now().Format(time.RFC3339),
		})
	if err != nil {
		return false, fmt.Errorf("failed to complete send: %w", err)
	}
	return prev != nil, nil
}

// CompleteFailed records a failure. Last write wins: repeated calls keep
// the latest error message and the lead stays failed.
func (s *LeadStore) CompleteFailed(ctx context.Context, id, errorMessage string) error {
	_, err := s.db.NewQuery(leadsCollection).
		Eq("id", id).
		UpdateOne(ctx, bson.M{
			"status":        StatusFailed,
			"sent_at":       nil,
			"error_message": errorMessage,
			"updated_at":    time.Now().Format(time.RFC3339),
		})
	if err != nil {
		return fmt.Errorf("failed to mark lead failed: %w", err)
	}
	return nil
}

func leadFromDoc(doc map[string]interface{}) Lead {
	lead := Lead{
		ID:            getString(doc, "id"),
		Phone:         getString(doc, "phone"),
		Email:         getString(doc, "email"),
		Name:          getString(doc, "name"),
		Company:       getString(doc, "company"),
		Message:       getString(doc, "message"),
		Channel:       getString(doc, "channel"),
		Status:        getString(doc, "status"),
		AssignedSDRID: getString(doc, "assigned_sdr_id"),
		CampaignID:    getString(doc, "campaign_id"),
		ErrorMessage:  getString(doc, "error_message"),
	}
	lead.ScheduledSendAt = getTime(doc, "scheduled_send_at")
	lead.SentAt = getTime(doc, "sent_at")
	if created := getTime(doc, "created_at"); created != nil {
		lead.CreatedAt = *created
	}
	return lead
}

func getString(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func getTime(doc map[string]interface{}, key string) *time.Time {
	raw, _ := doc[key].(string)
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &ts
}
