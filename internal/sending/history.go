package sending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/leadpilot/outreach-backend/pkg/mongo"
)

const historyCollection = "contact_history"

// HistoryRecord is one outbound contact attempt. Records are append-only:
// they are never updated or deleted, and interval/quota decisions read
// them as the sole source of truth.
type HistoryRecord struct {
	ID         string
	Phone      string
	Email      string
	Channel    string
	CampaignID string
	SDRID      string
	Outcome    string
	Timestamp  time.Time
}

// HistoryReader is the read side used by the recontact and quota policies
type HistoryReader interface {
	// LastContact returns the most recent contact timestamp matching the
	// identity's phone OR email across all channels, or nil when the lead
	// has never been contacted.
	LastContact(ctx context.Context, identity Identity) (*time.Time, error)

	// CountBetween counts records with timestamp in [from, to), optionally
	// narrowed by scope.
	CountBetween(ctx context.Context, scope Scope, from, to time.Time) (int64, error)
}

// HistoryStore persists contact history in MongoDB. Timestamps are stored
// as RFC3339 strings, which order lexicographically for range filters.
type HistoryStore struct {
	db *mongo.Client
}

func NewHistoryStore(db *mongo.Client) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) LastContact(ctx context.Context, identity Identity) (*time.Time, error) {
	if identity.IsZero() {
		return nil, fmt.Errorf("identity has neither phone nor email")
	}

	var conditions []bson.M
	if identity.Phone != "" {
		conditions = append(conditions, bson.M{"phone": identity.Phone})
	}
	if identity.Email != "" {
		conditions = append(conditions, bson.M{"email": identity.Email})
	}

	doc, err := s.db.NewQuery(historyCollection).
		Or(conditions...).
		Sort("timestamp", false).
		FindOne(ctx)
	if err != nil {
		return nil, fmt.Errorf("history lookup failed: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	raw, _ := doc["timestamp"].(string)
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("malformed history timestamp %q: %w", raw, err)
	}

	return &ts, nil
}

func (s *HistoryStore) CountBetween(ctx context.Context, scope Scope, from, to time.Time) (int64, error) {
	q := s.db.NewQuery(historyCollection).
		Gte("timestamp", from.Format(time.RFC3339)).
		Lt("timestamp", to.Format(time.RFC3339))

	if scope.SDRID != "" {
		q = q.Eq("sdr_id", scope.SDRID)
	}
	if scope.CampaignID != "" {
		q = q.Eq("campaign_id", scope.CampaignID)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("history count failed: %w", err)
	}
	return count, nil
}

// Append writes a new history record. The record ID is assigned here.
func (s *HistoryStore) Append(ctx context.Context, rec HistoryRecord) error {
	doc := map[string]interface{}{
		"id":          uuid.NewString(),
		"phone":       rec.Phone,
		"email":       rec.Email,
		"channel":     rec.Channel,
		"campaign_id": rec.CampaignID,
		"sdr_id":      rec.SDRID,
		"outcome":     rec.Outcome,
		"timestamp":   rec.Timestamp.Format(time.RFC3339),
	}

	if _, err := s.db.NewQuery(historyCollection).Insert(ctx, doc); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}
