package sending

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leadpilot/outreach-backend/pkg/mongo"
)

const controlCollection = "sending_control"

// ControlState is the per-scope sending loop state. It lives in the
// store, keyed by scope, and is read-modify-written on every change so
// it survives restarts. messages_sent_today resets when the calendar day
// (in the settings timezone) rolls over.
type ControlState struct {
	ScopeKey            string     `json:"scope_key"`
	IsRunning           bool       `json:"is_running"`
	IsPaused            bool       `json:"is_paused"`
	MessagesSentToday   int64      `json:"messages_sent_today"`
	MessagesSentSession int64      `json:"messages_sent_session"`
	SessionStartedAt    *time.Time `json:"session_started_at"`
	LastMessageSentAt   *time.Time `json:"last_message_sent_at"`
	Day                 string     `json:"day"`
}

// withDay rolls the daily counter over when the calendar day changes.
// Same-day calls are a no-op.
func (st ControlState) withDay(today string) ControlState {
	if st.Day != today {
		st.Day = today
		st.MessagesSentToday = 0
	}
	return st
}

// afterSend bumps the counters for one confirmed send
func (st ControlState) afterSend(sentAt time.Time) ControlState {
	st.MessagesSentToday++
	st.MessagesSentSession++
	st.LastMessageSentAt = &sentAt
	return st
}

// withRunning starts or stops the session. Starting clears any pause
// and resets the session counter; stopping leaves the counters intact
// for the operator to inspect.
func (st ControlState) withRunning(running bool, now time.Time) ControlState {
	st.IsRunning = running
	if running {
		st.IsPaused = false
		st.MessagesSentSession = 0
		st.SessionStartedAt = &now
	}
	return st
}

// ControlStore persists ControlState documents
type ControlStore struct {
	db *mongo.Client
}

func NewControlStore(db *mongo.Client) *ControlStore {
	return &ControlStore{db: db}
}

// Get loads the scope's control state, applying the day rollover. A
// missing document yields a zero state for today.
func (s *ControlStore) Get(ctx context.Context, scope Scope, settings BehaviorSettings, now time.Time) (ControlState, error) {
	today := now.In(settings.Location).Format("2006-01-02")

	doc, err := s.db.NewQuery(controlCollection).Eq("scope_key", scope.Key()).FindOne(ctx)
	if err != nil {
		return ControlState{}, fmt.Errorf("control state lookup failed: %w", err)
	}
	if doc == nil {
		return ControlState{ScopeKey: scope.Key(), Day: today}, nil
	}

	return controlFromDoc(doc).withDay(today), nil
}

// RecordSend bumps the counters after a confirmed send
func (s *ControlStore) RecordSend(ctx context.Context, scope Scope, settings BehaviorSettings, sentAt time.Time) error {
	state, err := s.Get(ctx, scope, settings, sentAt)
	if err != nil {
		return err
	}

	return s.save(ctx, state.afterSend(sentAt))
}

// SetRunning starts or stops the scope's sending session. Starting
// resets the session counter.
func (s *ControlStore) SetRunning(ctx context.Context, scope Scope, settings BehaviorSettings, running bool, now time.Time) (ControlState, error) {
	state, err := s.Get(ctx, scope, settings, now)
	if err != nil {
		return ControlState{}, err
	}

	state = state.withRunning(running, now)

	if err := s.save(ctx, state); err != nil {
		return ControlState{}, err
	}
	return state, nil
}

// SetPaused pauses or resumes a running session
func (s *ControlStore) SetPaused(ctx context.Context, scope Scope, settings BehaviorSettings, paused bool, now time.Time) (ControlState, error) {
	state, err := s.Get(ctx, scope, settings, now)
	if err != nil {
		return ControlState{}, err
	}

	state.IsPaused = paused

	if err := s.save(ctx, state); err != nil {
		return ControlState{}, err
	}
	return state, nil
}

func (s *ControlStore) save(ctx context.Context, state ControlState) error {
	doc := map[string]interface{}{
		"scope_key":             state.ScopeKey,
		"is_running":            state.IsRunning,
		"is_paused":             state.IsPaused,
		"messages_sent_today":   state.MessagesSentToday,
		"messages_sent_session": state.MessagesSentSession,
		"day":                   state.Day,
		"updated_at":            time.Now().Format(time.RFC3339),
	}
	if state.SessionStartedAt != nil {
		doc["session_started_at"] = state.SessionStartedAt.Format(time.RFC3339)
	}
	if state.LastMessageSentAt != nil {
		doc["last_message_sent_at"] = state.LastMessageSentAt.Format(time.RFC3339)
	}

	_, err := s.db.NewQuery(controlCollection).
		Upsert(ctx, bson.M{"scope_key": state.ScopeKey}, doc)
	if err != nil {
		return fmt.Errorf("failed to save control state: %w", err)
	}
	return nil
}

func controlFromDoc(doc map[string]interface{}) ControlState {
	state := ControlState{
		ScopeKey: getString(doc, "scope_key"),
		Day:      getString(doc, "day"),
	}
	if v, ok := doc["is_running"].(bool); ok {
		state.IsRunning = v
	}
	if v, ok := doc["is_paused"].(bool); ok {
		state.IsPaused = v
	}
	state.MessagesSentToday = getInt64(doc, "messages_sent_today")
	state.MessagesSentSession = getInt64(doc, "messages_sent_session")
	state.SessionStartedAt = getTime(doc, "session_started_at")
	state.LastMessageSentAt = getTime(doc, "last_message_sent_at")
	return state
}

func getInt64(doc map[string]interface{}, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
