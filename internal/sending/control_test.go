package sending

import (
	"testing"
	"time"
)

func TestControlState_DayRollover(t *testing.T) {
	state := ControlState{
		ScopeKey:          "global",
		IsRunning:         true,
		MessagesSentToday: 42,
		Day:               "2025-03-04",
	}

	sameDay := state.withDay("2025-03-04")
	if sameDay.MessagesSentToday != 42 {
		t.Errorf("MessagesSentToday = %d on the same day, want 42", sameDay.MessagesSentToday)
	}

	nextDay := state.withDay("2025-03-05")
	if nextDay.MessagesSentToday != 0 {
		t.Errorf("MessagesSentToday = %d after rollover, want 0", nextDay.MessagesSentToday)
	}
	if nextDay.Day != "2025-03-05" {
		t.Errorf("Day = %q after rollover, want 2025-03-05", nextDay.Day)
	}
	// Rollover only touches the daily counter
	if !nextDay.IsRunning {
		t.Error("rollover must not stop a running session")
	}
}

func TestControlState_AfterSend(t *testing.T) {
	settings := testSettings()
	sentAt := localTime(t, settings, "2025-03-04 10:30")

	state := ControlState{
		ScopeKey:            "global",
		MessagesSentToday:   5,
		MessagesSentSession: 2,
		Day:                 "2025-03-04",
	}

	got := state.afterSend(sentAt)
	if got.MessagesSentToday != 6 {
		t.Errorf("MessagesSentToday = %d, want 6", got.MessagesSentToday)
	}
	if got.MessagesSentSession != 3 {
		t.Errorf("MessagesSentSession = %d, want 3", got.MessagesSentSession)
	}
	if got.LastMessageSentAt == nil || !got.LastMessageSentAt.Equal(sentAt) {
		t.Errorf("LastMessageSentAt = %v, want %v", got.LastMessageSentAt, sentAt)
	}
}

func TestControlState_SetRunningResetsSession(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 09:00")

	state := ControlState{
		ScopeKey:            "global",
		IsPaused:            true,
		MessagesSentToday:   17,
		MessagesSentSession: 9,
		Day:                 "2025-03-04",
	}

	started := state.withRunning(true, now)
	if !started.IsRunning {
		t.Error("IsRunning = false after start")
	}
	if started.IsPaused {
		t.Error("starting must clear the paused flag")
	}
	if started.MessagesSentSession != 0 {
		t.Errorf("MessagesSentSession = %d after start, want 0", started.MessagesSentSession)
	}
	if started.SessionStartedAt == nil || !started.SessionStartedAt.Equal(now) {
		t.Errorf("SessionStartedAt = %v, want %v", started.SessionStartedAt, now)
	}
	// The daily counter tracks the calendar day, not the session
	if started.MessagesSentToday != 17 {
		t.Errorf("MessagesSentToday = %d after start, want 17", started.MessagesSentToday)
	}
}

func TestControlState_StopKeepsCounters(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 16:00")
	startedAt := now.Add(-3 * time.Hour)

	state := ControlState{
		ScopeKey:            "global",
		IsRunning:           true,
		MessagesSentToday:   30,
		MessagesSentSession: 12,
		SessionStartedAt:    &startedAt,
		Day:                 "2025-03-04",
	}

	stopped := state.withRunning(false, now)
	if stopped.IsRunning {
		t.Error("IsRunning = true after stop")
	}
	if stopped.MessagesSentSession != 12 {
		t.Errorf("MessagesSentSession = %d after stop, want 12", stopped.MessagesSentSession)
	}
	if stopped.SessionStartedAt == nil || !stopped.SessionStartedAt.Equal(startedAt) {
		t.Errorf("SessionStartedAt = %v after stop, want %v", stopped.SessionStartedAt, startedAt)
	}
}
