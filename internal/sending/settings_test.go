package sending

import (
	"testing"
	"time"

	"github.com/leadpilot/outreach-backend/pkg/env"
)

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"09:00", "09:00", false},
		{"9:00", "09:00", false},
		{" 17:30 ", "17:30", false},
		{"24:00", "", true},
		{"09:60", "", true},
		{"nine", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := normalizeClock(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("normalizeClock(%q) expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeClock(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeClock(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSettingsFromConfig_WindowNormalization(t *testing.T) {
	cfg := &env.Config{
		TZ:                   "America/Sao_Paulo",
		SendDailyLimit:       50,
		SendMinRecontactDays: 7,
		SendWindowStart:      "9:00",
		SendWindowEnd:        "17:30",
		SendBlockedWeekdays:  "0,6",
	}

	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		t.Fatalf("SettingsFromConfig() error = %v", err)
	}
	// Single-digit hours must come out zero-padded or the string
	// comparison in the window check misorders them
	if settings.StartTime != "09:00" {
		t.Errorf("StartTime = %q, want 09:00", settings.StartTime)
	}
	if settings.EndTime != "17:30" {
		t.Errorf("EndTime = %q, want 17:30", settings.EndTime)
	}

	cfg.SendWindowStart = "18:00"
	if _, err := SettingsFromConfig(cfg); err == nil {
		t.Error("expected error for window start after end")
	}

	cfg.SendWindowStart = "not-a-clock"
	if _, err := SettingsFromConfig(cfg); err == nil {
		t.Error("expected error for malformed window start")
	}
}

func TestParseBlockedWeekdays(t *testing.T) {
	tests := []struct {
		input   string
		want    []time.Weekday
		wantErr bool
	}{
		{"0,6", []time.Weekday{time.Sunday, time.Saturday}, false},
		{" 0 , 6 ", []time.Weekday{time.Sunday, time.Saturday}, false},
		{"", nil, false},
		{"7", nil, true},
		{"mon", nil, true},
	}

	for _, tt := range tests {
		got, err := parseBlockedWeekdays(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseBlockedWeekdays(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseBlockedWeekdays(%q) error = %v", tt.input, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseBlockedWeekdays(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseBlockedWeekdays(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestScopeKey(t *testing.T) {
	tests := []struct {
		scope Scope
		want  string
	}{
		{Scope{}, "global"},
		{Scope{SDRID: "s1"}, "sdr:s1"},
		{Scope{CampaignID: "c1"}, "campaign:c1"},
		{Scope{SDRID: "s1", CampaignID: "c1"}, "sdr:s1:campaign:c1"},
	}

	for _, tt := range tests {
		if got := tt.scope.Key(); got != tt.want {
			t.Errorf("Scope%+v.Key() = %q, want %q", tt.scope, got, tt.want)
		}
	}
}
