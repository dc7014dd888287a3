package sending

import (
	"testing"
	"time"
)

func testSettings() BehaviorSettings {
	return BehaviorSettings{
		DailyLimit:           50,
		DaysSinceLastContact: 7,
		StartTime:            "09:00",
		EndTime:              "18:00",
		BlockedWeekdays:      []time.Weekday{time.Sunday, time.Saturday},
		Location:             time.FixedZone("BRT", -3*60*60),
	}
}

// localTime builds a wall-clock instant in the settings timezone.
// 2025-03-04 is a Tuesday; 2025-03-01 a Saturday; 2025-03-02 a Sunday.
func localTime(t *testing.T, settings BehaviorSettings, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, settings.Location)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts
}

func TestIsBlockedDay(t *testing.T) {
	settings := testSettings()

	tests := []struct {
		name string
		now  string
		want bool
	}{
		{"tuesday is working", "2025-03-04 10:00", false},
		{"saturday is blocked", "2025-03-01 10:00", true},
		{"sunday is blocked", "2025-03-02 10:00", true},
		{"friday is working", "2025-03-07 10:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsBlockedDay(settings, localTime(t, settings, tt.now))
			if got != tt.want {
				t.Errorf("IsBlockedDay(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsBlockedDay_ConvertsToSettingsTimezone(t *testing.T) {
	settings := testSettings()

	// Saturday 01:00 UTC is still Friday 22:00 in BRT
	utc := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	if IsBlockedDay(settings, utc) {
		t.Error("expected Friday evening in settings timezone to be a working day")
	}
}

func TestIsWithinWindow(t *testing.T) {
	settings := testSettings()

	tests := []struct {
		name string
		now  string
		want bool
	}{
		{"mid-morning", "2025-03-04 10:00", true},
		{"start is inclusive", "2025-03-04 09:00", true},
		{"just before start", "2025-03-04 08:59", false},
		{"just before end", "2025-03-04 17:59", true},
		{"end is exclusive", "2025-03-04 18:00", false},
		{"late evening", "2025-03-04 22:30", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsWithinWindow(settings, localTime(t, settings, tt.now))
			if got != tt.want {
				t.Errorf("IsWithinWindow(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	settings := testSettings()
	now := localTime(t, settings, "2025-03-04 15:30")

	midnight := StartOfDay(settings, now)
	if midnight.Hour() != 0 || midnight.Minute() != 0 || midnight.Day() != 4 {
		t.Errorf("StartOfDay = %v, want midnight of March 4", midnight)
	}
}

func TestDescribeWindow(t *testing.T) {
	settings := testSettings()
	details := DescribeWindow(settings, localTime(t, settings, "2025-03-01 11:00"))

	if details.CurrentDay != "Saturday" {
		t.Errorf("CurrentDay = %v, want Saturday", details.CurrentDay)
	}
	if details.CurrentTime != "11:00" {
		t.Errorf("CurrentTime = %v, want 11:00", details.CurrentTime)
	}
	if details.Window != "09:00-18:00" {
		t.Errorf("Window = %v, want 09:00-18:00", details.Window)
	}
}
