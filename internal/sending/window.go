package sending

import (
	"fmt"
	"time"
)

// IsBlockedDay reports whether now falls on a configured non-working
// weekday, evaluated in the settings timezone.
func IsBlockedDay(settings BehaviorSettings, now time.Time) bool {
	day := now.In(settings.Location).Weekday()
	for _, blocked := range settings.BlockedWeekdays {
		if day == blocked {
			return true
		}
	}
	return false
}

// IsWithinWindow reports whether now's local clock falls inside
// [StartTime, EndTime). The end is exclusive: with an 18:00 end, 17:59
// is allowed and 18:00 is not.
func IsWithinWindow(settings BehaviorSettings, now time.Time) bool {
	clock := now.In(settings.Location).Format("15:04")
	return clock >= settings.StartTime && clock < settings.EndTime
}

// WindowDetails describes the current position relative to the window,
// used in policy rejection responses and diagnostics.
type WindowDetails struct {
	CurrentDay  string `json:"current_day"`
	CurrentTime string `json:"current_time"`
	Window      string `json:"window"`
}

func DescribeWindow(settings BehaviorSettings, now time.Time) WindowDetails {
	local := now.In(settings.Location)
	return WindowDetails{
		CurrentDay:  local.Weekday().String(),
		CurrentTime: local.Format("15:04"),
		Window:      fmt.Sprintf("%s-%s", settings.StartTime, settings.EndTime),
	}
}

// StartOfDay returns midnight of now's calendar day in the settings
// timezone. Daily quota windows are [StartOfDay, now).
func StartOfDay(settings BehaviorSettings, now time.Time) time.Time {
	local := now.In(settings.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, settings.Location)
}
