package sending

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leadpilot/outreach-backend/pkg/env"
)

// BehaviorSettings holds the human-behavior gates applied to outbound
// sending: daily ceiling, minimum recontact interval, working hours and
// blocked weekdays. All clock comparisons happen in Location.
type BehaviorSettings struct {
	DailyLimit           int
	DaysSinceLastContact int
	StartTime            string // "HH:MM"
	EndTime              string // "HH:MM"
	BlockedWeekdays      []time.Weekday
	Location             *time.Location
}

// SettingsFromConfig builds the default settings instance from env config.
// The timezone must resolve; sending decisions are meaningless without a
// fixed reference clock.
func SettingsFromConfig(cfg *env.Config) (BehaviorSettings, error) {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return BehaviorSettings{}, fmt.Errorf("invalid timezone %q: %w", cfg.TZ, err)
	}

	blocked, err := parseBlockedWeekdays(cfg.SendBlockedWeekdays)
	if err != nil {
		return BehaviorSettings{}, err
	}

	start, err := normalizeClock(cfg.SendWindowStart)
	if err != nil {
		return BehaviorSettings{}, fmt.Errorf("invalid send window start: %w", err)
	}
	end, err := normalizeClock(cfg.SendWindowEnd)
	if err != nil {
		return BehaviorSettings{}, fmt.Errorf("invalid send window end: %w", err)
	}
	if start >= end {
		return BehaviorSettings{}, fmt.Errorf("send window start %s must be before end %s", start, end)
	}

	return BehaviorSettings{
		DailyLimit:           cfg.SendDailyLimit,
		DaysSinceLastContact: cfg.SendMinRecontactDays,
		StartTime:            start,
		EndTime:              end,
		BlockedWeekdays:      blocked,
		Location:             loc,
	}, nil
}

// normalizeClock parses an "HH:MM" clock and re-formats it zero-padded.
// Window checks compare these strings lexicographically, so "9:00" must
// become "09:00" before it ever reaches a comparison.
func normalizeClock(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Format("15:04"), nil
}

func parseBlockedWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid blocked weekday %q (expected 0-6, Sunday=0)", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

// Scope narrows quota counts and control state to an SDR and/or campaign.
// The zero value means global.
type Scope struct {
	SDRID      string
	CampaignID string
}

// Key is the stable identifier used for control-state documents and claim
// locks. Global scope maps to "global".
func (s Scope) Key() string {
	switch {
	case s.SDRID != "" && s.CampaignID != "":
		return "sdr:" + s.SDRID + ":campaign:" + s.CampaignID
	case s.SDRID != "":
		return "sdr:" + s.SDRID
	case s.CampaignID != "":
		return "campaign:" + s.CampaignID
	}
	return "global"
}

// Identity is how a lead is matched against contact history. Phone is
// primary; email is the fallback for email-only leads.
type Identity struct {
	Phone string
	Email string
}

func (id Identity) IsZero() bool {
	return id.Phone == "" && id.Email == ""
}
