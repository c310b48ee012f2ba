package models

import (
	"fmt"
	"time"
)

// Frequency determines which calendar dates a reminder applies to.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func ParseFrequency(value string) (Frequency, error) {
	switch Frequency(value) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(value), nil
	default:
		return "", fmt.Errorf("unknown frequency %q", value)
	}
}

// DailyMode selects between a single fixed time and the advanced
// even/odd-day schedule with optional weekend overrides.
type DailyMode string

const (
	DailyModeSimple   DailyMode = "simple"
	DailyModeAdvanced DailyMode = "advanced"
)

func ParseDailyMode(value string) (DailyMode, error) {
	switch DailyMode(value) {
	case DailyModeSimple, DailyModeAdvanced:
		return DailyMode(value), nil
	default:
		return "", fmt.Errorf("unknown daily mode %q", value)
	}
}

// MonthFallback is applied when a monthly reminder's day-of-month exceeds
// the length of the current month.
type MonthFallback string

const (
	FallbackLastDay MonthFallback = "last_day"
	FallbackSkip    MonthFallback = "skip"
)

func ParseMonthFallback(value string) (MonthFallback, error) {
	switch MonthFallback(value) {
	case FallbackLastDay, FallbackSkip:
		return MonthFallback(value), nil
	default:
		return "", fmt.Errorf("unknown month fallback %q", value)
	}
}

// Reminder is a recurring medication reminder owned by a single user.
// All time-of-day fields are "HH:MM" strings local to the owner's timezone.
// Deactivation is a soft delete; historical state rows are kept.
type Reminder struct {
	ReminderID int       `json:"reminder_id"`
	UserID     int64     `json:"user_id"`
	Active     bool      `json:"active"`
	Frequency  Frequency `json:"frequency"`
	BaseTime   string    `json:"base_time"`

	// Weekly: 0=Monday .. 6=Sunday.
	DayOfWeek int `json:"day_of_week"`

	// Monthly: 1..31 plus the overflow fallback.
	DayOfMonth    int           `json:"day_of_month"`
	MonthFallback MonthFallback `json:"month_fallback"`

	// Daily only.
	DailyMode           DailyMode `json:"daily_mode"`
	EvenTime            string    `json:"even_time"`
	OddTime             string    `json:"odd_time"`
	WeekendOverride     bool      `json:"weekend_override"`
	WeekendNoWorkTime   string    `json:"weekend_no_work_time"`
	WeekendWithWorkTime string    `json:"weekend_with_work_time"`
	AskHour             int       `json:"ask_hour"`

	CreatedAt time.Time `json:"created_at"`
}

// IsAdvancedDaily reports whether the reminder uses the even/odd schedule.
func (r *Reminder) IsAdvancedDaily() bool {
	return r.Frequency == FrequencyDaily && r.DailyMode == DailyModeAdvanced
}

// NeedsWorkQuestion reports whether the reminder participates in the
// evening "do you work tomorrow" flow.
func (r *Reminder) NeedsWorkQuestion() bool {
	return r.IsAdvancedDaily() && r.WeekendOverride
}

// ReminderWithOwner is a reminder joined with its owner's timezone, as
// returned by the scheduler-facing list queries.
type ReminderWithOwner struct {
	Reminder
	Timezone string `json:"timezone"`
}
