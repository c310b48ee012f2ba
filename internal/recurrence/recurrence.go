// Package recurrence decides, for an arbitrary calendar date, whether a
// reminder applies and which wall-clock time it fires at. Pure functions,
// no I/O; dates are interpreted in the owner's timezone by the caller.
package recurrence

import (
	"fmt"
	"time"

	"pillbot/internal/models"
)

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// WeekdayIndex maps time.Weekday to the 0=Monday .. 6=Sunday scheme the
// reminder model uses.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsDue reports whether the reminder's recurrence rule matches the date.
// Monthly overflow (e.g. the 31st in a 30-day month) is resolved against
// the actual length of the month via the reminder's fallback policy.
func IsDue(r *models.Reminder, date time.Time) bool {
	switch r.Frequency {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly:
		return WeekdayIndex(date) == r.DayOfWeek
	case models.FrequencyMonthly:
		last := LastDayOfMonth(date.Year(), date.Month())
		if r.DayOfMonth <= last {
			return date.Day() == r.DayOfMonth
		}
		if r.MonthFallback == models.FallbackLastDay {
			return date.Day() == last
		}
		return false
	default:
		return false
	}
}

// ResolveTime returns the "HH:MM" wall-clock time the reminder fires at
// on the given date. hasWork carries the user's answer to the weekend
// work question; nil means unanswered, which selects the no-work variant.
// The second return is false when no time is configured for the date.
func ResolveTime(r *models.Reminder, date time.Time, hasWork *bool) (string, bool) {
	if !r.IsAdvancedDaily() {
		return clock(r.BaseTime)
	}
	if r.WeekendOverride && IsWeekend(date) {
		if hasWork != nil && *hasWork {
			return firstSet(r.WeekendWithWorkTime, r.BaseTime)
		}
		return firstSet(r.WeekendNoWorkTime, r.BaseTime)
	}
	if date.Day()%2 == 0 {
		return firstSet(r.EvenTime, r.BaseTime)
	}
	return firstSet(r.OddTime, r.BaseTime)
}

// At combines a date, an "HH:MM" clock value and a location into the
// local due datetime for that date.
func At(date time.Time, clockValue string, loc *time.Location) (time.Time, error) {
	hour, min, err := ParseClock(clockValue)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, loc), nil
}

// ParseClock validates an "HH:MM" string.
func ParseClock(value string) (hour, min int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}

func clock(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	return value, true
}

func firstSet(values ...string) (string, bool) {
	for _, v := range values {
		if v != "" {
			return v, true
		}
	}
	return "", false
}
