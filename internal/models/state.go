package models

import "time"

// DateLayout is the canonical key format for per-date state rows.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date. The result is midnight UTC of
// the same year/month/day, so it round-trips through a DATE column
// regardless of the timezone t was observed in.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ReminderState tracks delivery per (reminder, calendar date in the
// owner's timezone): unsent -> sent -> acknowledged. One row per reminder
// per date, created on the first delivery attempt. Acknowledged is
// terminal for the date.
type ReminderState struct {
	ReminderID   int        `json:"reminder_id"`
	StateDate    time.Time  `json:"state_date"`
	LastSent     *time.Time `json:"last_sent"` // UTC
	Acknowledged bool       `json:"acknowledged"`
}

// WorkStatus records the evening "do you work tomorrow" question for an
// advanced-daily reminder. TargetDate is the weekend date the answer
// applies to, not the evening the question was asked.
type WorkStatus struct {
	ReminderID int       `json:"reminder_id"`
	TargetDate time.Time `json:"target_date"`
	AskedAt    time.Time `json:"asked_at"`
	Responded  bool      `json:"responded"`
	HasWork    bool      `json:"has_work"` // valid only when Responded
}
