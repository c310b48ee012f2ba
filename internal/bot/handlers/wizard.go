package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pillbot/internal/models"
	"pillbot/internal/recurrence"
)

// The reminder setup dialog is an explicit finite-state machine: every
// state has a prompt and a transition that parses one user input and
// names the next state. /cancel aborts from any state.

type wizardState string

const (
	stateFrequency       wizardState = "frequency"
	stateDailyMode       wizardState = "daily_mode"
	stateTime            wizardState = "time"
	stateWeekday         wizardState = "weekday"
	stateMonthDay        wizardState = "month_day"
	stateMonthFallback   wizardState = "month_fallback"
	stateEvenTime        wizardState = "even_time"
	stateOddTime         wizardState = "odd_time"
	stateWeekendChoice   wizardState = "weekend_choice"
	stateWeekendNoWork   wizardState = "weekend_no_work"
	stateWeekendWithWork wizardState = "weekend_with_work"
	stateAskHour         wizardState = "ask_hour"
	stateDone            wizardState = "done"
)

type transition struct {
	prompt string
	apply  func(draft *models.Reminder, input string) (wizardState, error)
}

var transitions = map[wizardState]transition{
	stateFrequency: {
		prompt: "How often should I remind you? (daily / weekly / monthly)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			freq, err := models.ParseFrequency(input)
			if err != nil {
				return "", fmt.Errorf("please answer daily, weekly or monthly")
			}
			d.Frequency = freq
			switch freq {
			case models.FrequencyWeekly:
				return stateWeekday, nil
			case models.FrequencyMonthly:
				return stateMonthDay, nil
			default:
				return stateDailyMode, nil
			}
		},
	},
	stateDailyMode: {
		prompt: "Same time every day, or different times for even and odd days of the month? (simple / advanced)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			mode, err := models.ParseDailyMode(input)
			if err != nil {
				return "", fmt.Errorf("please answer simple or advanced")
			}
			d.DailyMode = mode
			if mode == models.DailyModeAdvanced {
				return stateEvenTime, nil
			}
			return stateTime, nil
		},
	},
	stateTime: {
		prompt: "What time? (HH:MM, 24-hour)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			if _, _, err := recurrence.ParseClock(input); err != nil {
				return "", fmt.Errorf("that doesn't look like a time — use HH:MM, e.g. 09:00")
			}
			d.BaseTime = input
			return stateDone, nil
		},
	},
	stateWeekday: {
		prompt: "Which day of the week? (monday .. sunday, or 0-6 where 0 is Monday)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			day, err := parseWeekday(input)
			if err != nil {
				return "", err
			}
			d.DayOfWeek = day
			return stateTime, nil
		},
	},
	stateMonthDay: {
		prompt: "Which day of the month? (1-31)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			day, err := strconv.Atoi(input)
			if err != nil || day < 1 || day > 31 {
				return "", fmt.Errorf("please give a day between 1 and 31")
			}
			d.DayOfMonth = day
			d.MonthFallback = models.FallbackLastDay
			if day > 28 {
				return stateMonthFallback, nil
			}
			return stateTime, nil
		},
	},
	stateMonthFallback: {
		prompt: "Some months are shorter than that. Use the last day of those months, or skip them? (last / skip)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			switch input {
			case "last", "last day", "last_day":
				d.MonthFallback = models.FallbackLastDay
			case "skip":
				d.MonthFallback = models.FallbackSkip
			default:
				return "", fmt.Errorf("please answer last or skip")
			}
			return stateTime, nil
		},
	},
	stateEvenTime: {
		prompt: "Time on even days of the month? (HH:MM)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			if _, _, err := recurrence.ParseClock(input); err != nil {
				return "", fmt.Errorf("that doesn't look like a time — use HH:MM, e.g. 08:00")
			}
			d.EvenTime = input
			return stateOddTime, nil
		},
	},
	stateOddTime: {
		prompt: "Time on odd days of the month? (HH:MM)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			if _, _, err := recurrence.ParseClock(input); err != nil {
				return "", fmt.Errorf("that doesn't look like a time — use HH:MM, e.g. 20:00")
			}
			d.OddTime = input
			return stateWeekendChoice, nil
		},
	},
	stateWeekendChoice: {
		prompt: "Use different times on weekends, depending on whether you work? (yes / no)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			switch input {
			case "yes", "y":
				d.WeekendOverride = true
				return stateWeekendNoWork, nil
			case "no", "n":
				return stateDone, nil
			default:
				return "", fmt.Errorf("please answer yes or no")
			}
		},
	},
	stateWeekendNoWork: {
		prompt: "Weekend time when you are NOT working? (HH:MM)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			if _, _, err := recurrence.ParseClock(input); err != nil {
				return "", fmt.Errorf("that doesn't look like a time — use HH:MM, e.g. 10:00")
			}
			d.WeekendNoWorkTime = input
			return stateWeekendWithWork, nil
		},
	},
	stateWeekendWithWork: {
		prompt: "Weekend time when you ARE working? (HH:MM)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			if _, _, err := recurrence.ParseClock(input); err != nil {
				return "", fmt.Errorf("that doesn't look like a time — use HH:MM, e.g. 07:30")
			}
			d.WeekendWithWorkTime = input
			return stateAskHour, nil
		},
	},
	stateAskHour: {
		prompt: "At what hour in the evening should I ask whether you work the next day? (0-23)",
		apply: func(d *models.Reminder, input string) (wizardState, error) {
			hour, err := strconv.Atoi(input)
			if err != nil || hour < 0 || hour > 23 {
				return "", fmt.Errorf("please give an hour between 0 and 23")
			}
			d.AskHour = hour
			return stateDone, nil
		},
	},
}

var weekdayByName = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

func parseWeekday(input string) (int, error) {
	if day, ok := weekdayByName[input]; ok {
		return day, nil
	}
	day, err := strconv.Atoi(input)
	if err != nil || day < 0 || day > 6 {
		return 0, fmt.Errorf("please give a weekday name or a number 0-6 (0 is Monday)")
	}
	return day, nil
}

const wizardTimeout = 10 * time.Minute

type wizard struct {
	state     wizardState
	draft     models.Reminder
	expiresAt time.Time
}

// feed applies one input. It returns the next prompt, whether the dialog
// finished, and a validation error that re-prompts without changing state.
func (w *wizard) feed(input string) (prompt string, done bool, err error) {
	tr, ok := transitions[w.state]
	if !ok {
		return "", true, fmt.Errorf("wizard in unknown state %q", w.state)
	}
	next, err := tr.apply(&w.draft, strings.ToLower(strings.TrimSpace(input)))
	if err != nil {
		return "", false, err
	}
	w.state = next
	if next == stateDone {
		return "", true, nil
	}
	return transitions[next].prompt, false, nil
}

type wizardStore struct {
	mu     sync.Mutex
	byUser map[int64]*wizard
}

func newWizardStore() *wizardStore {
	return &wizardStore{byUser: make(map[int64]*wizard)}
}

// begin starts (or restarts) a wizard and returns the first prompt.
func (s *wizardStore) begin(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = &wizard{
		state:     stateFrequency,
		draft:     models.Reminder{Active: true, UserID: userID},
		expiresAt: time.Now().Add(wizardTimeout),
	}
	return transitions[stateFrequency].prompt
}

func (s *wizardStore) active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byUser[userID]
	if ok && time.Now().After(w.expiresAt) {
		delete(s.byUser, userID)
		return false
	}
	return ok
}

func (s *wizardStore) get(userID int64) *wizard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUser[userID]
}

func (s *wizardStore) cancel(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byUser[userID]
	delete(s.byUser, userID)
	return ok
}

func (h *Handlers) handleWizardInput(ctx context.Context, msg *tgbotapi.Message) {
	w := h.wizards.get(msg.From.ID)
	if w == nil {
		return
	}

	prompt, done, err := w.feed(msg.Text)
	if err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("%s\n\n%s", capitalize(err.Error()), transitions[w.state].prompt))
		return
	}
	if !done {
		h.sendMessage(msg.Chat.ID, prompt)
		return
	}

	h.wizards.cancel(msg.From.ID)

	reminder := w.draft
	if err := h.repos.Reminders.Create(ctx, &reminder); err != nil {
		h.log.Errorf("Failed to create reminder for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Could not save the reminder, please try /remind again.")
		return
	}

	h.log.Infof("User %d created reminder %d (%s)", msg.From.ID, reminder.ReminderID, reminder.Frequency)
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Reminder *%d* created: %s", reminder.ReminderID, renderSchedule(&reminder)))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
