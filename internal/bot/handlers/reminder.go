package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pillbot/internal/models"
)

func (h *Handlers) handleRemind(msg *tgbotapi.Message) {
	prompt := h.wizards.begin(msg.From.ID)
	h.sendMessage(msg.Chat.ID, "Let's set up a medication reminder. You can abort any time with /cancel.\n\n"+prompt)
}

func (h *Handlers) handleCancel(msg *tgbotapi.Message) {
	if h.wizards.cancel(msg.From.ID) {
		h.sendMessage(msg.Chat.ID, "Reminder setup cancelled.")
		return
	}
	h.sendMessage(msg.Chat.ID, "Nothing to cancel.")
}

func (h *Handlers) handleReminderList(ctx context.Context, msg *tgbotapi.Message) {
	reminders, err := h.repos.Reminders.ListByUser(ctx, msg.From.ID)
	if err != nil {
		h.log.Errorf("Failed to list reminders for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Could not load your reminders, please try again later.")
		return
	}

	if len(reminders) == 0 {
		h.sendMessage(msg.Chat.ID, "💊 You have no reminders. Create one with /remind.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💊 *Your reminders*\n\n")
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("*%d.* %s\n", r.ReminderID, renderSchedule(r)))
	}
	sb.WriteString("\nRemove one with /delete <id>.")
	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	id, err := strconv.Atoi(arg)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Usage: /delete <id> — the number shown by /reminders.")
		return
	}

	removed, err := h.repos.Reminders.Deactivate(ctx, msg.From.ID, id)
	if err != nil {
		h.log.Errorf("Failed to deactivate reminder %d for %d: %v", id, msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Could not remove the reminder, please try again later.")
		return
	}
	if !removed {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("You have no reminder #%d.", id))
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 Reminder #%d removed.", id))
}

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// renderSchedule describes a reminder's recurrence rule in one line.
func renderSchedule(r *models.Reminder) string {
	switch r.Frequency {
	case models.FrequencyWeekly:
		day := "?"
		if r.DayOfWeek >= 0 && r.DayOfWeek < 7 {
			day = weekdayNames[r.DayOfWeek]
		}
		return fmt.Sprintf("weekly on %s at %s", day, r.BaseTime)

	case models.FrequencyMonthly:
		s := fmt.Sprintf("monthly on day %d at %s", r.DayOfMonth, r.BaseTime)
		if r.DayOfMonth > 28 {
			if r.MonthFallback == models.FallbackSkip {
				s += " (skipped in shorter months)"
			} else {
				s += " (last day in shorter months)"
			}
		}
		return s

	case models.FrequencyDaily:
		if r.DailyMode != models.DailyModeAdvanced {
			return fmt.Sprintf("daily at %s", r.BaseTime)
		}
		s := fmt.Sprintf("daily at %s (even days) / %s (odd days)", r.EvenTime, r.OddTime)
		if r.WeekendOverride {
			s += fmt.Sprintf(", weekends %s (day off) / %s (workday), asked at %02d:00 the evening before",
				r.WeekendNoWorkTime, r.WeekendWithWorkTime, r.AskHour)
		}
		return s

	default:
		return string(r.Frequency)
	}
}
