package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pillbot/internal/models"
	"pillbot/internal/repository"
)

// callbackAction is a parsed inline-button press:
//
//	ack:<reminderID>:<date>
//	work:<yes|no>:<reminderID>:<date>
type callbackAction struct {
	Kind       string // "ack" or "work"
	HasWork    bool   // work answers only
	ReminderID int
	Date       time.Time
}

func parseCallback(data string) (*callbackAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return nil, fmt.Errorf("malformed callback data %q", data)
	}

	action := &callbackAction{Kind: parts[0]}
	idPart, datePart := parts[1], parts[2]

	if action.Kind == "work" {
		if len(parts) != 4 {
			return nil, fmt.Errorf("malformed work callback %q", data)
		}
		switch parts[1] {
		case "yes":
			action.HasWork = true
		case "no":
			action.HasWork = false
		default:
			return nil, fmt.Errorf("unknown work answer %q", parts[1])
		}
		idPart, datePart = parts[2], parts[3]
	} else if action.Kind != "ack" || len(parts) != 3 {
		return nil, fmt.Errorf("unknown callback kind %q", data)
	}

	id, err := strconv.Atoi(idPart)
	if err != nil {
		return nil, fmt.Errorf("bad reminder id in callback %q: %w", data, err)
	}
	action.ReminderID = id

	date, err := time.Parse(models.DateLayout, datePart)
	if err != nil {
		return nil, fmt.Errorf("bad date in callback %q: %w", data, err)
	}
	action.Date = date

	return action, nil
}

func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	action, err := parseCallback(callback.Data)
	if err != nil {
		h.log.Warnf("Ignoring callback from %d: %v", callback.From.ID, err)
		h.answerCallback(callback.ID, "")
		return
	}

	// Only the owner may act on a reminder.
	if _, err := h.repos.Reminders.GetByID(ctx, action.ReminderID, callback.From.ID); err != nil {
		if errors.Is(err, repository.ErrReminderNotFound) {
			h.answerCallback(callback.ID, "This is not your reminder.")
			return
		}
		h.log.Errorf("Failed to load reminder %d: %v", action.ReminderID, err)
		h.answerCallback(callback.ID, "Something went wrong, try again.")
		return
	}

	switch action.Kind {
	case "ack":
		h.handleAck(ctx, callback, action)
	case "work":
		h.handleWorkAnswer(ctx, callback, action)
	}
}

// handleAck marks the (reminder, date) acknowledged. The upsert makes a
// repeated press a harmless no-op.
func (h *Handlers) handleAck(ctx context.Context, callback *tgbotapi.CallbackQuery, action *callbackAction) {
	if err := h.repos.States.Acknowledge(ctx, callback.From.ID, action.ReminderID, action.Date); err != nil {
		h.log.Errorf("Failed to acknowledge reminder %d for %s: %v",
			action.ReminderID, action.Date.Format(models.DateLayout), err)
		h.answerCallback(callback.ID, "Could not save that, try again.")
		return
	}

	h.answerCallback(callback.ID, "Marked as taken ✅")
	if callback.Message != nil {
		h.clearInlineKeyboard(callback.Message.Chat.ID, callback.Message.MessageID)
	}
	h.log.Infof("Reminder %d acknowledged for %s by user %d",
		action.ReminderID, action.Date.Format(models.DateLayout), callback.From.ID)
}

func (h *Handlers) handleWorkAnswer(ctx context.Context, callback *tgbotapi.CallbackQuery, action *callbackAction) {
	if err := h.repos.WorkStatuses.SetResponse(ctx, action.ReminderID, action.Date, action.HasWork); err != nil {
		h.log.Errorf("Failed to save work answer for reminder %d on %s: %v",
			action.ReminderID, action.Date.Format(models.DateLayout), err)
		h.answerCallback(callback.ID, "Could not save that, try again.")
		return
	}

	h.answerCallback(callback.ID, "")
	if callback.Message != nil {
		reply := "Got it — enjoy your day off! I'll use the later weekend time."
		if action.HasWork {
			reply = "Got it — working tomorrow. I'll use the earlier weekend time."
		}
		h.editMessageText(callback.Message.Chat.ID, callback.Message.MessageID, reply)
	}
}

func (h *Handlers) answerCallback(callbackID, text string) {
	answer := tgbotapi.NewCallback(callbackID, text)
	if _, err := h.api.Request(answer); err != nil {
		h.log.Errorf("Failed to answer callback: %v", err)
	}
}

func (h *Handlers) clearInlineKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := h.api.Request(edit); err != nil {
		h.log.Debugf("Failed to clear inline keyboard on message %d: %v", messageID, err)
	}
}
