// Package notify delivers reminder notifications and work questions over
// Telegram. Delivery degrades gracefully: if the image attachment cannot
// be fetched or sent, the reminder still goes out as plain text.
package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"pillbot/internal/meme"
	"pillbot/internal/models"
)

// ImageSource provides the fun-image attachment for reminders.
type ImageSource interface {
	Random(ctx context.Context) (*meme.Meme, error)
}

type Telegram struct {
	api    *tgbotapi.BotAPI
	images ImageSource
	log    *logrus.Logger
}

func NewTelegram(api *tgbotapi.BotAPI, images ImageSource, log *logrus.Logger) *Telegram {
	return &Telegram{api: api, images: images, log: log}
}

// AckCallback builds the callback token carried by the acknowledge button.
func AckCallback(reminderID int, date time.Time) string {
	return fmt.Sprintf("ack:%d:%s", reminderID, date.Format(models.DateLayout))
}

// WorkCallback builds the callback token for a work-question answer.
func WorkCallback(answer string, reminderID int, date time.Time) string {
	return fmt.Sprintf("work:%s:%d:%s", answer, reminderID, date.Format(models.DateLayout))
}

// SendReminder delivers the medication reminder with an acknowledge
// button, attaching a fun image when one can be fetched.
func (t *Telegram) SendReminder(ctx context.Context, userID int64, reminderID int, date time.Time) error {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Taken", AckCallback(reminderID, date)),
		),
	)

	if m, err := t.images.Random(ctx); err == nil && m.URL != "" {
		photo := tgbotapi.NewPhoto(userID, tgbotapi.FileURL(m.URL))
		photo.Caption = "💊 Time to take your pills!\n\n" + m.Title
		photo.ReplyMarkup = markup
		if _, err := t.api.Send(photo); err == nil {
			return nil
		} else {
			t.log.WithFields(logrus.Fields{"user_id": userID, "reminder_id": reminderID}).
				Warnf("Photo delivery failed, falling back to text: %v", err)
		}
	} else if err != nil {
		t.log.WithField("reminder_id", reminderID).Warnf("Image fetch failed, falling back to text: %v", err)
	}

	msg := tgbotapi.NewMessage(userID, "💊 "+meme.FallbackText)
	msg.ReplyMarkup = markup
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", userID, err)
	}
	return nil
}

// SendWorkQuestion asks whether the user works on the (weekend) target
// date, with inline yes/no buttons.
func (t *Telegram) SendWorkQuestion(ctx context.Context, userID int64, reminderID int, date time.Time) error {
	text := fmt.Sprintf(
		"🗓 Tomorrow (%s) is a weekend day. Do you work tomorrow?",
		date.Format("Monday, Jan 2"),
	)
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", WorkCallback("yes", reminderID, date)),
			tgbotapi.NewInlineKeyboardButtonData("No", WorkCallback("no", reminderID, date)),
		),
	)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send work question to user %d: %w", userID, err)
	}
	return nil
}
