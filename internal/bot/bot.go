package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"pillbot/internal/bot/handlers"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *handlers.Handlers
	log      *logrus.Logger
}

func New(api *tgbotapi.BotAPI, h *handlers.Handlers, log *logrus.Logger) *Bot {
	return &Bot{api: api, handlers: h, log: log}
}

// Start runs the long-poll update loop until the context is cancelled.
// Each update is handled in its own goroutine so a slow model call or
// delivery never blocks other users.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Infof("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handlers.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	if update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
		return
	}
	if update.Message.Text != "" {
		b.handlers.HandleText(ctx, update.Message)
	}
}
