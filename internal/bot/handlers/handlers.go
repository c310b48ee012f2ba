package handlers

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"pillbot/internal/llm"
	"pillbot/internal/repository"
	"pillbot/internal/session"
)

type Repositories struct {
	Users        *repository.UserRepository
	Reminders    *repository.ReminderRepository
	States       *repository.ReminderStateRepository
	WorkStatuses *repository.WorkStatusRepository
}

type Handlers struct {
	api      *tgbotapi.BotAPI
	repos    *Repositories
	llm      *llm.Client
	sessions *session.Store
	wizards  *wizardStore

	renotifyInterval time.Duration
	log              *logrus.Logger
}

func New(api *tgbotapi.BotAPI, repos *Repositories, llmClient *llm.Client, renotifyInterval time.Duration, log *logrus.Logger) *Handlers {
	return &Handlers{
		api:              api,
		repos:            repos,
		llm:              llmClient,
		sessions:         session.NewStore(),
		wizards:          newWizardStore(),
		renotifyInterval: renotifyInterval,
		log:              log,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.Users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.log.Errorf("Failed to get/create user %d: %v", msg.From.ID, err)
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "timezone":
		h.handleTimezone(ctx, msg)
	case "remind":
		h.handleRemind(msg)
	case "reminders":
		h.handleReminderList(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	case "cancel":
		h.handleCancel(msg)
	case "clear":
		h.handleClear(msg)
	case "info":
		h.handleInfo(msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

// HandleText routes non-command text: wizard input while a reminder is
// being set up, chat relay otherwise.
func (h *Handlers) HandleText(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.Users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		h.log.Errorf("Failed to get/create user %d: %v", msg.From.ID, err)
		return
	}

	if h.wizards.active(msg.From.ID) {
		h.handleWizardInput(ctx, msg)
		return
	}

	h.handleChat(ctx, msg)
}

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	h.sessions.Clear(msg.From.ID)

	text := fmt.Sprintf(`👋 Hi %s!

I can chat with you using a local language model, and I can nag you to take your medication until you confirm you did.

Commands:
/remind - set up a recurring medication reminder
/reminders - list your reminders
/delete <id> - remove a reminder
/timezone <name> - set your timezone (e.g. Europe/Moscow)
/clear - clear the chat history
/info - bot info
/help - help

Anything else you send me goes straight to the model.`, msg.From.FirstName)
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	text := `ℹ️ *How this works*

*Chat* — send any text and I reply using a local language model. History is kept per user (last 5 exchanges); /clear resets it.

*Reminders* — /remind starts a short setup dialog. Schedules can be daily, weekly or monthly. Daily reminders have an advanced mode with separate times for even and odd days and optional weekend overrides. When a reminder fires I send a meme and a ✅ button, and I keep re-sending until you press it.

*Commands:*
/remind - create a reminder
/reminders - list reminders
/delete <id> - deactivate a reminder
/timezone <name> - set timezone (IANA name, default UTC)
/cancel - abort reminder setup
/clear - clear chat history
/info - bot info`
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleClear(msg *tgbotapi.Message) {
	h.sessions.Clear(msg.From.ID)
	h.sendMessage(msg.Chat.ID, "🗑 Chat history cleared!")
}

func (h *Handlers) handleInfo(msg *tgbotapi.Message) {
	model := "not configured"
	if h.llm != nil {
		model = h.llm.Model()
	}
	text := fmt.Sprintf(`🤖 *Bot info*

Model: %s
Chat history: last %d messages
Re-notify interval: %s`,
		model, session.MaxHistory, h.renotifyInterval)
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	name := msg.CommandArguments()
	if name == "" {
		tz, err := h.repos.Users.Timezone(ctx, msg.From.ID)
		if err != nil {
			h.log.Errorf("Failed to read timezone for %d: %v", msg.From.ID, err)
			h.sendMessage(msg.Chat.ID, "Could not read your timezone, please try again later.")
			return
		}
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Your timezone is %s.\nChange it with /timezone <name>, e.g. /timezone Europe/Moscow", tz))
		return
	}

	// Reject unknown names before persisting anything.
	if _, err := time.LoadLocation(name); err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("I don't know the timezone %q. Use an IANA name like Europe/Moscow or America/New_York.", name))
		return
	}

	if err := h.repos.Users.SetTimezone(ctx, msg.From.ID, name); err != nil {
		h.log.Errorf("Failed to set timezone for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Could not save your timezone, please try again later.")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🌍 Timezone set to %s. Reminder times are interpreted in it.", name))
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := h.api.Send(msg); err != nil {
		h.log.Errorf("Failed to send message to %d: %v", chatID, err)
	}
}

func (h *Handlers) editMessageText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := h.api.Send(edit); err != nil {
		h.log.Errorf("Failed to edit message %d: %v", messageID, err)
	}
}
