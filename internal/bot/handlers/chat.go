package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pillbot/internal/llm"
)

// handleChat relays free-form text to the language model with the user's
// bounded conversation history.
func (h *Handlers) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	if h.llm == nil {
		h.sendMessage(msg.Chat.ID, "Chat is not configured on this bot.")
		return
	}

	typing := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	if _, err := h.api.Request(typing); err != nil {
		h.log.Debugf("Failed to send typing action: %v", err)
	}

	history := h.sessions.Append(msg.From.ID, llm.Message{
		Role:    llm.RoleUser,
		Content: msg.Text,
	})

	reply, err := h.llm.Chat(ctx, history)
	if err != nil {
		h.log.Errorf("Model call failed for user %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while talking to the model.\nTry again later, or use /clear to reset the conversation.")
		return
	}

	h.sessions.Append(msg.From.ID, llm.Message{
		Role:    llm.RoleAssistant,
		Content: reply,
	})

	// Model output is sent verbatim, without Markdown parsing.
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	if _, err := h.api.Send(out); err != nil {
		h.log.Errorf("Failed to send model reply to %d: %v", msg.Chat.ID, err)
	}
}
