package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group_helper/internal/metrics"
)

const callbackApprove = "approve"

// handleCallback serves the inline "Approve @name" button sent with admin requests.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}

	action, arg, ok := strings.Cut(cb.Data, ":")
	if !ok || action != callbackApprove {
		return
	}

	chatID := cb.Message.Chat.ID
	from := identityOf(cb.From)

	b.log.Info("callback",
		"action", action,
		"arg", arg,
		"chat_id", chatID,
		"user_id", from.ID,
		"username", from.Username,
	)

	metrics.IncCommand(callbackApprove, b.handleApprove(ctx, chatID, from, arg))
}
