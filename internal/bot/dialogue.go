package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group_helper/internal/conversation"
	"group_helper/internal/metrics"
	"group_helper/internal/model"
)

const (
	promptTime    = `⏰ Enter time (HH:MM) or recurring (e.g. "every sunday at 13:00").`
	msgBadContent = "❌ Send text or photo."
	msgBadTime    = `❌ Invalid format. Try HH:MM or "every Sunday at 13:00"`
)

// ContentFromMessage captures the payload of a message. For photos the
// largest size variant is kept. It reports false for anything else.
func ContentFromMessage(msg *tgbotapi.Message) (model.Content, bool) {
	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		return model.Content{
			Kind:        model.ContentPhoto,
			PhotoFileID: largest.FileID,
			Caption:     msg.Caption,
		}, true
	}
	if msg.Text != "" {
		return model.Content{Kind: model.ContentText, Text: msg.Text}, true
	}
	return model.Content{}, false
}

// handleMessage drives the /newpost dialogue for non-command messages.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	state, ok := b.convs.Get(chatID)
	if !ok || strings.HasPrefix(msg.Text, "/") {
		return
	}

	b.log.Debug("dialogue message", "chat_id", chatID, "state", conversation.Name(state))

	switch st := state.(type) {
	case conversation.AwaitingContent:
		b.captureContent(chatID, msg)
	case conversation.AwaitingTime:
		b.captureTime(ctx, chatID, st, msg.Text)
	default:
		b.log.Warn("unknown dialogue state, resetting", "chat_id", chatID, "state", fmt.Sprintf("%T", st))
		b.convs.Clear(chatID)
	}
}

func (b *Bot) captureContent(chatID int64, msg *tgbotapi.Message) {
	content, ok := ContentFromMessage(msg)
	if !ok {
		b.reply(chatID, msgBadContent)
		return
	}
	b.convs.Set(chatID, conversation.AwaitingTime{Content: content})
	b.reply(chatID, promptTime)
}

func (b *Bot) captureTime(ctx context.Context, chatID int64, st conversation.AwaitingTime, text string) {
	sched, err := ParseSchedule(text)
	if err != nil {
		b.log.Debug("parse schedule", "chat_id", chatID, "text", text, "error", err)
		b.reply(chatID, msgBadTime)
		return
	}

	post := &model.Post{
		ChatID:    chatID,
		Hour:      sched.Hour,
		Minute:    sched.Minute,
		Day:       sched.Day,
		Recurring: sched.Recurring,
		Content:   st.Content,
	}
	if err := b.store.CreatePost(ctx, post); err != nil {
		b.log.Error("create post", "chat_id", chatID, "error", err)
		b.reply(chatID, msgInternalError)
		return
	}

	b.convs.Clear(chatID)
	metrics.IncScheduled(post.Recurring)
	b.log.Info("post scheduled",
		"post_id", post.ID,
		"chat_id", chatID,
		"kind", post.Content.Kind,
		"schedule", FormatSchedule(*post),
	)
	b.reply(chatID, fmt.Sprintf("✅ Post scheduled %s.", FormatSchedule(*post)))
}
