package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group_helper/internal/conversation"
	"group_helper/internal/metrics"
	"group_helper/internal/model"
	"group_helper/internal/storage"
)

const msgInternalError = "⚠️ Something went wrong, please try again."

func (b *Bot) handleStart(ctx context.Context, chatID int64, from Identity) string {
	claimed := false
	if from.ID != 0 {
		var err error
		claimed, err = b.store.ClaimSuperAdmin(ctx, model.Admin{UserID: from.ID, Username: from.Username})
		if err != nil {
			b.log.Error("claim super admin", "user_id", from.ID, "error", err)
			b.reply(chatID, msgInternalError)
			return metrics.StatusError
		}
	}

	if claimed {
		b.log.Info("super admin registered", "user_id", from.ID, "username", from.Username)
		b.reply(chatID, "✅ You are now registered as the super admin.")
	} else {
		b.reply(chatID, "👋 Welcome! Use /newpost to schedule a post.")
	}
	b.reply(chatID, commandMenu)
	return metrics.StatusOK
}

func (b *Bot) handleHelp(chatID int64) string {
	b.reply(chatID, commandMenu)
	return metrics.StatusOK
}

func (b *Bot) handleWhoami(ctx context.Context, chatID int64, from Identity) string {
	role, err := b.roleOf(ctx, chatID, from)
	if err != nil {
		b.log.Error("resolve role", "user_id", from.ID, "chat_id", chatID, "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}
	b.reply(chatID, FormatWhoami(from, chatID, role))
	return metrics.StatusOK
}

// roleOf resolves the admin tier: super admin by ID, chat admin by username.
func (b *Bot) roleOf(ctx context.Context, chatID int64, from Identity) (Role, error) {
	super, err := b.superAdmin(ctx)
	if err != nil {
		return RoleNone, err
	}
	if super != nil && from.ID != 0 && super.UserID == from.ID {
		return RoleSuperAdmin, nil
	}
	ok, err := b.store.IsChatAdmin(ctx, chatID, from.Username)
	if err != nil {
		return RoleNone, err
	}
	if ok {
		return RoleChatAdmin, nil
	}
	return RoleNone, nil
}

// superAdmin returns the registered super admin, or nil if nobody ran /start yet.
func (b *Bot) superAdmin(ctx context.Context) (*model.Admin, error) {
	super, err := b.store.GetSuperAdmin(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return super, err
}

func (b *Bot) handleAddAdmin(ctx context.Context, chatID int64, from Identity, args string) string {
	requested, err := ParseUsername(args)
	if err != nil || from.Username == "" {
		b.reply(chatID, "❌ Invalid request format. Usage: /addadmin <username>")
		return metrics.StatusInvalid
	}

	super, err := b.superAdmin(ctx)
	if err != nil {
		b.log.Error("get super admin", "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}
	if super == nil {
		b.reply(chatID, "❌ No super admin is registered yet. Use /start first.")
		return metrics.StatusInvalid
	}

	req := &model.PendingRequest{
		ChatID:            chatID,
		RequestedUsername: requested,
		RequesterUsername: from.Username,
	}
	if err := b.store.CreatePendingRequest(ctx, req); err != nil {
		b.log.Error("create pending request", "chat_id", chatID, "requested", requested, "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}

	b.log.Info("admin requested", "request_id", req.ID, "chat_id", chatID, "requested", requested, "requester", from.Username)

	notice := tgbotapi.NewMessage(super.UserID, fmt.Sprintf(
		"👮 Admin request: User @%s requested to add @%s as admin in chat %d.\n\nSend /approve @%s to approve.",
		from.Username, requested, chatID, requested))
	notice.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve @"+requested, callbackApprove+":"+requested),
		),
	)
	_ = b.send(super.UserID, notice)

	b.reply(chatID, "🕵️ Request sent to super admin for approval.")
	return metrics.StatusOK
}

func (b *Bot) handleApprove(ctx context.Context, chatID int64, from Identity, args string) string {
	super, err := b.superAdmin(ctx)
	if err != nil {
		b.log.Error("get super admin", "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}
	if super == nil || from.ID == 0 || super.UserID != from.ID {
		b.log.Warn("approve denied", "user_id", from.ID, "username", from.Username)
		b.reply(chatID, "🚫 Only super admin can approve.")
		return metrics.StatusDenied
	}

	username, err := ParseUsername(args)
	if err != nil {
		b.reply(chatID, "❌ Invalid request format. Usage: /approve <username>")
		return metrics.StatusInvalid
	}

	return b.approve(ctx, chatID, super, username)
}

// approve grants every pending request for username and notifies the
// originating chats and the super admin.
func (b *Bot) approve(ctx context.Context, chatID int64, super *model.Admin, username string) string {
	approved, err := b.store.ApprovePendingRequests(ctx, username)
	if err != nil {
		b.log.Error("approve pending requests", "username", username, "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}
	if len(approved) == 0 {
		b.reply(chatID, fmt.Sprintf("❌ No pending requests found for @%s.", username))
		return metrics.StatusInvalid
	}

	notified := make(map[int64]bool, len(approved))
	for _, req := range approved {
		if notified[req.ChatID] {
			continue
		}
		notified[req.ChatID] = true

		b.log.Info("admin approved", "username", username, "chat_id", req.ChatID)
		b.reply(req.ChatID, fmt.Sprintf("✅ @%s has been approved as an admin by the super admin.", username))
		b.reply(super.UserID, fmt.Sprintf("✅ You have approved @%s as an admin for chat %d.", username, req.ChatID))
	}
	return metrics.StatusOK
}

func (b *Bot) handleNewPost(ctx context.Context, chatID int64, from Identity) string {
	role, err := b.roleOf(ctx, chatID, from)
	if err != nil {
		b.log.Error("resolve role", "user_id", from.ID, "chat_id", chatID, "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}
	if role == RoleNone {
		b.reply(chatID, "🚫 You are not authorized.")
		return metrics.StatusDenied
	}

	b.convs.Set(chatID, conversation.AwaitingContent{})
	b.reply(chatID, "📝 Send the photo or text to schedule.")
	return metrics.StatusOK
}

func (b *Bot) handleViewPosts(ctx context.Context, chatID int64) string {
	posts, err := b.store.ListPosts(ctx, chatID)
	if err != nil {
		b.log.Error("list posts", "chat_id", chatID, "error", err)
		b.reply(chatID, msgInternalError)
		return metrics.StatusError
	}
	b.reply(chatID, FormatPostList(posts))
	return metrics.StatusOK
}
