package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"group_helper/internal/conversation"
	"group_helper/internal/metrics"
	"group_helper/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles admin commands and the /newpost dialogue.
type Bot struct {
	api   telegramAPI
	store storage.Storage
	convs *conversation.Store
	log   *slog.Logger
}

// New creates a Bot with the given Telegram token and storage.
func New(token string, store storage.Storage, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("authorized on telegram", "username", api.Self.UserName)

	return &Bot{
		api:   api,
		store: store,
		convs: conversation.NewStore(),
		log:   log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	if update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message)
		return
	}
	b.handleMessage(ctx, update.Message)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	return b.send(chatID, tgbotapi.NewMessage(chatID, text))
}

// SendPhoto sends an already uploaded photo, referenced by file ID, with an optional caption.
func (b *Bot) SendPhoto(chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	return b.send(chatID, photo)
}

func (b *Bot) send(chatID int64, c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	_ = b.SendMessage(chatID, text)
}

func identityOf(u *tgbotapi.User) Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	from := identityOf(msg.From)

	b.log.Info("command",
		"cmd", cmd,
		"args", args,
		"chat_id", chatID,
		"user_id", from.ID,
		"username", from.Username,
	)

	var status string
	switch cmd {
	case "start":
		status = b.handleStart(ctx, chatID, from)
	case "help":
		status = b.handleHelp(chatID)
	case "whoami":
		status = b.handleWhoami(ctx, chatID, from)
	case "addadmin":
		status = b.handleAddAdmin(ctx, chatID, from, args)
	case "approve":
		status = b.handleApprove(ctx, chatID, from, args)
	case "newpost":
		status = b.handleNewPost(ctx, chatID, from)
	case "viewposts":
		status = b.handleViewPosts(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
		return
	}
	metrics.IncCommand(cmd, status)
}
