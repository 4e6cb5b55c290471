// Package telegram hosts the Telegram client, update routing, and the gateway
// adapter used by the directory features.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/config"
	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/logging"
)

// genericFailureText is sent when a handler fails for reasons the user cannot
// act on.
const genericFailureText = "Something went wrong, please try again later."

type botRunner interface {
	Start(ctx context.Context)
	sendAPI
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"my_chat_member",
	}

	createBot = func(token string, options ...bot.Option) (botRunner, error) {
		return bot.New(token, options...)
	}
)

// PromotionEvent describes the bot being promoted to administrator in a chat.
type PromotionEvent struct {
	ChatID   int64
	Title    string
	Username string
	ChatType string // domain.ChatTypeChannel or domain.ChatTypeGroup
	ActorID  int64
}

// PromotionHandler reacts to the bot being promoted to administrator.
type PromotionHandler interface {
	HandlePromotion(ctx context.Context, event PromotionEvent)
}

// CommandHandler produces the reply text for each user-issued command.
type CommandHandler interface {
	Start(ctx context.Context, userID int64) string
	Help(ctx context.Context, userID int64) string
	Register(ctx context.Context, userID int64) (string, error)
	MyChannels(ctx context.Context, userID int64) (string, error)
	Directory(ctx context.Context) (string, error)
}

// Client wraps the Telegram bot instance, routing updates to the bound
// promotion and command handlers.
type Client struct {
	bot        botRunner
	gateway    *Gateway
	logger     *logrus.Entry
	promotions PromotionHandler
	commands   CommandHandler
}

// NewClient initializes the Telegram bot with long polling. Handlers are bound
// afterwards via Bind, before Start.
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	client.gateway = NewGateway(tgBot, logger)

	return client, nil
}

// Gateway returns the outbound messaging adapter backed by this client.
func (c *Client) Gateway() *Gateway {
	return c.gateway
}

// Bind attaches the promotion and command handlers. Must be called before
// Start; unbound handlers cause matching updates to be logged and dropped.
func (c *Client) Bind(promotions PromotionHandler, commands CommandHandler) {
	c.promotions = promotions
	c.commands = commands
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	switch {
	case update.MyChatMember != nil:
		c.handleChatMemberUpdate(ctx, update.MyChatMember)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	}
}

func (c *Client) handleChatMemberUpdate(ctx context.Context, change *models.ChatMemberUpdated) {
	event, ok := promotionEvent(change)
	if !ok {
		c.logger.WithFields(logging.Fields{
			"event":   "member_update_ignored",
			"chat_id": change.Chat.ID,
		}).Debug("chat member update is not a promotion")
		return
	}

	if c.promotions == nil {
		c.logger.WithFields(logging.Fields{
			"event":   "promotion_dropped",
			"chat_id": event.ChatID,
		}).Warn("no promotion handler bound, dropping event")
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":     "promotion_received",
		"chat_id":   event.ChatID,
		"chat_type": event.ChatType,
		"actor_id":  event.ActorID,
	}).Info("bot promoted to administrator")

	c.promotions.HandlePromotion(ctx, event)
}

// promotionEvent extracts a registration trigger from a chat member update:
// the bot's status became administrator in a channel or supergroup.
func promotionEvent(change *models.ChatMemberUpdated) (PromotionEvent, bool) {
	if change == nil {
		return PromotionEvent{}, false
	}
	if change.NewChatMember.Type != models.ChatMemberTypeAdministrator {
		return PromotionEvent{}, false
	}
	if change.OldChatMember.Type == models.ChatMemberTypeAdministrator ||
		change.OldChatMember.Type == models.ChatMemberTypeOwner {
		return PromotionEvent{}, false
	}

	var chatType string
	switch change.Chat.Type {
	case models.ChatTypeChannel:
		chatType = domain.ChatTypeChannel
	case models.ChatTypeSupergroup:
		chatType = domain.ChatTypeGroup
	default:
		return PromotionEvent{}, false
	}

	return PromotionEvent{
		ChatID:   change.Chat.ID,
		Title:    change.Chat.Title,
		Username: change.Chat.Username,
		ChatType: chatType,
		ActorID:  change.From.ID,
	}, true
}

func (c *Client) handleMessage(ctx context.Context, msg *models.Message) {
	command := parseCommand(msg.Text)
	if command == "" {
		return
	}
	if msg.From == nil {
		return
	}

	if c.commands == nil {
		c.logger.WithFields(logging.Fields{
			"event":   "command_dropped",
			"chat_id": msg.Chat.ID,
			"command": command,
		}).Warn("no command handler bound, dropping command")
		return
	}

	var (
		reply string
		err   error
	)

	switch command {
	case "/start":
		reply = c.commands.Start(ctx, msg.From.ID)
	case "/help":
		reply = c.commands.Help(ctx, msg.From.ID)
	case "/register":
		reply, err = c.commands.Register(ctx, msg.From.ID)
	case "/mychannels":
		reply, err = c.commands.MyChannels(ctx, msg.From.ID)
	case "/channels":
		reply, err = c.commands.Directory(ctx)
	default:
		c.logger.WithFields(logging.Fields{
			"event":   "command_unknown",
			"chat_id": msg.Chat.ID,
			"command": command,
		}).Debug("ignoring unknown command")
		return
	}

	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "command_error",
			"chat_id": msg.Chat.ID,
			"command": command,
		}).WithError(err).Error("command handler failed")
		reply = genericFailureText
	}

	if _, sendErr := c.gateway.SendMessage(ctx, msg.Chat.ID, reply, true); sendErr != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "command_reply_error",
			"chat_id": msg.Chat.ID,
			"command": command,
		}).WithError(sendErr).Error("failed to send command reply")
	}
}

// parseCommand extracts a normalized leading slash command from message text,
// stripping any @botname suffix. Empty when the text is not a command.
func parseCommand(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return ""
	}

	command := strings.Fields(trimmed)[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	return strings.ToLower(command)
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
