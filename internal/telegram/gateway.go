package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/logging"
)

// sendAPI captures the outbound bot methods the gateway wraps, narrow enough
// to fake in tests.
type sendAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	GetChatMemberCount(ctx context.Context, params *bot.GetChatMemberCountParams) (int, error)
	ExportChatInviteLink(ctx context.Context, params *bot.ExportChatInviteLinkParams) (string, error)
	PinChatMessage(ctx context.Context, params *bot.PinChatMessageParams) (bool, error)
	UnpinChatMessage(ctx context.Context, params *bot.UnpinChatMessageParams) (bool, error)
}

// Button is a single inline URL button.
type Button struct {
	Label string
	URL   string
}

// Gateway adapts the Telegram Bot API to the narrow surface the directory
// features need: sends, member counts, invite links, and pinning.
type Gateway struct {
	api    sendAPI
	logger *logrus.Entry
}

// NewGateway wraps the given bot API.
func NewGateway(api sendAPI, logger *logrus.Entry) *Gateway {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Gateway{
		api:    api,
		logger: logger,
	}
}

// SendMessage sends plain text to a chat, returning the message id.
// disablePreview suppresses link previews in the sent message.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string, disablePreview bool) (int, error) {
	if err := g.check(ctx); err != nil {
		return 0, err
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if disablePreview {
		params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
	}

	msg, err := g.api.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}

	return msg.ID, nil
}

// SendMessageWithButtons sends text with one full-width inline URL button per
// row. Link previews are always disabled for button messages.
func (g *Gateway) SendMessageWithButtons(ctx context.Context, chatID int64, text string, buttons []Button) (int, error) {
	if err := g.check(ctx); err != nil {
		return 0, err
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: button.Label, URL: button.URL},
		})
	}

	params := &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}
	if len(rows) > 0 {
		params.ReplyMarkup = models.InlineKeyboardMarkup{InlineKeyboard: rows}
	}

	msg, err := g.api.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("send message with buttons: %w", err)
	}

	return msg.ID, nil
}

// MemberCount fetches the current member count of a chat.
func (g *Gateway) MemberCount(ctx context.Context, chatID int64) (int, error) {
	if err := g.check(ctx); err != nil {
		return 0, err
	}

	count, err := g.api.GetChatMemberCount(ctx, &bot.GetChatMemberCountParams{ChatID: chatID})
	if err != nil {
		return 0, fmt.Errorf("get chat member count: %w", err)
	}

	return count, nil
}

// ExportInviteLink generates a primary invite link for a chat.
func (g *Gateway) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	if err := g.check(ctx); err != nil {
		return "", err
	}

	link, err := g.api.ExportChatInviteLink(ctx, &bot.ExportChatInviteLinkParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("export invite link: %w", err)
	}

	return link, nil
}

// PinMessage pins a message in a chat without notifying members.
func (g *Gateway) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := g.check(ctx); err != nil {
		return err
	}

	if _, err := g.api.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	}); err != nil {
		return fmt.Errorf("pin message: %w", err)
	}

	return nil
}

// UnpinMessage unpins a message in a chat.
func (g *Gateway) UnpinMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := g.check(ctx); err != nil {
		return err
	}

	if _, err := g.api.UnpinChatMessage(ctx, &bot.UnpinChatMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("unpin message: %w", err)
	}

	return nil
}

func (g *Gateway) check(ctx context.Context) error {
	if g == nil || g.api == nil {
		return errors.New("telegram gateway is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}
