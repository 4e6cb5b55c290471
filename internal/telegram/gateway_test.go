package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func newTestGateway(t *testing.T) (*Gateway, *fakeBot) {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	b := &fakeBot{}
	return NewGateway(b, logrus.NewEntry(logger)), b
}

func TestGatewaySendMessage(t *testing.T) {
	g, b := newTestGateway(t)

	id, err := g.SendMessage(context.Background(), 42, "hello", false)
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected message id 1, got %d", id)
	}
	if b.sent[0].LinkPreviewOptions != nil {
		t.Fatalf("expected link preview untouched when not disabled")
	}

	if _, err := g.SendMessage(context.Background(), 42, "with link", true); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	opts := b.sent[1].LinkPreviewOptions
	if opts == nil || opts.IsDisabled == nil || !*opts.IsDisabled {
		t.Fatalf("expected link preview disabled")
	}
}

func TestGatewaySendMessageWithButtons(t *testing.T) {
	g, b := newTestGateway(t)

	buttons := []Button{
		{Label: "One (channel)", URL: "https://t.me/one"},
		{Label: "Two (group)", URL: "https://t.me/two"},
	}

	if _, err := g.SendMessageWithButtons(context.Background(), -100, "join us", buttons); err != nil {
		t.Fatalf("SendMessageWithButtons returned error: %v", err)
	}

	markup, ok := b.sent[0].ReplyMarkup.(models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard markup, got %T", b.sent[0].ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected one row per button, got %d rows", len(markup.InlineKeyboard))
	}
	for i, row := range markup.InlineKeyboard {
		if len(row) != 1 {
			t.Fatalf("expected full-width buttons, row %d has %d", i, len(row))
		}
		if row[0].Text != buttons[i].Label || row[0].URL != buttons[i].URL {
			t.Fatalf("unexpected button %d: %+v", i, row[0])
		}
	}
}

func TestGatewayPinUnpin(t *testing.T) {
	g, b := newTestGateway(t)
	ctx := context.Background()

	if err := g.PinMessage(ctx, -100, 55); err != nil {
		t.Fatalf("PinMessage returned error: %v", err)
	}
	if err := g.UnpinMessage(ctx, -100, 55); err != nil {
		t.Fatalf("UnpinMessage returned error: %v", err)
	}

	if len(b.pinned) != 1 || b.pinned[0] != 55 {
		t.Fatalf("expected message 55 pinned, got %v", b.pinned)
	}
	if len(b.unpinned) != 1 || b.unpinned[0] != 55 {
		t.Fatalf("expected message 55 unpinned, got %v", b.unpinned)
	}
}
