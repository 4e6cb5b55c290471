// Package broadcast delivers the recurring cross-promotion message to every
// approved channel, grouped by size tier.
package broadcast

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/logging"
	"tg_promo_directory_bot/internal/telegram"
)

const (
	// maxButtons caps the inline keyboard; every approved channel still
	// receives the message.
	maxButtons = 20
	// defaultUnpinDelay is how long the header stays pinned in channels.
	defaultUnpinDelay = 30 * time.Second
)

type directoryStore interface {
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

type gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, disablePreview bool) (int, error)
	SendMessageWithButtons(ctx context.Context, chatID int64, text string, buttons []telegram.Button) (int, error)
	PinMessage(ctx context.Context, chatID int64, messageID int) error
	UnpinMessage(ctx context.Context, chatID int64, messageID int) error
}

// Broadcaster composes and fans out the per-tier promotion messages.
type Broadcaster struct {
	store      directoryStore
	gateway    gateway
	interval   time.Duration
	unpinDelay time.Duration
	logger     *logrus.Entry

	wg sync.WaitGroup
}

// NewBroadcaster constructs a Broadcaster. interval is only used to render the
// cadence in the footer text.
func NewBroadcaster(store directoryStore, gateway gateway, interval time.Duration, logger *logrus.Entry) *Broadcaster {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Broadcaster{
		store:      store,
		gateway:    gateway,
		interval:   interval,
		unpinDelay: defaultUnpinDelay,
		logger:     logger,
	}
}

// Run executes one full broadcast round. Per-channel failures are logged and
// never abort the remaining channels or tiers.
func (b *Broadcaster) Run(ctx context.Context) {
	if b == nil || b.store == nil || b.gateway == nil {
		return
	}

	channels, err := b.store.ListChannels(ctx)
	if err != nil {
		b.logger.WithField("event", "broadcast_error").WithError(err).Error("failed to list channels")
		return
	}

	byTier := make(map[string][]domain.Channel, len(domain.Tiers))
	for _, channel := range channels {
		if !channel.IsApproved {
			continue
		}
		byTier[channel.Category] = append(byTier[channel.Category], channel)
	}

	for _, tier := range domain.Tiers {
		tierChannels := byTier[tier]
		if len(tierChannels) == 0 {
			continue
		}
		b.broadcastTier(ctx, tier, tierChannels)
	}
}

// Wait blocks until all scheduled unpin tasks have finished or been dropped.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

func (b *Broadcaster) broadcastTier(ctx context.Context, tier string, channels []domain.Channel) {
	header := headerText(tier, len(channels))
	buttons := tierButtons(channels)
	footer := footerText(b.interval)

	b.logger.WithFields(logging.Fields{
		"event":    "broadcast_tier",
		"tier":     tier,
		"channels": len(channels),
	}).Info("broadcasting tier")

	for _, channel := range channels {
		chatID, err := strconv.ParseInt(channel.ChannelID, 10, 64)
		if err != nil {
			b.logger.WithFields(logging.Fields{
				"event":      "broadcast_skip",
				"channel_id": channel.ChannelID,
			}).WithError(err).Error("channel id is not numeric")
			continue
		}

		messageID, err := b.gateway.SendMessageWithButtons(ctx, chatID, header, buttons)
		if err != nil {
			b.logger.WithFields(logging.Fields{
				"event":      "broadcast_send_error",
				"channel_id": channel.ChannelID,
			}).WithError(err).Error("failed to send tier header")
			continue
		}

		if _, err := b.gateway.SendMessage(ctx, chatID, footer, true); err != nil {
			b.logger.WithFields(logging.Fields{
				"event":      "broadcast_footer_error",
				"channel_id": channel.ChannelID,
			}).WithError(err).Error("failed to send footer")
		}

		// Pinning is only possible where the bot posts as the channel itself;
		// groups keep the message unpinned.
		if channel.Type == domain.ChatTypeChannel {
			if err := b.gateway.PinMessage(ctx, chatID, messageID); err != nil {
				b.logger.WithFields(logging.Fields{
					"event":      "broadcast_pin_error",
					"channel_id": channel.ChannelID,
				}).WithError(err).Error("failed to pin header")
				continue
			}
			b.scheduleUnpin(ctx, chatID, messageID)
		}
	}
}

// scheduleUnpin removes the pinned header after the configured delay. Pending
// unpins are dropped with a warning when the broadcast context is canceled.
func (b *Broadcaster) scheduleUnpin(ctx context.Context, chatID int64, messageID int) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		timer := time.NewTimer(b.unpinDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			b.logger.WithFields(logging.Fields{
				"event":      "unpin_dropped",
				"chat_id":    chatID,
				"message_id": messageID,
			}).Warn("dropping scheduled unpin on shutdown")
			return
		}

		if err := b.gateway.UnpinMessage(context.Background(), chatID, messageID); err != nil {
			b.logger.WithFields(logging.Fields{
				"event":      "unpin_error",
				"chat_id":    chatID,
				"message_id": messageID,
			}).WithError(err).Error("failed to unpin header")
		}
	}()
}

func tierButtons(channels []domain.Channel) []telegram.Button {
	limit := len(channels)
	if limit > maxButtons {
		limit = maxButtons
	}

	buttons := make([]telegram.Button, 0, limit)
	for _, channel := range channels[:limit] {
		url := channel.JoinURL()
		if url == "" {
			continue
		}
		buttons = append(buttons, telegram.Button{
			Label: fmt.Sprintf("%s (%s)", channel.Title, channel.Type),
			URL:   url,
		})
	}
	return buttons
}

func headerText(tier string, count int) string {
	return fmt.Sprintf("Cross-promotion: %s members\n%d approved channels in this tier. Tap a button to join.", tier, count)
}

func footerText(interval time.Duration) string {
	return fmt.Sprintf("This promotion runs every %s. Keep the bot as admin to stay listed.", cadenceText(interval))
}

func cadenceText(interval time.Duration) string {
	switch {
	case interval >= time.Hour && interval%time.Hour == 0:
		hours := int(interval / time.Hour)
		if hours == 1 {
			return "hour"
		}
		return fmt.Sprintf("%d hours", hours)
	case interval >= time.Minute && interval%time.Minute == 0:
		minutes := int(interval / time.Minute)
		if minutes == 1 {
			return "minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return interval.String()
	}
}
