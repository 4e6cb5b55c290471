// Package commands builds the reply text for user-issued bot commands.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/logging"
)

const startText = `Welcome to the promo directory bot.

Add this bot as an administrator to your channel or supergroup and it will be registered for cross-promotion automatically. Use /help for the rules.`

var helpText = fmt.Sprintf(`How it works:

1. Promote this bot to administrator in your channel or supergroup.
2. The chat needs at least %d members.
3. You can register up to %d channels.
4. Once an admin approves your channel, it joins the promotion rotation.

Channels are grouped by size: %s, %s and %s members.

Commands:
/register - registration instructions
/mychannels - your registered channels
/channels - the approved directory`,
	domain.MinMemberCount, domain.MaxChannelsPerUser,
	domain.TierSmall, domain.TierMedium, domain.TierLarge)

type directoryStore interface {
	FindUser(ctx context.Context, userID string) (domain.User, bool, error)
	SaveUser(ctx context.Context, user domain.User) error
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

// Handler resolves command replies against the directory store.
type Handler struct {
	store  directoryStore
	logger *logrus.Entry
}

// NewHandler constructs a Handler over the provided store.
func NewHandler(store directoryStore, logger *logrus.Entry) *Handler {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Start returns the static welcome text.
func (h *Handler) Start(_ context.Context, _ int64) string {
	return startText
}

// Help returns the static rules text.
func (h *Handler) Help(_ context.Context, _ int64) string {
	return helpText
}

// Register resolves (or creates) the caller's user record and returns either a
// rejection or registration instructions. Actual registration only happens via
// the promotion event.
func (h *Handler) Register(ctx context.Context, userID int64) (string, error) {
	id := strconv.FormatInt(userID, 10)

	user, found, err := h.store.FindUser(ctx, id)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if !found {
		user = domain.User{UserID: id}
		if err := h.store.SaveUser(ctx, user); err != nil {
			return "", fmt.Errorf("create user: %w", err)
		}
		h.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": id,
		}).Info("created user record")
	}

	if user.IsBanned {
		return "You are banned and cannot register channels.", nil
	}
	if user.ChannelCount >= domain.MaxChannelsPerUser {
		return fmt.Sprintf("You already registered the maximum of %d channels.", domain.MaxChannelsPerUser), nil
	}

	return fmt.Sprintf(
		"To register a channel, promote this bot to administrator there. The chat needs at least %d members.",
		domain.MinMemberCount), nil
}

// MyChannels lists the caller's registered channels.
func (h *Handler) MyChannels(ctx context.Context, userID int64) (string, error) {
	id := strconv.FormatInt(userID, 10)

	channels, err := h.store.ListChannels(ctx)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}

	var b strings.Builder
	count := 0
	for _, channel := range channels {
		if channel.OwnerID != id {
			continue
		}
		count++
		fmt.Fprintf(&b, "%d. %s\n", count, formatOwned(channel))
	}

	if count == 0 {
		return "You have no registered channels yet. Use /register to get started.", nil
	}

	return fmt.Sprintf("Your channels:\n\n%s", strings.TrimRight(b.String(), "\n")), nil
}

// Directory lists approved channels grouped by tier in fixed order. Tiers
// without approved channels are omitted entirely.
func (h *Handler) Directory(ctx context.Context) (string, error) {
	channels, err := h.store.ListChannels(ctx)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}

	var b strings.Builder
	for _, tier := range domain.Tiers {
		var lines []string
		for _, channel := range channels {
			if channel.Category != tier || !channel.IsApproved {
				continue
			}
			lines = append(lines, "- "+formatListed(channel))
		}
		if len(lines) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s members:\n%s\n\n", tier, strings.Join(lines, "\n"))
	}

	if b.Len() == 0 {
		return "The directory has no approved channels yet.", nil
	}

	return "Channel directory:\n\n" + strings.TrimRight(b.String(), "\n"), nil
}

func formatOwned(channel domain.Channel) string {
	status := "pending approval"
	if channel.IsApproved {
		status = "approved"
	}

	line := fmt.Sprintf("%s - %d members, tier %s, %s, %s",
		channel.Title, channel.MemberCount, channel.Category, channel.Type, status)
	if link := channel.JoinURL(); link != "" {
		line += "\n   " + link
	}
	return line
}

func formatListed(channel domain.Channel) string {
	if channel.InviteLink != "" {
		return fmt.Sprintf("%s: %s", channel.Title, channel.InviteLink)
	}
	if channel.Username != "" {
		return fmt.Sprintf("%s: @%s", channel.Title, channel.Username)
	}
	return channel.Title
}
