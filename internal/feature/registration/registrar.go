// Package registration reacts to the bot being promoted to administrator and
// enrolls the chat into the directory.
package registration

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/logging"
	"tg_promo_directory_bot/internal/telegram"
)

const genericFailureText = "Registration failed, please try again later."

type directoryStore interface {
	FindUser(ctx context.Context, userID string) (domain.User, bool, error)
	SaveUser(ctx context.Context, user domain.User) error
	FindChannel(ctx context.Context, channelID string) (domain.Channel, bool, error)
	SaveChannel(ctx context.Context, channel domain.Channel) (bool, error)
}

type gateway interface {
	MemberCount(ctx context.Context, chatID int64) (int, error)
	ExportInviteLink(ctx context.Context, chatID int64) (string, error)
	SendMessage(ctx context.Context, chatID int64, text string, disablePreview bool) (int, error)
}

// Registrar validates promotion events and upserts channel records.
type Registrar struct {
	store   directoryStore
	gateway gateway
	logger  *logrus.Entry
}

// NewRegistrar constructs a Registrar over the provided store and gateway.
func NewRegistrar(store directoryStore, gateway gateway, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		store:   store,
		gateway: gateway,
		logger:  logger,
	}
}

// HandlePromotion runs the registration flow for a promotion event. Validation
// rejections and failures alike are reported to the chat; nothing is returned
// because no caller can act on the outcome.
func (r *Registrar) HandlePromotion(ctx context.Context, event telegram.PromotionEvent) {
	if r == nil || r.store == nil || r.gateway == nil {
		return
	}

	channelID := strconv.FormatInt(event.ChatID, 10)
	ownerID := strconv.FormatInt(event.ActorID, 10)
	entry := r.logger.WithFields(logging.Fields{
		"channel_id": channelID,
		"owner_id":   ownerID,
	})

	memberCount, err := r.gateway.MemberCount(ctx, event.ChatID)
	if err != nil {
		entry.WithField("event", "registration_error").WithError(err).Error("failed to fetch member count")
		r.reply(ctx, event.ChatID, genericFailureText)
		return
	}

	user, found, err := r.store.FindUser(ctx, ownerID)
	if err != nil {
		entry.WithField("event", "registration_error").WithError(err).Error("failed to look up user")
		r.reply(ctx, event.ChatID, genericFailureText)
		return
	}
	if !found {
		user = domain.User{UserID: ownerID}
		if err := r.store.SaveUser(ctx, user); err != nil {
			entry.WithField("event", "registration_error").WithError(err).Error("failed to create user")
			r.reply(ctx, event.ChatID, genericFailureText)
			return
		}
	}

	if user.IsBanned {
		entry.WithField("event", "registration_rejected").Info("user is banned")
		r.reply(ctx, event.ChatID, "You are banned and cannot register channels.")
		return
	}

	if user.ChannelCount >= domain.MaxChannelsPerUser {
		entry.WithField("event", "registration_rejected").Info("channel quota exceeded")
		r.reply(ctx, event.ChatID, fmt.Sprintf(
			"You already registered the maximum of %d channels.", domain.MaxChannelsPerUser))
		return
	}

	if memberCount < domain.MinMemberCount {
		entry.WithFields(logging.Fields{
			"event":        "registration_rejected",
			"member_count": memberCount,
		}).Info("member count below minimum")
		r.reply(ctx, event.ChatID, fmt.Sprintf(
			"This chat has %d members. At least %d are required to join the directory.",
			memberCount, domain.MinMemberCount))
		return
	}

	inviteLink, err := r.gateway.ExportInviteLink(ctx, event.ChatID)
	if err != nil {
		// Registration proceeds without a link; listings fall back to @username.
		entry.WithField("event", "invite_link_unavailable").WithError(err).Warn("failed to export invite link")
		inviteLink = ""
	}

	existing, exists, err := r.store.FindChannel(ctx, channelID)
	if err != nil {
		entry.WithField("event", "registration_error").WithError(err).Error("failed to look up channel")
		r.reply(ctx, event.ChatID, genericFailureText)
		return
	}

	channel := domain.Channel{
		ChannelID:   channelID,
		Title:       event.Title,
		Username:    event.Username,
		InviteLink:  inviteLink,
		MemberCount: memberCount,
		Category:    domain.TierFor(memberCount),
		OwnerID:     ownerID,
		Type:        event.ChatType,
	}
	if exists {
		// Approval is admin-controlled and survives re-registration.
		channel.IsApproved = existing.IsApproved
	}

	created, err := r.store.SaveChannel(ctx, channel)
	if err != nil {
		entry.WithField("event", "registration_error").WithError(err).Error("failed to save channel")
		r.reply(ctx, event.ChatID, genericFailureText)
		return
	}

	if created {
		user.ChannelCount++
		if err := r.store.SaveUser(ctx, user); err != nil {
			entry.WithField("event", "registration_error").WithError(err).Error("failed to update channel count")
		}
	}

	entry.WithFields(logging.Fields{
		"event":        "channel_registered",
		"created":      created,
		"member_count": memberCount,
		"category":     channel.Category,
	}).Info("channel registered")

	r.reply(ctx, event.ChatID, confirmationText(channel))
}

func (r *Registrar) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.gateway.SendMessage(ctx, chatID, text, true); err != nil {
		r.logger.WithFields(logging.Fields{
			"event":   "registration_reply_error",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send registration reply")
	}
}

func confirmationText(channel domain.Channel) string {
	link := channel.InviteLink
	if link == "" {
		link = "unavailable"
	}

	return fmt.Sprintf(
		"Registered %q\nMembers: %d\nTier: %s\nInvite link: %s\n\nThe channel joins the promotion rotation once an admin approves it.",
		channel.Title, channel.MemberCount, channel.Category, link)
}
