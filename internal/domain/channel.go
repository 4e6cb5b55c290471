// Package domain defines the directory entities and the store contract shared
// by every feature of the bot.
package domain

// Chat types a channel record can carry. Supergroups are stored as "group".
const (
	ChatTypeChannel = "channel"
	ChatTypeGroup   = "group"
)

// Channel represents a registered channel or supergroup, keyed by the platform
// chat id in string form. MemberCount and Category are snapshots taken at
// registration time and are never recomputed.
type Channel struct {
	ChannelID   string `bson:"channelId" json:"channelId"`
	Title       string `bson:"title" json:"title"`
	Username    string `bson:"username,omitempty" json:"username,omitempty"`
	InviteLink  string `bson:"inviteLink,omitempty" json:"inviteLink,omitempty"`
	MemberCount int    `bson:"memberCount" json:"memberCount"`
	Category    string `bson:"category" json:"category"`
	OwnerID     string `bson:"ownerId" json:"ownerId"`
	Type        string `bson:"type" json:"type"`
	IsApproved  bool   `bson:"isApproved" json:"isApproved"`
}

// JoinURL returns the channel's invite link, falling back to a public t.me
// link built from the username. Empty when neither is available.
func (c Channel) JoinURL() string {
	if c.InviteLink != "" {
		return c.InviteLink
	}
	if c.Username != "" {
		return "https://t.me/" + c.Username
	}
	return ""
}
