package domain

// User represents a Telegram user that has interacted with the bot, keyed by
// the platform user id in string form.
type User struct {
	UserID       string `bson:"userId" json:"userId"`
	ChannelCount int    `bson:"channelCount" json:"channelCount"`
	IsBanned     bool   `bson:"isBanned" json:"isBanned"`
}
