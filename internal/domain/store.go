package domain

import "context"

// Store is the persistence contract for the two directory collections. Both
// save operations are upserts: writing the same id twice yields one logical
// record. Implementations serialize concurrent access internally.
type Store interface {
	// FindUser returns the user with the given id and whether it exists.
	FindUser(ctx context.Context, userID string) (User, bool, error)
	// SaveUser inserts or replaces the user record.
	SaveUser(ctx context.Context, user User) error
	// FindChannel returns the channel with the given id and whether it exists.
	FindChannel(ctx context.Context, channelID string) (Channel, bool, error)
	// SaveChannel inserts or replaces the channel record, reporting whether a
	// new record was created.
	SaveChannel(ctx context.Context, channel Channel) (bool, error)
	// ListChannels returns all channel records.
	ListChannels(ctx context.Context) ([]Channel, error)
	// ListUsers returns all user records.
	ListUsers(ctx context.Context) ([]User, error)
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}
