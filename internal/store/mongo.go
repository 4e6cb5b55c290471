package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_promo_directory_bot/internal/domain"
)

// directoryCollection is the subset of mongo.Collection behavior the Mongo
// store needs, narrow enough to fake in tests.
type directoryCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// pinger reports backend reachability, typically the Manager.
type pinger interface {
	Ping(ctx context.Context) error
}

// MongoStore implements domain.Store over the users and channels collections.
// ReplaceOne with upsert gives the same one-logical-record-per-id contract as
// the file store.
type MongoStore struct {
	users    directoryCollection
	channels directoryCollection
	pinger   pinger
}

// NewMongoStore constructs a MongoStore over the provided collections.
func NewMongoStore(users, channels directoryCollection, pinger pinger) *MongoStore {
	return &MongoStore{
		users:    users,
		channels: channels,
		pinger:   pinger,
	}
}

// FindUser returns the user with the given id and whether it exists.
func (s *MongoStore) FindUser(ctx context.Context, userID string) (domain.User, bool, error) {
	if err := s.check(ctx); err != nil {
		return domain.User{}, false, err
	}

	var user domain.User
	err := s.users.FindOne(ctx, bson.M{"userId": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("find user: %w", err)
	}

	return user, true, nil
}

// SaveUser inserts or replaces the user record.
func (s *MongoStore) SaveUser(ctx context.Context, user domain.User) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if user.UserID == "" {
		return errors.New("user id is required")
	}

	_, err := s.users.ReplaceOne(ctx,
		bson.M{"userId": user.UserID},
		user,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// FindChannel returns the channel with the given id and whether it exists.
func (s *MongoStore) FindChannel(ctx context.Context, channelID string) (domain.Channel, bool, error) {
	if err := s.check(ctx); err != nil {
		return domain.Channel{}, false, err
	}

	var channel domain.Channel
	err := s.channels.FindOne(ctx, bson.M{"channelId": channelID}).Decode(&channel)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Channel{}, false, nil
	}
	if err != nil {
		return domain.Channel{}, false, fmt.Errorf("find channel: %w", err)
	}

	return channel, true, nil
}

// SaveChannel inserts or replaces the channel record, reporting whether a new
// record was created.
func (s *MongoStore) SaveChannel(ctx context.Context, channel domain.Channel) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if channel.ChannelID == "" {
		return false, errors.New("channel id is required")
	}

	result, err := s.channels.ReplaceOne(ctx,
		bson.M{"channelId": channel.ChannelID},
		channel,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("save channel: %w", err)
	}

	return result != nil && result.UpsertedCount > 0, nil
}

// ListChannels returns all channel records.
func (s *MongoStore) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	cursor, err := s.channels.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	channels := []domain.Channel{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}

	return channels, nil
}

// ListUsers returns all user records.
func (s *MongoStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	cursor, err := s.users.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := []domain.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	return users, nil
}

// Ping reports whether the Mongo deployment is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.pinger == nil {
		return errors.New("mongo store has no pinger")
	}

	return s.pinger.Ping(ctx)
}

func (s *MongoStore) check(ctx context.Context) error {
	if s == nil || s.users == nil || s.channels == nil {
		return errors.New("mongo store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}
