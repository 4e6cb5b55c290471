// Package store provides the persistence backends for the directory: a flat
// JSON document on disk and a MongoDB alternative.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/logging"
)

// document is the on-disk shape of the directory.
type document struct {
	Channels []domain.Channel `json:"channels"`
	Users    []domain.User    `json:"users"`
}

// FileStore keeps the directory in memory and rewrites the whole backing JSON
// document after every mutation. A failed write is logged and not retried; the
// in-memory mutation stands, accepting a window where memory and disk diverge.
type FileStore struct {
	mu     sync.Mutex
	path   string
	doc    document
	logger *logrus.Entry
}

// NewFileStore loads the document at path, falling back to an empty directory
// when the file is missing or unparseable. Neither case is fatal.
func NewFileStore(path string, logger *logrus.Entry) *FileStore {
	if logger == nil {
		logger = logging.Logger()
	}

	s := &FileStore{
		path:   path,
		logger: logger,
	}
	s.load()
	return s
}

func (s *FileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithFields(logging.Fields{
				"event": "store_load_error",
				"path":  s.path,
			}).WithError(err).Error("failed to read directory document, starting empty")
		}
		s.doc = document{Channels: []domain.Channel{}, Users: []domain.User{}}
		return
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.WithFields(logging.Fields{
			"event": "store_parse_error",
			"path":  s.path,
		}).WithError(err).Error("failed to parse directory document, starting empty")
		s.doc = document{Channels: []domain.Channel{}, Users: []domain.User{}}
		return
	}

	if doc.Channels == nil {
		doc.Channels = []domain.Channel{}
	}
	if doc.Users == nil {
		doc.Users = []domain.User{}
	}
	s.doc = doc
}

// persist rewrites the whole document. Called with the mutex held.
func (s *FileStore) persist() {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.logger.WithField("event", "store_marshal_error").WithError(err).Error("failed to serialize directory document")
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.logger.WithFields(logging.Fields{
				"event": "store_save_error",
				"path":  s.path,
			}).WithError(err).Error("failed to create directory for document")
			return
		}
	}

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.logger.WithFields(logging.Fields{
			"event": "store_save_error",
			"path":  s.path,
		}).WithError(err).Error("failed to write directory document")
	}
}

// FindUser returns the user with the given id and whether it exists.
func (s *FileStore) FindUser(ctx context.Context, userID string) (domain.User, bool, error) {
	if err := s.check(ctx); err != nil {
		return domain.User{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.doc.Users {
		if user.UserID == userID {
			return user, true, nil
		}
	}
	return domain.User{}, false, nil
}

// SaveUser inserts or replaces the user record and flushes the document.
func (s *FileStore) SaveUser(ctx context.Context, user domain.User) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if user.UserID == "" {
		return errors.New("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.doc.Users {
		if s.doc.Users[i].UserID == user.UserID {
			s.doc.Users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		s.doc.Users = append(s.doc.Users, user)
	}

	s.persist()
	return nil
}

// FindChannel returns the channel with the given id and whether it exists.
func (s *FileStore) FindChannel(ctx context.Context, channelID string) (domain.Channel, bool, error) {
	if err := s.check(ctx); err != nil {
		return domain.Channel{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, channel := range s.doc.Channels {
		if channel.ChannelID == channelID {
			return channel, true, nil
		}
	}
	return domain.Channel{}, false, nil
}

// SaveChannel inserts or replaces the channel record keyed by channelId,
// reporting whether a new record was created, and flushes the document.
func (s *FileStore) SaveChannel(ctx context.Context, channel domain.Channel) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if channel.ChannelID == "" {
		return false, errors.New("channel id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := true
	for i := range s.doc.Channels {
		if s.doc.Channels[i].ChannelID == channel.ChannelID {
			s.doc.Channels[i] = channel
			created = false
			break
		}
	}
	if created {
		s.doc.Channels = append(s.doc.Channels, channel)
	}

	s.persist()
	return created, nil
}

// ListChannels returns a copy of all channel records.
func (s *FileStore) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	channels := make([]domain.Channel, len(s.doc.Channels))
	copy(channels, s.doc.Channels)
	return channels, nil
}

// ListUsers returns a copy of all user records.
func (s *FileStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]domain.User, len(s.doc.Users))
	copy(users, s.doc.Users)
	return users, nil
}

// Ping reports whether the directory of the backing file is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat store directory: %w", err)
	}
	return nil
}

func (s *FileStore) check(ctx context.Context) error {
	if s == nil {
		return errors.New("file store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}
