package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_promo_directory_bot/internal/domain"
)

type fakeStore struct {
	users    map[string]domain.User
	channels []domain.Channel
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]domain.User)}
}

func (f *fakeStore) FindUser(_ context.Context, userID string) (domain.User, bool, error) {
	if f.failWith != nil {
		return domain.User{}, false, f.failWith
	}
	user, ok := f.users[userID]
	return user, ok, nil
}

func (f *fakeStore) SaveUser(_ context.Context, user domain.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.users[user.UserID] = user
	return nil
}

func (f *fakeStore) ListChannels(context.Context) ([]domain.Channel, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.channels, nil
}

func newTestHandler(store *fakeStore) *Handler {
	logger, _ := logtest.NewNullLogger()
	return NewHandler(store, logrus.NewEntry(logger))
}

func TestStartAndHelpAreStatic(t *testing.T) {
	h := newTestHandler(newFakeStore())
	ctx := context.Background()

	if got := h.Start(ctx, 1); !strings.Contains(got, "administrator") {
		t.Fatalf("expected start text to explain registration, got %q", got)
	}

	help := h.Help(ctx, 1)
	if !strings.Contains(help, "100") || !strings.Contains(help, "3 channels") {
		t.Fatalf("expected help to restate limits, got %q", help)
	}
	if !strings.Contains(help, domain.TierSmall) || !strings.Contains(help, domain.TierLarge) {
		t.Fatalf("expected help to list tiers, got %q", help)
	}
}

func TestRegisterCreatesUserAndReturnsInstructions(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store)

	reply, err := h.Register(context.Background(), 42)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !strings.Contains(reply, "promote this bot") {
		t.Fatalf("expected instructions, got %q", reply)
	}

	if _, ok := store.users["42"]; !ok {
		t.Fatalf("expected user record to be created lazily")
	}
}

func TestRegisterRejectsBannedAndQuota(t *testing.T) {
	store := newFakeStore()
	store.users["1"] = domain.User{UserID: "1", IsBanned: true}
	store.users["2"] = domain.User{UserID: "2", ChannelCount: domain.MaxChannelsPerUser}
	h := newTestHandler(store)
	ctx := context.Background()

	reply, err := h.Register(ctx, 1)
	if err != nil || !strings.Contains(reply, "banned") {
		t.Fatalf("expected ban rejection, got %q err=%v", reply, err)
	}

	reply, err = h.Register(ctx, 2)
	if err != nil || !strings.Contains(reply, "maximum") {
		t.Fatalf("expected quota rejection, got %q err=%v", reply, err)
	}
}

func TestRegisterPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("boom")

	if _, err := newTestHandler(store).Register(context.Background(), 1); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

func TestMyChannelsFiltersByOwner(t *testing.T) {
	store := newFakeStore()
	store.channels = []domain.Channel{
		{ChannelID: "-1", Title: "Mine", OwnerID: "7", MemberCount: 300, Category: domain.TierSmall, Type: domain.ChatTypeChannel, IsApproved: true, InviteLink: "https://t.me/+m"},
		{ChannelID: "-2", Title: "Other", OwnerID: "8", MemberCount: 2000, Category: domain.TierMedium, Type: domain.ChatTypeGroup},
		{ChannelID: "-3", Title: "Mine Too", OwnerID: "7", MemberCount: 8000, Category: domain.TierLarge, Type: domain.ChatTypeGroup},
	}
	h := newTestHandler(store)

	reply, err := h.MyChannels(context.Background(), 7)
	if err != nil {
		t.Fatalf("MyChannels returned error: %v", err)
	}

	if !strings.Contains(reply, "Mine") || !strings.Contains(reply, "Mine Too") {
		t.Fatalf("expected both owned channels, got %q", reply)
	}
	if strings.Contains(reply, "Other") {
		t.Fatalf("expected other owners' channels excluded, got %q", reply)
	}
	if !strings.Contains(reply, "approved") || !strings.Contains(reply, "pending approval") {
		t.Fatalf("expected approval status per channel, got %q", reply)
	}
}

func TestMyChannelsEmpty(t *testing.T) {
	h := newTestHandler(newFakeStore())

	reply, err := h.MyChannels(context.Background(), 7)
	if err != nil {
		t.Fatalf("MyChannels returned error: %v", err)
	}
	if !strings.Contains(reply, "no registered channels") {
		t.Fatalf("expected empty-state message, got %q", reply)
	}
}

func TestDirectoryOmitsEmptyTiersAndUnapproved(t *testing.T) {
	store := newFakeStore()
	store.channels = []domain.Channel{
		{ChannelID: "-1", Title: "Small A", Category: domain.TierSmall, IsApproved: true, InviteLink: "https://t.me/+a"},
		{ChannelID: "-2", Title: "Small B", Category: domain.TierSmall, Username: "smallb", IsApproved: true},
		{ChannelID: "-3", Title: "Medium Pending", Category: domain.TierMedium},
		{ChannelID: "-4", Title: "Large A", Category: domain.TierLarge, IsApproved: true, Username: "largea"},
	}
	h := newTestHandler(store)

	reply, err := h.Directory(context.Background())
	if err != nil {
		t.Fatalf("Directory returned error: %v", err)
	}

	if !strings.Contains(reply, domain.TierSmall) || !strings.Contains(reply, domain.TierLarge) {
		t.Fatalf("expected populated tiers present, got %q", reply)
	}
	if strings.Contains(reply, domain.TierMedium) {
		t.Fatalf("expected empty tier omitted entirely, got %q", reply)
	}
	if strings.Contains(reply, "Medium Pending") {
		t.Fatalf("expected unapproved channel excluded, got %q", reply)
	}
	if !strings.Contains(reply, "https://t.me/+a") || !strings.Contains(reply, "@smallb") {
		t.Fatalf("expected invite link and username fallback, got %q", reply)
	}

	smallIdx := strings.Index(reply, domain.TierSmall)
	largeIdx := strings.Index(reply, domain.TierLarge+" members")
	if smallIdx < 0 || largeIdx < 0 || smallIdx > largeIdx {
		t.Fatalf("expected tiers in fixed order, got %q", reply)
	}
}

func TestDirectoryEmpty(t *testing.T) {
	h := newTestHandler(newFakeStore())

	reply, err := h.Directory(context.Background())
	if err != nil {
		t.Fatalf("Directory returned error: %v", err)
	}
	if !strings.Contains(reply, "no approved channels") {
		t.Fatalf("expected empty directory message, got %q", reply)
	}
}
