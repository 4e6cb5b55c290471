package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/store"
)

type fakeStore struct {
	channels map[string]domain.Channel
	users    map[string]domain.User
	pingErr  error
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels: make(map[string]domain.Channel),
		users:    make(map[string]domain.User),
	}
}

func (f *fakeStore) FindChannel(_ context.Context, channelID string) (domain.Channel, bool, error) {
	if f.failWith != nil {
		return domain.Channel{}, false, f.failWith
	}
	channel, ok := f.channels[channelID]
	return channel, ok, nil
}

func (f *fakeStore) SaveChannel(_ context.Context, channel domain.Channel) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	_, exists := f.channels[channel.ChannelID]
	f.channels[channel.ChannelID] = channel
	return !exists, nil
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

func (f *fakeStore) ListChannels(_ context.Context) ([]domain.Channel, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	channels := make([]domain.Channel, 0, len(f.channels))
	for _, channel := range f.channels {
		channels = append(channels, channel)
	}
	return channels, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]domain.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	users := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, user)
	}
	return users, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

type fakeGateway struct {
	sent    []string
	chatIDs []int64
	sendErr error
}

func (f *fakeGateway) SendMessage(_ context.Context, chatID int64, text string, _ bool) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.chatIDs = append(f.chatIDs, chatID)
	f.sent = append(f.sent, text)
	return 1, nil
}

func newTestServer(t *testing.T, directory *fakeStore, gateway *fakeGateway) *Server {
	t.Helper()

	logger, _ := test.NewNullLogger()
	stats := store.NewStatsProvider(directory)
	return NewServer(0, directory, gateway, stats, logger.WithField("test", true))
}

func TestIndexListsChannelsAndUsers(t *testing.T) {
	directory := newFakeStore()
	directory.channels["100"] = domain.Channel{
		ChannelID: "100", Title: "Gopher News", Category: domain.TierSmall,
		MemberCount: 150, OwnerID: "1", Type: domain.ChatTypeChannel,
	}
	directory.users["1"] = domain.User{UserID: "1", ChannelCount: 1}

	srv := newTestServer(t, directory, &fakeGateway{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Gopher News", "pending", "/approve/100", "/ban/1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q, got:\n%s", want, body)
		}
	}
}

func TestApproveSetsFlagAndNotifies(t *testing.T) {
	directory := newFakeStore()
	directory.channels["100"] = domain.Channel{ChannelID: "100", Title: "Gopher News"}
	gateway := &fakeGateway{}

	srv := newTestServer(t, directory, gateway)

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/approve/100", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Fatalf("expected redirect to /, got %q", location)
	}
	if !directory.channels["100"].IsApproved {
		t.Fatal("expected channel to be approved")
	}
	if len(gateway.sent) != 1 || !strings.Contains(gateway.sent[0], "approved") {
		t.Fatalf("expected approval notification, got %v", gateway.sent)
	}
	if gateway.chatIDs[0] != 100 {
		t.Fatalf("expected notification to chat 100, got %d", gateway.chatIDs[0])
	}
}

func TestApproveAlreadyApprovedStillNotifies(t *testing.T) {
	directory := newFakeStore()
	directory.channels["100"] = domain.Channel{ChannelID: "100", Title: "Gopher News", IsApproved: true}
	gateway := &fakeGateway{}

	srv := newTestServer(t, directory, gateway)

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/approve/100", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if !directory.channels["100"].IsApproved {
		t.Fatal("expected channel to stay approved")
	}
	if len(gateway.sent) != 1 {
		t.Fatalf("expected notification despite unchanged state, got %d", len(gateway.sent))
	}
}

func TestDisapproveClearsFlagAndNotifies(t *testing.T) {
	directory := newFakeStore()
	directory.channels["100"] = domain.Channel{ChannelID: "100", Title: "Gopher News", IsApproved: true}
	gateway := &fakeGateway{}

	srv := newTestServer(t, directory, gateway)

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/disapprove/100", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if directory.channels["100"].IsApproved {
		t.Fatal("expected channel to be disapproved")
	}
	if len(gateway.sent) != 1 || !strings.Contains(gateway.sent[0], "removed") {
		t.Fatalf("expected removal notification, got %v", gateway.sent)
	}
}

func TestApproveUnknownChannelNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeGateway{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/approve/404", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestApproveSurvivesNotificationFailure(t *testing.T) {
	directory := newFakeStore()
	directory.channels["100"] = domain.Channel{ChannelID: "100", Title: "Gopher News"}
	gateway := &fakeGateway{sendErr: errors.New("blocked")}

	srv := newTestServer(t, directory, gateway)

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/approve/100", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect despite send failure, got %d", rec.Code)
	}
	if !directory.channels["100"].IsApproved {
		t.Fatal("expected channel to be approved despite send failure")
	}
}

func TestBanAndUnbanToggleWithoutNotification(t *testing.T) {
	directory := newFakeStore()
	directory.users["1"] = domain.User{UserID: "1", ChannelCount: 2}
	gateway := &fakeGateway{}

	srv := newTestServer(t, directory, gateway)

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ban/1", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if !directory.users["1"].IsBanned {
		t.Fatal("expected user to be banned")
	}

	rec = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/unban/1", nil))
	if directory.users["1"].IsBanned {
		t.Fatal("expected user to be unbanned")
	}

	if len(gateway.sent) != 0 {
		t.Fatalf("ban actions must not notify anyone, got %v", gateway.sent)
	}
}

func TestBanUnknownUserNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeGateway{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ban/404", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthReportsStoreState(t *testing.T) {
	directory := newFakeStore()
	srv := newTestServer(t, directory, &fakeGateway{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("expected ok status, got %s", rec.Body.String())
	}

	directory.pingErr = errors.New("disk gone")
	rec = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Fatalf("expected degraded status, got %s", rec.Body.String())
	}
}

func TestIndexFailsClosedOnStoreError(t *testing.T) {
	directory := newFakeStore()
	directory.failWith = errors.New("boom")

	srv := newTestServer(t, directory, &fakeGateway{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
