// Package dashboard exposes the admin web interface: a single listing page
// with approve/ban actions, plus the health endpoint for container probes.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"tg_promo_directory_bot/internal/domain"
	"tg_promo_directory_bot/internal/logging"
	"tg_promo_directory_bot/internal/store"
)

const (
	storePingTimeout  = 2 * time.Second
	readHeaderTimeout = 2 * time.Second
	listenPrefix      = ":"
)

type directoryStore interface {
	FindChannel(ctx context.Context, channelID string) (domain.Channel, bool, error)
	SaveChannel(ctx context.Context, channel domain.Channel) (bool, error)
	FindUser(ctx context.Context, userID string) (domain.User, bool, error)
	SaveUser(ctx context.Context, user domain.User) error
	ListChannels(ctx context.Context) ([]domain.Channel, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	Ping(ctx context.Context) error
}

type gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, disablePreview bool) (int, error)
}

type statsProvider interface {
	Snapshot(ctx context.Context) (store.Stats, error)
}

// Server hosts the dashboard and owns the underlying HTTP server.
type Server struct {
	server  *http.Server
	logger  *logrus.Entry
	store   directoryStore
	gateway gateway
	stats   statsProvider
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

type pageData struct {
	Stats    store.Stats
	Channels []domain.Channel
	Users    []domain.User
}

var page = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Promotion Directory Admin</title>
<style>
body{font-family:sans-serif;margin:2rem}
table{border-collapse:collapse;margin-bottom:2rem}
td,th{border:1px solid #ccc;padding:4px 10px;text-align:left}
form{display:inline}
</style>
</head>
<body>
<h1>Promotion directory</h1>
<ul>
<li>Channels: {{.Stats.TotalChannels}} ({{.Stats.PendingApproval}} pending approval)</li>
<li>Users: {{.Stats.TotalUsers}} ({{.Stats.BannedUsers}} banned)</li>
{{range .Stats.Tiers}}<li>{{.Tier}} members: {{.Approved}} approved of {{.Total}}</li>
{{end}}</ul>
<h2>Channels</h2>
<table>
<tr><th>Title</th><th>ID</th><th>Tier</th><th>Members</th><th>Type</th><th>Owner</th><th>Status</th><th>Action</th></tr>
{{range .Channels}}<tr>
<td>{{.Title}}</td><td>{{.ChannelID}}</td><td>{{.Category}}</td><td>{{.MemberCount}}</td><td>{{.Type}}</td><td>{{.OwnerID}}</td>
<td>{{if .IsApproved}}approved{{else}}pending{{end}}</td>
<td>{{if .IsApproved}}<form method="post" action="/disapprove/{{.ChannelID}}"><button>Disapprove</button></form>{{else}}<form method="post" action="/approve/{{.ChannelID}}"><button>Approve</button></form>{{end}}</td>
</tr>
{{end}}</table>
<h2>Users</h2>
<table>
<tr><th>User ID</th><th>Channels</th><th>Status</th><th>Action</th></tr>
{{range .Users}}<tr>
<td>{{.UserID}}</td><td>{{.ChannelCount}}</td>
<td>{{if .IsBanned}}banned{{else}}active{{end}}</td>
<td>{{if .IsBanned}}<form method="post" action="/unban/{{.UserID}}"><button>Unban</button></form>{{else}}<form method="post" action="/ban/{{.UserID}}"><button>Ban</button></form>{{end}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

// NewServer constructs the dashboard server listening on the provided port.
func NewServer(port int, directory directoryStore, gateway gateway, stats statsProvider, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger:  logger,
		store:   directory,
		gateway: gateway,
		stats:   stats,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", srv.handleIndex)
	mux.HandleFunc("POST /approve/{channelID}", srv.handleApprove)
	mux.HandleFunc("POST /disapprove/{channelID}", srv.handleDisapprove)
	mux.HandleFunc("POST /ban/{userID}", srv.handleBan)
	mux.HandleFunc("POST /unban/{userID}", srv.handleUnban)
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s%d", listenPrefix, port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe starts the dashboard server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "dashboard_listen",
		"addr":  s.server.Addr,
	}).Info("starting dashboard server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "dashboard_stopped").Info("dashboard server stopped")
			return nil
		}

		return fmt.Errorf("dashboard server listen: %w", err)
	}

	s.logger.WithField("event", "dashboard_stopped").Info("dashboard server stopped")
	return nil
}

// Shutdown gracefully stops the dashboard server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.stats.Snapshot(ctx)
	if err != nil {
		s.fail(w, "dashboard_stats_error", err)
		return
	}

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		s.fail(w, "dashboard_list_error", err)
		return
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.fail(w, "dashboard_list_error", err)
		return
	}

	data := pageData{Stats: stats, Channels: channels, Users: users}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		s.logger.WithField("event", "dashboard_render_error").WithError(err).Error("failed to render listing")
	}
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.setApproval(w, r, true)
}

func (s *Server) handleDisapprove(w http.ResponseWriter, r *http.Request) {
	s.setApproval(w, r, false)
}

// setApproval flips the approval flag and notifies the channel. The
// notification is sent on every request, including repeats of the current
// state, so owners always hear back.
func (s *Server) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	ctx := r.Context()
	channelID := r.PathValue("channelID")

	channel, found, err := s.store.FindChannel(ctx, channelID)
	if err != nil {
		s.fail(w, "dashboard_store_error", err)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	channel.IsApproved = approved
	if _, err := s.store.SaveChannel(ctx, channel); err != nil {
		s.fail(w, "dashboard_store_error", err)
		return
	}

	s.logger.WithFields(logging.Fields{
		"event":      "channel_approval_changed",
		"channel_id": channelID,
		"approved":   approved,
	}).Info("channel approval changed")

	s.notifyChannel(ctx, channel, approved)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) notifyChannel(ctx context.Context, channel domain.Channel, approved bool) {
	chatID, err := strconv.ParseInt(channel.ChannelID, 10, 64)
	if err != nil {
		s.logger.WithFields(logging.Fields{
			"event":      "dashboard_notify_error",
			"channel_id": channel.ChannelID,
		}).WithError(err).Error("channel id is not numeric")
		return
	}

	text := fmt.Sprintf("%q has been approved and joins the next promotion round.", channel.Title)
	if !approved {
		text = fmt.Sprintf("%q has been removed from the promotion directory.", channel.Title)
	}

	if _, err := s.gateway.SendMessage(ctx, chatID, text, true); err != nil {
		s.logger.WithFields(logging.Fields{
			"event":      "dashboard_notify_error",
			"channel_id": channel.ChannelID,
		}).WithError(err).Error("failed to notify channel")
	}
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	s.setBanned(w, r, true)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	s.setBanned(w, r, false)
}

func (s *Server) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	ctx := r.Context()
	userID := r.PathValue("userID")

	user, found, err := s.store.FindUser(ctx, userID)
	if err != nil {
		s.fail(w, "dashboard_store_error", err)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	user.IsBanned = banned
	if err := s.store.SaveUser(ctx, user); err != nil {
		s.fail(w, "dashboard_store_error", err)
		return
	}

	s.logger.WithFields(logging.Fields{
		"event":   "user_ban_changed",
		"user_id": userID,
		"banned":  banned,
	}).Info("user ban state changed")

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	pingCtx, cancel := context.WithTimeout(r.Context(), storePingTimeout)
	err := s.store.Ping(pingCtx)
	cancel()

	if err != nil {
		resp.Status = "degraded"
		resp.Store = "error"
		s.logger.WithField("event", "health_store_error").WithError(err).Warn("store ping failed during health check")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}

func (s *Server) fail(w http.ResponseWriter, event string, err error) {
	s.logger.WithField("event", event).WithError(err).Error("dashboard request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
