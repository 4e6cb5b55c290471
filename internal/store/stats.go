package store

import (
	"context"
	"errors"
	"fmt"

	"tg_promo_directory_bot/internal/domain"
)

type directoryLister interface {
	ListChannels(ctx context.Context) ([]domain.Channel, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// TierStat carries the per-tier counters shown on the dashboard.
type TierStat struct {
	Tier     string
	Approved int
	Total    int
}

// Stats aggregates directory counters for diagnostics and the dashboard.
type Stats struct {
	TotalChannels   int
	TotalUsers      int
	PendingApproval int
	BannedUsers     int
	Tiers           []TierStat
}

// StatsProvider derives aggregate counts from the directory without leaking
// storage internals to callers.
type StatsProvider struct {
	store directoryLister
}

// NewStatsProvider constructs a StatsProvider backed by the provided store.
func NewStatsProvider(store directoryLister) *StatsProvider {
	return &StatsProvider{store: store}
}

// Snapshot computes the current aggregate counters. Tier entries follow the
// fixed tier order and are present even when empty.
func (p *StatsProvider) Snapshot(ctx context.Context) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	if p == nil || p.store == nil {
		return Stats{}, errors.New("stats provider is not initialized")
	}

	channels, err := p.store.ListChannels(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list channels: %w", err)
	}

	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list users: %w", err)
	}

	stats := Stats{
		TotalChannels: len(channels),
		TotalUsers:    len(users),
	}

	// The slice is sized up front so the per-tier pointers stay valid while
	// counting.
	stats.Tiers = make([]TierStat, len(domain.Tiers))
	perTier := make(map[string]*TierStat, len(domain.Tiers))
	for i, tier := range domain.Tiers {
		stats.Tiers[i].Tier = tier
		perTier[tier] = &stats.Tiers[i]
	}

	for _, channel := range channels {
		if !channel.IsApproved {
			stats.PendingApproval++
		}
		entry, ok := perTier[channel.Category]
		if !ok {
			continue
		}
		entry.Total++
		if channel.IsApproved {
			entry.Approved++
		}
	}

	for _, user := range users {
		if user.IsBanned {
			stats.BannedUsers++
		}
	}

	return stats, nil
}
