package domain

// Size tiers partitioning channels by member count at registration time.
const (
	TierSmall  = "100-1000"
	TierMedium = "1000-5000"
	TierLarge  = "5000+"
)

// Registration limits.
const (
	// MinMemberCount is the smallest member count eligible for registration.
	MinMemberCount = 100
	// MaxChannelsPerUser caps how many channels a single user may register.
	MaxChannelsPerUser = 3
)

// Tiers lists all tiers in the fixed order used by listings and broadcasts.
var Tiers = []string{TierSmall, TierMedium, TierLarge}

// TierFor buckets a member count into its size tier.
func TierFor(memberCount int) string {
	switch {
	case memberCount < 1000:
		return TierSmall
	case memberCount < 5000:
		return TierMedium
	default:
		return TierLarge
	}
}
