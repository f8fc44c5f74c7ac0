// Package plans resolves a host's subscription tier into booking
// entitlements.
package plans

import (
	"context"
	"strings"

	"github.com/arefin-dev/slotbook/internal/model"
)

const (
	TierFree    = "free"
	TierStarter = "starter"
	TierPro     = "pro"
)

// Limits describes what a tier allows. MonthlyBookings of 0 means
// unlimited.
type Limits struct {
	Tier            string
	MonthlyBookings int
}

func (l Limits) Unlimited() bool {
	return l.MonthlyBookings <= 0
}

// LimitsForTier maps a tier name to its entitlements. Unknown tiers get the
// free plan.
func LimitsForTier(tier string) Limits {
	switch strings.TrimSpace(strings.ToLower(tier)) {
	case TierPro:
		return Limits{Tier: TierPro, MonthlyBookings: 0}
	case TierStarter:
		return Limits{Tier: TierStarter, MonthlyBookings: 10}
	default:
		return Limits{Tier: TierFree, MonthlyBookings: 2}
	}
}

// Provider resolves the effective limits for a host.
type Provider interface {
	LimitsForHost(ctx context.Context, host model.Host) (Limits, error)
}

type staticProvider struct{}

// NewStaticProvider trusts the tier stored on the host record.
func NewStaticProvider() Provider {
	return staticProvider{}
}

func (staticProvider) LimitsForHost(_ context.Context, host model.Host) (Limits, error) {
	return LimitsForTier(host.Plan), nil
}
