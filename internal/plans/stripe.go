package plans

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v79"
	stripesubscription "github.com/stripe/stripe-go/v79/subscription"

	"github.com/arefin-dev/slotbook/internal/model"
)

// StripeProvider checks the host's subscription against Stripe. Stripe is
// the source of truth for lifecycle status; only active/trialing
// subscriptions keep their paid tier. When Stripe is unreachable or the
// host has no subscription, the stored tier is used so billing outages
// never block bookings.
type StripeProvider struct {
	logger *slog.Logger
}

func NewStripeProvider(secretKey string, logger *slog.Logger) *StripeProvider {
	stripe.Key = strings.TrimSpace(secretKey)
	return &StripeProvider{logger: logger}
}

func (p *StripeProvider) LimitsForHost(_ context.Context, host model.Host) (Limits, error) {
	subID := strings.TrimSpace(host.StripeSubscriptionID)
	if subID == "" {
		return LimitsForTier(host.Plan), nil
	}

	sub, err := stripesubscription.Get(subID, nil)
	if err != nil {
		p.logger.Warn("stripe subscription fetch failed, using stored tier",
			"err", err, "stripe_subscription_id", subID, "host_id", host.ID)
		return LimitsForTier(host.Plan), nil
	}

	entitled := sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing
	if !entitled {
		return LimitsForTier(TierFree), nil
	}

	tier := strings.TrimSpace(strings.ToLower(sub.Metadata["tier"]))
	if tier == "" {
		// Missing metadata: keep the stored tier rather than guessing.
		tier = host.Plan
	}
	return LimitsForTier(tier), nil
}
