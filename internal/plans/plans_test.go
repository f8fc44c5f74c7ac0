package plans

import (
	"context"
	"testing"

	"github.com/arefin-dev/slotbook/internal/model"
)

func TestLimitsForTier(t *testing.T) {
	cases := []struct {
		tier      string
		wantTier  string
		wantLimit int
	}{
		{"free", TierFree, 2},
		{"starter", TierStarter, 10},
		{"pro", TierPro, 0},
		{"  Pro  ", TierPro, 0},
		{"", TierFree, 2},
		{"enterprise", TierFree, 2},
	}
	for _, tc := range cases {
		got := LimitsForTier(tc.tier)
		if got.Tier != tc.wantTier || got.MonthlyBookings != tc.wantLimit {
			t.Errorf("LimitsForTier(%q) = %+v, want tier=%s limit=%d", tc.tier, got, tc.wantTier, tc.wantLimit)
		}
	}
}

func TestUnlimited(t *testing.T) {
	if !LimitsForTier("pro").Unlimited() {
		t.Fatal("pro should be unlimited")
	}
	if LimitsForTier("starter").Unlimited() {
		t.Fatal("starter should not be unlimited")
	}
}

func TestStaticProviderUsesStoredPlan(t *testing.T) {
	p := NewStaticProvider()
	limits, err := p.LimitsForHost(context.Background(), model.Host{Plan: "starter"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limits.Tier != TierStarter || limits.MonthlyBookings != 10 {
		t.Fatalf("got %+v, want starter/10", limits)
	}
}
