package controller

import (
	"testing"

	"github.com/patrhick1/pgl-pipeline/internal/store"
)

func TestQuotaExhaustedOnlyAppliesToFreePlan(t *testing.T) {
	c := &Controller{FreeWeeklyAllowance: 3}

	paid := store.Campaign{PlanTier: "pro", MatchesCreatedThisWeek: 100}
	if c.quotaExhausted(paid) {
		t.Fatal("expected paid-plan campaigns to never report quota exhausted here")
	}

	underQuota := store.Campaign{PlanTier: "free", MatchesCreatedThisWeek: 2}
	if c.quotaExhausted(underQuota) {
		t.Fatal("expected free campaign under allowance to not be exhausted")
	}

	atQuota := store.Campaign{PlanTier: "free", MatchesCreatedThisWeek: 3}
	if !c.quotaExhausted(atQuota) {
		t.Fatal("expected free campaign at allowance to be exhausted")
	}
}

func TestQuotaExhaustedDefaultsAllowanceWhenUnset(t *testing.T) {
	c := &Controller{}
	atDefault := store.Campaign{PlanTier: "free", MatchesCreatedThisWeek: 3}
	if !c.quotaExhausted(atDefault) {
		t.Fatal("expected default allowance of 3 to apply when unset")
	}
}

func TestMaxDiscoveriesDefaultsWhenUnset(t *testing.T) {
	c := &Controller{}
	if got := c.maxDiscoveries(); got != 20 {
		t.Fatalf("expected default of 20, got %d", got)
	}
	c.MaxDiscoveriesPerRun = 5
	if got := c.maxDiscoveries(); got != 5 {
		t.Fatalf("expected configured value of 5, got %d", got)
	}
}
