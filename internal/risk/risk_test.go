package risk

import (
	"errors"
	"testing"

	"riskgate/internal/signal"
)

func openDecision() signal.Decision {
	return signal.Decision{Action: signal.Open, Direction: signal.Long, Confidence: 1, Source: signal.SourceRules}
}

func TestParameterizeDefaults(t *testing.T) {
	cases := []struct {
		leverage   int
		takeProfit float64
		stopLoss   float64
	}{
		{1, 3, 2},
		{5, 15, 10},
		{10, 30, 20},
	}
	for _, tc := range cases {
		cfg := Config{Leverage: tc.leverage, BalanceAllocationPct: 30, MaxConcurrentPositions: 2}
		params, err := Parameterize(openDecision(), cfg)
		if err != nil {
			t.Fatalf("leverage %d: Parameterize returned error: %v", tc.leverage, err)
		}
		if params.TakeProfitPct != tc.takeProfit {
			t.Fatalf("leverage %d: TP %.2f, want %.2f", tc.leverage, params.TakeProfitPct, tc.takeProfit)
		}
		if params.StopLossPct != tc.stopLoss {
			t.Fatalf("leverage %d: SL %.2f, want %.2f", tc.leverage, params.StopLossPct, tc.stopLoss)
		}
		if params.NotionalPct != 30 {
			t.Fatalf("leverage %d: notional %.2f must not depend on leverage", tc.leverage, params.NotionalPct)
		}
	}
}

func TestParameterizeOverridesHonored(t *testing.T) {
	cfg := Config{Leverage: 5, BalanceAllocationPct: 30, MaxConcurrentPositions: 2, TakeProfitOverridePct: 20, StopLossOverridePct: 12}
	params, err := Parameterize(openDecision(), cfg)
	if err != nil {
		t.Fatalf("Parameterize returned error: %v", err)
	}
	if params.TakeProfitPct != 20 {
		t.Fatalf("override TP not honored: %.2f", params.TakeProfitPct)
	}
	if params.StopLossPct != 12 {
		t.Fatalf("override SL not honored: %.2f", params.StopLossPct)
	}
}

func TestParameterizeOverridesCappedAtCeiling(t *testing.T) {
	cfg := Config{Leverage: 5, BalanceAllocationPct: 30, MaxConcurrentPositions: 2, TakeProfitOverridePct: 99, StopLossOverridePct: 99}
	params, err := Parameterize(openDecision(), cfg)
	if err != nil {
		t.Fatalf("Parameterize returned error: %v", err)
	}
	if params.TakeProfitPct != 25 { // 5x leverage ceiling
		t.Fatalf("TP override must cap at 5x leverage, got %.2f", params.TakeProfitPct)
	}
	if params.StopLossPct != 20 { // 4x leverage ceiling
		t.Fatalf("SL override must cap at 4x leverage, got %.2f", params.StopLossPct)
	}
}

func TestParameterizeRejectsCloseDecisions(t *testing.T) {
	dec := signal.Decision{Action: signal.Close, Direction: signal.Long}
	if _, err := Parameterize(dec, DefaultConfig()); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}

func TestParameterizeRejectsInvalidLeverage(t *testing.T) {
	for _, lev := range []int{-1, 0, 11, 100} {
		cfg := Config{Leverage: lev, BalanceAllocationPct: 30, MaxConcurrentPositions: 2}
		if _, err := Parameterize(openDecision(), cfg); !errors.Is(err, ErrConfigInvalid) {
			t.Fatalf("leverage %d: expected ErrConfigInvalid, got %v", lev, err)
		}
	}
}

func TestValidate(t *testing.T) {
	bad := []Config{
		{Leverage: 5, BalanceAllocationPct: 0, MaxConcurrentPositions: 2},
		{Leverage: 5, BalanceAllocationPct: 101, MaxConcurrentPositions: 2},
		{Leverage: 5, BalanceAllocationPct: 30, MaxConcurrentPositions: 0},
		{Leverage: 5, BalanceAllocationPct: 30, MaxConcurrentPositions: 2, StopLossOverridePct: -1},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); !errors.Is(err, ErrConfigInvalid) {
			t.Fatalf("case %d: expected ErrConfigInvalid, got %v", i, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestStaticProfiles(t *testing.T) {
	store, err := NewStaticProfiles(map[string]Config{
		"u1": {Leverage: 8},
	})
	if err != nil {
		t.Fatalf("NewStaticProfiles returned error: %v", err)
	}

	cfg, err := store.Profile("u1")
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if cfg.Leverage != 8 {
		t.Fatalf("expected leverage 8, got %d", cfg.Leverage)
	}
	if cfg.BalanceAllocationPct != DefaultBalanceAllocationPct {
		t.Fatalf("zero fields must be defaulted, got %.2f", cfg.BalanceAllocationPct)
	}

	cfg, err = store.Profile("stranger")
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("unknown user must get defaults, got %+v", cfg)
	}
}

func TestStaticProfilesRejectInvalid(t *testing.T) {
	if _, err := NewStaticProfiles(map[string]Config{"u1": {Leverage: 99}}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}
