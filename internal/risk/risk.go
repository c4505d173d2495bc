// Package risk derives order risk parameters from per-user trading configuration.
package risk

import (
	"errors"
	"fmt"

	"riskgate/internal/signal"
)

// ErrConfigInvalid marks user configuration that must be flagged for operator
// attention instead of silently clamped.
var ErrConfigInvalid = errors.New("invalid risk config")

// ErrNotOpen is returned when parameterization is requested for a close
// decision; close orders target the existing position's parameters.
var ErrNotOpen = errors.New("risk parameters only apply to open decisions")

const (
	MinLeverage = 1
	MaxLeverage = 10

	DefaultLeverage               = 5
	DefaultBalanceAllocationPct   = 30.0
	DefaultMaxConcurrentPositions = 2

	// Take-profit and stop-loss are leverage multiples. The structural
	// ceilings only bite when a per-user override exceeds them; the default
	// derivation is always 3x / 2x.
	takeProfitMult    = 3.0
	takeProfitCeiling = 5.0
	stopLossMult      = 2.0
	stopLossCeiling   = 4.0
)

// Config holds one user's trading parameters. Override fields are absolute
// percentages; zero means "use the leverage-derived default".
type Config struct {
	Leverage               int     `yaml:"leverage"`
	BalanceAllocationPct   float64 `yaml:"balance_allocation_pct"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	TakeProfitOverridePct  float64 `yaml:"take_profit_override_pct"`
	StopLossOverridePct    float64 `yaml:"stop_loss_override_pct"`
}

// DefaultConfig returns the engine-wide defaults applied to unknown users.
func DefaultConfig() Config {
	return Config{
		Leverage:               DefaultLeverage,
		BalanceAllocationPct:   DefaultBalanceAllocationPct,
		MaxConcurrentPositions: DefaultMaxConcurrentPositions,
	}
}

// withDefaults fills zero-valued fields, leaving explicit settings alone.
func (c Config) withDefaults() Config {
	if c.Leverage == 0 {
		c.Leverage = DefaultLeverage
	}
	if c.BalanceAllocationPct == 0 {
		c.BalanceAllocationPct = DefaultBalanceAllocationPct
	}
	if c.MaxConcurrentPositions == 0 {
		c.MaxConcurrentPositions = DefaultMaxConcurrentPositions
	}
	return c
}

// Validate rejects configurations outside the documented domain.
func (c Config) Validate() error {
	if c.Leverage < MinLeverage || c.Leverage > MaxLeverage {
		return fmt.Errorf("%w: leverage %d outside [%d,%d]", ErrConfigInvalid, c.Leverage, MinLeverage, MaxLeverage)
	}
	if c.BalanceAllocationPct <= 0 || c.BalanceAllocationPct > 100 {
		return fmt.Errorf("%w: balance allocation %.2f%% outside (0,100]", ErrConfigInvalid, c.BalanceAllocationPct)
	}
	if c.MaxConcurrentPositions < 1 {
		return fmt.Errorf("%w: max concurrent positions %d < 1", ErrConfigInvalid, c.MaxConcurrentPositions)
	}
	if c.TakeProfitOverridePct < 0 || c.StopLossOverridePct < 0 {
		return fmt.Errorf("%w: negative take-profit/stop-loss override", ErrConfigInvalid)
	}
	return nil
}

// Parameterize derives the risk parameters for an open decision. The config
// must already be validated; out-of-range leverage is a caller bug surfaced
// as ErrConfigInvalid, never clamped here.
func Parameterize(dec signal.Decision, cfg Config) (signal.RiskParameters, error) {
	if dec.Action != signal.Open {
		return signal.RiskParameters{}, ErrNotOpen
	}
	if err := cfg.Validate(); err != nil {
		return signal.RiskParameters{}, err
	}

	lev := float64(cfg.Leverage)

	takeProfit := takeProfitMult * lev
	if cfg.TakeProfitOverridePct > 0 {
		takeProfit = cfg.TakeProfitOverridePct
		if ceiling := takeProfitCeiling * lev; takeProfit > ceiling {
			takeProfit = ceiling
		}
	}

	stopLoss := stopLossMult * lev
	if cfg.StopLossOverridePct > 0 {
		stopLoss = cfg.StopLossOverridePct
		if ceiling := stopLossCeiling * lev; stopLoss > ceiling {
			stopLoss = ceiling
		}
	}

	return signal.RiskParameters{
		Leverage:      cfg.Leverage,
		TakeProfitPct: takeProfit,
		StopLossPct:   stopLoss,
		NotionalPct:   cfg.BalanceAllocationPct,
	}, nil
}
