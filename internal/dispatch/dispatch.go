// Package dispatch drives a signal through classification, admission, risk
// parameterization, and publication.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"riskgate/internal/admission"
	"riskgate/internal/ledger"
	"riskgate/internal/metrics"
	"riskgate/internal/publish"
	"riskgate/internal/regime"
	"riskgate/internal/risk"
	"riskgate/internal/rules"
	"riskgate/internal/signal"
)

// State is the terminal state of a processed signal.
type State string

const (
	StateDispatched State = "DISPATCHED"
	StateDiscarded  State = "DISCARDED"
)

// Discard reasons beyond the admission taxonomy.
const (
	DiscardMalformed         = "MALFORMED"
	DiscardDuplicate         = string(admission.ReasonDuplicate)
	DiscardUnresolved        = "UNRESOLVED"
	DiscardRiskConfigInvalid = "RISK_CONFIG_INVALID"
)

// Outcome reports what happened to one signal, mainly for tests and logging.
type Outcome struct {
	State    State
	Reason   string
	Decision *signal.Decision
	Order    *signal.OrderRequest
}

func discarded(reason string) Outcome { return Outcome{State: StateDiscarded, Reason: reason} }

// Adjudicator is the fallback step for signals the rules table cannot classify.
type Adjudicator interface {
	Adjudicate(ctx context.Context, sig signal.Signal, snap regime.Snapshot) (signal.Decision, error)
}

// Coordinator wires the decision pipeline together. Signals for different
// users run in parallel; per-user admission and ledger writes are serialized
// through the lock table.
type Coordinator struct {
	regimes  *regime.Store
	ledger   *ledger.Ledger
	locks    *ledger.UserLocks
	admit    *admission.Controller
	profiles risk.ProfileStore
	fallback Adjudicator
	pub      publish.Publisher
	log      zerolog.Logger
}

// New assembles a coordinator. fallback may be nil, in which case unmatched
// signals are discarded as unresolved.
func New(
	regimes *regime.Store,
	led *ledger.Ledger,
	profiles risk.ProfileStore,
	fallback Adjudicator,
	pub publish.Publisher,
	log zerolog.Logger,
) *Coordinator {
	maxOpen := func(userID string) int {
		cfg, err := profiles.Profile(userID)
		if err != nil {
			return risk.DefaultMaxConcurrentPositions
		}
		return cfg.MaxConcurrentPositions
	}
	return &Coordinator{
		regimes:  regimes,
		ledger:   led,
		locks:    ledger.NewUserLocks(),
		admit:    admission.New(regimes, led, maxOpen),
		profiles: profiles,
		fallback: fallback,
		pub:      pub,
		log:      log,
	}
}

// Run consumes signals until the channel closes or the context is canceled.
// Each signal is handled in its own goroutine; in-flight work is awaited on
// shutdown so no ledger write is cut off mid-decision.
func (c *Coordinator) Run(ctx context.Context, in <-chan signal.Signal) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-in:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.OnSignal(ctx, sig)
			}()
		}
	}
}

// OnSignal runs one signal through the full pipeline and returns its outcome.
// It never panics and never blocks on other users' signals.
func (c *Coordinator) OnSignal(ctx context.Context, sig signal.Signal) Outcome {
	if err := sig.Validate(); err != nil {
		metrics.MalformedTotal.Inc()
		c.log.Warn().Err(err).Str("signal", sig.ID).Msg("discarding malformed signal")
		return discarded(DiscardMalformed)
	}
	metrics.SignalsTotal.WithLabelValues(string(sig.Kind)).Inc()

	// Cheap duplicate pre-check so replays skip classification entirely.
	// The authoritative marker is persisted inside Admit.
	if c.admit.Seen(sig.ID) {
		c.log.Debug().Str("signal", sig.ID).Msg("duplicate signal, discarding")
		return discarded(DiscardDuplicate)
	}

	dec, ok := rules.Evaluate(sig)
	if !ok {
		var err error
		dec, err = c.adjudicate(ctx, sig)
		if err != nil {
			metrics.UnresolvedTotal.Inc()
			c.log.Warn().Err(err).Str("signal", sig.ID).Str("kind", string(sig.Kind)).Msg("signal unresolved, discarding")
			return discarded(DiscardUnresolved)
		}
	}
	metrics.DecisionsTotal.WithLabelValues(string(dec.Source)).Inc()

	// Resolve and parameterize before taking the user lock; both are
	// side-effect free and must not extend the critical section.
	var riskParams *signal.RiskParameters
	if dec.Action == signal.Open {
		cfg, err := c.profiles.Profile(sig.UserID)
		if err == nil {
			var params signal.RiskParameters
			params, err = risk.Parameterize(dec, cfg)
			if err == nil {
				riskParams = &params
			}
		}
		if err != nil {
			metrics.RiskConfigInvalidTotal.Inc()
			c.log.Error().Err(err).Str("signal", sig.ID).Str("user", sig.UserID).
				Msg("risk configuration rejected, flagging for operator attention")
			return discarded(DiscardRiskConfigInvalid)
		}
	}

	c.locks.Lock(sig.UserID)
	res := c.admit.Admit(sig, dec)
	if !res.Admitted {
		c.locks.Unlock(sig.UserID)
		c.logRejection(sig, res.Reason)
		metrics.RejectionsTotal.WithLabelValues(string(res.Reason)).Inc()
		return Outcome{State: StateDiscarded, Reason: string(res.Reason), Decision: &dec}
	}

	order := signal.OrderRequest{
		ID:             uuid.NewString(),
		UserID:         sig.UserID,
		Instrument:     sig.Instrument,
		Action:         dec.Action,
		Direction:      dec.Direction,
		Risk:           riskParams,
		OriginSignalID: sig.ID,
		CreatedAt:      time.Now().UTC(),
	}
	switch dec.Action {
	case signal.Open:
		c.ledger.RecordOpen(sig.UserID, sig.Instrument, dec.Direction)
	case signal.Close:
		c.ledger.RecordClose(sig.UserID, sig.Instrument, dec.Direction)
	}
	c.locks.Unlock(sig.UserID)

	if err := c.pub.Publish(order); err != nil {
		c.log.Error().Err(err).Str("order", order.ID).Str("signal", sig.ID).Msg("order publish failed")
	}
	c.log.Info().
		Str("signal", sig.ID).
		Str("order", order.ID).
		Str("source", string(dec.Source)).
		Float64("confidence", dec.Confidence).
		Msg("signal dispatched")
	return Outcome{State: StateDispatched, Decision: &dec, Order: &order}
}

// adjudicate runs the single fallback attempt. The user lock is never held
// here: the external call may block for up to its timeout.
func (c *Coordinator) adjudicate(ctx context.Context, sig signal.Signal) (signal.Decision, error) {
	if c.fallback == nil {
		return signal.Decision{}, errors.New("no fallback adjudicator configured")
	}
	return c.fallback.Adjudicate(ctx, sig, c.regimes.Snapshot())
}

func (c *Coordinator) logRejection(sig signal.Signal, reason admission.Reason) {
	evt := c.log.Info()
	if reason == admission.ReasonDuplicate {
		evt = c.log.Debug()
	}
	evt.Str("signal", sig.ID).Str("user", sig.UserID).Str("reason", string(reason)).Msg("signal rejected")
}
