// Package admission gates classified decisions against the market regime and
// the per-user position ledger before any order parameters are derived.
package admission

import (
	"riskgate/internal/ledger"
	"riskgate/internal/regime"
	"riskgate/internal/signal"
)

// Reason explains a rejection. The zero value means admitted.
type Reason string

const (
	ReasonDuplicate      Reason = "DUPLICATE"
	ReasonRegimeBlocked  Reason = "REGIME_BLOCKED"
	ReasonCapReached     Reason = "CAP_REACHED"
	ReasonAlreadyOpen    Reason = "ALREADY_OPEN"
	ReasonNothingToClose Reason = "NOTHING_TO_CLOSE"
)

// Result is the outcome of an admission check.
type Result struct {
	Admitted bool
	Reason   Reason
}

func admitted() Result              { return Result{Admitted: true} }
func rejected(reason Reason) Result { return Result{Reason: reason} }

// Controller combines the dedup store, the regime store, and the ledger.
// The caller must hold the user's lock across Admit and the subsequent
// ledger write so the cap check and the write are atomic.
type Controller struct {
	seen    *seenStore
	regimes *regime.Store
	ledger  *ledger.Ledger
	maxOpen func(userID string) int
}

// New builds a controller. maxOpen resolves the per-user concurrent position
// cap (typically from the risk profile store).
func New(regimes *regime.Store, led *ledger.Ledger, maxOpen func(userID string) int) *Controller {
	return &Controller{
		seen:    newSeenStore(),
		regimes: regimes,
		ledger:  led,
		maxOpen: maxOpen,
	}
}

// Seen reports whether the signal id was already processed, without marking.
// The coordinator uses it as a cheap pre-check before classification.
func (c *Controller) Seen(signalID string) bool {
	return c.seen.contains(signalID)
}

// Admit runs the ordered checks from the admission contract. The duplicate
// check is the only one with a side effect: it persists the dedup marker, so
// a signal is marked processed exactly once regardless of later rejections.
func (c *Controller) Admit(sig signal.Signal, dec signal.Decision) Result {
	if !c.seen.add(sig.ID) {
		return rejected(ReasonDuplicate)
	}

	switch dec.Action {
	case signal.Open:
		snap := c.regimes.Snapshot()
		if !snap.Permits(dec.Direction) {
			return rejected(ReasonRegimeBlocked)
		}
		if c.ledger.OpenCount(sig.UserID) >= c.maxOpen(sig.UserID) {
			return rejected(ReasonCapReached)
		}
		if c.ledger.HasOpen(sig.UserID, sig.Instrument, dec.Direction) {
			return rejected(ReasonAlreadyOpen)
		}
	case signal.Close:
		if !c.ledger.HasOpen(sig.UserID, sig.Instrument, dec.Direction) {
			return rejected(ReasonNothingToClose)
		}
	}
	return admitted()
}
