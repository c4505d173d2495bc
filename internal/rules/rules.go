// Package rules maps canonical signal kinds to decisions deterministically.
package rules

import "riskgate/internal/signal"

// Evaluate returns the decision for a signal kind, or ok=false when the kind
// is outside the deterministic table and needs fallback adjudication.
// No I/O, no state: the full behaviour is the table below.
func Evaluate(sig signal.Signal) (signal.Decision, bool) {
	dec := signal.Decision{Confidence: 1, Source: signal.SourceRules}
	switch sig.Kind {
	case signal.KindOpenLong, signal.KindOpenLongStrong:
		dec.Action, dec.Direction = signal.Open, signal.Long
	case signal.KindOpenShort, signal.KindOpenShortStrong:
		dec.Action, dec.Direction = signal.Open, signal.Short
	case signal.KindCloseLong:
		dec.Action, dec.Direction = signal.Close, signal.Long
	case signal.KindCloseShort:
		dec.Action, dec.Direction = signal.Close, signal.Short
	default:
		return signal.Decision{}, false
	}
	return dec, true
}
