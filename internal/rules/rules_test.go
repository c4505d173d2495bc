package rules

import (
	"testing"

	"riskgate/internal/signal"
)

func TestEvaluateTable(t *testing.T) {
	cases := []struct {
		kind      signal.Kind
		action    signal.Action
		direction signal.Direction
	}{
		{signal.KindOpenLong, signal.Open, signal.Long},
		{signal.KindOpenLongStrong, signal.Open, signal.Long},
		{signal.KindOpenShort, signal.Open, signal.Short},
		{signal.KindOpenShortStrong, signal.Open, signal.Short},
		{signal.KindCloseLong, signal.Close, signal.Long},
		{signal.KindCloseShort, signal.Close, signal.Short},
	}
	for _, tc := range cases {
		dec, ok := Evaluate(signal.Signal{ID: "s", UserID: "u", Instrument: "BTCUSDT", Kind: tc.kind})
		if !ok {
			t.Fatalf("kind %s: expected a match", tc.kind)
		}
		if dec.Action != tc.action || dec.Direction != tc.direction {
			t.Fatalf("kind %s: got (%s,%s), want (%s,%s)", tc.kind, dec.Action, dec.Direction, tc.action, tc.direction)
		}
		if dec.Confidence != 1 {
			t.Fatalf("kind %s: rules decisions must carry confidence 1, got %f", tc.kind, dec.Confidence)
		}
		if dec.Source != signal.SourceRules {
			t.Fatalf("kind %s: unexpected source %s", tc.kind, dec.Source)
		}
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	for _, kind := range []signal.Kind{"", "HOLD", "REBALANCE"} {
		if _, ok := Evaluate(signal.Signal{ID: "s", UserID: "u", Instrument: "BTCUSDT", Kind: kind}); ok {
			t.Fatalf("kind %q: expected no match", kind)
		}
	}
}
