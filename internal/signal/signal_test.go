package signal

import (
	"errors"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"OPEN_LONG":         KindOpenLong,
		"open_long_strong":  KindOpenLongStrong,
		"OpenShort":         KindOpenShort,
		"OpenShortStrong":   KindOpenShortStrong,
		"close_long":        KindCloseLong,
		" CLOSE_SHORT ":     KindCloseShort,
		"open-long":         KindOpenLong,
		"OPEN_SHORT_STRONG": KindOpenShortStrong,
	}
	for raw, want := range cases {
		got, err := ParseKind(raw)
		if err != nil {
			t.Fatalf("ParseKind(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseKindPreservesUnknown(t *testing.T) {
	// Kinds outside the rules table are valid input; the fallback
	// adjudicator classifies them.
	got, err := ParseKind("rebalance")
	if err != nil {
		t.Fatalf("ParseKind returned error: %v", err)
	}
	if got != "REBALANCE" {
		t.Fatalf("expected normalized REBALANCE, got %s", got)
	}
}

func TestParseKindRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		if _, err := ParseKind(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("ParseKind(%q): expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestValidate(t *testing.T) {
	base := Signal{ID: "sig-1", UserID: "u1", Instrument: "BTCUSDT", Kind: KindOpenLong, ReceivedAt: time.Now()}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid signal rejected: %v", err)
	}

	broken := []Signal{
		{UserID: "u1", Instrument: "BTCUSDT", Kind: KindOpenLong},
		{ID: "sig-1", Instrument: "BTCUSDT", Kind: KindOpenLong},
		{ID: "sig-1", UserID: "u1", Kind: KindOpenLong},
		{ID: "sig-1", UserID: "u1", Instrument: "BTCUSDT", Kind: ""},
	}
	for i, sig := range broken {
		if err := sig.Validate(); !errors.Is(err, ErrMalformed) {
			t.Fatalf("case %d: expected ErrMalformed, got %v", i, err)
		}
	}
}

func TestDecode(t *testing.T) {
	payload := []byte(`{"id":"sig-9","userId":"u7","instrument":"ETHUSDT","kind":"OpenLongStrong"}`)
	sig, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if sig.Kind != KindOpenLongStrong {
		t.Fatalf("unexpected kind: %s", sig.Kind)
	}
	if sig.ReceivedAt.IsZero() {
		t.Fatalf("expected ReceivedAt to be defaulted")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"id":"","userId":"u1","instrument":"BTCUSDT","kind":"OPEN_LONG"}`,
		`{"id":"sig-1","userId":"u1","instrument":"BTCUSDT","kind":""}`,
	} {
		if _, err := Decode([]byte(payload)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("payload %q: expected ErrMalformed, got %v", payload, err)
		}
	}
}
