package adjudicator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"riskgate/internal/regime"
	"riskgate/internal/signal"
)

func testSignal() signal.Signal {
	return signal.Signal{ID: "sig-1", UserID: "u1", Instrument: "BTCUSDT", Kind: "REBALANCE", ReceivedAt: time.Now()}
}

func chatBody(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + content + `}}]}`
}

func TestAdjudicateParsesDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Write([]byte(chatBody(`"{\"action\":\"OPEN\",\"direction\":\"LONG\",\"confidence\":0.8}"`)))
	}))
	defer srv.Close()

	adj := New(srv.URL, "test-key", zerolog.Nop())
	dec, err := adj.Adjudicate(context.Background(), testSignal(), regime.NewStore().Snapshot())
	if err != nil {
		t.Fatalf("Adjudicate returned error: %v", err)
	}
	if dec.Action != signal.Open || dec.Direction != signal.Long {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if dec.Confidence != 0.8 {
		t.Fatalf("confidence not carried through: %f", dec.Confidence)
	}
	if dec.Source != signal.SourceFallback {
		t.Fatalf("expected fallback source, got %s", dec.Source)
	}
}

func TestAdjudicateToleratesFencedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatBody(`"` + "```json\\n{\\\"action\\\":\\\"CLOSE\\\",\\\"direction\\\":\\\"SHORT\\\"}\\n```" + `"`)))
	}))
	defer srv.Close()

	adj := New(srv.URL, "", zerolog.Nop())
	dec, err := adj.Adjudicate(context.Background(), testSignal(), regime.NewStore().Snapshot())
	if err != nil {
		t.Fatalf("Adjudicate returned error: %v", err)
	}
	if dec.Action != signal.Close || dec.Direction != signal.Short {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if dec.Confidence != defaultConfidence {
		t.Fatalf("missing confidence must default, got %f", dec.Confidence)
	}
}

func TestAdjudicateUnresolvedOnSchemaViolation(t *testing.T) {
	bodies := []string{
		chatBody(`"{\"action\":\"HEDGE\",\"direction\":\"LONG\"}"`),
		chatBody(`"{\"action\":\"OPEN\",\"direction\":\"SIDEWAYS\"}"`),
		chatBody(`"I would open a long position here."`),
		`{"choices":[]}`,
		`not json at all`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		adj := New(srv.URL, "", zerolog.Nop())
		if _, err := adj.Adjudicate(context.Background(), testSignal(), regime.NewStore().Snapshot()); !errors.Is(err, ErrUnresolved) {
			t.Fatalf("body %q: expected ErrUnresolved, got %v", body, err)
		}
		srv.Close()
	}
}

func TestAdjudicateUnresolvedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	adj := New(srv.URL, "", zerolog.Nop())
	if _, err := adj.Adjudicate(context.Background(), testSignal(), regime.NewStore().Snapshot()); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestAdjudicateTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	adj := New(srv.URL, "", zerolog.Nop(), WithTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := adj.Adjudicate(context.Background(), testSignal(), regime.NewStore().Snapshot())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved on timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestParseDecisionConfidenceBounds(t *testing.T) {
	dec, err := parseDecision(`{"action":"OPEN","direction":"LONG","confidence":7}`)
	if err != nil {
		t.Fatalf("parseDecision returned error: %v", err)
	}
	if dec.Confidence != defaultConfidence {
		t.Fatalf("out-of-range confidence must default, got %f", dec.Confidence)
	}
}
