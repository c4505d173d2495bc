// Package signal standardizes the payloads shared between intake, decision, and dispatch layers.
package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed marks inbound payloads that must never reach the decision pipeline.
var ErrMalformed = errors.New("malformed signal")

// Kind classifies an inbound market event.
type Kind string

const (
	KindOpenLong        Kind = "OPEN_LONG"
	KindOpenLongStrong  Kind = "OPEN_LONG_STRONG"
	KindOpenShort       Kind = "OPEN_SHORT"
	KindOpenShortStrong Kind = "OPEN_SHORT_STRONG"
	KindCloseLong       Kind = "CLOSE_LONG"
	KindCloseShort      Kind = "CLOSE_SHORT"
)

// Direction enumerates trade directions.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Action enumerates what a decision does to exposure.
type Action string

const (
	Open  Action = "OPEN"
	Close Action = "CLOSE"
)

// Source records which step produced a decision.
type Source string

const (
	SourceRules    Source = "RULES"
	SourceFallback Source = "FALLBACK"
)

// ParseKind normalizes a wire string into a Kind. Accepts the canonical
// upper-snake form plus the CamelCase spelling some upstreams emit. Kinds
// outside the rules table are preserved rather than rejected: classifying
// them is the fallback adjudicator's job, only an empty kind is malformed.
func ParseKind(raw string) (Kind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized != "" && !strings.Contains(normalized, "_") {
		normalized = camelToSnake(raw)
	}
	if normalized == "" {
		return "", fmt.Errorf("%w: empty kind", ErrMalformed)
	}
	return Kind(normalized), nil
}

func camelToSnake(raw string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(raw))
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' && runes[i-1] >= 'a' && runes[i-1] <= 'z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Signal is one canonical inbound market event.
type Signal struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Instrument string    `json:"instrument"`
	Kind       Kind      `json:"kind"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Validate rejects signals that must be discarded before classification.
func (s Signal) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if s.UserID == "" {
		return fmt.Errorf("%w: missing userId", ErrMalformed)
	}
	if s.Instrument == "" {
		return fmt.Errorf("%w: missing instrument", ErrMalformed)
	}
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	return nil
}

// Decode parses a wire payload into a validated Signal.
func Decode(payload []byte) (Signal, error) {
	var wire struct {
		ID         string    `json:"id"`
		UserID     string    `json:"userId"`
		Instrument string    `json:"instrument"`
		Kind       string    `json:"kind"`
		ReceivedAt time.Time `json:"receivedAt"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	kind, err := ParseKind(wire.Kind)
	if err != nil {
		return Signal{}, err
	}
	sig := Signal{
		ID:         wire.ID,
		UserID:     wire.UserID,
		Instrument: wire.Instrument,
		Kind:       kind,
		ReceivedAt: wire.ReceivedAt,
	}
	if sig.ReceivedAt.IsZero() {
		sig.ReceivedAt = time.Now().UTC()
	}
	if err := sig.Validate(); err != nil {
		return Signal{}, err
	}
	return sig, nil
}

// Decision is the intermediate result of the rules or fallback step. Ephemeral,
// never persisted by the engine.
type Decision struct {
	Action     Action
	Direction  Direction
	Confidence float64 // 0..1; rules decisions are always 1
	Source     Source
}

// RiskParameters carries the leverage-derived fields attached to open orders.
type RiskParameters struct {
	Leverage      int     `json:"leverage"`
	TakeProfitPct float64 `json:"takeProfitPct"`
	StopLossPct   float64 `json:"stopLossPct"`
	NotionalPct   float64 `json:"notionalPct"`
}

// OrderRequest is the engine's output, consumed by the order-execution collaborator.
// Risk is nil for close requests, which target an existing position's parameters.
type OrderRequest struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Instrument     string          `json:"instrument"`
	Action         Action          `json:"action"`
	Direction      Direction       `json:"direction"`
	Risk           *RiskParameters `json:"risk,omitempty"`
	OriginSignalID string          `json:"originSignalId"`
	CreatedAt      time.Time       `json:"createdAt"`
}
