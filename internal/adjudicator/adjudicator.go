// Package adjudicator resolves signals the rules table cannot classify by
// asking an external reasoning service for a schema-constrained decision.
package adjudicator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"riskgate/internal/metrics"
	"riskgate/internal/regime"
	"riskgate/internal/signal"
)

// ErrUnresolved covers every failure mode of the fallback step: transport
// errors, timeouts, and responses that do not conform to the decision schema.
// An unresolved signal is discarded, never coerced into an action.
var ErrUnresolved = errors.New("fallback adjudication unresolved")

const (
	defaultTimeout     = 5 * time.Second
	defaultModel       = "gpt-4o-mini"
	defaultConfidence  = 0.5
	systemInstructions = `You classify trading signals. Reply with a single JSON object and nothing else:
{"action":"OPEN"|"CLOSE","direction":"LONG"|"SHORT","confidence":<0..1>}`
)

// Adjudicator is a bounded-timeout client for a chat-completion style service.
type Adjudicator struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures Adjudicator construction parameters.
type Option func(*Adjudicator)

// WithTimeout bounds the round trip to the reasoning service.
func WithTimeout(d time.Duration) Option {
	return func(a *Adjudicator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithModel selects the reasoning model requested from the service.
func WithModel(model string) Option {
	return func(a *Adjudicator) {
		if model != "" {
			a.model = model
		}
	}
}

// WithHTTPClient injects the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adjudicator) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// New builds an adjudicator talking to baseURL (the chat-completions endpoint).
func New(baseURL, apiKey string, log zerolog.Logger, opts ...Option) *Adjudicator {
	a := &Adjudicator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      defaultModel,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
		log:        log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// wireDecision is the only shape accepted back from the service.
type wireDecision struct {
	Action     string  `json:"action"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
}

// Adjudicate sends one bounded request for the signal and parses a structured
// decision from the response. Exactly one attempt is made; every failure maps
// to ErrUnresolved so the coordinator can discard with a warning.
func (a *Adjudicator) Adjudicate(ctx context.Context, sig signal.Signal, snap regime.Snapshot) (signal.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstructions},
			{Role: "user", Content: buildPrompt(sig, snap)},
		},
	})
	if err != nil {
		return signal.Decision{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return signal.Decision{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	started := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return signal.Decision{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	defer resp.Body.Close()
	metrics.FallbackLatency.Observe(time.Since(started).Seconds())

	if resp.StatusCode != http.StatusOK {
		return signal.Decision{}, fmt.Errorf("%w: service status %d", ErrUnresolved, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return signal.Decision{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return signal.Decision{}, fmt.Errorf("%w: decode response: %v", ErrUnresolved, err)
	}
	if len(chat.Choices) == 0 {
		return signal.Decision{}, fmt.Errorf("%w: response carried no choices", ErrUnresolved)
	}

	dec, err := parseDecision(chat.Choices[0].Message.Content)
	if err != nil {
		a.log.Warn().Err(err).Str("signal", sig.ID).Msg("reasoning service returned an invalid decision")
		return signal.Decision{}, err
	}
	return dec, nil
}

// buildPrompt carries the signal plus minimal regime context. Kept small and
// fixed-shape so the service cannot be steered by upstream payload contents.
func buildPrompt(sig signal.Signal, snap regime.Snapshot) string {
	permitted := make([]string, len(snap.Permitted))
	for i, d := range snap.Permitted {
		permitted[i] = string(d)
	}
	return fmt.Sprintf(
		"Signal kind %q for instrument %s received at %s. Market sentiment index is %.0f (permitted directions: %s). Classify the signal.",
		sig.Kind, sig.Instrument, sig.ReceivedAt.UTC().Format(time.RFC3339), snap.Index, strings.Join(permitted, ","),
	)
}

// parseDecision validates the strict {action, direction} schema. A fenced
// ```json block around the object is tolerated, nothing else is.
func parseDecision(content string) (signal.Decision, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var wire wireDecision
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return signal.Decision{}, fmt.Errorf("%w: decision not valid JSON: %v", ErrUnresolved, err)
	}

	var action signal.Action
	switch strings.ToUpper(wire.Action) {
	case string(signal.Open):
		action = signal.Open
	case string(signal.Close):
		action = signal.Close
	default:
		return signal.Decision{}, fmt.Errorf("%w: action %q outside schema", ErrUnresolved, wire.Action)
	}

	var direction signal.Direction
	switch strings.ToUpper(wire.Direction) {
	case string(signal.Long):
		direction = signal.Long
	case string(signal.Short):
		direction = signal.Short
	default:
		return signal.Decision{}, fmt.Errorf("%w: direction %q outside schema", ErrUnresolved, wire.Direction)
	}

	confidence := wire.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = defaultConfidence
	}

	return signal.Decision{
		Action:     action,
		Direction:  direction,
		Confidence: confidence,
		Source:     signal.SourceFallback,
	}, nil
}
