// Package intake consumes canonical signals from the upstream intake collaborator.
package intake

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"riskgate/internal/metrics"
	"riskgate/internal/signal"
)

const (
	// ProviderStub emits a deterministic rotation of synthetic signals
	// (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderPush consumes signals from the intake collaborator's
	// websocket stream.
	ProviderPush = "push"
)

// Feed represents a pluggable signal source.
type Feed struct {
	provider string
	endpoint string
	log      zerolog.Logger
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, endpoint string, log zerolog.Logger) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	return &Feed{provider: strings.ToLower(provider), endpoint: endpoint, log: log}
}

// Run pushes signals onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Signal) error {
	switch f.provider {
	case ProviderPush:
		return f.runPush(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

var stubKinds = []signal.Kind{
	signal.KindOpenLong,
	signal.KindOpenShortStrong,
	signal.KindCloseLong,
	signal.KindOpenLongStrong,
	signal.KindCloseShort,
	signal.KindOpenShort,
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Signal) error {
	ticker := time.NewTicker(750 * time.Millisecond)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			sig := signal.Signal{
				ID:         fmt.Sprintf("stub-%d", n),
				UserID:     fmt.Sprintf("user-%d", n%3),
				Instrument: "BTCUSDT",
				Kind:       stubKinds[n%len(stubKinds)],
				ReceivedAt: ts.UTC(),
			}
			n++
			select {
			case out <- sig:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (f *Feed) runPush(ctx context.Context, out chan<- signal.Signal) error {
	if f.endpoint == "" {
		return fmt.Errorf("push intake requires an endpoint")
	}
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeStream(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("intake stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeStream(ctx context.Context, out chan<- signal.Signal) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("endpoint", f.endpoint).Msg("connected signal intake")
	conn.SetReadLimit(1 << 20)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		sig, err := signal.Decode(message)
		if err != nil {
			// Malformed payloads stop here; the pipeline only ever
			// sees validated signals.
			metrics.MalformedTotal.Inc()
			f.log.Warn().Err(err).Msg("dropping malformed intake payload")
			continue
		}
		select {
		case out <- sig:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
