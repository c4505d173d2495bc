package regime

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// ProviderStub oscillates the index deterministically (tests/offline work).
	ProviderStub = "stub"
	// ProviderHTTP polls a fear-and-greed style JSON endpoint.
	ProviderHTTP = "http"
	// ProviderPush subscribes to a websocket stream of index updates.
	ProviderPush = "push"
)

const defaultPollInterval = 60 * time.Second

// Feed keeps a Store current from an external sentiment source.
type Feed struct {
	provider     string
	endpoint     string
	pollInterval time.Duration
	store        *Store
	log          zerolog.Logger
	httpClient   *http.Client
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithPollInterval overrides the default polling cadence for the HTTP provider.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithHTTPClient injects the client used by the HTTP provider.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Feed) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// NewFeed constructs a feed backed by the requested provider writing into store.
func NewFeed(provider, endpoint string, store *Store, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		endpoint:     endpoint,
		pollInterval: defaultPollInterval,
		store:        store,
		log:          log,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run updates the store until the context is canceled.
func (f *Feed) Run(ctx context.Context) error {
	switch f.provider {
	case ProviderHTTP:
		return f.runHTTP(ctx)
	case ProviderPush:
		return f.runPush(ctx)
	default:
		return f.runStub(ctx)
	}
}

func (f *Feed) runStub(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	index := DefaultIndex
	step := 5.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			index += step
			if index >= 90 || index <= 10 {
				step = -step
			}
			f.store.Update(index)
		}
	}
}

// indexResponse matches the alternative.me style fear-and-greed payload, with
// the value serialized as a string.
type indexResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

func (f *Feed) runHTTP(ctx context.Context) error {
	if f.endpoint == "" {
		return fmt.Errorf("regime http feed requires an endpoint")
	}
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	// Prime immediately so the engine does not gate on the neutral default
	// for a whole poll interval after startup.
	if err := f.pollOnce(ctx); err != nil {
		f.log.Warn().Err(err).Msg("initial regime poll failed")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.pollOnce(ctx); err != nil {
				f.log.Warn().Err(err).Msg("regime poll failed")
			}
		}
	}
}

func (f *Feed) pollOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("regime feed status %d", resp.StatusCode)
	}
	var payload indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode regime payload: %w", err)
	}
	if len(payload.Data) == 0 {
		return fmt.Errorf("regime payload carried no readings")
	}
	value, err := strconv.ParseFloat(payload.Data[0].Value, 64)
	if err != nil {
		return fmt.Errorf("invalid regime index: %w", err)
	}
	f.store.Update(value)
	return nil
}

type pushEnvelope struct {
	Index float64 `json:"index"`
}

func (f *Feed) runPush(ctx context.Context) error {
	if f.endpoint == "" {
		return fmt.Errorf("regime push feed requires an endpoint")
	}
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumePushStream(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("regime push feed disconnected, retrying")
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

func (f *Feed) consumePushStream(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("endpoint", f.endpoint).Msg("connected regime feed")
	conn.SetReadLimit(1 << 16)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env pushEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode regime update")
			continue
		}
		f.store.Update(env.Index)
	}
}
