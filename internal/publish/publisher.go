// Package publish delivers order requests to the order-execution collaborator.
package publish

import (
	"errors"

	"github.com/rs/zerolog"

	"riskgate/internal/metrics"
	"riskgate/internal/signal"
)

// Publisher hands a finished order request to the outside world. The engine
// owns the request until Publish returns; afterwards the execution
// collaborator does.
type Publisher interface {
	Publish(order signal.OrderRequest) error
}

// LogPublisher writes order requests to the structured log; the default sink
// when no execution collaborator is attached.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher wraps a zerolog logger for order publication.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the request and counts it.
func (p *LogPublisher) Publish(order signal.OrderRequest) error {
	metrics.OrdersTotal.WithLabelValues(string(order.Action), string(order.Direction)).Inc()
	evt := p.log.Info().
		Str("order", order.ID).
		Str("user", order.UserID).
		Str("instrument", order.Instrument).
		Str("action", string(order.Action)).
		Str("direction", string(order.Direction)).
		Str("origin", order.OriginSignalID)
	if order.Risk != nil {
		evt = evt.
			Int("leverage", order.Risk.Leverage).
			Float64("tp_pct", order.Risk.TakeProfitPct).
			Float64("sl_pct", order.Risk.StopLossPct).
			Float64("notional_pct", order.Risk.NotionalPct)
	}
	evt.Msg("publish order request")
	return nil
}

// ChanPublisher pushes order requests onto a channel; sims and tests consume it.
type ChanPublisher struct {
	out chan signal.OrderRequest
}

// NewChanPublisher creates a publisher with the given buffer size.
func NewChanPublisher(buffer int) *ChanPublisher {
	if buffer < 0 {
		buffer = 0
	}
	return &ChanPublisher{out: make(chan signal.OrderRequest, buffer)}
}

// Publish enqueues the order, failing instead of blocking when the consumer
// lags: a stuck collaborator must not stall the dispatch loop.
func (p *ChanPublisher) Publish(order signal.OrderRequest) error {
	select {
	case p.out <- order:
		return nil
	default:
		return errors.New("order channel full")
	}
}

// Out exposes the consumption side.
func (p *ChanPublisher) Out() <-chan signal.OrderRequest { return p.out }

// Fanout publishes to several sinks, returning the first error after trying all.
type Fanout []Publisher

// Publish delivers the order to every sink.
func (f Fanout) Publish(order signal.OrderRequest) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(order); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
