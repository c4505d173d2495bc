// Binary sim drives the full decision pipeline offline: synthetic signals,
// an oscillating sentiment index, and no external reasoning service.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"riskgate/internal/dispatch"
	"riskgate/internal/intake"
	"riskgate/internal/ledger"
	"riskgate/internal/metrics"
	"riskgate/internal/publish"
	"riskgate/internal/regime"
	"riskgate/internal/risk"
	sig "riskgate/internal/signal"
	"riskgate/internal/util"
)

func main() {
	metricsAddr := flag.String("metrics", ":9109", "metrics listen address")
	ordersPath := flag.String("orders", "data/sim-orders.jsonl", "JSONL file for published orders")
	logLevel := flag.String("log", "debug", "log level")
	flag.Parse()

	log := util.NewLogger(*logLevel)
	_ = metrics.Serve(*metricsAddr)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	profiles, err := risk.NewStaticProfiles(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("build default profiles")
	}

	regimes := regime.NewStore()
	go func() {
		_ = regime.NewFeed(regime.ProviderStub, "", regimes, log).Run(ctx)
	}()

	publisher := publish.Fanout{publish.NewLogPublisher(log)}
	recorder, err := publish.NewJSONLRecorder(*ordersPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open order recorder")
	}
	defer recorder.Close()
	publisher = append(publisher, recorder)

	led := ledger.New(log)
	coord := dispatch.New(regimes, led, profiles, nil, publisher, log)

	signals := make(chan sig.Signal, 64)
	go func() {
		_ = intake.NewFeed(intake.ProviderStub, "", log).Run(ctx, signals)
	}()

	log.Info().Msg("sim engine started")
	coord.Run(ctx, signals)

	for _, pos := range led.Snapshot() {
		log.Info().
			Str("user", pos.UserID).
			Str("instrument", pos.Instrument).
			Str("direction", string(pos.Direction)).
			Msg("position still open at shutdown")
	}
	log.Info().Msg("shutting down")
}
