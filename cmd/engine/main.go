// Binary engine runs the live signal decision pipeline: websocket intake,
// sentiment feed, fallback adjudicator, and order publication.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"riskgate/internal/adjudicator"
	"riskgate/internal/config"
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
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration")
	flag.Parse()

	_ = godotenv.Load() // best-effort

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	profiles, err := risk.NewStaticProfiles(cfg.Users)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid user risk profiles")
	}

	regimes := regime.NewStore()
	regimeFeed := regime.NewFeed(cfg.Regime.Provider, cfg.Regime.Endpoint, regimes, log,
		regime.WithPollInterval(time.Duration(cfg.Regime.PollInterval)*time.Millisecond))
	go func() {
		if err := regimeFeed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("regime feed stopped")
		}
	}()

	var fallback dispatch.Adjudicator
	if cfg.Reasoner.Endpoint != "" {
		fallback = adjudicator.New(cfg.Reasoner.Endpoint, os.Getenv(cfg.Reasoner.APIKeyEnv), log,
			adjudicator.WithModel(cfg.Reasoner.Model),
			adjudicator.WithTimeout(time.Duration(cfg.Reasoner.TimeoutMs)*time.Millisecond))
	}

	publisher := publish.Fanout{publish.NewLogPublisher(log)}
	if cfg.Engine.OrdersPath != "" {
		recorder, err := publish.NewJSONLRecorder(cfg.Engine.OrdersPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open order recorder")
		}
		defer recorder.Close()
		publisher = append(publisher, recorder)
	}

	led := ledger.New(log)
	coord := dispatch.New(regimes, led, profiles, fallback, publisher, log)

	buffer := cfg.Engine.OrderBuffer
	if buffer <= 0 {
		buffer = 256
	}
	signals := make(chan sig.Signal, buffer)
	feed := intake.NewFeed(cfg.Intake.Provider, cfg.Intake.Endpoint, log)
	go func() {
		if err := feed.Run(ctx, signals); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("intake feed stopped")
			cancel()
		}
	}()

	log.Info().Str("env", cfg.App.Env).Msg("decision engine started")
	coord.Run(ctx, signals)
	log.Info().Msg("shutting down")
}
