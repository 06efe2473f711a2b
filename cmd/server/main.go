package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/moonshotcommons/cross-guess-game/internal/config"
	"github.com/moonshotcommons/cross-guess-game/internal/database"
	"github.com/moonshotcommons/cross-guess-game/internal/game"
	"github.com/moonshotcommons/cross-guess-game/internal/handler/health"
	"github.com/moonshotcommons/cross-guess-game/internal/journal"
	"github.com/moonshotcommons/cross-guess-game/internal/metrics"
	"github.com/moonshotcommons/cross-guess-game/internal/migrations"
	"github.com/moonshotcommons/cross-guess-game/internal/relay"
	"github.com/moonshotcommons/cross-guess-game/internal/server"
	"github.com/moonshotcommons/cross-guess-game/internal/settlement"
	"github.com/moonshotcommons/cross-guess-game/internal/wallet"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	checks := map[string]health.Checker{"sqlite": dbChecker{db}}
	notifiers := game.Notifiers{}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stats := metrics.New(reg)

	// --- Redis (optional) ---
	if cfg.RedisURL != "" {
		rdb, err := relay.Connect(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()

		pub := relay.New(rdb, cfg.RedisChan, logger)
		if err := pub.Ping(ctx); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
		checks["redis"] = health.CheckerFunc(pub.Ping)
		notifiers = append(notifiers, pub)
		logger.Info("connected to redis", "channel", cfg.RedisChan)
	}

	// --- Game sessions ---
	broker := server.NewBroker()
	jrnl := journal.New(db, logger)
	notifiers = append(game.Notifiers{broker, jrnl, stats}, notifiers...)

	realWallet, err := wallet.FromPrivateKey(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}
	if addr, err := realWallet.Address(); err == nil {
		logger.Info("real mode wallet configured", "address", addr)
	} else {
		logger.Warn("real mode wallet not configured, real joins will be refused")
	}

	modes := server.NewRegistry(server.ModeDemo)
	defer modes.Close()

	for _, m := range []struct {
		name   string
		exec   game.Executor
		wallet wallet.Provider
		house  string
	}{
		{server.ModeDemo, settlement.NewStub(cfg.DemoLatency), wallet.NewRotation(), ""},
		{server.ModeReal, settlement.NewBridge(cfg.BridgeURL, cfg.BridgeAPIKey, settlement.WithLogger(logger)), realWallet, cfg.HouseAddress},
	} {
		s, err := game.New(game.Config{
			Mode:              m.name,
			Executor:          m.exec,
			Notifier:          notifiers,
			Logger:            logger,
			RoundDuration:     cfg.RoundDuration,
			Stake:             cfg.Stake,
			MaxParticipants:   cfg.MaxParticipants,
			GuessMax:          cfg.GuessMax,
			Rollover:          cfg.Rollover,
			SourceChain:       cfg.SourceChain,
			DestChain:         cfg.DestChain,
			House:             m.house,
			SettlementTimeout: cfg.SettlementTimeout,
			PayoutTimeout:     cfg.PayoutTimeout,
		})
		if err != nil {
			return fmt.Errorf("creating %s session: %w", m.name, err)
		}
		modes.Add(&server.Mode{Name: m.name, Session: s, Wallet: m.wallet})
	}
	logger.Info("game sessions ready",
		"modes", modes.Names(),
		"round_duration", cfg.RoundDuration.String(),
		"stake", cfg.Stake.String(),
		"max_participants", cfg.MaxParticipants,
		"guess_max", cfg.GuessMax,
	)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:      logger,
		Modes:       modes,
		Broker:      broker,
		Journal:     jrnl,
		Metrics:     stats,
		Gatherer:    reg,
		Healthz:     health.NewHandler(logger, checks).Routes(),
		CORSOrigins: cfg.CORSOrigins,
		SPADir:      cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }
