package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Raman-Maurya/mystartup-sub001/config"
	"github.com/Raman-Maurya/mystartup-sub001/internal/engine"
	"github.com/Raman-Maurya/mystartup-sub001/internal/marketdata"
	"github.com/Raman-Maurya/mystartup-sub001/internal/observability"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scheduler"
	"github.com/Raman-Maurya/mystartup-sub001/internal/server"
	"github.com/Raman-Maurya/mystartup-sub001/internal/settlement"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	log := observability.NewLogger("contestd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metrics := observability.NewMetrics()
	health := observability.NewHealthChecker()

	// --- Storage: Postgres when a DSN is configured, memory otherwise ---
	var (
		contests store.ContestStore
		trades   store.TradeStore
		points   store.PointsStore
		payments wallet.PaymentStore
		balances wallet.BalanceStore
	)
	if cfg.Storage.DSN != "" {
		db, err := store.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connect")
		}
		defer db.Close()
		log.Info().Msg("postgres connected")

		migrator := store.NewMigrator(db, cfg.Storage.MigrationsDir, observability.NewLogger("migrate"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		log.Info().Msg("migrations applied")

		pg := store.NewPostgres(db)
		contests, trades, points, payments, balances = pg, pg, pg, pg, pg
	} else {
		log.Warn().Msg("no DSN configured, running with in-memory storage")
		mem := store.NewMemory()
		contests, trades, points, payments, balances = mem, mem, mem, mem, mem
	}

	// --- Market data ---
	prices := marketdata.NewCache()
	snapshots := marketdata.NewSnapshots(prices)

	feed := marketdata.NewFeed(cfg.Market.NATSURL, cfg.Market.Subject, prices, observability.NewLogger("feed"))
	if err := feed.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start price feed")
	}
	defer feed.Stop()

	// --- Domain wiring ---
	wallets := wallet.NewService(payments, balances, observability.NewLogger("wallet"))
	settler := settlement.NewCoordinator(contests, trades, points, wallets, snapshots, observability.NewLogger("settlement"))
	eng := engine.New(contests, trades, points, wallets, prices, settler, metrics, observability.NewLogger("engine"))

	sched := scheduler.New(eng, cfg.SweepInterval(), metrics, observability.NewLogger("scheduler"))
	sched.Start(ctx)
	defer sched.Stop()

	// --- HTTP ---
	srv := server.New(server.Config{
		Addr:         cfg.HTTP.Addr,
		RateLimitRPS: cfg.HTTP.RateLimitRPS,
		RateBurst:    cfg.HTTP.RateBurst,
	}, eng, wallets, health, metrics, observability.NewLogger("http"))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	health.SetReady(true)
	log.Info().Str("addr", cfg.HTTP.Addr).Msg("contestd ready")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	health.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	log.Info().Msg("contestd stopped")
}
