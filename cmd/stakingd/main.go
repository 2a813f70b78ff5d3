// Package main is the entry point for the staking daemon.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staking-engine/internal/address"
	"staking-engine/internal/bot"
	"staking-engine/internal/config"
	"staking-engine/internal/metrics"
	"staking-engine/internal/pkg/db"
	"staking-engine/internal/pkg/lock"
	"staking-engine/internal/repository"
	"staking-engine/internal/scheduler"
	"staking-engine/internal/service"
	"staking-engine/internal/staking"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	log.Info().Msg("Running database migrations...")
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	programID, err := cfg.Program.ProgramID()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid program id")
	}
	params, err := poolParams(&cfg.Pool, programID)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pool configuration")
	}

	m := metrics.New()
	m.WatchPool(dbPool.Pool)

	clock := staking.SystemClock{}
	stakingService, err := service.NewStakingService(
		dbPool.Pool,
		clock,
		lock.NewAccountLock(),
		m,
		service.Config{
			ProgramID:   programID,
			Pool:        params,
			LockTimeout: cfg.Program.LockTimeout,
			FaucetLimit: cfg.Program.FaucetLimit,
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create staking service")
	}

	log.Info().
		Str("program", programID.String()).
		Str("pool", stakingService.PoolAddress().String()).
		Msg("Staking service ready")

	// Release sweep
	var releaser *scheduler.ReleaseScheduler
	if cfg.Scheduler.Enabled {
		releaser = scheduler.NewReleaseScheduler(stakingService, clock, cfg.Scheduler.Spec)
		if err := releaser.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start release scheduler")
		}
	}

	// Metrics and health endpoint
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = newMetricsServer(cfg.Metrics.Addr, m, dbPool)
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		StakingService: stakingService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	if releaser != nil {
		releaser.Stop()
	}
	if metricsServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}
	log.Info().Msg("Stopped gracefully")
}

// poolParams builds the initialize parameters. A mint left empty in the
// configuration is derived from the program id.
func poolParams(cfg *config.PoolConfig, programID solana.PublicKey) (staking.InitParams, error) {
	params := staking.InitParams{
		DailyRate:     cfg.DailyRate,
		MaxMultiplier: cfg.MaxMultiplier,
		MinStake:      cfg.MinStake,
		DirectBonus:   cfg.DirectBonus,
		IndirectBonus: cfg.IndirectBonus,
	}

	mints := []struct {
		dst        *solana.PublicKey
		configured string
		name       string
	}{
		{&params.StakeMint, cfg.StakeMint, "stake"},
		{&params.RewardMint, cfg.RewardMint, "reward"},
		{&params.MemeMint, cfg.MemeMint, "meme"},
	}
	for _, m := range mints {
		var err error
		if m.configured != "" {
			*m.dst, err = solana.PublicKeyFromBase58(m.configured)
		} else {
			*m.dst, err = address.Mint(programID, m.name)
		}
		if err != nil {
			return staking.InitParams{}, err
		}
	}
	return params, nil
}

func newMetricsServer(addr string, m *metrics.Metrics, pool *db.Pool) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.HealthCheck(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
