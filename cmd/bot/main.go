// Package main is the entry point for the Spin3 reward bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tokhirov0/Spin3/internal/api"
	"github.com/tokhirov0/Spin3/internal/bot"
	"github.com/tokhirov0/Spin3/internal/config"
	"github.com/tokhirov0/Spin3/internal/flow"
	"github.com/tokhirov0/Spin3/internal/gate"
	"github.com/tokhirov0/Spin3/internal/pkg/db"
	"github.com/tokhirov0/Spin3/internal/pkg/lock"
	"github.com/tokhirov0/Spin3/internal/repository"
	"github.com/tokhirov0/Spin3/internal/service"
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
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	channelRepo := repository.NewChannelRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	// The telebot client is created before the services: the notifier
	// and membership checker adapters are built on top of it.
	teleBot, err := bot.NewAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}

	notifier := bot.NewNotifier(teleBot, cfg.Admin.IDs)
	checker := bot.NewMembershipChecker(teleBot)

	// Initialize services
	ledgerService := service.NewLedgerService(userRepo, txRepo, notifier, service.LedgerConfig{
		SpinWinMin:    cfg.Rewards.SpinWinMin,
		SpinWinMax:    cfg.Rewards.SpinWinMax,
		MinWithdraw:   cfg.Rewards.MinWithdraw,
		BonusCooldown: cfg.Rewards.BonusCooldown(),
	})
	referralService := service.NewReferralService(userRepo, txRepo, notifier, cfg.Rewards.ReferralBonus, cfg.Bot.Handle)
	statsService := service.NewStatsService(userRepo, txRepo)

	// Initialize gate, flow tracker and per-user lock
	membershipGate := gate.New(channelRepo, checker, cfg.Gate.CheckTimeout)
	flows := flow.NewTracker(cfg.Flow.TTL)
	userLock := lock.NewUserLock()

	// Wire the bot
	telegramBot := bot.New(teleBot, &bot.Dependencies{
		Config:    cfg,
		Ledger:    ledgerService,
		Referrals: referralService,
		Stats:     statsService,
		Gate:      membershipGate,
		Flows:     flows,
		Channels:  channelRepo,
		UserLock:  userLock,
	})

	// Health endpoint
	healthServer := api.NewServer(cfg.Server.Port, dbPool)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Health endpoint listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health endpoint failed")
		}
	}()

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
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Health endpoint shutdown failed")
	}
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			spins BIGINT NOT NULL DEFAULT 1 CHECK (spins >= 0),
			last_bonus_time TIMESTAMPTZ,
			referral_count BIGINT NOT NULL DEFAULT 0 CHECK (referral_count >= 0),
			invited_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create channels table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS channels (
			handle TEXT PRIMARY KEY,
			position BIGSERIAL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: channels table created")

	// Migration 3: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
