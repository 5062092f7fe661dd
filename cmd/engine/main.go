// Package main is the entry point for the game engine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"osrs-game-engine/internal/config"
	"osrs-game-engine/internal/engine"
	"osrs-game-engine/internal/game/rating"
	"osrs-game-engine/internal/pkg/db"
	"osrs-game-engine/internal/pkg/lock"
	"osrs-game-engine/internal/repository"
	"osrs-game-engine/internal/service"
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

	// Run database migrations
	log.Info().Msg("Running database migrations...")
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	log.Info().Msg("All migrations completed successfully")

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	skillRepo := repository.NewSkillRepository(dbPool.Pool)
	itemRepo := repository.NewItemRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	orderRepo := repository.NewOrderRepository(dbPool.Pool)
	battleRepo := repository.NewBattleRepository(dbPool.Pool)
	achievementRepo := repository.NewAchievementRepository(dbPool.Pool)
	tournamentRepo := repository.NewTournamentRepository(dbPool.Pool)

	// Initialize entity locks
	playerLock := lock.NewEntityLock()
	itemLock := lock.NewEntityLock()

	// Initialize rating model
	ratingModel := rating.New(rating.Params{
		Initial:            cfg.Rating.Initial,
		InitialUncertainty: cfg.Rating.InitialUncertainty,
		MinUncertainty:     cfg.Rating.MinUncertainty,
		MaxUncertainty:     cfg.Rating.MaxUncertainty,
		KFactor:            cfg.Rating.KFactor,
		UncertaintyDecay:   cfg.Rating.UncertaintyDecay,
		InactivityGrowth:   cfg.Rating.InactivityGrowth,
	})

	// Initialize services
	playerService := service.NewPlayerService(
		dbPool.Pool,
		playerRepo,
		skillRepo,
		inventoryRepo,
		orderRepo,
		battleRepo,
		achievementRepo,
		playerLock,
		cfg.Exchange.StartingCoins,
	)
	skillService := service.NewSkillService(dbPool.Pool, playerRepo, skillRepo, achievementRepo, playerLock)
	ledgerService := service.NewLedgerService(dbPool.Pool, playerRepo, itemRepo, inventoryRepo, skillRepo, achievementRepo, playerLock)
	exchangeService := service.NewExchangeService(dbPool.Pool, playerRepo, itemRepo, inventoryRepo, orderRepo, achievementRepo, itemLock, cfg.Exchange)
	battleService := service.NewBattleService(dbPool.Pool, battleRepo, achievementRepo, ratingModel, playerLock)
	tournamentService := service.NewTournamentService(dbPool.Pool, tournamentRepo, achievementRepo)
	unlockService := service.NewUnlockService(dbPool.Pool, achievementRepo, playerLock)
	maintenanceService := service.NewMaintenanceService(dbPool.Pool, battleRepo, ratingModel, cfg.Maintenance)

	// Assemble the engine
	eng := engine.New(&engine.Dependencies{
		Players:     playerService,
		Skills:      skillService,
		Ledger:      ledgerService,
		Exchange:    exchangeService,
		Battles:     battleService,
		Tournaments: tournamentService,
		Unlocks:     unlockService,
		Maintenance: maintenanceService,
	})

	// Start maintenance passes in a goroutine
	go eng.Run(ctx)

	log.Info().Msg("Engine is running")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	log.Info().Msg("Engine stopped gracefully")
}
