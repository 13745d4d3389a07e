// Package main is the entry point for the PatternWatch matching and alert
// service. It watches registered chart patterns against live market data and
// raises deduplicated alerts when similarity clears a pattern's threshold.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"patternwatch/internal/clients/marketdata"
	"patternwatch/internal/clients/snapshots"
	"patternwatch/internal/config"
	"patternwatch/internal/database"
	"patternwatch/internal/matching"
	"patternwatch/internal/modules/alerts"
	alerthandlers "patternwatch/internal/modules/alerts/handlers"
	"patternwatch/internal/modules/patterns"
	patternhandlers "patternwatch/internal/modules/patterns/handlers"
	"patternwatch/internal/scheduler"
	"patternwatch/internal/server"
	"patternwatch/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting PatternWatch")

	// Patterns hold live matching config; alerts are append-only history and
	// get the maximum-durability profile.
	patternsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "patterns.db"),
		Profile: database.ProfileStandard,
		Name:    "patterns",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open patterns database")
	}
	defer patternsDB.Close()

	alertsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "alerts.db"),
		Profile: database.ProfileLedger,
		Name:    "alerts",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open alerts database")
	}
	defer alertsDB.Close()

	for _, db := range []*database.DB{patternsDB, alertsDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Repositories
	patternRepo := patterns.NewRepository(patternsDB.Conn(), log)
	alertRepo := alerts.NewRepository(alertsDB.Conn(), log)
	runRepo := matching.NewRunRepository(alertsDB.Conn(), log)

	// External collaborators
	marketClient := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataTimeout, log)
	imageFetcher := snapshots.NewFetcher(cfg.MarketDataTimeout, log)

	archiver, err := snapshots.NewArchiver(cfg.Snapshots, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot archiver")
	}
	if archiver == nil {
		log.Info().Msg("Snapshot archival disabled (no bucket configured)")
	}

	// Services
	patternService := patterns.NewService(patternRepo, imageFetcher, cfg.MaxActivePatterns, cfg.DefaultThreshold, log)
	stream := matching.NewStream(log)

	runnerCfg := matching.Config{
		PatternRepo: patternRepo,
		AlertRepo:   alertRepo,
		RunRepo:     runRepo,
		Market:      marketClient,
		Stream:      stream,
		Secret:      cfg.SchedulerSecret,
		Workers:     cfg.MatchWorkers,
		DedupWindow: cfg.DedupWindow,
		CandleCount: cfg.CandleCount,
	}
	if archiver != nil {
		runnerCfg.Archiver = archiver
	}
	runner := matching.NewRunner(runnerCfg, log)

	// HTTP server
	srv := server.New(server.Config{
		Port:            cfg.Port,
		Log:             log,
		PatternsDB:      patternsDB,
		AlertsDB:        alertsDB,
		PatternHandlers: patternhandlers.NewHandler(patternService, log),
		AlertHandlers:   alerthandlers.NewHandler(alertRepo, log),
		MatchHandlers:   matching.NewHandler(runner, runRepo, stream, log),
		Stream:          stream,
		DevMode:         cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Background jobs
	sched := scheduler.New(log)

	if err := sched.AddJob(cfg.MatchCronSpec, 5*time.Minute, scheduler.NewMatchJob(runner, cfg.SchedulerSecret, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register match job")
	}

	allDBs := []*database.DB{patternsDB, alertsDB}
	if err := sched.AddJob("0 30 3 * * *", time.Minute, scheduler.NewMaintenanceJob(allDBs, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	if archiver != nil {
		if err := sched.AddJob("0 0 4 * * *", 10*time.Minute, scheduler.NewBackupJob(archiver, allDBs, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
