package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wnt/crucible/internal/config"
	"github.com/wnt/crucible/internal/database"
	"github.com/wnt/crucible/internal/feemodel"
	"github.com/wnt/crucible/internal/health"
	"github.com/wnt/crucible/internal/lending"
	"github.com/wnt/crucible/internal/logger"
	"github.com/wnt/crucible/internal/oracle"
	"github.com/wnt/crucible/internal/positions"
	"github.com/wnt/crucible/internal/queue"
	"github.com/wnt/crucible/internal/store"
	"github.com/wnt/crucible/internal/swaprouter"
	"github.com/wnt/crucible/internal/sweep"
	"github.com/wnt/crucible/internal/vault"
)

func main() {
	// Parse command-line arguments
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	// Load environment variables from the specified file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	baseLogger := logger.New(cfg.LogLevel)
	baseLogger.Info().Msg("Starting crucible")

	stableMint, err := solana.PublicKeyFromBase58(cfg.StableMint)
	if err != nil {
		baseLogger.Fatal().Err(err).Str("mint", cfg.StableMint).Msg("Invalid STABLE_MINT")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer queueClient.Close()

	fees := feemodel.DefaultSchedule()
	if err := fees.Validate(); err != nil {
		baseLogger.Fatal().Err(err).Msg("Invalid fee schedule")
	}

	s := store.New(db)
	engine := vault.NewEngine(fees)
	pool := lending.NewPool()
	monitor := health.NewMonitor(fees)

	priceTTL := time.Duration(cfg.PriceTTLSecs) * time.Second
	prices := oracle.NewCachedOracle(
		oracle.NewFailoverOracle(cfg.OracleURLs, baseLogger),
		queueClient.Redis(),
		priceTTL,
		baseLogger,
	)
	router := swaprouter.NewHTTPRouter(cfg.SwapRouterURL, baseLogger)

	manager := positions.NewManager(
		positions.NewRepository(s),
		engine,
		pool,
		monitor,
		prices,
		router,
		cfg.LendingPoolID,
		stableMint,
		baseLogger,
	)

	checker := sweep.NewChecker(s, monitor, pool, prices, cfg.LendingPoolID)
	sweepManager := sweep.NewManager(cfg, queueClient, s, checker, manager, baseLogger)

	// Metrics endpoint
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		baseLogger.Info().Str("port", cfg.MetricsPort).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			baseLogger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	if err := sweepManager.Start(); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to start sweep manager")
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	baseLogger.Info().Str("signal", sig.String()).Msg("Shutting down")

	if err := sweepManager.Stop(); err != nil {
		baseLogger.Error().Err(err).Msg("Sweep manager shutdown error")
	}
	if err := metricsServer.Close(); err != nil {
		baseLogger.Error().Err(err).Msg("Metrics server shutdown error")
	}

	baseLogger.Info().Msg("Shutdown complete")
}
