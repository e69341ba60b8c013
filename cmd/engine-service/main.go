package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-trading-ensemble/internal/engine/config"
	delivery "golang-trading-ensemble/internal/engine/delivery/http"
	"golang-trading-ensemble/internal/engine/repository"
	"golang-trading-ensemble/internal/engine/service"
	"golang-trading-ensemble/internal/entity"
	"golang-trading-ensemble/pkg/logger"
	"golang-trading-ensemble/pkg/postgres"
	"golang-trading-ensemble/pkg/redis"
	"golang-trading-ensemble/pkg/telegram"

	"google.golang.org/genai"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the ensemble engine service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Ensemble Engine Service", logger.Field("name", cfg.App.Name))

	// Initialize database (optional, enables signal persistence)
	var signalRepo repository.EnsembleSignalRepository
	if cfg.Database.Host != "" {
		postgresCfg := postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			TimeZone:        cfg.Database.TimeZone,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}
		db, err := postgres.NewDB(postgresCfg)
		if err != nil {
			appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := db.DB.AutoMigrate(&entity.EnsembleSignal{}); err != nil {
			appLogger.Fatal("Failed to migrate database", logger.ErrorField(err))
		}
		signalRepo = repository.NewEnsembleSignalRepository(db.DB)
	} else {
		appLogger.Info("Database not configured, signal persistence disabled")
	}

	specs := service.ModelSpecsFromConfig(cfg.Models)

	// Initialize Redis (optional, enables metrics tracking)
	var metricsTracker *service.MetricsTracker
	var metricsRecorder repository.MetricsRecorder
	if cfg.Redis.Host != "" {
		redisCfg := redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}
		redisClient, err := redis.NewClient(redisCfg)
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		defer redisClient.Close()
		metricsTracker = service.NewMetricsTracker(redisClient, specs, appLogger)
		metricsRecorder = metricsTracker
	} else {
		appLogger.Info("Redis not configured, metrics tracking disabled")
	}

	// Initialize inference provider
	var inferenceRepo repository.InferenceRepository
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Gemini.APIKey,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
		}
		repo, err := repository.NewGeminiRepository(cfg, appLogger, genAiClient, metricsRecorder)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini repository", logger.ErrorField(err))
		}
		inferenceRepo = repo
	case "ollama", "":
		inferenceRepo = repository.NewOllamaRepository(cfg, appLogger, metricsRecorder)
	default:
		appLogger.Fatal("Invalid AI provider specified in config", logger.StringField("provider", cfg.AI.Provider))
	}

	// Initialize optional market data and news repositories
	var marketRepo repository.MarketDataRepository
	if cfg.Alpaca.KeyID != "" {
		marketRepo = repository.NewAlpacaMarketRepository(cfg, appLogger)
	}
	var newsRepo repository.NewsRepository
	if cfg.News.Enabled {
		newsRepo = repository.NewRSSNewsRepository(cfg, appLogger)
	}

	// Initialize Telegram notifier (optional)
	var notifier telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
		notifier = client
	}

	// Initialize services
	var warmup *service.Warmup
	if cfg.Ensemble.Warmup.Enabled {
		warmup = service.NewWarmup(inferenceRepo, specs, cfg.Ensemble.Warmup.Timeout, appLogger)
	}
	cache := service.NewResponseCache(cfg.Ensemble.CacheTTL)
	interpreter := service.NewInterpreter()

	var decisions service.DecisionRecorder
	if metricsTracker != nil {
		decisions = metricsTracker
	}
	ensembleSvc := service.NewEnsembleService(cfg, inferenceRepo, newsRepo, cache, interpreter, warmup, decisions, appLogger)
	batchSvc := service.NewBatchService(cfg, ensembleSvc, marketRepo, appLogger)

	// Start the watchlist monitor
	watchlist := service.NewWatchlistMonitor(cfg, batchSvc, notifier, appLogger)
	if err := watchlist.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start watchlist monitor", logger.ErrorField(err))
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	analysisHandler := delivery.NewAnalysisHandler(ensembleSvc, batchSvc, metricsTracker, marketRepo, signalRepo, appLogger)
	apiV1 := e.Group("/api/v1")
	analysisGroup := apiV1.Group("/analysis")
	analysisHandler.RegisterRoutes(analysisGroup)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	watchlist.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "engine-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-engine.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing engine-service CLI: %s\n", err)
		os.Exit(1)
	}
}
