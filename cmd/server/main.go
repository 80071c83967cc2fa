// Package main is the entry point for the Science Coach Hub API server.
//
// The service runs lesson-coaching chat sessions against a completion
// provider, decides objective completion per turn, grants coin rewards
// into per-student ledgers, and serves leaderboards and an admin surface
// for the lesson catalog and the progress log.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repository implementations, the provider client
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/coach-hub/science-coach-hub/config"

	// Application layer
	"github.com/coach-hub/science-coach-hub/internal/application/command"
	"github.com/coach-hub/science-coach-hub/internal/application/query"

	// Domain contracts
	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"

	// Infrastructure layer
	"github.com/coach-hub/science-coach-hub/internal/infrastructure/external/provider"
	"github.com/coach-hub/science-coach-hub/internal/infrastructure/persistence/memory"
	"github.com/coach-hub/science-coach-hub/internal/infrastructure/persistence/postgres"
	"github.com/coach-hub/science-coach-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/coach-hub/science-coach-hub/internal/interface/http"

	// Packages
	"github.com/coach-hub/science-coach-hub/pkg/logger"
	"github.com/coach-hub/science-coach-hub/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────

	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Science Coach Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE (PostgreSQL with in-memory development fallback)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		ledgerRepo   reward.Repository
		progressRepo progress.Repository
		lessonStore  lesson.Store
		dbConn       *postgres.Connection
	)

	readiness := map[string]httpserver.HealthChecker{}

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")

		err := retry.StartupRetrier().Do(ctx, func(ctx context.Context) error {
			var connErr error
			dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
			return connErr
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()
		log.Info("database connection established")

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")

		ledgerRepo = postgres.NewLedgerRepository(dbConn)
		progressRepo = postgres.NewProgressRepository(dbConn)
		lessonStore = postgres.NewLessonStore(dbConn)
		readiness["postgres"] = dbConn.Ping
	} else {
		if cfg.IsProduction() {
			return errors.New("DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set, using in-memory storage (development only)")
		ledgerRepo = memory.NewLedgerRepository()
		progressRepo = memory.NewProgressRepository()
		lessonStore = memory.NewLessonStore()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	var lbCache leaderboard.Cache

	cacheEnabled := !cfg.Redis.Disabled && cfg.Features.IsEnabledGlobally(config.FeatureLeaderboardCache)
	if cacheEnabled {
		log.Info("connecting to Redis...")

		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		var redisCache *redis.Cache
		if cfg.Redis.URL != "" {
			redisCache, err = redis.NewCacheFromURL(cfg.Redis.URL, redisCfg)
		} else {
			redisCache, err = redis.NewCache(redisCfg)
		}

		if err != nil {
			// The leaderboard falls back to scanning ledgers directly.
			log.Warn("failed to connect to Redis, leaderboard caching disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			lbCache = redis.NewLeaderboardCache(redisCache)
			readiness["redis"] = redisCache.Ping
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. COMPLETION PROVIDER CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	structuredOutput := cfg.Provider.StructuredOutput &&
		cfg.Features.IsEnabledGlobally(config.FeatureStructuredOutput)

	providerClient := provider.NewClient(provider.Config{
		Endpoint:         cfg.Provider.Endpoint,
		APIKey:           cfg.Provider.APIKey,
		Model:            cfg.Provider.Model,
		Timeout:          cfg.Provider.RequestTimeout,
		StructuredOutput: structuredOutput,
		Logger:           log,
	})

	if !providerClient.Configured() {
		log.Warn("completion provider not configured, chat turns will fail until PROVIDER_ENDPOINT and PROVIDER_API_KEY are set")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	heuristicEnabled := cfg.Coach.HeuristicEnabled &&
		cfg.Features.IsEnabledGlobally(config.FeatureHeuristicOverride)

	sendMessageCmd := command.NewSendMessageHandler(
		lessonStore,
		&completionAdapter{client: providerClient},
		ledgerRepo,
		progressRepo,
		lbCache,
		command.SendMessageConfig{
			Persona:           cfg.Coach.Persona,
			CoinsPerObjective: cfg.Coach.CoinsPerObjective,
			HistoryLimit:      cfg.Coach.HistoryLimit,
			HeuristicEnabled:  heuristicEnabled,
		},
		log,
	)

	adjustCoinsCmd := command.NewAdjustCoinsHandler(ledgerRepo, lbCache, log)
	clearRewardsCmd := command.NewClearRewardsHandler(ledgerRepo, lessonStore, lbCache, log)
	manageLessonsCmd := command.NewManageLessonsHandler(lessonStore, log)
	purgeProgressCmd := command.NewPurgeProgressHandler(progressRepo, log)

	leaderboardQuery := query.NewGetLeaderboardHandler(ledgerRepo, lessonStore, lbCache, log)
	balanceQuery := query.NewGetBalanceHandler(ledgerRepo, lessonStore)
	progressQuery := query.NewGetProgressHandler(progressRepo)
	lessonsQuery := query.NewListLessonsHandler(lessonStore)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.AdminKeyHash = cfg.Admin.APIKeyHash

	if cfg.Admin.APIKeyHash == "" {
		log.Warn("ADMIN_API_KEY_HASH not set, admin endpoints are disabled")
	}

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		SendMessageHandler:   sendMessageCmd,
		AdjustCoinsHandler:   adjustCoinsCmd,
		ClearRewardsHandler:  clearRewardsCmd,
		ManageLessonsHandler: manageLessonsCmd,
		PurgeProgressHandler: purgeProgressCmd,

		GetLeaderboardHandler: leaderboardQuery,
		GetBalanceHandler:     balanceQuery,
		GetProgressHandler:    progressQuery,
		ListLessonsHandler:    lessonsQuery,

		Logger:          log,
		ReadinessChecks: readiness,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 8. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("Science Coach Hub is running", logger.String("http_address", httpServer.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures the process-wide structured logger shared by every
// layer, from the HTTP middleware down to the provider client.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// These adapt infrastructure implementations to application interfaces.
// ══════════════════════════════════════════════════════════════════════════════

// completionAdapter adapts provider.Client to command.CompletionClient.
type completionAdapter struct {
	client *provider.Client
}

// Complete implements command.CompletionClient.
func (a *completionAdapter) Complete(ctx context.Context, systemPrompt string, history []command.TurnMessage, userMessage string) (*command.TurnVerdict, error) {
	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: m.Role, Content: m.Content})
	}

	result, err := a.client.Complete(ctx, systemPrompt, msgs, userMessage)
	if err != nil {
		return nil, err
	}

	return &command.TurnVerdict{
		Reply:        result.Reply,
		ObjectiveMet: result.ObjectiveMet,
		Tasks:        result.Tasks,
	}, nil
}
