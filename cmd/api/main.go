package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hwainwright/gatefold/internal/auth"
	"github.com/hwainwright/gatefold/internal/background"
	"github.com/hwainwright/gatefold/internal/config"
	"github.com/hwainwright/gatefold/internal/database"
	"github.com/hwainwright/gatefold/internal/handlers"
	middlewareCustom "github.com/hwainwright/gatefold/internal/middleware"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/protect"
	"github.com/hwainwright/gatefold/internal/repositories"
	"github.com/hwainwright/gatefold/internal/routes"
	"github.com/hwainwright/gatefold/internal/services"
	pkghttp "github.com/hwainwright/gatefold/pkg/http"
	"github.com/redis/go-redis/v9"
)

const watermarkOverlaysPerPage = 4

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize the session store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	pingCancel()

	// Initialize repositories
	tokenRepo := repositories.NewTokenRepository(db)
	alertRepo := repositories.NewAlertRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	operatorKeyRepo := repositories.NewOperatorKeyRepository(db)
	sessionRepo := repositories.NewSessionRepository(redisClient, cfg.Access.SessionTokenExpiry)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(tokenRepo, alertRepo, logger, cfg.Alerts.CleanupInterval, cfg.Alerts.RetentionDays)

	// Initialize auth components
	sessionTokens := auth.NewSessionTokenManager(cfg.Access.SessionSecret, cfg.Access.SessionTokenExpiry)
	operatorKeys := auth.NewOperatorKeyManager()

	// Out-of-band alert notification is optional; no operator address, no email
	var notifier services.AlertNotifier
	if cfg.Alerts.OperatorAddress != "" {
		sesNotifier, err := services.NewSESAlertNotifier(cfg.Alerts.AWSRegion, cfg.Alerts.FromAddress, cfg.Alerts.OperatorAddress, logger)
		if err != nil {
			logger.Error("failed to initialize alert notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize services
	alertService := services.NewAlertService(alertRepo, notifier, logger)
	tokenService := services.NewTokenService(tokenRepo, documentRepo, cfg.Server.BaseURL, logger)
	sessionService := services.NewSessionService(sessionRepo, tokenRepo, alertService, cfg.Session.LivenessWindow(), cfg.Session.MaxPagesPerMinute, logger)

	planner := protect.NewWatermarkPlanner(watermarkOverlaysPerPage)
	captureMonitor := protect.NewCaptureMonitor(alertService, cfg.Alerts.CaptureCooldown)

	accessService := services.NewAccessService(
		tokenRepo,
		documentRepo,
		sessionService,
		alertService,
		sessionTokens,
		planner,
		cfg.Access.MaxDistinctIPs,
		logger,
	)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Initialize handlers
	accessHandler := handlers.NewAccessHandler(accessService, ipConfig, logger)
	sessionHandler := handlers.NewSessionHandler(sessionService, captureMonitor, logger)
	tokenHandler := handlers.NewTokenHandler(tokenService, sessionService, cfg.Access.DefaultTTL, cfg.Access.DefaultMaxAccess, logger)
	alertHandler := handlers.NewAlertHandler(alertService, logger)
	opsSessionHandler := handlers.NewOpsSessionHandler(sessionService, logger)
	keyHandler := handlers.NewOperatorKeyHandler(operatorKeyRepo, logger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, logger)

	// Bootstrap first operator key if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureOperatorKey(bootstrapCtx, operatorKeyRepo, operatorKeys, logger); err != nil {
		logger.Error("failed to ensure operator key", slog.Any("error", err))
	}
	bootstrapCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	router.Route("/api/v1", func(r chi.Router) {
		routes.RegisterRoutes(
			r,
			accessHandler,
			sessionHandler,
			tokenHandler,
			alertHandler,
			opsSessionHandler,
			keyHandler,
			sessionTokens,
			operatorKeys,
			operatorKeyRepo,
			cfg.Access.ValidatePerMinute,
		)
	})

	router.Get("/health", healthHandler.Health)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureOperatorKey mints the first operator key if BOOTSTRAP_OPERATOR_KEY_NAME
// is set and that key id does not already exist. The plaintext is logged once
// at startup; it is not recoverable afterwards.
func ensureOperatorKey(ctx context.Context, repo repositories.OperatorKeyRepository, manager *auth.OperatorKeyManager, logger *slog.Logger) error {
	name := os.Getenv("BOOTSTRAP_OPERATOR_KEY_NAME")
	if name == "" {
		logger.Info("no BOOTSTRAP_OPERATOR_KEY_NAME set, skipping operator key creation")
		return nil
	}

	plainKey, id, secretHash, err := manager.Generate()
	if err != nil {
		return err
	}

	key := &models.OperatorKey{
		ID:         id,
		Name:       name,
		SecretHash: secretHash,
	}

	if err := repo.Create(ctx, key); err != nil {
		return err
	}

	logger.Info("operator key created",
		slog.String("key_name", name),
		slog.String("key_id", id),
		slog.String("plain_key", plainKey),
	)

	return nil
}
