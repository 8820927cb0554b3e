package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/auth"
	"github.com/vistav/site-api/internal/config"
	"github.com/vistav/site-api/internal/handlers"
	"github.com/vistav/site-api/internal/metrics"
	middlewareCustom "github.com/vistav/site-api/internal/middleware"
	"github.com/vistav/site-api/internal/notify"
	"github.com/vistav/site-api/internal/repositories"
	"github.com/vistav/site-api/internal/routes"
	"github.com/vistav/site-api/internal/services"
	"github.com/vistav/site-api/internal/storage"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

func main() {
	// Load configuration first so the log level applies from the start
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Flat-file stores under the data directory
	dataDir := cfg.Data.Dir
	credStore, err := storage.NewDocumentStore(filepath.Join(dataDir, "admin_credentials.json"))
	exitOn(err, logger, "failed to open credential store")
	attemptStore, err := storage.NewDocumentStore(filepath.Join(dataDir, "login_attempts.json"))
	exitOn(err, logger, "failed to open attempt store")
	policyStore, err := storage.NewDocumentStore(filepath.Join(dataDir, "security_config.json"))
	exitOn(err, logger, "failed to open security config store")
	windowStore, err := storage.NewDocumentStore(filepath.Join(dataDir, "submission_window.json"))
	exitOn(err, logger, "failed to open submission window store")
	telegramStore, err := storage.NewDocumentStore(filepath.Join(dataDir, "telegram_config.json"))
	exitOn(err, logger, "failed to open telegram config store")

	// Repositories
	credRepo := repositories.NewCredentialRepository(credStore)
	attemptRepo := repositories.NewAttemptRepository(attemptStore)
	policyRepo := repositories.NewSecurityConfigRepository(policyStore)
	windowRepo := repositories.NewWindowRepository(windowStore)
	priceRepo := repositories.NewPriceListRepository(dataDir)
	leadRepo, err := repositories.NewLeadRepository(filepath.Join(dataDir, "leads.csv"))
	exitOn(err, logger, "failed to open lead ledger")

	accessLog, err := accesslog.New(filepath.Join(dataDir, "access_log.txt"))
	exitOn(err, logger, "failed to open access log")

	// Honors the dashboard's logging toggle on every write
	audit := accesslog.NewFiltered(accessLog, func() bool {
		policy, err := policyRepo.Get()
		if err != nil {
			return true
		}
		return policy.EnableLogging
	})

	// Session manager; the timeout follows the editable security config
	sessions, err := auth.NewSessionManager([]byte(cfg.Session.Secret), func() time.Duration {
		policy, err := policyRepo.Get()
		if err != nil {
			return time.Hour
		}
		return policy.SessionTimeout()
	})
	exitOn(err, logger, "failed to create session manager")

	var totpManager *auth.TOTPManager
	if cfg.Session.TOTPEncryptionKey != "" {
		totpManager, err = auth.NewTOTPManager([]byte(cfg.Session.TOTPEncryptionKey), "vistav-admin")
		exitOn(err, logger, "failed to create TOTP manager")
	}

	// Lead notifier
	var notifier services.LeadNotifier
	switch cfg.Notify.Channel {
	case "telegram":
		notifier = notify.NewTelegramNotifier(telegramStore, cfg.Notify.TelegramAPI, logger)
	case "email":
		emailNotifier, err := notify.NewEmailNotifier(context.Background(),
			cfg.Notify.AWSRegion, cfg.Notify.EmailFrom, cfg.Notify.EmailTo, logger)
		exitOn(err, logger, "failed to create email notifier")
		notifier = emailNotifier
	}

	// Services
	rateGuard := services.NewRateLimitService(attemptRepo, policyRepo, logger)
	authService := services.NewAuthService(credRepo, rateGuard, sessions, totpManager, audit, logger)
	leadService := services.NewLeadService(leadRepo, windowRepo, sessions, notifier, audit, services.LeadConfig{
		RateLimit:      cfg.Contact.RateLimit,
		RateWindow:     cfg.Contact.RateWindow,
		MinFillSeconds: cfg.Contact.MinFillSeconds,
		BypassLoopback: cfg.Contact.BypassLoopback,
	}, logger)
	priceService := services.NewPriceListService(priceRepo, audit, logger)
	securityService := services.NewSecurityService(policyRepo, accessLog, audit, logger)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookies := auth.CookieConfig{Secure: cfg.Server.Env == "production"}
	authHandler := handlers.NewAuthHandler(authService, cookies, ipConfig)
	contactHandler := handlers.NewContactHandler(leadService, ipConfig)
	pricesHandler := handlers.NewPricesHandler(priceService, ipConfig)
	securityHandler := handlers.NewSecurityHandler(securityService, ipConfig)

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.Sessions(sessions, cookies, logger))

	routes.Register(router, routes.Deps{
		Auth:     authHandler,
		Contact:  contactHandler,
		Prices:   pricesHandler,
		Security: securityHandler,
		Sessions: sessions,
		Policy:   policyRepo,
		Rotation: authService,
		Audit:    audit,
		IPConfig: ipConfig,
		Logger:   logger,
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Drop abandoned anonymous sessions in the background
	cleanupDone := make(chan struct{})
	go sessions.StartCleanup(cleanupDone, cfg.Session.CleanupInterval)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	close(cleanupDone)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func exitOn(err error, logger *slog.Logger, msg string) {
	if err != nil {
		logger.Error(msg, slog.Any("error", err))
		os.Exit(1)
	}
}
