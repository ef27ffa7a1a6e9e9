package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FileGate/FileGate/internal/config"
	"github.com/FileGate/FileGate/internal/handler"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/database"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Initialize structured logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	logger.Init(logger.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})

	// Load configuration
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration error")
	}

	logger.Info().
		Str("bind_address", cfg.Server.BindAddress).
		Str("port", cfg.Server.Port).
		Str("log_level", logLevel).
		Msg("Starting FileGate server")

	// Initialize database
	db, err := database.Initialize(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	if err := database.InitSchema(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	logger.Info().Msg("Database schema initialized")

	// Initialize repositories
	fileRepo := repository.NewFileRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	smtpRepo := repository.NewSMTPRepository(db)
	downloadRepo := repository.NewDownloadRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Initialize services
	authSvc, err := service.NewAuthService(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	fileSvc := service.NewFileService(fileRepo, linkRepo, cfg.Storage.UploadDir)
	linkSvc := service.NewLinkService(linkRepo, fileRepo, fileSvc, cfg)
	mailSvc := service.NewMailService(smtpRepo, emailLogRepo, cfg)
	downloadSvc := service.NewDownloadService(downloadRepo, mailSvc)
	reportSvc := service.NewReportService(reportRepo, linkRepo)
	adminSvc := service.NewAdminService(downloadRepo, emailLogRepo, fileRepo, reportRepo, smtpRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc)
	fileHandler := handler.NewFileHandler(fileSvc)
	linkHandler := handler.NewLinkHandler(linkSvc)
	smtpHandler := handler.NewSMTPHandler(mailSvc)
	mailHandler := handler.NewMailHandler(mailSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	downloadHandler := handler.NewDownloadHandler(downloadSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:               service.MaxUploadSize + 1024*1024,
		DisableKeepalive:        false,
		ReadTimeout:             10 * time.Second,
		WriteTimeout:            60 * time.Second,
		IdleTimeout:             60 * time.Second,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      true,
	})

	logger.Info().
		Strs("trusted_proxies", cfg.Server.TrustedProxies).
		Msg("Trusted proxy configuration loaded")

	// Middleware
	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))
	app.Use(handler.SecurityHeadersMiddleware())
	app.Use(handler.RequestIDMiddleware())
	app.Use(handler.MetricsMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	app.Use(logger.Middleware())

	api := app.Group("/api")

	// Rate limiters, DB-backed so counters survive restarts. Login and the
	// public endpoints each get their own scope.
	loginRateLimiter := handler.NewPersistentRateLimiter(db, "login", 10, 1*time.Minute)
	redeemRateLimiter := handler.NewPersistentRateLimiter(db, "redeem", 60, 1*time.Minute)
	reportRateLimiter := handler.NewPersistentRateLimiter(db, "report", 5, 1*time.Minute)
	registerRateLimiter := handler.NewPersistentRateLimiterWithKey(db, "register", 10, 1*time.Minute, handler.IPAndEmailKey)

	// JSON API routes get a small body cap; only the upload route needs the
	// app-level limit.
	jsonBodyLimit := handler.BodyLimitMiddleware(1 * 1024 * 1024)

	// Public routes
	api.Post("/admin/login", jsonBodyLimit, loginRateLimiter.Middleware(), authHandler.Login)
	api.Get("/download/:token", redeemRateLimiter.Middleware(), linkHandler.Redeem)
	app.Get("/d/:token", redeemRateLimiter.Middleware(), linkHandler.Redeem)
	// Report submission shares the /admin/file-reports path with the triage
	// endpoints but is itself public. Registered before the admin group, so
	// the auth gate never sees it.
	api.Post("/admin/file-reports", jsonBodyLimit, reportRateLimiter.Middleware(), reportHandler.Submit)
	api.Post("/downloads", jsonBodyLimit, registerRateLimiter.Middleware(), downloadHandler.Register)

	adminOnly := handler.AdminMiddleware(authSvc)

	// File registry (admin)
	api.Post("/upload", adminOnly, fileHandler.Upload)
	api.Get("/files", adminOnly, fileHandler.List)
	api.Delete("/files", adminOnly, jsonBodyLimit, fileHandler.Delete)
	api.Post("/folders", adminOnly, jsonBodyLimit, fileHandler.CreateFolder)

	// SMTP relay configuration (admin)
	api.Get("/smtp-config", adminOnly, smtpHandler.Get)
	api.Post("/smtp-config", adminOnly, jsonBodyLimit, smtpHandler.Save)

	// Admin routes
	admin := api.Group("/admin", adminOnly)
	admin.Post("/download-links", jsonBodyLimit, linkHandler.Create)
	admin.Get("/download-links", linkHandler.List)
	admin.Delete("/download-links", jsonBodyLimit, linkHandler.Deactivate)
	admin.Post("/send-bulk-email", jsonBodyLimit, mailHandler.SendBulk)
	admin.Get("/file-reports", reportHandler.ListPending)
	admin.Patch("/file-reports", jsonBodyLimit, reportHandler.Resolve)
	admin.Get("/downloads", downloadHandler.ListByEmail)
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/email-logs", adminHandler.EmailLogs)

	// Health check handler
	healthHandler := handler.NewHealthHandler(db, cfg.Storage.UploadDir)
	app.Get("/health", healthHandler.Liveness)
	app.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint
	metricsHandler := handler.NewMetricsHandler()
	if cfg.Observability.MetricsEnabled {
		if cfg.IsProduction {
			app.Get("/metrics", handler.BearerTokenMiddleware(cfg.Observability.MetricsToken), metricsHandler.Handler())
		} else {
			app.Get("/metrics", metricsHandler.Handler())
		}
	} else {
		logger.Info().Msg("Metrics endpoint disabled")
	}

	// Start server in goroutine
	go func() {
		addr := net.JoinHostPort(cfg.Server.BindAddress, cfg.Server.Port)
		logger.Info().
			Str("address", addr).
			Bool("metrics_enabled", cfg.Observability.MetricsEnabled).
			Msg("HTTP server listening")
		if err := app.Listen(addr); err != nil {
			logger.Error().Err(err).Msg("Server stopped")
		}
	}()

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info().Msg("Stopping background jobs...")
	loginRateLimiter.Stop()
	redeemRateLimiter.Stop()
	reportRateLimiter.Stop()
	registerRateLimiter.Stop()

	logger.Info().Msg("Shutting down HTTP server...")
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	logger.Info().Msg("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing database")
	}

	logger.Info().Msg("Server stopped gracefully")
}
