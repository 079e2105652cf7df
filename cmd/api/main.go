package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/config"
	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/admin"
	"github.com/coduxa/coduxa-api/internal/domain/auth"
	"github.com/coduxa/coduxa-api/internal/domain/certificate"
	"github.com/coduxa/coduxa-api/internal/domain/credits"
	"github.com/coduxa/coduxa-api/internal/domain/exam"
	"github.com/coduxa/coduxa-api/internal/domain/leaderboard"
	"github.com/coduxa/coduxa-api/internal/domain/payments"
	"github.com/coduxa/coduxa-api/internal/domain/user"
	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/database"
	"github.com/coduxa/coduxa-api/internal/pkg/jwt"
	"github.com/coduxa/coduxa-api/internal/pkg/logger"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
	"github.com/coduxa/coduxa-api/internal/pkg/storage"
	"github.com/coduxa/coduxa-api/internal/pkg/xendit"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Coduxa API")

	if cfg.XenditCallbackToken == "" {
		if cfg.IsProduction() {
			log.Fatal().Msg("XENDIT_CALLBACK_TOKEN must be set in production")
		}
		log.Warn().Msg("Webhook callback token not set, callback authentication disabled")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	activityRepo := activity.NewRepository(db)
	ledgerRepo := credits.NewRepository(db)
	paymentRepo := payments.NewRepository(db)
	examRepo := exam.NewRepository(db)
	leaderboardRepo := leaderboard.NewRepository(db)
	certRepo := certificate.NewRepository(db)
	statsRepo := admin.NewStatsRepository(db)

	// ---------- Certificate artifact storage ----------
	var certStorage storage.Storage
	if cfg.R2AccountID != "" {
		r2, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create R2 storage")
		}
		certStorage = r2
	} else {
		log.Warn().Msg("R2 not configured, certificate artifacts disabled")
	}

	// ---------- Live feed hub ----------
	feedHub := admin.NewHub(redisClient)
	go feedHub.Run()
	defer feedHub.Shutdown()

	// ---------- Services ----------
	creditsService := credits.NewService(ledgerRepo)
	authService := auth.NewService(userRepo, jwtService, activityRepo)

	gateway := xendit.NewClient(xendit.Config{
		APIKey:  cfg.XenditAPIKey,
		Timeout: 15 * time.Second,
	})
	paymentService := payments.NewService(
		ledgerRepo, paymentRepo, activityRepo, feedHub, gateway,
		cfg.CreditConversionRate, cfg.FrontendURL,
	)

	leaderboardService := leaderboard.NewService(leaderboardRepo, userRepo, redisClient)
	certService := certificate.NewService(certRepo, certStorage)

	var progressStore exam.ProgressStore
	if redisClient != nil {
		progressStore = exam.NewRedisProgressStore(redisClient, cfg.ProgressTTL)
	} else {
		log.Warn().Msg("Redis not configured, exam progress held in memory only")
		progressStore = exam.NewMemoryProgressStore()
	}
	examService := exam.NewService(
		examRepo, creditsService, progressStore, cfg.ProgressSaveInterval,
		activityRepo, leaderboardService, certService,
	)

	adminService := admin.NewService(statsRepo, creditsService, activityRepo, feedHub)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	creditsHandler := credits.NewHandler(creditsService)
	paymentHandler := payments.NewHandler(paymentService, cfg.XenditCallbackToken)
	examHandler := exam.NewHandler(examService)
	leaderboardHandler := leaderboard.NewHandler(leaderboardService)
	certHandler := certificate.NewHandler(certService)
	adminHandler := admin.NewHandler(adminService, feedHub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)
	adminOnly := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// Gateway callbacks. The canonical path plus the legacy alias the
	// dashboard was originally configured with.
	r.Mount("/webhooks", paymentHandler.WebhookRoutes())
	r.Post("/webhook", paymentHandler.Webhook)
	r.Post("/api/payments/webhook", paymentHandler.Webhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/credits", creditsHandler.Routes(authMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/exams", examHandler.Routes(authMiddleware))
		r.Mount("/leaderboard", leaderboardHandler.Routes(authMiddleware))
		r.Mount("/certificates", certHandler.Routes(authMiddleware, adminOnly))
		r.Mount("/admin", adminHandler.Routes(authMiddleware, adminOnly))
	})

	if cfg.IsDevelopment() {
		r.Mount("/debug", chimw.Profiler())
	}

	// ---------- Server ----------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
