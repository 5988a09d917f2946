package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learning-diary/internal/config"
	"learning-diary/internal/database"
	"learning-diary/internal/handlers"
	"learning-diary/internal/logger"
	"learning-diary/internal/middleware"
	"learning-diary/internal/repository"
	"learning-diary/internal/router"
	"learning-diary/internal/services"
	"learning-diary/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	if err := logger.Init(logger.Options{File: cfg.LogFile, Console: true, Debug: cfg.Env == "development"}); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L

	log.Info("🚀 Starting AI Learning Diary backend...")
	log.Info("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Info("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Info("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Info("✓ Database migrations applied")

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(context.Background(), services.GeminiConfig{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		ImageModel:     cfg.GeminiImageModel,
		BaseURL:        cfg.GeminiBaseURL,
		ConcurrentReqs: cfg.GeminiConcurrentReqs,
	})
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	if cfg.AIEnabled() {
		log.Infof("✓ Gemini client initialized (%s)", cfg.GeminiModel)
	} else {
		log.Warn("✗ GEMINI_API_KEY not set, AI features disabled")
	}

	// ──── Initialize Repositories & Services ────
	userRepo := repository.NewUserRepo(pool)
	dailyLogRepo := repository.NewDailyLogRepo(pool)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, jwtAuth, cfg.CustomTokenSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	feed := services.NewRedisFeed(redisClients.Feed, redisClients.PubSub)
	dailyLogService := services.NewDailyLogService(dailyLogRepo, feed, cfg.AppID)
	featureService := services.NewFeatureService(dailyLogService, geminiService)
	dispatchService := services.NewDispatchService(cfg.DispatchURL)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	dailyLogHandler := handlers.NewDailyLogHandler(dailyLogService, featureService)
	dispatchHandler := handlers.NewDispatchHandler(dispatchService, dailyLogService)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(jwtAuth, dailyLogService)
	log.Info("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(jwtAuth, authHandler, dailyLogHandler, dispatchHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Infof("✓ AI Learning Diary backend ready on http://localhost:%s", cfg.Port)
	log.Infof("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Infof("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
