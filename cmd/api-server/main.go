package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskhub/database"
	"taskhub/internal/config"
	"taskhub/internal/http-api/handler"
	"taskhub/internal/http-api/middleware"
	"taskhub/internal/http-api/repository"
	"taskhub/internal/http-api/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	taskCache, err := service.NewTaskCache(cfg.RedisURL)
	if err != nil {
		log.Fatalf("could not connect to redis: %v", err)
	}
	if taskCache == nil {
		logger.Info("REDIS_URL not set, task list cache disabled")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	// Sweep ledger rows that expired while the server was down
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := refreshTokenRepo.DeleteExpired(ctx); err != nil {
		logger.Warn("expired refresh token sweep failed", "error", err)
	}
	cancel()

	// Services
	tokenService := service.NewTokenService(cfg)
	authService := service.NewAuthService(userRepo, refreshTokenRepo, tokenService, cfg)
	taskService := service.NewTaskService(taskRepo, taskCache)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handler.Health)
	authHandler.RegisterRoutes(r.Group("/auth"))
	taskHandler.RegisterRoutes(r.Group("/tasks", middleware.AuthMiddleware(authService)))

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("starting api server", "addr", addr, "env", cfg.GoEnv)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
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
