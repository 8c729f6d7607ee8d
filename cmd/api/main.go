package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"pairchat/internal/config"
	"pairchat/internal/db"
	apihttp "pairchat/internal/http"
	"pairchat/internal/media"
	"pairchat/internal/realtime"
	"pairchat/internal/repository"
	"pairchat/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	convRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	var (
		authLimiter service.AuthRateLimiter
		tokenStore  service.RefreshTokenStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			authLimiter = service.NewRedisAuthRateLimiter(redisClient, time.Minute, 10)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewTokenServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	uploader := media.NewDisabledUploader("media uploader not configured")
	if cfg.MediaUploadURL != "" {
		uploader = media.NewHTTPUploader(
			cfg.MediaUploadURL,
			cfg.MediaAPIKey,
			time.Duration(cfg.MediaTimeoutSeconds)*time.Second,
			zap.NewStdLog(logger),
		)
	}

	hub := realtime.NewHub(logger)
	defer hub.Close()

	userSvc := service.NewUserService(logger, userRepo, authLimiter)
	convSvc := service.NewConversationService(logger, convRepo, userRepo)
	msgSvc := service.NewMessageService(
		logger,
		convRepo,
		messageRepo,
		userRepo,
		uploader,
		hub,
		time.Duration(cfg.MediaTimeoutSeconds)*time.Second,
	)

	authHandler := apihttp.NewAuthHandler(logger, userSvc, jwtSvc)
	userHandler := apihttp.NewUserHandler(logger, userSvc)
	convHandler := apihttp.NewConversationHandler(logger, convSvc)
	msgHandler := apihttp.NewMessageHandler(logger, msgSvc, cfg.MediaMaxUploadBytes)
	socketHandler := realtime.NewSocketHandler(logger, hub, jwtSvc, msgSvc)

	router := apihttp.NewRouter(logger, jwtSvc, authHandler, userHandler, convHandler, msgHandler, socketHandler.Handle(), cfg.ClientOrigin)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
