package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hyeonsu/market-auth/internal/auth"
	"github.com/hyeonsu/market-auth/internal/config"
	"github.com/hyeonsu/market-auth/internal/database"
	"github.com/hyeonsu/market-auth/internal/handler"
	"github.com/hyeonsu/market-auth/internal/middleware"
	"github.com/hyeonsu/market-auth/internal/queue"
	"github.com/hyeonsu/market-auth/internal/repository"
	"github.com/hyeonsu/market-auth/internal/router"
	"github.com/hyeonsu/market-auth/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	tokens := token.NewManager(cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)

	var events auth.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL, logger)
		go queue.StartConsumer(cfg.AMQPURL, logger)
	} else {
		logger.Warn("RABBITMQ_URL not set; auth events disabled")
	}

	svc := auth.NewService(
		repository.NewUserRepo(db),
		repository.NewPartnerRepo(db),
		repository.NewSessionStore(rdb),
		tokens,
		events,
		logger,
		cfg.BcryptCost,
	)

	userHandler := handler.NewUserAuthHandler(cfg, svc,
		auth.NewKakaoProvider(cfg.KakaoClientID),
		auth.NewNaverProvider(cfg.NaverClientID, cfg.NaverClientSecret),
	)
	partnerHandler := handler.NewPartnerAuthHandler(cfg, svc)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb))

	router.Register(e, tokens, svc, userHandler, partnerHandler)

	logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
