package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/graph"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/mailer"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/router"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/utils"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	codec := utils.NewTokenCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.LinkTokenTTL)
	store := repository.NewUserRepo(db, cfg.BcryptCost)
	notifier := service.NewQueueNotifier(cfg.AMQPURL, codec, log)

	resolver := &graph.Resolver{
		Store:    store,
		Codec:    codec,
		Notifier: notifier,
		Log:      log,
	}
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		log.Error("schema construction failed", "error", err)
		os.Exit(1)
	}

	m, err := mailer.New(cfg.SMTPHost, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom,
		cfg.FrontendURL, cfg.SMTPSkipVerify, log)
	if err != nil {
		log.Error("mailer setup failed", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := queue.StartEmailConsumer(cfg.AMQPURL, m.Send, log); err != nil {
			log.Error("email consumer stopped", "error", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	authCtx := middleware.AuthContext(codec, store)

	gql := handler.NewGraphQLHandler(schema)
	router.RegisterRoutes(e, gql, limiter, authCtx)

	addr := ":" + cfg.Port
	log.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
