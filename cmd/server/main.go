package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/poolhall-manager/internal/billing"
	"github.com/iliyamo/poolhall-manager/internal/config"
	"github.com/iliyamo/poolhall-manager/internal/database"
	"github.com/iliyamo/poolhall-manager/internal/handler"
	"github.com/iliyamo/poolhall-manager/internal/middleware"
	"github.com/iliyamo/poolhall-manager/internal/queue"
	"github.com/iliyamo/poolhall-manager/internal/repository"
	"github.com/iliyamo/poolhall-manager/internal/router"
	"github.com/iliyamo/poolhall-manager/internal/service"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.Migrate(migrateCtx, db, cfg.DBDriver); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	previous, changed, err := repository.NewTariffRepo(db).Sync(migrateCtx, cfg.Tariff)
	cancel()
	if err != nil {
		log.Fatalf("tariff: %v", err)
	}
	if changed {
		from := string(previous.Policy)
		if from == "" {
			from = "none"
		}
		log.Printf("tariff: active %s policy replaced by %s from environment", from, cfg.Tariff.Policy)
	}
	tariff := cfg.Tariff

	tables := repository.NewTableRepo(db)
	clients := repository.NewClientRepo(db)
	sessions := repository.NewSessionRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var publisher billing.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewAMQPPublisher(cfg.RabbitURL)
		go func() {
			err := queue.StartSessionConsumer(ctx, cfg.RabbitURL, cfg.BillingLogDir)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("session-consumer: stopped: %v", err)
			}
		}()
	}

	svc := billing.NewService(db, tables, clients, sessions, tariff,
		billing.WithLocation(cfg.Location),
		billing.WithPublisher(publisher),
	)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())

	router.RegisterRoutes(e)
	auth := handler.NewAuthHandler(cfg, users, tokens)
	router.RegisterAuth(e, auth)
	cacheCfg := config.LoadCacheConfig()
	router.RegisterAPI(e, router.API{
		Auth:     auth,
		Tables:   handler.NewTableHandler(tables, svc),
		Clients:  handler.NewClientHandler(clients),
		Sessions: handler.NewSessionHandler(sessions, svc),
		Stats:    handler.NewStatsHandler(svc),
		Tariff:   handler.NewTariffHandler(svc),
	}, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.NewCacheInvalidator(cacheCfg, rdb),
	)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s, tariff=%s)", addr, cfg.Env, cfg.DBDriver, tariff.Policy)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
