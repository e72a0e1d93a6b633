package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/admin-dashboard/internal/config"
	"github.com/iliyamo/admin-dashboard/internal/database"
	"github.com/iliyamo/admin-dashboard/internal/handler"
	"github.com/iliyamo/admin-dashboard/internal/logger"
	"github.com/iliyamo/admin-dashboard/internal/middleware"
	"github.com/iliyamo/admin-dashboard/internal/queue"
	"github.com/iliyamo/admin-dashboard/internal/repository"
	"github.com/iliyamo/admin-dashboard/internal/router"
	"github.com/iliyamo/admin-dashboard/internal/service"
	"github.com/iliyamo/admin-dashboard/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(cfg.Log, os.Stdout)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	now := cfg.Clock()

	db, err := database.Open(ctx, cfg.DB.MySQLDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, "up"); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unreachable, rate limiting and caching disabled", slog.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	events := queue.NewPublisher(cfg.Activity)
	if c, ok := events.(interface{ Close() }); ok {
		defer c.Close()
	}
	if cfg.Activity.Enabled {
		consumer := queue.NewConsumer(cfg.Activity, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("activity consumer stopped", slog.Any("error", err))
			}
		}()
	}

	userRepo := repository.NewUserRepo(db)
	authSvc := service.NewAuth(userRepo, repository.NewTokenRepo(db), events, cfg.Auth, now, log)
	users := service.NewUsers(userRepo, events, cfg.Auth.BcryptCost, now, log)
	products := service.NewProducts(repository.NewProductRepo(db), events, now, log)
	analytics := service.NewAnalytics(repository.NewAnalyticsRepo(db), now)

	v, err := validator.New()
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = handler.ErrorHandler(log, cfg.IsDevelopment())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RateLimit(cfg.RateLimit, rdb, log))

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, cfg.Env == config.EnvProduction),
		Users:     handler.NewUserHandler(users),
		Products:  handler.NewProductHandler(products, now),
		Analytics: handler.NewAnalyticsHandler(analytics),
		Now:       now,
	}, authSvc, router.Caching{
		Serve: middleware.Cache(cfg.Cache, rdb, log),
		Evict: middleware.EvictOnWrite(cfg.Cache, rdb, log, router.CategoriesRoute, router.BrandsRoute),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", ":"+cfg.Port), slog.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
