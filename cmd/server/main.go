package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-hall-booking/internal/booking"
	"github.com/iliyamo/cinema-hall-booking/internal/config"
	"github.com/iliyamo/cinema-hall-booking/internal/database"
	"github.com/iliyamo/cinema-hall-booking/internal/handler"
	"github.com/iliyamo/cinema-hall-booking/internal/logger"
	"github.com/iliyamo/cinema-hall-booking/internal/middleware"
	"github.com/iliyamo/cinema-hall-booking/internal/queue"
	"github.com/iliyamo/cinema-hall-booking/internal/repository"
	"github.com/iliyamo/cinema-hall-booking/internal/router"
	"github.com/iliyamo/cinema-hall-booking/internal/validate"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := database.Open(ctx,
		database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName),
		database.Options{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	seeded, err := database.SeedHall(ctx, db, cfg.HallRows, cfg.HallSeats, cfg.SeatPrice)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"rows": cfg.HallRows, "seats": cfg.HallSeats, "inserted": seeded}).Info("hall ready")

	seats := repository.NewSeatRepo(db)
	accounts := repository.NewAccountRepo(db)
	tickets := repository.NewTicketRepo(db)
	ledger := repository.NewBookingRepo(db, seats, accounts, tickets)

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var opts []booking.Option
	if inv := middleware.NewCacheInvalidator(cfg.Cache, rdb, log); inv != nil {
		opts = append(opts, booking.WithCacheInvalidator(inv))
	}
	if cfg.EventsEnabled {
		opts = append(opts, booking.WithPublisher(queue.NewPublisher(cfg.RabbitMQURL, log)))
	}
	svc := booking.New(seats, ledger, tickets, validate.New(seats), log, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, router.Deps{
		Seats:   handler.NewSeatHandler(svc),
		Tickets: handler.NewTicketHandler(svc),
		Admin:   handler.NewAdminHandler(svc),
		Auth: handler.NewAuthHandler(handler.AuthConfig{
			AdminName:         cfg.AdminName,
			AdminPasswordHash: cfg.AdminPasswordHash,
			JWTSecret:         cfg.JWTSecret,
			AccessTTLMin:      cfg.AccessTTLMin,
		}),
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	})
	if cfg.AdminPasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH is empty; admin login is disabled")
	}

	g, runCtx := errgroup.WithContext(ctx)

	if cfg.EventsEnabled {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.TicketLogPath, log)
		g.Go(func() error { return consumer.Run(runCtx) })
	}

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down http server")
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
