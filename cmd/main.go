package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"storefront/internal/api"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/consumer"
	"storefront/internal/events"
	"storefront/internal/money"
	"storefront/internal/repository"
	"storefront/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "main").Logger()

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shop := client.New(cfg.API.BaseURL, client.WithTimeout(cfg.API.Timeout))

	opts := []store.Option{
		store.WithFormatter(money.NewFormatter(cfg.Display.Locale, cfg.Display.CurrencySymbol)),
	}

	var snapshots *repository.SnapshotRepository
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		snapshots = repository.NewSnapshotRepository(rdb, cfg.Redis.TTL)
		opts = append(opts, store.WithSnapshotCache(snapshots))
	}

	var publisher *events.Publisher
	if cfg.KafkaEnabled() {
		publisher = events.NewPublisher(config.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.IntentTopic))
		defer publisher.Close()
		opts = append(opts, store.WithJournal(publisher))
	}

	storefront := store.New(store.Session{ShopperID: cfg.Shopper.ID}, shop, opts...)
	if err := storefront.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("Starting without cached snapshot")
	}
	if err := storefront.Bootstrap(ctx); err != nil {
		logger.Warn().Err(err).Msg("Bootstrap incomplete, serving last known state")
	}

	if cfg.KafkaEnabled() {
		c := consumer.NewConsumer(storefront,
			config.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.StockTopic, cfg.Kafka.GroupID),
			config.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID),
		)
		go c.Start(ctx)
	}

	e := echo.New()
	e.HideBanner = true

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.Rate.Limit),
				Burst:     cfg.Rate.Burst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	api.NewStorefrontHandler(storefront).Register(e)

	e.GET("/health", func(c echo.Context) error {
		status := map[string]interface{}{
			"status":  "ok",
			"service": "storefront",
			"shopper": cfg.Shopper.ID,
			"time":    time.Now().Format(time.RFC3339),
		}
		if snapshots != nil {
			if err := snapshots.Ping(c.Request().Context()); err != nil {
				status["redis"] = err.Error()
			} else {
				status["redis"] = "ok"
			}
		}
		return c.JSON(200, status)
	})

	go func() {
		if err := e.Start(":" + cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()
	logger.Info().Str("port", cfg.App.Port).Str("api", cfg.API.BaseURL).Msg("Storefront started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down server")
	}
}
