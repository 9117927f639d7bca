package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/weather-warnings-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-warnings-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-warnings-service/internal/adapter/memcache"
	"github.com/couchcryptid/weather-warnings-service/internal/adapter/openweather"
	redisadapter "github.com/couchcryptid/weather-warnings-service/internal/adapter/redis"
	valkeyadapter "github.com/couchcryptid/weather-warnings-service/internal/adapter/valkey"
	"github.com/couchcryptid/weather-warnings-service/internal/cache"
	"github.com/couchcryptid/weather-warnings-service/internal/config"
	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/observability"
	"github.com/couchcryptid/weather-warnings-service/internal/warnings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if cfg.APIKey == "" {
		logger.Warn("OWM_API_KEY not set, warnings requests will report a configuration error")
	} else if !domain.LooksLikeAPIKey(cfg.APIKey) {
		logger.Warn("OWM_API_KEY does not look like an OpenWeather key, sending it anyway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open cache store", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("result cache ready", "backend", cfg.CacheBackend)

	client := openweather.NewClient(openweather.Options{
		BaseURL:    cfg.BaseURL,
		GeoBaseURL: cfg.GeoBaseURL,
		Units:      cfg.Units,
		Timeout:    cfg.Timeout,
	}, logger, metrics)
	geocoder := openweather.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
	resolver := warnings.NewResolver(geocoder)
	gateway := cache.NewGateway(store, logger, metrics)

	opts := warnings.Options{
		Strategy:   cfg.SeverityStrategy,
		TimeFormat: domain.TimeFormat{Layout: cfg.TimeLayout, Location: cfg.TimeZone},
	}
	var publisher *kafkaadapter.Publisher
	if cfg.FeedEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		opts.Sink = publisher
		logger.Info("alert feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("alert feed disabled")
	}

	svc := warnings.NewService(resolver, client, gateway, opts, logger, metrics)
	defaults := warnings.Defaults{
		Credential:           cfg.APIKey,
		Location:             cfg.Location,
		MaxWarnings:          cfg.MaxWarnings,
		CacheLifetimeSeconds: cfg.CacheLifetimeSeconds,
		Language:             cfg.Language,
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, resolver, defaults, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Error("alert feed drain error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("cache store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore builds the result cache backend named by CACHE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func() error, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rdb, err := redisadapter.Connect(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisadapter.NewStore(rdb), rdb.Close, nil
	case config.CacheBackendValkey:
		client, err := valkeyadapter.Connect(connectCtx, cfg.ValkeyAddr)
		if err != nil {
			return nil, nil, err
		}
		return valkeyadapter.NewStore(client), func() error { client.Close(); return nil }, nil
	case config.CacheBackendMemory:
		s := memcache.NewStore(cfg.CacheSize, nil)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
