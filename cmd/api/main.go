package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dunamismax/pixelpipe/internal/api"
	"github.com/dunamismax/pixelpipe/internal/config"
	"github.com/dunamismax/pixelpipe/internal/logging"
	"github.com/dunamismax/pixelpipe/internal/pipeline"
	"github.com/dunamismax/pixelpipe/internal/ratelimit"
	"github.com/dunamismax/pixelpipe/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With("component", "api")

	if err := pipeline.Startup(); err != nil {
		logger.Fatalw("start image runtime", "error", err)
	}
	defer pipeline.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalw("setup tracing", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warnw("tracing shutdown failed", "error", err)
		}
	}()

	opts := []api.Option{api.WithTracer(otel.Tracer("pixelpipe/api"))}
	limiter, closeLimiter, err := newRateLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		logger.Fatalw("setup rate limiter", "error", err)
	}
	defer closeLimiter()
	if limiter != nil {
		opts = append(opts, api.WithRateLimiter(limiter))
	}

	app := api.NewServer(logger, api.Config{
		MaxUploadBytes:        cfg.API.MaxUploadBytes,
		MaxOperations:         cfg.Pipeline.MaxOperations,
		MaxPixels:             cfg.Pipeline.MaxPixels,
		RequestTimeout:        cfg.API.RequestTimeout,
		RateLimitUserIDHeader: cfg.RateLimit.UserIDHeader,
		CORSAllowedOrigins:    cfg.API.CORSAllowedOrigins,
	}, opts...)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("listening", "addr", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Infow("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}

func newRateLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *zap.SugaredLogger) (api.RateLimiter, func(), error) {
	noop := func() {}
	if !cfg.Enabled {
		logger.Infow("rate limiting disabled")
		return nil, noop, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "memory":
		limiter, err := ratelimit.NewMemoryTokenBucket(cfg.Capacity, cfg.Window)
		if err != nil {
			return nil, noop, err
		}
		logger.Infow("rate limiting enabled", "backend", "memory", "capacity", cfg.Capacity, "window", cfg.Window)
		return limiter, noop, nil
	case "", "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closeClient := func() {
			if err := client.Close(); err != nil {
				logger.Warnw("redis client close failed", "error", err)
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warnw("redis unreachable, limiter will fail open until it recovers", "addr", cfg.RedisAddr, "error", err)
		}

		limiter, err := ratelimit.NewRedisTokenBucket(client, cfg.Capacity, cfg.Window, "")
		if err != nil {
			closeClient()
			return nil, noop, err
		}
		logger.Infow("rate limiting enabled", "backend", "redis", "addr", cfg.RedisAddr, "capacity", cfg.Capacity, "window", cfg.Window)
		return limiter, closeClient, nil
	default:
		return nil, noop, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}
