package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

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

func ProvideLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger
}

// ProvideRedisClient returns nil when REDIS_ADDR is unset; the cache, stats
// and readiness check all treat a nil client as disabled.
func ProvideRedisClient(lc fx.Lifecycle, cfg *Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, detection cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func ProvideDetectionClient(cfg *Config, logger *slog.Logger) *detection.Client {
	fallback := detection.FallbackNone
	if cfg.DetectFallback == string(detection.FallbackSimulated) {
		fallback = detection.FallbackSimulated
	}

	return detection.NewClient(detection.Config{
		BaseURL:             cfg.DetectAPIURL,
		ConfidenceThreshold: cfg.DetectConfidence,
		ModelType:           cfg.DetectModel,
		Timeout:             cfg.DetectTimeout,
		Fallback:            fallback,
	}, logger)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideRedisClient,
		ProvideDetectionClient,
	),
)
