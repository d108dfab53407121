package bootstrap

import (
	"context"
	"log/slog"

	_ "github.com/eleven-am/wastelens/docs"
	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/health"
	"github.com/eleven-am/wastelens/internal/relay"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"
)

const version = "1.0.0"

func ProvideRelayHandler(lc fx.Lifecycle, client *detection.Client, redisClient *redis.Client, cfg *Config, logger *slog.Logger) *relay.Handler {
	var (
		cache *relay.Cache
		stats *relay.Stats
	)
	if redisClient != nil {
		cache = relay.NewCache(redisClient, cfg.CacheTTL, logger)
		stats = relay.NewStats(redisClient)
	}

	rl := relay.DefaultRateLimiterConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.Burst = cfg.RateLimitBurst

	h := relay.NewHandler(client, cache, stats, relay.Config{
		MaxBody:   cfg.MaxBody,
		RateLimit: rl,
	}, logger.With("handler", "relay"))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			h.Close()
			return nil
		},
	})
	return h
}

func ProvideHealthHandler(redisClient *redis.Client, client *detection.Client) *health.Handler {
	return health.NewHandler(redisClient, client, version)
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

type HandlerParams struct {
	fx.In

	RelayHandler  *relay.Handler
	HealthHandler *health.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	e.Use(metricsMiddleware(params.HealthHandler))
	params.HealthHandler.RegisterRoutes(e)

	params.RelayHandler.RegisterRoutes(e.Group("/api"))

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideRelayHandler,
		ProvideHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)
