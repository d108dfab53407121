package health

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Checker reports whether the detection service answers.
type Checker interface {
	Health(ctx context.Context) error
}

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

// dependency is one readiness check. A failing critical dependency makes
// the service unhealthy; any other failure only degrades it.
type dependency struct {
	name     string
	critical bool
	run      func(ctx context.Context) error
}

type Handler struct {
	deps      []dependency
	version   string
	startTime time.Time

	totalRequests     atomic.Uint64
	activeConnections atomic.Int64
}

// NewHandler builds the health handler. redis is nil when caching is off,
// in which case it is left out of readiness.
func NewHandler(redis *redis.Client, detector Checker, version string) *Handler {
	deps := []dependency{{
		name:     "detector",
		critical: true,
		run: func(ctx context.Context) error {
			if detector == nil {
				return errors.New("detector not configured")
			}
			if err := detector.Health(ctx); err != nil {
				return errors.New("health check failed")
			}
			return nil
		},
	}}
	if redis != nil {
		deps = append(deps, dependency{
			name: "redis",
			run: func(ctx context.Context) error {
				if err := redis.Ping(ctx).Err(); err != nil {
					return errors.New("ping failed")
				}
				return nil
			},
		})
	}

	return &Handler{
		deps:      deps,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

func (h *Handler) IncrementRequests()    { h.totalRequests.Add(1) }
func (h *Handler) IncrementConnections() { h.activeConnections.Add(1) }
func (h *Handler) DecrementConnections() { h.activeConnections.Add(-1) }

// Liveness godoc
// @Summary      Liveness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness godoc
// @Summary      Readiness check
// @Description  Checks the detection service and, when configured, redis
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health/ready [get]
func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	results := make([]ComponentStatus, len(h.deps))
	var wg sync.WaitGroup
	for i, p := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.check(ctx)
		}()
	}
	wg.Wait()

	status := StatusHealthy
	components := make(map[string]ComponentStatus, len(h.deps))
	for i, p := range h.deps {
		components[p.name] = results[i]
		switch {
		case results[i].Status == StatusHealthy:
		case p.critical:
			status = StatusUnhealthy
		case status == StatusHealthy:
			status = StatusDegraded
		}
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, HealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Requests: RequestStats{
				TotalRequests:     h.totalRequests.Load(),
				ActiveConnections: h.activeConnections.Load(),
			},
			Runtime: readRuntime(),
		},
		Components: components,
	})
}

func (d dependency) check(ctx context.Context) ComponentStatus {
	start := time.Now()
	err := d.run(ctx)
	cs := ComponentStatus{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		cs.Status = StatusDegraded
		if d.critical {
			cs.Status = StatusUnhealthy
		}
		cs.Error = err.Error()
	}
	return cs
}

func readRuntime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const mb = 1 << 20
	return RuntimeStats{
		Goroutines:         runtime.NumGoroutine(),
		MemoryAllocMB:      m.Alloc / mb,
		MemoryTotalAllocMB: m.TotalAlloc / mb,
		MemorySysMB:        m.Sys / mb,
		NumGC:              m.NumGC,
	}
}
