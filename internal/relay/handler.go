package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/shared"
	"github.com/labstack/echo/v4"
)

type Detector interface {
	Forward(ctx context.Context, image string) (*detection.Result, error)
	ModelInfo(ctx context.Context) (json.RawMessage, error)
	Threshold() float64
	ModelType() string
}

type Config struct {
	MaxBody   string
	RateLimit RateLimiterConfig
}

type Handler struct {
	detector Detector
	cache    *Cache
	stats    *Stats
	limiter  *RateLimiter
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler wires the relay. cache and stats may be nil.
func NewHandler(detector Detector, cache *Cache, stats *Stats, cfg Config, logger *slog.Logger) *Handler {
	if cfg.MaxBody == "" {
		cfg.MaxBody = DefaultMaxBody
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		detector: detector,
		cache:    cache,
		stats:    stats,
		limiter:  NewRateLimiter(cfg.RateLimit),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/detect", h.Detect, h.limiter.Middleware(), BodyLimit(h.cfg.MaxBody))
	g.GET("/model-info", h.ModelInfo)
	g.GET("/stats", h.Stats)
}

// Close stops the rate limiter's background cleanup.
func (h *Handler) Close() {
	h.limiter.Stop()
}

// Detect godoc
// @Summary      Detect waste in an image
// @Description  Forwards the image to the detection service and returns its detections with defaults filled in
// @Tags         detection
// @Accept       json
// @Produce      json
// @Param        request  body      DetectRequest  true  "Encoded image"
// @Success      200      {object}  DetectResponse
// @Failure      400      {object}  shared.APIError
// @Failure      413      {object}  shared.APIError
// @Failure      429      {object}  shared.APIError
// @Failure      500      {object}  shared.APIError
// @Router       /detect [post]
func (h *Handler) Detect(c echo.Context) error {
	var req DetectRequest
	if err := c.Bind(&req); err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return err
		}
		return shared.BadRequest("invalid_request", "Invalid request body")
	}
	if strings.TrimSpace(req.Image) == "" {
		return shared.BadRequest("missing_image", "No image was sent")
	}

	ctx := c.Request().Context()
	start := h.now()
	reqID := shared.NewID("det_")
	c.Response().Header().Set(echo.HeaderXRequestID, reqID)
	logger := h.logger.With("request_id", reqID)
	key := CacheKey(req.Image, h.detector.Threshold(), h.detector.ModelType())

	if res, ok := h.cache.Get(ctx, key); ok {
		h.record(ctx, res, start, true)
		return c.JSON(http.StatusOK, newDetectResponse(res, true, h.now()))
	}

	res, err := h.detector.Forward(ctx, req.Image)
	if err != nil {
		logger.Error("detection failed", "error", err)
		if serr := h.stats.RecordError(ctx); serr != nil {
			logger.Warn("failed to record stats", "error", serr)
		}
		return shared.NewAPIError("detection_failed", "An error occurred during waste detection").
			WithDetails(err.Error()).
			ToHTTP(http.StatusInternalServerError)
	}

	if !res.Simulated {
		h.cache.Set(ctx, key, res)
	}
	h.record(ctx, res, start, false)
	logger.Debug("detection forwarded", "detections", len(res.Detections), "simulated", res.Simulated)

	return c.JSON(http.StatusOK, newDetectResponse(res, false, h.now()))
}

func (h *Handler) record(ctx context.Context, res *detection.Result, start time.Time, cached bool) {
	if err := h.stats.RecordSuccess(ctx, len(res.Detections), h.now().Sub(start), cached); err != nil {
		h.logger.Warn("failed to record stats", "error", err)
	}
}

// ModelInfo godoc
// @Summary      Detection model information
// @Description  Passes through the detection service's model description
// @Tags         detection
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      502  {object}  shared.APIError
// @Router       /model-info [get]
func (h *Handler) ModelInfo(c echo.Context) error {
	info, err := h.detector.ModelInfo(c.Request().Context())
	if err != nil {
		h.logger.Error("model info failed", "error", err)
		return shared.BadGateway("model_info_failed", "Could not read model information")
	}
	return c.JSONBlob(http.StatusOK, info)
}

// Stats godoc
// @Summary      Detection usage
// @Description  Returns hourly request, detection, error and cache counters
// @Tags         detection
// @Produce      json
// @Param        hours  query     int  false  "Number of hours to include (1-168)"  default(24)
// @Success      200    {object}  StatsResponse
// @Failure      500    {object}  shared.APIError
// @Failure      503    {object}  shared.APIError
// @Router       /stats [get]
func (h *Handler) Stats(c echo.Context) error {
	if !h.stats.enabled() {
		return shared.ServiceUnavailable("stats_unavailable", "usage stats require redis")
	}

	hours := 24
	if v := c.QueryParam("hours"); v != "" {
		if hr, err := strconv.Atoi(v); err == nil && hr > 0 && hr <= maxStatsHours {
			hours = hr
		}
	}

	buckets, err := h.stats.Hourly(c.Request().Context(), hours)
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		return shared.InternalError("get_stats_failed", "failed to get stats")
	}
	if buckets == nil {
		buckets = []HourlyStats{}
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Hours:   hours,
		Summary: summarize(buckets),
		Buckets: buckets,
	})
}
