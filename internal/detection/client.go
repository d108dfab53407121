package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/wastelens/internal/imaging"
)

const maxResponseBytes = 32 << 20

type Client struct {
	httpClient *http.Client
	baseURL    string
	endpoint   string
	threshold  float64
	modelType  string
	fallback   Fallback
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/detect"
	}
	modelType := cfg.ModelType
	if modelType == "" {
		modelType = "yolov8"
	}
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = FallbackNone
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		endpoint:   endpoint,
		threshold:  cfg.ConfidenceThreshold,
		modelType:  modelType,
		fallback:   fallback,
		logger:     logger.With("component", "detection-client"),
	}
}

func (c *Client) Threshold() float64 { return c.threshold }

func (c *Client) ModelType() string { return c.modelType }

// Detect sends img to the detection service. There is no retry.
func (c *Client) Detect(ctx context.Context, img *imaging.CapturedImage) (*Result, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	return c.DetectEncoded(ctx, img.DataURI())
}

// DetectEncoded performs the exchange for an image that is already encoded
// as a data URI or bare base64 string.
func (c *Client) DetectEncoded(ctx context.Context, image string) (*Result, error) {
	return c.run(ctx, image, false)
}

// Forward is DetectEncoded for pass-through callers: a response without a
// detections key yields an empty list instead of MalformedResponse.
func (c *Client) Forward(ctx context.Context, image string) (*Result, error) {
	return c.run(ctx, image, true)
}

func (c *Client) run(ctx context.Context, image string, lenient bool) (*Result, error) {
	start := time.Now()
	result, err := c.detect(ctx, image, lenient)
	if err != nil {
		if c.fallback == FallbackSimulated && errors.Is(err, ErrNetwork) {
			c.logger.Warn("detection service unreachable, using simulated result", "error", err)
			return Simulate(image), nil
		}
		c.logger.Debug("detection failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	c.logger.Debug("detection complete",
		"detections", len(result.Detections),
		"elapsed", time.Since(start))
	return result, nil
}

func (c *Client) detect(ctx context.Context, image string, lenient bool) (*Result, error) {
	body, err := json.Marshal(detectRequest{
		Image:               image,
		ConfidenceThreshold: c.threshold,
		ModelType:           c.modelType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindBackendRejected, StatusCode: resp.StatusCode, Err: backendMessage(raw)}
	}

	var decoded detectResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	detections := []Detection{}
	switch {
	case decoded.Detections != nil:
		detections = *decoded.Detections
	case !lenient:
		return nil, &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: errors.New("missing detections")}
	}

	return &Result{
		Detections:     detections,
		Message:        decoded.Message,
		ProcessingTime: decoded.ProcessingTime,
		ModelInfo:      decoded.ModelInfo,
		Timestamp:      decoded.Timestamp,
	}, nil
}

// backendMessage extracts the error field of a JSON error body, if any.
func backendMessage(raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return errors.New(body.Error)
	}
	return nil
}

// Health calls GET /health on the detection service.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindBackendRejected, StatusCode: resp.StatusCode}
	}
	return nil
}

// ModelInfo returns the raw JSON of GET /model-info.
func (c *Client) ModelInfo(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/model-info", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindBackendRejected, StatusCode: resp.StatusCode, Err: backendMessage(raw)}
	}
	if !json.Valid(raw) {
		return nil, &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: errors.New("invalid json")}
	}
	return json.RawMessage(raw), nil
}
