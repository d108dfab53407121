package relay

import (
	"time"

	"github.com/eleven-am/wastelens/internal/detection"
)

const DefaultMessage = "Waste detection completed"

type DetectRequest struct {
	Image string `json:"image" example:"data:image/jpeg;base64,/9j/4AAQSkZJRg..."`
}

type DetectResponse struct {
	Success        bool                  `json:"success" example:"true"`
	Detections     []detection.Detection `json:"detections"`
	Message        string                `json:"message" example:"Waste detection completed"`
	Timestamp      string                `json:"timestamp" example:"2024-05-01T10:00:00.000Z"`
	ProcessingTime *float64              `json:"processing_time,omitempty" example:"0.42"`
	ModelInfo      any                   `json:"model_info,omitempty" swaggertype:"object"`
	Simulated      bool                  `json:"simulated,omitempty"`
	Cached         bool                  `json:"cached,omitempty"`
}

// newDetectResponse fills the defaults a pass-through response promises:
// an empty detection list and a default message.
func newDetectResponse(res *detection.Result, cached bool, now time.Time) DetectResponse {
	detections := res.Detections
	if detections == nil {
		detections = []detection.Detection{}
	}
	message := res.Message
	if message == "" {
		message = DefaultMessage
	}

	return DetectResponse{
		Success:        true,
		Detections:     detections,
		Message:        message,
		Timestamp:      now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ProcessingTime: res.ProcessingTime,
		ModelInfo:      res.ModelInfo,
		Simulated:      res.Simulated,
		Cached:         cached,
	}
}

type HourlyStats struct {
	Date         string `json:"date" example:"2024-05-01"`
	Hour         int    `json:"hour" example:"10"`
	Requests     int64  `json:"requests"`
	Detections   int64  `json:"detections"`
	Errors       int64  `json:"errors"`
	CacheHits    int64  `json:"cache_hits"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

type StatsSummary struct {
	Requests     int64 `json:"requests"`
	Detections   int64 `json:"detections"`
	Errors       int64 `json:"errors"`
	CacheHits    int64 `json:"cache_hits"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

type StatsResponse struct {
	Hours   int           `json:"hours" example:"24"`
	Summary StatsSummary  `json:"summary"`
	Buckets []HourlyStats `json:"buckets"`
}
