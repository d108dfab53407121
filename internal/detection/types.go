package detection

import (
	"encoding/json"
	"fmt"
	"image"
	"time"
)

type Fallback string

const (
	FallbackNone      Fallback = "none"
	FallbackSimulated Fallback = "simulated"
)

// DefaultConfidenceThreshold is applied by the config and CLI layers. The
// client sends whatever threshold it is given, including 0.
const DefaultConfidenceThreshold = 0.5

type Config struct {
	BaseURL             string
	Endpoint            string
	ConfidenceThreshold float64
	ModelType           string
	Timeout             time.Duration
	Fallback            Fallback
}

// BBox is [x, y, width, height] in pixels of the image that was sent.
type BBox [4]int

func (b BBox) Rect() image.Rectangle {
	return image.Rect(b[0], b[1], b[0]+b[2], b[1]+b[3])
}

func (b *BBox) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("bbox must have 4 elements, got %d", len(raw))
	}
	for i, v := range raw {
		b[i] = int(v)
	}
	return nil
}

type Detection struct {
	Label      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

type Result struct {
	Detections     []Detection `json:"detections"`
	Message        string      `json:"message,omitempty"`
	ProcessingTime *float64    `json:"processing_time,omitempty"`
	ModelInfo      any         `json:"model_info,omitempty"`
	Timestamp      string      `json:"timestamp,omitempty"`
	Simulated      bool        `json:"simulated,omitempty"`
}

type detectRequest struct {
	Image               string  `json:"image"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ModelType           string  `json:"model_type"`
}

// detectResponse keeps Detections as a pointer so a missing key can be told
// apart from an empty list.
type detectResponse struct {
	Detections     *[]Detection `json:"detections"`
	Message        string       `json:"message"`
	ProcessingTime *float64     `json:"processing_time"`
	ModelInfo      any          `json:"model_info"`
	Timestamp      string       `json:"timestamp"`
}
