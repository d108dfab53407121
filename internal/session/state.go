package session

import (
	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/imaging"
)

type Status int

const (
	StatusIdle Status = iota
	StatusCapturing
	StatusAwaitingResult
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCapturing:
		return "capturing"
	case StatusAwaitingResult:
		return "awaiting_result"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the detection side of a session. Exactly one variant is current;
// there is no way to express "awaiting a result" without an image.
type State interface {
	status() Status
}

type Idle struct{}

type AwaitingResult struct {
	Image *imaging.CapturedImage
}

type Ready struct {
	Image  *imaging.CapturedImage
	Result *detection.Result
}

type Failed struct {
	Image   *imaging.CapturedImage
	Err     error
	Message string
}

func (Idle) status() Status           { return StatusIdle }
func (AwaitingResult) status() Status { return StatusAwaitingResult }
func (Ready) status() Status          { return StatusReady }
func (Failed) status() Status         { return StatusFailed }

func imageOf(st State) *imaging.CapturedImage {
	switch v := st.(type) {
	case AwaitingResult:
		return v.Image
	case Ready:
		return v.Image
	case Failed:
		return v.Image
	default:
		return nil
	}
}

type CameraState int

const (
	CameraOff CameraState = iota
	CameraStarting
	CameraActive
)

func (c CameraState) String() string {
	switch c {
	case CameraOff:
		return "off"
	case CameraStarting:
		return "starting"
	case CameraActive:
		return "active"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	Status       Status
	Image        *imaging.CapturedImage
	Result       *detection.Result
	Message      string
	Camera       CameraState
	CameraActive bool
	CameraError  string
	Generation   uint64
}

func (s Snapshot) Detections() []detection.Detection {
	if s.Result == nil {
		return nil
	}
	return s.Result.Detections
}
