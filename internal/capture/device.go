package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device available")
	ErrNotActive        = errors.New("camera is not active")
	ErrStartAborted     = errors.New("camera stopped before it became active")
	// ErrStreamEnded is reported by a stream whose source went away after
	// it became ready. The stream cannot recover.
	ErrStreamEnded = errors.New("camera stream ended")
)

type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Constraints are hints for the device. Width and Height are the ideal
// resolution; a device may negotiate a different one.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

func DefaultConstraints() Constraints {
	return Constraints{
		Facing: FacingEnvironment,
		Width:  1280,
		Height: 720,
	}
}

// Device opens video-only streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video stream. Ready blocks until the first frame is
// known, Frame returns the most recent frame at its natural size.
type Stream interface {
	Ready(ctx context.Context) error
	Frame() (image.Image, error)
	Close() error
}

type RawFrame struct {
	Image      image.Image
	Width      int
	Height     int
	CapturedAt time.Time
}

// classify maps an arbitrary device failure onto the camera error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNoDevice) || errors.Is(err, ErrStartAborted) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNoDevice, err)
}
