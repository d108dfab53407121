package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Handle owns one open stream. It is released exactly once, whichever of
// Stop, a start failure or teardown gets there first.
type Handle struct {
	stream Stream

	active   atomic.Bool
	released atomic.Bool
	once     sync.Once
	closeErr error
}

func (h *Handle) Active() bool {
	return h != nil && h.active.Load() && !h.released.Load()
}

func (h *Handle) Released() bool {
	return h == nil || h.released.Load()
}

func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		h.released.Store(true)
		h.active.Store(false)
		h.closeErr = h.stream.Close()
	})
	return h.closeErr
}

type Controller struct {
	device Device
	logger *slog.Logger

	mu      sync.Mutex
	seq     uint64
	current *Handle
}

func NewController(device Device, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		device: device,
		logger: logger.With("component", "capture"),
	}
}

// Start opens the device and waits for the first frame before reporting the
// handle as active. A Stop issued meanwhile makes Start release the stream
// and return ErrStartAborted.
func (c *Controller) Start(ctx context.Context, cons Constraints) (*Handle, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	prev := c.current
	c.current = nil
	c.mu.Unlock()

	if prev != nil {
		prev.Release()
	}

	stream, err := c.device.Open(ctx, cons)
	if err != nil {
		err = classify(err)
		c.logger.Warn("camera open failed", "error", err)
		return nil, err
	}

	h := &Handle{stream: stream}

	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		h.Release()
		return nil, ErrStartAborted
	}
	c.current = h
	c.mu.Unlock()

	if err := stream.Ready(ctx); err != nil {
		aborted := h.Released()
		h.Release()
		c.forget(h)
		if aborted {
			return nil, ErrStartAborted
		}
		err = classify(err)
		c.logger.Warn("camera never produced a frame", "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != seq || h.Released() {
		h.Release()
		if c.current == h {
			c.current = nil
		}
		return nil, ErrStartAborted
	}
	h.active.Store(true)

	c.logger.Debug("camera active", "constraints", cons)
	return h, nil
}

// Stop releases the current handle, pending or active. It is a no-op when
// nothing is open.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.seq++
	h := c.current
	c.current = nil
	c.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Release(); err != nil {
		c.logger.Debug("camera close reported an error", "error", err)
	}
}

// Close is the teardown path and behaves like Stop.
func (c *Controller) Close() {
	c.Stop()
}

func (c *Controller) Current() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Capture snapshots the latest frame of an active handle. A stream that
// ended releases its handle and yields an error matching both ErrNoDevice
// and ErrStreamEnded.
func (c *Controller) Capture(h *Handle) (RawFrame, error) {
	if !h.Active() {
		return RawFrame{}, ErrNotActive
	}

	img, err := h.stream.Frame()
	if errors.Is(err, ErrStreamEnded) {
		h.Release()
		c.forget(h)
		c.logger.Warn("camera stream ended", "error", err)
		return RawFrame{}, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	if err != nil {
		return RawFrame{}, fmt.Errorf("%w: %v", ErrNotActive, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return RawFrame{}, fmt.Errorf("%w: empty frame", ErrNotActive)
	}

	return RawFrame{
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: time.Now(),
	}, nil
}

func (c *Controller) forget(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == h {
		c.current = nil
	}
}
