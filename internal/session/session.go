package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eleven-am/wastelens/internal/capture"
	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/imaging"
)

type Detector interface {
	Detect(ctx context.Context, img *imaging.CapturedImage) (*detection.Result, error)
}

type Camera interface {
	Start(ctx context.Context, cons capture.Constraints) (*capture.Handle, error)
	Stop()
	Capture(h *capture.Handle) (capture.RawFrame, error)
}

type Renderer interface {
	Render(ctx context.Context, img *imaging.CapturedImage, detections []detection.Detection) error
}

type Config struct {
	MaxDimension int
	Quality      float64
	Constraints  capture.Constraints
	Logger       *slog.Logger
}

type Session struct {
	detector Detector
	camera   Camera
	renderer Renderer
	cfg      Config
	logger   *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// renderMu orders surface updates with generation changes.
	renderMu sync.Mutex

	mu        sync.Mutex
	state     State
	gen       uint64
	settled   chan struct{}
	message   string
	camState  CameraState
	camSeq    uint64
	handle    *capture.Handle
	cameraErr string
}

// New builds a session. camera and renderer may be nil for upload-only use
// without display.
func New(detector Detector, camera Camera, renderer Renderer, cfg Config) *Session {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = imaging.DefaultMaxDimension
	}
	if cfg.Quality <= 0 || cfg.Quality > 1 {
		cfg.Quality = imaging.DefaultQuality
	}
	if cfg.Constraints == (capture.Constraints{}) {
		cfg.Constraints = capture.DefaultConstraints()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		detector: detector,
		camera:   camera,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger.With("component", "session"),
		ctx:      ctx,
		cancel:   cancel,
		state:    Idle{},
	}
}

func (s *Session) StartCamera(ctx context.Context) error {
	if s.camera == nil {
		return capture.ErrNoDevice
	}

	s.mu.Lock()
	s.camSeq++
	seq := s.camSeq
	s.camState = CameraStarting
	s.cameraErr = ""
	s.mu.Unlock()

	h, err := s.camera.Start(ctx, s.cfg.Constraints)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.camSeq != seq {
		// Stopped or restarted while we were waiting.
		h.Release()
		if err == nil {
			err = capture.ErrStartAborted
		}
		return err
	}
	if err != nil {
		s.camState = CameraOff
		if !errors.Is(err, capture.ErrStartAborted) {
			s.cameraErr = cameraMessage(err)
			s.logger.Warn("camera start failed", "error", err)
		}
		return err
	}

	s.handle = h
	s.camState = CameraActive
	return nil
}

func (s *Session) StopCamera() {
	if s.camera == nil {
		return
	}

	s.mu.Lock()
	s.camSeq++
	s.camState = CameraOff
	s.handle = nil
	s.mu.Unlock()

	s.camera.Stop()
}

// Capture grabs the current camera frame, normalizes it and submits it.
func (s *Session) Capture(ctx context.Context) (*imaging.CapturedImage, error) {
	if s.camera == nil {
		return nil, capture.ErrNotActive
	}

	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()

	frame, err := s.camera.Capture(h)
	if errors.Is(err, capture.ErrStreamEnded) {
		s.cameraLost(h, err)
		return nil, err
	}
	if err != nil {
		s.fail("Camera is not active", err)
		return nil, err
	}
	return s.submit(ctx, imaging.FrameSource{Image: frame.Image})
}

// cameraLost turns the camera off after its stream died. The controller has
// already released h; a newer handle from a restart is left alone.
func (s *Session) cameraLost(h *capture.Handle, err error) {
	s.logger.Warn("camera lost", "error", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != h {
		return
	}
	s.camSeq++
	s.handle = nil
	s.camState = CameraOff
	s.cameraErr = cameraMessage(err)
}

// Upload normalizes an uploaded file and submits it.
func (s *Session) Upload(ctx context.Context, file imaging.FileSource) (*imaging.CapturedImage, error) {
	return s.submit(ctx, file)
}

func (s *Session) submit(ctx context.Context, src imaging.Source) (*imaging.CapturedImage, error) {
	img, err := imaging.Normalize(src, s.cfg.MaxDimension, s.cfg.Quality)
	if err != nil {
		s.fail("The image could not be processed", err)
		return nil, fmt.Errorf("normalize image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.SetImage(img)
	return img, nil
}

// fail records a dismissible message without touching the detection state.
func (s *Session) fail(msg string, err error) {
	s.logger.Warn(msg, "error", err)
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// SetImage supersedes the current image, clears any result and starts
// exactly one detection for img.
func (s *Session) SetImage(img *imaging.CapturedImage) {
	if img == nil {
		s.Reset()
		return
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = AwaitingResult{Image: img}
	s.message = ""
	s.settleLocked()
	s.settled = make(chan struct{})
	s.mu.Unlock()

	s.clearSurface()

	s.wg.Add(1)
	go s.detect(gen, img)
}

func (s *Session) detect(gen uint64, img *imaging.CapturedImage) {
	defer s.wg.Done()

	result, err := s.detector.Detect(s.ctx, img)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale detection", "image_id", img.ID, "generation", gen)
		return
	}
	if err != nil {
		msg := detection.Message(err)
		s.state = Failed{Image: img, Err: err, Message: msg}
		s.message = msg
		s.settleLocked()
		s.mu.Unlock()
		s.logger.Warn("detection failed", "image_id", img.ID, "error", err)
		return
	}
	s.state = Ready{Image: img, Result: result}
	s.mu.Unlock()

	s.logger.Debug("detection complete",
		"image_id", img.ID,
		"detections", len(result.Detections),
		"simulated", result.Simulated)

	s.render(gen, img, result.Detections)

	s.mu.Lock()
	if s.gen == gen {
		s.settleLocked()
	}
	s.mu.Unlock()
}

func (s *Session) render(gen uint64, img *imaging.CapturedImage, detections []detection.Detection) {
	if s.renderer == nil {
		return
	}
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	current := s.gen == gen
	s.mu.Unlock()
	if !current {
		return
	}

	if err := s.renderer.Render(s.ctx, img, detections); err != nil {
		s.logger.Debug("render skipped", "image_id", img.ID, "error", err)
	}
}

func (s *Session) clearSurface() {
	if s.renderer == nil {
		return
	}
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if err := s.renderer.Render(s.ctx, nil, nil); err != nil {
		s.logger.Debug("clear failed", "error", err)
	}
}

// settleLocked wakes everyone waiting on the current generation.
func (s *Session) settleLocked() {
	if s.settled != nil {
		close(s.settled)
		s.settled = nil
	}
}

// Reset drops the image and result. An in-flight detection becomes stale.
func (s *Session) Reset() {
	s.mu.Lock()
	s.gen++
	s.state = Idle{}
	s.message = ""
	s.settleLocked()
	s.mu.Unlock()

	s.clearSurface()
}

func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""
	s.cameraErr = ""
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:       s.state.status(),
		Image:        imageOf(s.state),
		Message:      s.message,
		Camera:       s.camState,
		CameraActive: s.camState == CameraActive,
		CameraError:  s.cameraErr,
		Generation:   s.gen,
	}
	if r, ok := s.state.(Ready); ok {
		snap.Result = r.Result
	}
	if snap.Status == StatusIdle && snap.CameraActive {
		snap.Status = StatusCapturing
	}
	return snap
}

// Wait blocks until the current image has a result or an error, or until
// the session holds no image.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		ch := s.settled
		if ch == nil {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Close releases the camera and waits for background work. Pending
// detections are cancelled.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.StopCamera()
		s.cancel()
		s.wg.Wait()
	})
}

func cameraMessage(err error) string {
	switch {
	case errors.Is(err, capture.ErrStreamEnded):
		return "The camera stopped sending video."
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Camera access was denied. Please allow camera permissions."
	case errors.Is(err, capture.ErrNoDevice):
		return "No camera was found on this device."
	case errors.Is(err, context.DeadlineExceeded):
		return "The camera took too long to start."
	default:
		return "Unable to access the camera."
	}
}
