package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
)

// MJPEGDevice reads a multipart/x-mixed-replace JPEG stream, the format most
// IP cameras and webcam bridges serve.
type MJPEGDevice struct {
	URL    string
	Client *http.Client
	Logger *slog.Logger
}

func NewMJPEGDevice(rawURL string, logger *slog.Logger) *MJPEGDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &MJPEGDevice{
		URL:    rawURL,
		Client: &http.Client{},
		Logger: logger.With("component", "mjpeg-device"),
	}
}

func (d *MJPEGDevice) Open(ctx context.Context, cons Constraints) (Stream, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	q := u.Query()
	if cons.Width > 0 {
		q.Set("width", strconv.Itoa(cons.Width))
	}
	if cons.Height > 0 {
		q.Set("height", strconv.Itoa(cons.Height))
	}
	if cons.Facing != "" {
		q.Set("facing", string(cons.Facing))
	}
	u.RawQuery = q.Encode()

	// The stream outlives ctx; ctx only bounds the connection attempt.
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	req.Header.Set("Accept", "multipart/x-mixed-replace")
	req.Header.Set("Cache-Control", "no-cache")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, resp.Status)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: not an mjpeg stream (%s)", ErrNoDevice, resp.Header.Get("Content-Type"))
	}

	s := &mjpegStream{
		cancel: cancel,
		body:   resp.Body,
		logger: d.Logger,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.readLoop(multipart.NewReader(resp.Body, params["boundary"]))
	return s, nil
}

type mjpegStream struct {
	cancel context.CancelFunc
	body   io.Closer
	logger *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	frame image.Image
	err   error
}

func (s *mjpegStream) readLoop(mr *multipart.Reader) {
	defer close(s.done)

	var buf bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		buf.Reset()
		if _, err := io.Copy(&buf, part); err != nil {
			s.logger.Debug("mjpeg part read failed", "error", err)
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
		if err != nil {
			s.logger.Debug("mjpeg frame decode failed", "error", err)
			continue
		}

		s.mu.Lock()
		s.frame = img
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func (s *mjpegStream) Ready(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}

	select {
	case <-s.ready:
		return nil
	case <-s.done:
		select {
		case <-s.ready:
			return nil
		default:
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fmt.Errorf("stream ended before the first frame: %w", s.err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *mjpegStream) Frame() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamEnded, s.err)
	}
	if s.frame == nil {
		return nil, errors.New("no frame received yet")
	}
	return s.frame, nil
}

func (s *mjpegStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
		<-s.done
	})
	return err
}
