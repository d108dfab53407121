package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

const rtpMTU = 1500

// RTPDevice receives a VP8 RTP stream on a UDP address, e.g. one produced by
// `ffmpeg -f v4l2 -i /dev/video0 -c:v libvpx -f rtp rtp://host:port`.
type RTPDevice struct {
	Addr   string
	Logger *slog.Logger
}

func NewRTPDevice(addr string, logger *slog.Logger) *RTPDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &RTPDevice{
		Addr:   addr,
		Logger: logger.With("component", "rtp-device", "addr", addr),
	}
}

// Open binds the UDP socket. Constraints cannot be negotiated over a plain
// RTP feed; the sender decides the resolution.
func (d *RTPDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", d.Addr)
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	s := &rtpStream{
		conn:          conn,
		logger:        d.Logger,
		decoder:       NewVP8Decoder(),
		sampleBuilder: samplebuilder.New(64, &codecs.VP8Packet{}, 90000),
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

type rtpStream struct {
	conn          net.PacketConn
	logger        *slog.Logger
	decoder       *VP8Decoder
	sampleBuilder *samplebuilder.SampleBuilder

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	frame image.Image
	err   error
}

func (s *rtpStream) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *rtpStream) readLoop() {
	defer close(s.done)

	buf := make([]byte, rtpMTU)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		// Unmarshal aliases its input, and the sample builder holds on to packets.
		data := make([]byte, n)
		copy(data, buf[:n])

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(data); err != nil {
			s.logger.Debug("rtp unmarshal failed", "error", err)
			continue
		}
		s.handlePacket(pkt)
	}
}

func (s *rtpStream) handlePacket(pkt *rtp.Packet) {
	s.sampleBuilder.Push(pkt)

	for {
		sample := s.sampleBuilder.Pop()
		if sample == nil {
			return
		}

		img, err := s.decoder.Decode(sample.Data)
		if err != nil {
			if !errors.Is(err, errNotKeyFrame) {
				s.logger.Debug("frame decode failed", "error", err)
			}
			continue
		}

		s.mu.Lock()
		s.frame = img
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func (s *rtpStream) Ready(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fmt.Errorf("stream ended before the first frame: %w", s.err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *rtpStream) Frame() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamEnded, s.err)
	}
	if s.frame == nil {
		return nil, errors.New("no key frame received yet")
	}
	return s.frame, nil
}

func (s *rtpStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		<-s.done
	})
	return err
}
