package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/vp8"
)

var errNotKeyFrame = errors.New("not a vp8 key frame")

type VP8Decoder struct {
	mu sync.Mutex
}

func NewVP8Decoder() *VP8Decoder {
	return &VP8Decoder{}
}

// Decode decodes a VP8 key frame. Inter frames are rejected with
// errNotKeyFrame; the stream keeps showing the last key frame.
func (d *VP8Decoder) Decode(data []byte) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}
	if data[0]&0x01 != 0 {
		return nil, errNotKeyFrame
	}

	decoder := vp8.NewDecoder()
	decoder.Init(bytes.NewReader(data), len(data))

	fh, err := decoder.DecodeFrameHeader()
	if err != nil {
		return nil, fmt.Errorf("decode frame header: %w", err)
	}
	if fh.Width == 0 || fh.Height == 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", fh.Width, fh.Height)
	}

	img, err := decoder.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
