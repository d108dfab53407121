package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// TargetSize returns the output size for a w x h source bounded by
// maxDimension. Sources already within the bound are returned unchanged.
func TargetSize(w, h, maxDimension int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if maxDimension <= 0 {
		return w, h
	}

	scale := math.Min(1, float64(maxDimension)/float64(max(w, h)))
	if scale >= 1 {
		return w, h
	}

	tw := int(math.Round(float64(w) * scale))
	th := int(math.Round(float64(h) * scale))
	return max(tw, 1), max(th, 1)
}

// Normalize decodes src, downscales it so neither side exceeds maxDimension
// and re-encodes it as JPEG. quality is in (0, 1].
func Normalize(src Source, maxDimension int, quality float64) (*CapturedImage, error) {
	img, err := src.Decode()
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptySource
	}

	tw, th := TargetSize(b.Dx(), b.Dy(), maxDimension)

	var out image.Image = img
	if tw != b.Dx() || th != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &CapturedImage{
		ID:        uuid.New().String(),
		Data:      buf.Bytes(),
		MIME:      "image/jpeg",
		Width:     tw,
		Height:    th,
		CreatedAt: time.Now(),
	}, nil
}

func jpegQuality(q float64) int {
	if q <= 0 || q > 1 {
		q = DefaultQuality
	}
	return min(max(int(math.Round(q*100)), 1), 100)
}
