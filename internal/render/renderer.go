package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/imaging"
)

// ErrSuperseded is returned when a newer Render call started while this one
// was still decoding its image. Nothing is drawn in that case.
var ErrSuperseded = errors.New("render superseded by a newer image")

type Renderer struct {
	surface Surface
	style   Style
	logger  *slog.Logger
	decode  func(*imaging.CapturedImage) (image.Image, error)

	mu  sync.Mutex
	gen atomic.Uint64
}

func NewRenderer(surface Surface, style Style, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		surface: surface,
		style:   style,
		logger:  logger.With("component", "renderer"),
		decode:  imaging.DecodeCaptured,
	}
}

// Label formats a detection the way it is printed above its box.
func Label(d detection.Detection) string {
	return fmt.Sprintf("%s %.1f%%", d.Label, d.Confidence*100)
}

// Render clears the surface and, when there are detections, draws img at its
// natural size with one box and label per detection in input order.
func (r *Renderer) Render(ctx context.Context, img *imaging.CapturedImage, detections []detection.Detection) error {
	gen := r.gen.Add(1)

	r.mu.Lock()
	r.surface.Clear()
	r.mu.Unlock()

	if len(detections) == 0 || img == nil {
		return nil
	}

	decoded, err := r.decode(img)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen.Load() != gen {
		r.logger.Debug("dropping stale render", "image_id", img.ID)
		return ErrSuperseded
	}

	b := decoded.Bounds()
	r.surface.Resize(b.Dx(), b.Dy())
	r.surface.DrawImage(decoded)

	for _, d := range detections {
		r.drawDetection(d)
	}
	return nil
}

func (r *Renderer) drawDetection(d detection.Detection) {
	box := d.BBox.Rect()
	r.surface.StrokeRect(box, r.style.Stroke, r.style.LineWidth)

	label := Label(d)
	width := int(math.Ceil(r.surface.MeasureText(label))) + r.style.LabelPad
	backdrop := image.Rect(box.Min.X, box.Min.Y-r.style.LabelHeight, box.Min.X+width, box.Min.Y)
	r.surface.FillRect(backdrop, r.style.LabelFill)

	r.surface.FillText(label,
		float64(box.Min.X)+r.style.TextInsetX,
		float64(box.Min.Y)-r.style.TextInsetY,
		r.style.TextColor)
}
