package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/eleven-am/wastelens/internal/imaging"
)

type op struct {
	kind string
	rect image.Rectangle
	text string
}

// recorder keeps the operations drawn since the last Clear or Resize.
type recorder struct {
	mu      sync.Mutex
	w, h    int
	ops     []op
	clears  int
	resizes int
}

func (r *recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w, r.h
}

func (r *recorder) Resize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w, r.h = w, h
	r.ops = nil
	r.resizes++
}

func (r *recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
	r.clears++
}

func (r *recorder) DrawImage(img image.Image) {
	r.add(op{kind: "image", rect: img.Bounds()})
}

func (r *recorder) StrokeRect(rect image.Rectangle, c color.Color, lw float64) {
	r.add(op{kind: "stroke", rect: rect})
}

func (r *recorder) FillRect(rect image.Rectangle, c color.Color) {
	r.add(op{kind: "fill", rect: rect})
}

func (r *recorder) MeasureText(s string) float64 {
	return float64(7 * len(s))
}

func (r *recorder) FillText(s string, x, y float64, c color.Color) {
	r.add(op{kind: "text", rect: image.Rect(int(x), int(y), int(x), int(y)), text: s})
}

func (r *recorder) add(o op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, o)
}

func (r *recorder) byKind(kind string) []op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []op
	for _, o := range r.ops {
		if o.kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func jpegImage(t *testing.T, w, h int) *imaging.CapturedImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return &imaging.CapturedImage{ID: "img", Data: buf.Bytes(), MIME: "image/jpeg", Width: w, Height: h}
}

var bottle = detection.Detection{Label: "Bottle", Confidence: 0.95, BBox: detection.BBox{100, 150, 200, 300}}

func TestLabel(t *testing.T) {
	if got := Label(bottle); got != "Bottle 95.0%" {
		t.Errorf("expected 'Bottle 95.0%%', got %q", got)
	}
	if got := Label(detection.Detection{Label: "Kaca", Confidence: 0.4567}); got != "Kaca 45.7%" {
		t.Errorf("expected 'Kaca 45.7%%', got %q", got)
	}
}

func TestRender_EmptyDetectionsLeavesBlankSurface(t *testing.T) {
	rec := &recorder{w: 300, h: 150}
	r := NewRenderer(rec, DefaultStyle(), nil)

	if err := r.Render(context.Background(), jpegImage(t, 64, 64), []detection.Detection{bottle}); err != nil {
		t.Fatal(err)
	}
	if err := r.Render(context.Background(), jpegImage(t, 64, 64), nil); err != nil {
		t.Fatal(err)
	}

	if len(rec.ops) != 0 {
		t.Errorf("expected blank surface, got %d ops", len(rec.ops))
	}
	if rec.clears != 2 {
		t.Errorf("expected a clear per render, got %d", rec.clears)
	}
}

func TestRender_RepeatedRenderDoesNotAccumulate(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, DefaultStyle(), nil)
	img := jpegImage(t, 640, 480)

	for i := 0; i < 2; i++ {
		if err := r.Render(context.Background(), img, []detection.Detection{bottle}); err != nil {
			t.Fatal(err)
		}
	}

	if w, h := rec.Size(); w != 640 || h != 480 {
		t.Errorf("expected surface 640x480, got %dx%d", w, h)
	}
	strokes := rec.byKind("stroke")
	if len(strokes) != 1 {
		t.Fatalf("expected exactly one box, got %d", len(strokes))
	}
	if strokes[0].rect != image.Rect(100, 150, 300, 450) {
		t.Errorf("expected box (100,150)-(300,450), got %v", strokes[0].rect)
	}
}

func TestRender_LabelLayout(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, DefaultStyle(), nil)

	if err := r.Render(context.Background(), jpegImage(t, 640, 480), []detection.Detection{bottle}); err != nil {
		t.Fatal(err)
	}

	kinds := make([]string, 0, len(rec.ops))
	for _, o := range rec.ops {
		kinds = append(kinds, o.kind)
	}
	want := []string{"image", "stroke", "fill", "text"}
	if len(kinds) != len(want) {
		t.Fatalf("expected ops %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected ops %v, got %v", want, kinds)
		}
	}

	// "Bottle 95.0%" is 12 chars, 7px each in the recorder, plus 10px padding.
	fill := rec.byKind("fill")[0]
	if fill.rect != image.Rect(100, 130, 194, 150) {
		t.Errorf("unexpected backdrop %v", fill.rect)
	}
	text := rec.byKind("text")[0]
	if text.text != "Bottle 95.0%" || text.rect.Min != image.Pt(105, 145) {
		t.Errorf("unexpected text op %+v", text)
	}
}

func TestRender_DetectionsInInputOrder(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, DefaultStyle(), nil)
	dets := []detection.Detection{
		{Label: "Kaleng", Confidence: 0.8, BBox: detection.BBox{10, 30, 20, 20}},
		{Label: "Kardus", Confidence: 0.6, BBox: detection.BBox{50, 60, 30, 10}},
	}

	if err := r.Render(context.Background(), jpegImage(t, 100, 100), dets); err != nil {
		t.Fatal(err)
	}

	strokes := rec.byKind("stroke")
	if len(strokes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(strokes))
	}
	if strokes[0].rect != image.Rect(10, 30, 30, 50) || strokes[1].rect != image.Rect(50, 60, 80, 70) {
		t.Errorf("unexpected boxes %v", strokes)
	}
}

func TestRender_SizesSurfaceFromImageNotPreset(t *testing.T) {
	rec := &recorder{w: 1280, h: 720}
	r := NewRenderer(rec, DefaultStyle(), nil)

	if err := r.Render(context.Background(), jpegImage(t, 320, 200), []detection.Detection{bottle}); err != nil {
		t.Fatal(err)
	}
	if w, h := rec.Size(); w != 320 || h != 200 {
		t.Errorf("expected surface 320x200, got %dx%d", w, h)
	}
}

func TestRender_StaleDecodeDoesNotDraw(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(rec, DefaultStyle(), nil)

	first := jpegImage(t, 640, 480)
	first.ID = "first"
	second := jpegImage(t, 200, 100)
	second.ID = "second"

	decoding := make(chan struct{})
	release := make(chan struct{})
	r.decode = func(c *imaging.CapturedImage) (image.Image, error) {
		if c.ID == "first" {
			close(decoding)
			<-release
		}
		return imaging.DecodeCaptured(c)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Render(context.Background(), first, []detection.Detection{bottle})
	}()

	<-decoding
	if err := r.Render(context.Background(), second, []detection.Detection{{Label: "Kaca", Confidence: 0.5, BBox: detection.BBox{1, 2, 3, 4}}}); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if w, h := rec.Size(); w != 200 || h != 100 {
		t.Errorf("surface should belong to the second image, got %dx%d", w, h)
	}
	strokes := rec.byKind("stroke")
	if len(strokes) != 1 || strokes[0].rect != image.Rect(1, 2, 4, 6) {
		t.Errorf("unexpected boxes %v", strokes)
	}
}

func TestRender_UndecodableImage(t *testing.T) {
	r := NewRenderer(&recorder{}, DefaultStyle(), nil)
	bad := &imaging.CapturedImage{ID: "bad", Data: []byte("nope"), MIME: "image/jpeg"}
	if err := r.Render(context.Background(), bad, []detection.Detection{bottle}); err == nil {
		t.Error("expected decode error")
	}
}

func TestCanvas_DrawsBoxPixels(t *testing.T) {
	canvas := NewCanvas(1280, 720)
	r := NewRenderer(canvas, DefaultStyle(), nil)

	if err := r.Render(context.Background(), jpegImage(t, 640, 480), []detection.Detection{bottle}); err != nil {
		t.Fatal(err)
	}

	if w, h := canvas.Size(); w != 640 || h != 480 {
		t.Fatalf("expected canvas 640x480, got %dx%d", w, h)
	}

	img := canvas.Image()
	// Left edge of the box, halfway down.
	if c := color.RGBAModel.Convert(img.At(100, 300)).(color.RGBA); c.G < 200 || c.R > 80 || c.B > 80 {
		t.Errorf("expected green stroke at (100,300), got %v", c)
	}
	// Inside the box the photo shows through.
	if c := color.RGBAModel.Convert(img.At(200, 300)).(color.RGBA); c.B < 150 {
		t.Errorf("expected image pixels inside the box, got %v", c)
	}
}

func TestCanvas_ClearIsTransparent(t *testing.T) {
	canvas := NewCanvas(10, 10)
	canvas.FillRect(image.Rect(0, 0, 10, 10), color.White)
	canvas.Clear()
	if _, _, _, a := canvas.Image().At(5, 5).RGBA(); a != 0 {
		t.Errorf("expected transparent pixel after clear, alpha %d", a)
	}
}

func TestCanvas_MeasureText(t *testing.T) {
	canvas := NewCanvas(10, 10)
	if w := canvas.MeasureText("abcd"); w != 28 {
		t.Errorf("expected 28px for 4 glyphs of Face7x13, got %v", w)
	}
}
