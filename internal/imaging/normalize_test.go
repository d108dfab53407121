package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 2000, 1000, 1024, 1024, 512},
		{"portrait", 720, 1280, 1024, 576, 1024},
		{"square", 4096, 4096, 1024, 1024, 1024},
		{"already small", 640, 480, 1024, 640, 480},
		{"exact bound", 1024, 300, 1024, 1024, 300},
		{"rounding", 1280, 721, 1024, 1024, 577},
		{"thin strip", 5000, 2, 1024, 1024, 1},
		{"zero", 0, 10, 1024, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestTargetSize_BoundAndAspect(t *testing.T) {
	sizes := [][2]int{{1920, 1080}, {1080, 1920}, {3000, 2999}, {1025, 10}, {333, 4000}, {1280, 720}}
	for _, maxDim := range []int{64, 320, 1024} {
		for _, s := range sizes {
			w, h := TargetSize(s[0], s[1], maxDim)
			if max(w, h) > maxDim {
				t.Errorf("%v max %d: %dx%d exceeds bound", s, maxDim, w, h)
			}
			// The long side is exact, so the short side may be off by at most one pixel.
			if s[0] >= s[1] {
				want := float64(w) * float64(s[1]) / float64(s[0])
				if math.Abs(float64(h)-want) > 1 {
					t.Errorf("%v max %d: height %d too far from %f", s, maxDim, h, want)
				}
			} else {
				want := float64(h) * float64(s[0]) / float64(s[1])
				if math.Abs(float64(w)-want) > 1 {
					t.Errorf("%v max %d: width %d too far from %f", s, maxDim, w, want)
				}
			}
		}
	}
}

func TestNormalize_Downscales(t *testing.T) {
	src := FileSource{Name: "wide.png", Data: encodePNG(t, solidImage(2000, 1000))}

	out, err := Normalize(src, 1024, 0.7)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if out.Width != 1024 || out.Height != 512 {
		t.Errorf("expected 1024x512, got %dx%d", out.Width, out.Height)
	}
	if out.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", out.MIME)
	}

	decoded, err := DecodeCaptured(out)
	if err != nil {
		t.Fatalf("DecodeCaptured failed: %v", err)
	}
	if decoded.Bounds().Dx() != 1024 || decoded.Bounds().Dy() != 512 {
		t.Errorf("encoded payload is %v", decoded.Bounds())
	}
}

func TestNormalize_NeverUpscales(t *testing.T) {
	out, err := Normalize(FrameSource{Image: solidImage(320, 240)}, 1024, 0.7)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if out.Width != 320 || out.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", out.Width, out.Height)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	src := FrameSource{Image: solidImage(1280, 720)}
	a, err := Normalize(src, 500, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize(src, 500, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if a.Width != b.Width || a.Height != b.Height {
		t.Errorf("dimensions differ: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	if a.ID == b.ID {
		t.Error("each normalized image should get its own id")
	}
}

func TestNormalize_Failures(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantErr error
	}{
		{"nil frame", FrameSource{}, ErrEmptySource},
		{"zero frame", FrameSource{Image: image.NewRGBA(image.Rect(0, 0, 0, 0))}, ErrEmptySource},
		{"empty file", FileSource{Name: "x.png"}, ErrEmptySource},
		{"text file", FileSource{Name: "notes.txt", Data: []byte("hello world")}, ErrUnsupported},
		{"corrupt image", FileSource{Name: "bad.png", MIME: "image/png", Data: []byte("\x89PNG garbage")}, ErrUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.src, 1024, 0.7)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestJPEGQuality(t *testing.T) {
	if q := jpegQuality(0.7); q != 70 {
		t.Errorf("expected 70, got %d", q)
	}
	if q := jpegQuality(0); q != 70 {
		t.Errorf("expected default 70, got %d", q)
	}
	if q := jpegQuality(1); q != 100 {
		t.Errorf("expected 100, got %d", q)
	}
}

func TestDataURI_RoundTrip(t *testing.T) {
	img := &CapturedImage{MIME: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	uri := img.DataURI()
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected uri %s", uri)
	}

	mime, data, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}
	if mime != "image/jpeg" || !bytes.Equal(data, img.Data) {
		t.Errorf("got %s %x", mime, data)
	}
}

func TestParseDataURI_Invalid(t *testing.T) {
	for _, s := range []string{"data:image/png;base64", "data:image/png,abc", "!!!", ""} {
		if _, _, err := ParseDataURI(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestParseDataURI_BarePayload(t *testing.T) {
	mime, data, err := ParseDataURI("AQID")
	if err != nil {
		t.Fatal(err)
	}
	if mime != "" || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("got %q %v", mime, data)
	}
}
