package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Source interface {
	Decode() (image.Image, error)
}

// FrameSource wraps a frame grabbed from a live camera.
type FrameSource struct {
	Image image.Image
}

func (s FrameSource) Decode() (image.Image, error) {
	if s.Image == nil {
		return nil, ErrEmptySource
	}
	return s.Image, nil
}

// FileSource is an uploaded file. MIME may be empty, in which case it is
// sniffed from the content.
type FileSource struct {
	Name string
	MIME string
	Data []byte
}

func (s FileSource) ContentType() string {
	if s.MIME != "" {
		return s.MIME
	}
	return http.DetectContentType(s.Data)
}

func (s FileSource) Decode() (image.Image, error) {
	if len(s.Data) == 0 {
		return nil, ErrEmptySource
	}

	ct := s.ContentType()
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ct)
	}

	img, _, err := image.Decode(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, s.Name, err)
	}
	return img, nil
}

// DecodeCaptured decodes the pixel data of an already normalized image.
func DecodeCaptured(c *CapturedImage) (image.Image, error) {
	if c == nil || len(c.Data) == 0 {
		return nil, ErrEmptySource
	}
	img, _, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return img, nil
}
