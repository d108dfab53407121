package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 0.7
)

var (
	ErrEmptySource    = errors.New("image source has no pixels")
	ErrUnreadable     = errors.New("image source is unreadable")
	ErrUnsupported    = errors.New("unsupported image type")
	ErrInvalidDataURI = errors.New("invalid data uri")
)

// CapturedImage is an encoded image ready for transfer. It is never mutated;
// a new capture or upload produces a new value with a new ID.
type CapturedImage struct {
	ID        string
	Data      []byte
	MIME      string
	Width     int
	Height    int
	CreatedAt time.Time
}

// DataURI returns the image as a data:<mime>;base64 string.
func (c *CapturedImage) DataURI() string {
	return "data:" + c.MIME + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
}

// ParseDataURI decodes a data URI. A bare base64 payload without the data:
// prefix is accepted as well and reported with an empty MIME type.
func ParseDataURI(s string) (mime string, data []byte, err error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return "", nil, ErrInvalidDataURI
		}
		if !strings.HasSuffix(header, ";base64") {
			return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
		}
		mime = strings.TrimSuffix(header, ";base64")
		payload = body
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return "", nil, ErrEmptySource
	}
	return mime, data, nil
}
