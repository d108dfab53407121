package detection

import (
	"bytes"
	"crypto/sha256"
	"image"

	"github.com/eleven-am/wastelens/internal/imaging"
)

// WasteClasses is the class catalogue of the waste model, indexed by class id.
var WasteClasses = []string{
	"Botol Plastik",
	"Kaca",
	"Kaleng",
	"Kardus",
	"Kertas",
	"Plastik",
}

const simulatedMessage = "Simulated result: the detection service is unavailable"

// Simulate builds a placeholder result for an encoded image. The class is
// derived from the payload hash so the same image always yields the same
// answer, and the box covers the middle half of the image.
func Simulate(encoded string) *Result {
	sum := sha256.Sum256([]byte(encoded))
	label := WasteClasses[int(sum[0])%len(WasteClasses)]

	res := &Result{
		Detections: []Detection{},
		Message:    simulatedMessage,
		ModelInfo:  "simulated",
		Simulated:  true,
	}

	_, data, err := imaging.ParseDataURI(encoded)
	if err != nil {
		return res
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return res
	}

	res.Detections = append(res.Detections, Detection{
		Label:      label,
		Confidence: 0.5 + float64(sum[1])/510,
		BBox:       BBox{cfg.Width / 4, cfg.Height / 4, cfg.Width / 2, cfg.Height / 2},
	})
	return res
}
