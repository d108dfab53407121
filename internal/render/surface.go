package render

import (
	"image"
	"image/color"
)

// Surface is the subset of a 2D canvas the renderer draws with.
type Surface interface {
	Size() (width, height int)
	Resize(width, height int)
	Clear()
	DrawImage(img image.Image)
	StrokeRect(r image.Rectangle, c color.Color, lineWidth float64)
	FillRect(r image.Rectangle, c color.Color)
	MeasureText(s string) float64
	FillText(s string, x, y float64, c color.Color)
}

type Style struct {
	Stroke      color.Color
	LineWidth   float64
	LabelFill   color.Color
	LabelHeight int
	LabelPad    int
	TextColor   color.Color
	TextInsetX  float64
	TextInsetY  float64
}

func DefaultStyle() Style {
	return Style{
		Stroke:      color.RGBA{G: 0xff, A: 0xff},
		LineWidth:   3,
		LabelFill:   color.NRGBA{G: 0xff, A: 204},
		LabelHeight: 20,
		LabelPad:    10,
		TextColor:   color.Black,
		TextInsetX:  5,
		TextInsetY:  5,
	}
}
