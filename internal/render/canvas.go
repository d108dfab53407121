package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Canvas is a Surface backed by an in-memory RGBA image.
type Canvas struct {
	mu  sync.Mutex
	ctx *gg.Context
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx.Width(), c.ctx.Height()
}

// Resize replaces the backing image. Like a canvas element, resizing
// discards the previous content.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = gg.NewContext(max(width, 1), max(height, 1))
	c.ctx.SetFontFace(basicfont.Face7x13)
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.SetColor(color.Transparent)
	c.ctx.Clear()
}

func (c *Canvas) DrawImage(img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := img.Bounds()
	c.ctx.DrawImage(img, -b.Min.X, -b.Min.Y)
}

func (c *Canvas) StrokeRect(r image.Rectangle, col color.Color, lineWidth float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	c.ctx.SetColor(col)
	c.ctx.SetLineWidth(lineWidth)
	c.ctx.Stroke()
}

func (c *Canvas) FillRect(r image.Rectangle, col color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	c.ctx.SetColor(col)
	c.ctx.Fill()
}

func (c *Canvas) MeasureText(s string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, _ := c.ctx.MeasureString(s)
	return w
}

func (c *Canvas) FillText(s string, x, y float64, col color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.SetColor(col)
	c.ctx.DrawString(s, x, y)
}

func (c *Canvas) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx.Image()
}

func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.Image())
}
