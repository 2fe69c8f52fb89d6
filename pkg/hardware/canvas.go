package hardware

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/periph/devices/ssd1306/image1bit"
)

// Canvas is a one bit frame buffer laid out the way the SSD1306 expects it,
// with text drawn in a 7x13 bitmap font scaled by whole multiples.
type Canvas struct {
	img  *image1bit.VerticalLSB
	face *basicfont.Face
}

// NewCanvas returns a blank canvas of the given size
func NewCanvas(w, h int) *Canvas {
	return &Canvas{
		img:  image1bit.NewVerticalLSB(image.Rect(0, 0, w, h)),
		face: basicfont.Face7x13,
	}
}

// Image is the frame buffer
func (c *Canvas) Image() *image1bit.VerticalLSB {
	return c.img
}

// Clear turns every pixel off
func (c *Canvas) Clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = 0
	}
}

// TextBounds returns the size text occupies at the given scale
func (c *Canvas) TextBounds(text string, size int) (int, int) {
	size = scale(size)
	return c.face.Advance * len(text) * size, c.face.Height * size
}

// DrawText draws text with its top left corner at x, y
func (c *Canvas) DrawText(x, y, size int, text string) {
	size = scale(size)

	w, h := c.TextBounds(text, 1)
	if w == 0 {
		return
	}

	glyphs := image.NewAlpha(image.Rect(0, 0, w, h))

	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: c.face,
		Dot:  fixed.P(0, c.face.Ascent),
	}
	d.DrawString(text)

	for gy := 0; gy < h; gy++ {
		for gx := 0; gx < w; gx++ {
			if glyphs.AlphaAt(gx, gy).A < 0x80 {
				continue
			}

			for dy := 0; dy < size; dy++ {
				for dx := 0; dx < size; dx++ {
					c.DrawPixel(x+gx*size+dx, y+gy*size+dy)
				}
			}
		}
	}
}

// DrawPixel turns one pixel on, pixels outside the canvas are ignored
func (c *Canvas) DrawPixel(x, y int) {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return
	}
	c.img.SetBit(x, y, image1bit.On)
}

// DrawLine draws a line between two points using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)

	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		c.DrawPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}

		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// On reports whether a pixel is lit
func (c *Canvas) On(x, y int) bool {
	return c.img.BitAt(x, y) == image1bit.On
}

func scale(size int) int {
	if size < 1 {
		return 1
	}
	return size
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
