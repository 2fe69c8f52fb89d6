package display

const (
	// Width of the panel in pixels
	Width = 128

	// Height of the panel in pixels
	Height = 64
)

// Panel is the set of drawing primitives the renderer needs from the display
// hardware. Drawing happens into a frame buffer which is only sent to the
// panel on Flush.
type Panel interface {
	Clear()
	DrawText(x, y, size int, text string)
	TextBounds(text string, size int) (w, h int)
	DrawLine(x0, y0, x1, y1 int)
	DrawPixel(x, y int)
	Flush() error
	PowerOn() error
	PowerOff() error
}
