package display

import "github.com/thingful/sensebox/pkg/device"

// Segment is a straight line between two pixels.
type Segment struct {
	X0, Y0, X1, Y1 int
}

// the arrow is drawn centred here, to the right of the clock
const (
	glyphX = 116
	glyphY = 26
)

var glyphs = map[device.TrendCategory][]Segment{
	device.HardRising: {
		{0, 11, 0, -11},
		{0, -11, -5, -6},
		{0, -11, 5, -6},
	},
	device.SlightRising: {
		{-8, 8, 8, -8},
		{8, -8, 1, -8},
		{8, -8, 8, -1},
	},
	device.Flat: {
		{-10, 0, 10, 0},
		{10, 0, 5, -5},
		{10, 0, 5, 5},
	},
	device.SlightFalling: {
		{-8, -8, 8, 8},
		{8, 8, 1, 8},
		{8, 8, 8, 1},
	},
	device.HardFalling: {
		{0, -11, 0, 11},
		{0, 11, -5, 6},
		{0, 11, 5, 6},
	},
}

// Glyph returns the line segments of the arrow for the given trend, in panel
// coordinates. Unknown categories get the flat arrow.
func Glyph(trend device.TrendCategory) []Segment {
	rel, ok := glyphs[trend]
	if !ok {
		rel = glyphs[device.Flat]
	}

	segments := make([]Segment, len(rel))
	for i, s := range rel {
		segments[i] = Segment{
			X0: glyphX + s.X0,
			Y0: glyphY + s.Y0,
			X1: glyphX + s.X1,
			Y1: glyphY + s.Y1,
		}
	}

	return segments
}
