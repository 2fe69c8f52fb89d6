package display

// NightWindow is the range of local hours during which the panel is switched
// off. Start is inclusive and End exclusive. A window with Start > End wraps
// midnight, and Start == End disables the window.
type NightWindow struct {
	Start int
	End   int
}

// DefaultNightWindow switches the panel off from 22:00 until 08:00.
var DefaultNightWindow = NightWindow{Start: 22, End: 8}

// IsNight reports whether hour falls inside the window.
func IsNight(hour int, w NightWindow) bool {
	switch {
	case w.Start == w.End:
		return false
	case w.Start < w.End:
		return hour >= w.Start && hour < w.End
	default:
		return hour >= w.Start || hour < w.End
	}
}
