package display

import (
	"fmt"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/guregu/null"
	"github.com/pkg/errors"

	"github.com/thingful/sensebox/pkg/device"
)

// fixed screen regions, top edge of each text line
const (
	dateY    = 0
	timeY    = 13
	row1Y    = 40
	row2Y    = 52
	messageY = 28

	// columnGap is the least space between the two readings of a row
	columnGap = 4
)

// Renderer draws the current readings on a Panel.
type Renderer struct {
	panel  Panel
	night  NightWindow
	on     bool
	logger kitlog.Logger
}

// NewRenderer returns a renderer drawing to the given panel.
func NewRenderer(panel Panel, night NightWindow, logger kitlog.Logger) *Renderer {
	logger = kitlog.With(logger, "module", "display")

	logger.Log("msg", "configuring display", "nightStart", night.Start, "nightEnd", night.End)

	return &Renderer{
		panel:  panel,
		night:  night,
		logger: logger,
	}
}

// Boot shows the splash screen. An error here means the panel is not
// responding, which the caller treats as fatal.
func (r *Renderer) Boot() error {
	if err := r.powerOn(); err != nil {
		return err
	}

	r.panel.Clear()
	r.panel.DrawText(10, 6, 2, "senseBox")
	r.panel.DrawText(10, 35, 1, "Starting...")
	r.panel.DrawText(10, 47, 1, "Connecting WiFi")

	return errors.Wrap(r.panel.Flush(), "failed to flush boot screen")
}

// ShowError replaces the screen with a single diagnostic message.
func (r *Renderer) ShowError(msg string) {
	if err := r.powerOn(); err != nil {
		r.logger.Log("msg", "failed to power on display", "err", err)
		return
	}

	r.panel.Clear()
	r.panel.DrawText(10, messageY, 1, msg)

	if err := r.panel.Flush(); err != nil {
		r.logger.Log("msg", "failed to flush error screen", "err", err)
	}
}

// Render draws date, time, readings and the trend arrow. During the night
// window the panel is switched off and nothing is drawn. now must already be
// in local time.
func (r *Renderer) Render(readings device.ReadingSet, now time.Time, trend device.TrendCategory) {
	if IsNight(now.Hour(), r.night) {
		if r.on {
			if err := r.panel.PowerOff(); err != nil {
				r.logger.Log("msg", "failed to power off display", "err", err)
				return
			}
			r.on = false
		}
		return
	}

	if err := r.powerOn(); err != nil {
		r.logger.Log("msg", "failed to power on display", "err", err)
		return
	}

	r.panel.Clear()

	r.centred(dateY, 1, now.Format("02.01.2006"))
	r.centred(timeY, 2, now.Format("15:04"))

	var aux, lux []string
	if v := readings.AuxTemperature; v.Valid {
		aux = []string{
			formatValue(v, 2, "C"),
			formatValue(v, 1, "C"),
			fmt.Sprintf("%.1f", v.Float64),
		}
	}
	if v := readings.Illuminance; v.Valid {
		lux = []string{
			formatValue(v, 0, "lx"),
			fmt.Sprintf("%.0f", v.Float64),
			fmt.Sprintf("%.0fk", v.Float64/1000),
		}
	}

	r.row(row1Y, formatValue(readings.Temperature, 2, "C"), aux...)
	r.row(row2Y, formatValue(readings.Pressure, 2, "hPa"), lux...)

	for _, s := range Glyph(trend) {
		r.panel.DrawLine(s.X0, s.Y0, s.X1, s.Y1)
	}

	if err := r.panel.Flush(); err != nil {
		r.logger.Log("msg", "failed to flush display", "err", err)
	}
}

func (r *Renderer) powerOn() error {
	if r.on {
		return nil
	}

	if err := r.panel.PowerOn(); err != nil {
		return errors.Wrap(err, "failed to power on display")
	}

	r.on = true
	return nil
}

func (r *Renderer) centred(y, size int, text string) {
	w, _ := r.panel.TextBounds(text, size)
	r.panel.DrawText((Width-w)/2, y, size, text)
}

// row draws left flush left and the first of the right variants that fits
// flush right without touching it. Nothing is drawn on the right when none
// fits.
func (r *Renderer) row(y int, left string, right ...string) {
	r.panel.DrawText(0, y, 1, left)
	lw, _ := r.panel.TextBounds(left, 1)

	for _, text := range right {
		w, _ := r.panel.TextBounds(text, 1)
		if lw+columnGap <= Width-w {
			r.panel.DrawText(Width-w, y, 1, text)
			return
		}
	}
}

// formatValue renders a missing value as dashes so the unit stays visible.
func formatValue(v null.Float, precision int, unit string) string {
	if !v.Valid {
		return fmt.Sprintf("--.-- %s", unit)
	}
	return fmt.Sprintf("%.*f %s", precision, v.Float64, unit)
}
