package hardware

import (
	"image"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/devices/ssd1306"
)

const (
	// SSD1306Address is the usual address of 128x64 I²C modules
	SSD1306Address = 0x3C

	ssd1306Command   = 0x00
	ssd1306DisplayOn = 0xAF
)

// SSD1306 is the monochrome OLED panel. Drawing happens on the embedded
// canvas and is only sent to the panel on Flush.
type SSD1306 struct {
	*Canvas

	dev  *ssd1306.Dev
	ctrl *i2c.Dev
}

// NewSSD1306 initialises the panel at addr on bus
func NewSSD1306(bus i2c.Bus, addr uint16, w, h int) (*SSD1306, error) {
	opts := ssd1306.DefaultOpts
	opts.W = w
	opts.H = h

	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialise ssd1306")
	}

	return &SSD1306{
		Canvas: NewCanvas(w, h),
		dev:    dev,
		ctrl:   &i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// Flush sends the frame buffer to the panel
func (s *SSD1306) Flush() error {
	err := s.dev.Draw(s.dev.Bounds(), s.img, image.Point{})
	if err != nil {
		return errors.Wrap(err, "failed to draw frame")
	}
	return nil
}

// PowerOn wakes the panel from sleep
func (s *SSD1306) PowerOn() error {
	_, err := s.ctrl.Write([]byte{ssd1306Command, ssd1306DisplayOn})
	if err != nil {
		return errors.Wrap(err, "failed to power on display")
	}
	return nil
}

// PowerOff puts the panel to sleep, the frame buffer is retained
func (s *SSD1306) PowerOff() error {
	err := s.dev.Halt()
	if err != nil {
		return errors.Wrap(err, "failed to power off display")
	}
	return nil
}
