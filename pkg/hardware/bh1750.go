package hardware

import (
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
)

const (
	// BH1750Address is the address with the ADDR pin low
	BH1750Address = 0x23

	bh1750PowerOn      = 0x01
	bh1750OneTimeHigh  = 0x20
	bh1750Conversion   = 180 * time.Millisecond
	bh1750CountsPerLux = 1.2
)

// BH1750 is the ambient light sensor. Each reading is a one time high
// resolution measurement, after which the sensor powers itself down.
type BH1750 struct {
	dev *i2c.Dev
}

// NewBH1750 returns a light sensor at addr on bus
func NewBH1750(bus i2c.Bus, addr uint16) *BH1750 {
	return &BH1750{
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}
}

// Init powers the sensor on
func (b *BH1750) Init() error {
	_, err := b.dev.Write([]byte{bh1750PowerOn})
	if err != nil {
		return errors.Wrap(err, "bh1750 not found")
	}
	return nil
}

// Request starts a one time measurement
func (b *BH1750) Request() error {
	_, err := b.dev.Write([]byte{bh1750OneTimeHigh})
	if err != nil {
		return errors.Wrap(err, "failed to request measurement")
	}
	return nil
}

// ConversionTime is the worst case high resolution measurement time
func (b *BH1750) ConversionTime() time.Duration {
	return bh1750Conversion
}

// Read returns the illuminance in lux
func (b *BH1750) Read() (float64, error) {
	buf := make([]byte, 2)

	err := b.dev.Tx(nil, buf)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read measurement")
	}

	counts := uint16(buf[0])<<8 | uint16(buf[1])

	return float64(counts) / bh1750CountsPerLux, nil
}
