package hardware

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/bmxx80"
)

// BMP280Addresses are the two addresses the sensor can be strapped to
var BMP280Addresses = []uint16{0x76, 0x77}

// BMP280 is the primary pressure and temperature transducer
type BMP280 struct {
	bus       i2c.Bus
	addresses []uint16
	dev       *bmxx80.Dev
}

// NewBMP280 returns a sensor probing the default addresses on bus
func NewBMP280(bus i2c.Bus) *BMP280 {
	return &BMP280{
		bus:       bus,
		addresses: BMP280Addresses,
	}
}

// Init probes each address in turn
func (b *BMP280) Init() error {
	var err error

	for _, addr := range b.addresses {
		var dev *bmxx80.Dev

		dev, err = bmxx80.NewI2C(b.bus, addr, &bmxx80.DefaultOpts)
		if err == nil {
			b.dev = dev
			return nil
		}
	}

	return errors.Wrap(err, "bmp280 not found")
}

// ReadTemperature returns the temperature in °C
func (b *BMP280) ReadTemperature() (float64, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}

	return float64(e.Temperature-physic.ZeroCelsius) / float64(physic.Celsius), nil
}

// ReadPressure returns the pressure in hPa
func (b *BMP280) ReadPressure() (float64, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}

	return float64(e.Pressure) / float64(100*physic.Pascal), nil
}

// Halt stops the sensor
func (b *BMP280) Halt() error {
	if b.dev == nil {
		return nil
	}
	return b.dev.Halt()
}

func (b *BMP280) sense() (physic.Env, error) {
	e := physic.Env{}

	if b.dev == nil {
		return e, ErrNotInitialised
	}

	err := b.dev.Sense(&e)
	if err != nil {
		return e, errors.Wrap(err, "failed to sense")
	}

	return e, nil
}
