// Package hardware contains the station's device drivers: the periph.io
// backed I²C devices, the 1-Wire probe exposed through sysfs and the radio
// controlled through NetworkManager.
package hardware

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// Error is a constant error type used for hardware sentinel values
type Error string

// Error is the implementation of the error interface
func (e Error) Error() string { return string(e) }

const (
	// ErrNotInitialised is returned when a device is read before Init
	// succeeded
	ErrNotInitialised = Error("device not initialised")

	// ErrNotReady is returned when a probe reports its power on value
	ErrNotReady = Error("conversion not complete")
)

// OpenBus initialises the host drivers and opens the named I²C bus. An empty
// name opens the first bus available.
func OpenBus(name string) (i2c.BusCloser, error) {
	_, err := host.Init()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialise host drivers")
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open i2c bus %q", name)
	}

	return bus, nil
}
