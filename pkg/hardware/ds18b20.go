package hardware

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// W1Root is where the kernel exposes 1-Wire slaves
	W1Root = "/sys/bus/w1/devices"

	ds18b20Family     = "28-"
	ds18b20Conversion = 750 * time.Millisecond

	// the scratchpad holds 85°C after power on until a conversion completes
	ds18b20PowerOn = 85000
)

// DS18B20 is the auxiliary temperature probe, read through the w1_therm
// kernel driver.
type DS18B20 struct {
	Root string
	ID   string

	dir string
}

// NewDS18B20 returns a probe for the given slave id, or the first probe found
// when id is empty.
func NewDS18B20(root, id string) *DS18B20 {
	if root == "" {
		root = W1Root
	}

	return &DS18B20{
		Root: root,
		ID:   id,
	}
}

// Init locates the probe
func (d *DS18B20) Init() error {
	id := d.ID

	if id == "" {
		matches, err := filepath.Glob(filepath.Join(d.Root, ds18b20Family+"*"))
		if err != nil || len(matches) == 0 {
			return errors.New("ds18b20 not found")
		}
		id = filepath.Base(matches[0])
	}

	dir := filepath.Join(d.Root, id)

	_, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "ds18b20 %s not found", id)
	}

	d.ID = id
	d.dir = dir

	return nil
}

// Request triggers a conversion on every probe of the bus. Kernels without
// bulk conversion convert on read instead, so a missing trigger file is not
// an error.
func (d *DS18B20) Request() error {
	if d.dir == "" {
		return ErrNotInitialised
	}

	trigger := filepath.Join(d.Root, "w1_bus_master1", "therm_bulk_read")

	err := ioutil.WriteFile(trigger, []byte("trigger\n"), 0200)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to trigger conversion")
	}

	return nil
}

// ConversionTime is the twelve bit conversion time
func (d *DS18B20) ConversionTime() time.Duration {
	return ds18b20Conversion
}

// Read returns the temperature in °C
func (d *DS18B20) Read() (float64, error) {
	if d.dir == "" {
		return 0, ErrNotInitialised
	}

	milli, err := d.readTemperature()
	if os.IsNotExist(errors.Cause(err)) {
		milli, err = d.readSlave()
	}

	if err != nil {
		return 0, err
	}

	if milli == ds18b20PowerOn {
		return 0, ErrNotReady
	}

	return float64(milli) / 1000, nil
}

func (d *DS18B20) readTemperature() (int, error) {
	b, err := ioutil.ReadFile(filepath.Join(d.dir, "temperature"))
	if err != nil {
		return 0, err
	}

	milli, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid temperature")
	}

	return milli, nil
}

// readSlave parses the two line w1_slave format, e.g.
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func (d *DS18B20) readSlave() (int, error) {
	b, err := ioutil.ReadFile(filepath.Join(d.dir, "w1_slave"))
	if err != nil {
		return 0, errors.Wrap(err, "failed to read probe")
	}

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 || !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, errors.New("crc check failed")
	}

	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, errors.New("no temperature in probe output")
	}

	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][i+2:]))
	if err != nil {
		return 0, errors.Wrap(err, "invalid temperature")
	}

	return milli, nil
}
