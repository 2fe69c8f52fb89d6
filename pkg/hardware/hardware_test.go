package hardware_test

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/periph/conn/i2c/i2ctest"
	"periph.io/x/periph/conn/physic"

	"github.com/thingful/sensebox/pkg/hardware"
)

func TestBH1750(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: hardware.BH1750Address, W: []byte{0x01}},
			{Addr: hardware.BH1750Address, W: []byte{0x20}},
			{Addr: hardware.BH1750Address, R: []byte{0x01, 0xE0}},
		},
	}

	light := hardware.NewBH1750(bus, hardware.BH1750Address)

	assert.Nil(t, light.Init())
	assert.Nil(t, light.Request())

	lux, err := light.Read()
	assert.Nil(t, err)
	assert.InDelta(t, 400.0, lux, 1e-9)

	assert.Nil(t, bus.Close())
}

type nackBus struct{}

func (nackBus) String() string { return "nack" }

func (nackBus) Tx(addr uint16, w, r []byte) error { return errors.New("nack") }

func (nackBus) SetSpeed(f physic.Frequency) error { return nil }

func TestBH1750Missing(t *testing.T) {
	bus := nackBus{}

	light := hardware.NewBH1750(bus, hardware.BH1750Address)
	assert.NotNil(t, light.Init())
}

func writeFile(t *testing.T, path, content string) {
	assert.Nil(t, os.MkdirAll(filepath.Dir(path), 0755))
	assert.Nil(t, ioutil.WriteFile(path, []byte(content), 0644))
}

func TestDS18B20(t *testing.T) {
	root, err := ioutil.TempDir("", "w1")
	assert.Nil(t, err)
	defer os.RemoveAll(root)

	writeFile(t, filepath.Join(root, "28-0316a2794cff", "temperature"), "21437\n")
	writeFile(t, filepath.Join(root, "w1_bus_master1", "therm_bulk_read"), "0\n")

	probe := hardware.NewDS18B20(root, "")
	assert.Nil(t, probe.Init())
	assert.Equal(t, "28-0316a2794cff", probe.ID)

	assert.Nil(t, probe.Request())

	v, err := probe.Read()
	assert.Nil(t, err)
	assert.InDelta(t, 21.437, v, 1e-9)

	trigger, err := ioutil.ReadFile(filepath.Join(root, "w1_bus_master1", "therm_bulk_read"))
	assert.Nil(t, err)
	assert.Equal(t, "trigger\n", string(trigger))
}

func TestDS18B20Slave(t *testing.T) {
	root, err := ioutil.TempDir("", "w1")
	assert.Nil(t, err)
	defer os.RemoveAll(root)

	writeFile(t, filepath.Join(root, "28-0316a2794cff", "w1_slave"),
		"72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n")

	probe := hardware.NewDS18B20(root, "28-0316a2794cff")
	assert.Nil(t, probe.Init())

	// no bulk trigger on this kernel
	assert.Nil(t, probe.Request())

	v, err := probe.Read()
	assert.Nil(t, err)
	assert.InDelta(t, 23.125, v, 1e-9)
}

func TestDS18B20Errors(t *testing.T) {
	root, err := ioutil.TempDir("", "w1")
	assert.Nil(t, err)
	defer os.RemoveAll(root)

	probe := hardware.NewDS18B20(root, "")
	assert.NotNil(t, probe.Init())

	_, err = probe.Read()
	assert.Equal(t, hardware.ErrNotInitialised, err)

	writeFile(t, filepath.Join(root, "28-0316a2794cff", "temperature"), "85000\n")
	writeFile(t, filepath.Join(root, "28-0416a2794cff", "w1_slave"),
		"72 01 4b 46 7f ff 0e 10 00 : crc=57 NO\n72 01 4b 46 7f ff 0e 10 57 t=23125\n")

	probe = hardware.NewDS18B20(root, "28-0316a2794cff")
	assert.Nil(t, probe.Init())
	_, err = probe.Read()
	assert.Equal(t, hardware.ErrNotReady, err)

	probe = hardware.NewDS18B20(root, "28-0416a2794cff")
	assert.Nil(t, probe.Init())
	_, err = probe.Read()
	assert.NotNil(t, err)
}

func TestCanvasText(t *testing.T) {
	c := hardware.NewCanvas(128, 64)

	w, h := c.TextBounds("09:05", 2)
	assert.Equal(t, 70, w)
	assert.Equal(t, 26, h)

	c.DrawText(10, 10, 1, "H")

	lit := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			if c.On(x, y) {
				lit++
				assert.True(t, x >= 10 && x < 17 && y >= 10 && y < 23, "pixel %d,%d outside glyph", x, y)
			}
		}
	}
	assert.True(t, lit > 0)

	c.Clear()
	for _, b := range c.Image().Pix {
		assert.Equal(t, byte(0), b)
	}
}

func TestCanvasScaledText(t *testing.T) {
	small := hardware.NewCanvas(128, 64)
	small.DrawText(0, 0, 1, "8")

	large := hardware.NewCanvas(128, 64)
	large.DrawText(0, 0, 2, "8")

	for y := 0; y < 13; y++ {
		for x := 0; x < 7; x++ {
			on := small.On(x, y)
			assert.Equal(t, on, large.On(2*x, 2*y))
			assert.Equal(t, on, large.On(2*x+1, 2*y+1))
		}
	}
}

func TestCanvasLine(t *testing.T) {
	c := hardware.NewCanvas(128, 64)

	c.DrawLine(0, 0, 4, 4)
	for i := 0; i <= 4; i++ {
		assert.True(t, c.On(i, i))
	}
	assert.False(t, c.On(1, 0))

	c.DrawLine(10, 5, 10, 1)
	for y := 1; y <= 5; y++ {
		assert.True(t, c.On(10, y))
	}

	// clipped rather than wrapped
	c.DrawLine(120, 60, 140, 60)
	assert.True(t, c.On(127, 60))
	assert.False(t, c.On(0, 61))
}

type recorder struct {
	calls [][]string
	fail  bool
}

func (r *recorder) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.fail {
		return []byte("Error: No network with SSID 'station' found."), errors.New("exit status 10")
	}
	return nil, nil
}

func TestNMCLI(t *testing.T) {
	r := &recorder{}
	radio := hardware.NewNMCLI("wlan0")
	radio.Run = r.run

	assert.Nil(t, radio.Associate(context.Background(), "station", "secret"))
	assert.Nil(t, radio.Teardown())

	assert.Equal(t, [][]string{
		{"nmcli", "radio", "wifi", "on"},
		{"nmcli", "device", "wifi", "connect", "station", "password", "secret", "ifname", "wlan0"},
		{"nmcli", "radio", "wifi", "off"},
	}, r.calls)
}

func TestNMCLIFailure(t *testing.T) {
	r := &recorder{fail: true}
	radio := hardware.NewNMCLI("")
	radio.Run = r.run

	err := radio.Associate(context.Background(), "station", "")
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "No network")
	assert.Len(t, r.calls, 1)
}

func TestBMP280Missing(t *testing.T) {
	primary := hardware.NewBMP280(nackBus{})

	assert.NotNil(t, primary.Init())

	_, err := primary.ReadPressure()
	assert.Equal(t, hardware.ErrNotInitialised, err)

	_, err = primary.ReadTemperature()
	assert.Equal(t, hardware.ErrNotInitialised, err)

	assert.Nil(t, primary.Halt())
}
