package commands

import (
	"errors"

	"github.com/spf13/viper"

	"github.com/thingful/sensebox/pkg/app"
	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/opensensemap"
)

// stationConfig reads the flags shared by every command
func stationConfig() (*app.Config, error) {
	boxID := viper.GetString("box-id")
	if boxID == "" {
		return nil, errors.New("Must provide a box id")
	}

	clientTimeout := viper.GetInt("client-timeout")
	if clientTimeout == 0 {
		return nil, errors.New("Must provide a non-zero client timeout")
	}

	wired := viper.GetBool("wired")

	ssid := viper.GetString("ssid")
	if ssid == "" && !wired {
		return nil, errors.New("Must provide a wireless network, or run wired")
	}

	strategy := viper.GetString("trend-strategy")
	if strategy != "differencing" && strategy != "regression" {
		return nil, errors.New("Trend strategy must be differencing or regression")
	}

	upload := viper.GetDuration("upload-interval")
	if upload == 0 {
		return nil, errors.New("Must provide a non-zero upload interval")
	}

	cadence := viper.GetDuration("trend-cadence")
	if cadence != 0 && cadence < upload {
		return nil, errors.New("Trend cadence must not be shorter than the upload interval, the box only holds uploaded samples")
	}

	return &app.Config{
		BoxID:      boxID,
		Token:      viper.GetString("token"),
		IngressURL: viper.GetString("ingress-url"),
		APIURL:     viper.GetString("api-url"),
		Sensors: opensensemap.Sensors{
			device.Temperature:    viper.GetString("temperature-sensor"),
			device.Pressure:       viper.GetString("pressure-sensor"),
			device.AuxTemperature: viper.GetString("aux-temperature-sensor"),
			device.Illuminance:    viper.GetString("illuminance-sensor"),
		},
		SSID:          ssid,
		Password:      viper.GetString("password"),
		Interface:     viper.GetString("interface"),
		Wired:         wired,
		I2CBus:        viper.GetString("i2c-bus"),
		Light:         viper.GetBool("light"),
		Aux:           viper.GetBool("aux"),
		AuxID:         viper.GetString("aux-id"),
		W1Root:        viper.GetString("w1-root"),
		TempOffset:    viper.GetFloat64("temp-offset"),
		TrendStrategy: strategy,
		TrendCadence:  cadence,
		Intervals:     device.Intervals{Upload: upload},
		ClientTimeout: clientTimeout,
		Verbose:       viper.GetBool("verbose"),
	}, nil
}
