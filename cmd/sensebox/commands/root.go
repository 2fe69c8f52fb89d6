package commands

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thingful/sensebox/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   version.BinaryName,
	Short: "Control loop for a senseBox environmental station",
	Long: `The control loop for a senseBox environmental station.

Periodically samples barometric pressure, temperature and light, shows the
readings and a pressure trend arrow on the attached display, and uploads
them to openSenseMap over a radio that is only powered for network work.`,
	Version: version.VersionString(),
}

func init() {
	viper.SetEnvPrefix("sensebox")
	viper.AutomaticEnv()
	replacer := strings.NewReplacer("-", "_")
	viper.SetEnvKeyReplacer(replacer)

	flags := rootCmd.PersistentFlags()

	flags.BoolP("verbose", "v", false, "Boolean flag to enable verbose logging")

	flags.String("box-id", "", "The openSenseMap box id")
	flags.String("token", "", "The access token of the box, sent verbatim as the Authorization header")
	flags.String("ingress-url", "http://ingress.opensensemap.org", "The URL measurements are posted to")
	flags.String("api-url", "https://api.opensensemap.org", "The URL historical data is read from")
	flags.String("temperature-sensor", "", "Sensor id the temperature channel is uploaded as")
	flags.String("pressure-sensor", "", "Sensor id the pressure channel is uploaded as")
	flags.String("aux-temperature-sensor", "", "Sensor id the auxiliary temperature channel is uploaded as")
	flags.String("illuminance-sensor", "", "Sensor id the illuminance channel is uploaded as")
	flags.Int("client-timeout", 15, "HTTP client timeout in seconds")

	flags.String("ssid", "", "The wireless network to associate with")
	flags.String("password", "", "The wireless network passphrase")
	flags.String("interface", "", "The wireless interface, empty lets NetworkManager choose")
	flags.Bool("wired", false, "If present the station is permanently connected and the radio is never switched")

	flags.String("i2c-bus", "", "The I2C bus name, empty opens the first bus found")
	flags.Bool("light", false, "If present read a BH1750 light sensor")
	flags.Bool("aux", false, "If present read a DS18B20 temperature probe")
	flags.String("aux-id", "", "The 1-Wire id of the probe, empty uses the first probe found")
	flags.String("w1-root", "/sys/bus/w1/devices", "Where the kernel exposes 1-Wire devices")
	flags.Float64("temp-offset", -4.0, "Calibration offset in C added to the primary temperature")

	flags.String("trend-strategy", "regression", "How the pressure trend is estimated, differencing or regression")
	flags.Duration("upload-interval", time.Hour, "How often readings are uploaded and the trend estimated")
	flags.Duration("trend-cadence", 0, "The interval between the raw pressure samples used by the regression, 0 uses the upload interval")

	bindFlags(flags)
}

// bindFlags binds every flag to the viper key of the same name
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
}

// Execute is the main entry point for our cobra commands
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
