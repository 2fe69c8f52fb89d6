package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/thingful/sensebox/pkg/app"
	"github.com/thingful/sensebox/pkg/device"
	"github.com/thingful/sensebox/pkg/display"
)

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()

	flags.Duration("tick", 5*time.Second, "The sleep between scheduler steps")
	flags.Duration("sample-interval", time.Minute, "How often the sensors are read")
	flags.Duration("display-interval", time.Minute, "How often the display is redrawn")
	flags.Duration("resync-interval", time.Hour, "How often network time is resolved")
	flags.Int("night-start", 22, "Hour at which the display is switched off")
	flags.Int("night-end", 8, "Hour at which the display is switched back on")
	flags.String("timezone", "Europe/Berlin", "The zone the display shows local time in")
	flags.StringSlice("ntp-server", []string{"pool.ntp.org", "time.nist.gov"}, "NTP servers queried in turn")

	flags.StringP("addr", "a", "", "Address the status server binds to, empty disables it")
	flags.Duration("max-upload-age", 3*time.Hour, "Readiness fails once the last upload is older than this")
	flags.Float64("rate", 4, "The rate permitted per status client in req/sec")
	flags.Int("burst", 8, "The burstable rate per status client in req/sec")
	flags.Int("expiry", 60, "The interval in seconds with which we sweep the rate limit storage to free resources")

	flags.String("mqtt-broker", "", "If set readings are also published to this MQTT broker")
	flags.String("mqtt-topic", "sensebox/readings", "The topic readings are published to")

	bindFlags(flags)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the station",
	Long: `Starts the station control loop, and optionally a read only status
server exposing the current readings, health checks and metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := stationConfig()
		if err != nil {
			return err
		}

		tick := viper.GetDuration("tick")
		if tick == 0 {
			return errors.New("Must provide a non-zero tick")
		}

		intervals := device.Intervals{
			Sample:  viper.GetDuration("sample-interval"),
			Display: viper.GetDuration("display-interval"),
			Upload:  viper.GetDuration("upload-interval"),
			Resync:  viper.GetDuration("resync-interval"),
		}

		if intervals.Sample < tick || intervals.Display < tick || intervals.Upload < tick || intervals.Resync < tick {
			return errors.New("Task intervals must not be shorter than the tick")
		}

		location, err := time.LoadLocation(viper.GetString("timezone"))
		if err != nil {
			return err
		}

		night := display.NightWindow{
			Start: viper.GetInt("night-start"),
			End:   viper.GetInt("night-end"),
		}

		if night.Start < 0 || night.Start > 23 || night.End < 0 || night.End > 23 {
			return errors.New("Night window hours must be between 0 and 23")
		}

		baseRate := viper.GetFloat64("rate")
		if baseRate == 0 {
			return errors.New("Must specify a non-zero rate")
		}

		expiry := viper.GetInt("expiry")
		if expiry == 0 {
			return errors.New("Must specify a non-zero rate limit expiry")
		}

		config.Tick = tick
		config.Intervals = intervals
		config.Location = location
		config.Night = night
		config.NTPServers = viper.GetStringSlice("ntp-server")
		config.Addr = viper.GetString("addr")
		config.MaxUploadAge = viper.GetDuration("max-upload-age")
		config.Rate = rate.Limit(baseRate)
		config.Burst = viper.GetInt("burst")
		config.Expiry = time.Duration(expiry) * time.Second
		config.MQTTBroker = viper.GetString("mqtt-broker")
		config.MQTTTopic = viper.GetString("mqtt-topic")

		a, err := app.NewApp(config)
		if err != nil {
			return err
		}

		return a.Start()
	},
}
