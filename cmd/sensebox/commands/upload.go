package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thingful/sensebox/pkg/app"
	"github.com/thingful/sensebox/pkg/device"
)

func init() {
	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Sample the sensors and upload once",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := stationConfig()
		if err != nil {
			return err
		}

		timeout := time.Duration(viper.GetInt("client-timeout")) * 2 * time.Second

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		readings, err := app.UploadOnce(ctx, config)

		for _, ch := range device.Channels {
			if v := readings.Value(ch); v.Valid {
				fmt.Printf("%s: %.2f\n", ch, v.Float64)
			}
		}

		return err
	},
}
