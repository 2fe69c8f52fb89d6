package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thingful/sensebox/pkg/app"
)

func init() {
	rootCmd.AddCommand(trendCmd)
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Estimate the pressure trend once",
	Long: `Fetches the recent pressure history of the box and prints the trend
category the configured strategy classifies it as.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := stationConfig()
		if err != nil {
			return err
		}

		timeout := time.Duration(viper.GetInt("client-timeout")) * 2 * time.Second

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		category, value, err := app.EstimateOnce(ctx, config)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s %.3f)\n", category, config.TrendStrategy, value)

		return nil
	},
}
