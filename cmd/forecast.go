package cmd

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	sglogger "github.com/spigell/skills-gap/internal/logger"
	"github.com/spigell/skills-gap/internal/readiness"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project monthly demand for a skill from its current baseline",
	Run: func(cmd *cobra.Command, _ []string) {
		forecast(cmd)
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().StringP("skill", "s", "", "skill to forecast")
	forecastCmd.Flags().IntP("months", "m", 12, "number of months to project")
	forecastCmd.MarkFlagRequired("skill")
}

func forecast(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := sglogger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	skill, _ := cmd.Flags().GetString("skill")
	months, _ := cmd.Flags().GetInt("months")

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening repository", zap.Error(err))
	}
	defer store.Close()

	result, err := readiness.NewForecaster(store, time.Now).Forecast(ctx, skill, months)
	if err != nil {
		logger.Fatal("forecasting demand", zap.Error(err))
	}

	logger.Debug("forecast ready",
		zap.String("skill", result.Skill),
		zap.Int("baseline", result.Baseline),
		zap.Int("points", len(result.Points)),
	)

	if err := encode(os.Stdout, config.Output, result); err != nil {
		logger.Fatal("printing forecast", zap.Error(err))
	}
}
