package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	sglogger "github.com/spigell/skills-gap/internal/logger"
	"github.com/spigell/skills-gap/internal/repository"
)

type snapshotLister interface {
	Snapshots(ctx context.Context, requestID string) ([]repository.Snapshot, error)
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored report snapshots",
	Run: func(cmd *cobra.Command, _ []string) {
		snapshots(cmd)
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)

	snapshotsCmd.Flags().StringP("request", "r", "", "only snapshots of this request id")
}

func snapshots(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := sglogger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening repository", zap.Error(err))
	}
	defer store.Close()

	lister, ok := store.(snapshotLister)
	if !ok {
		logger.Fatal("listing snapshots", zap.Error(repository.ErrUnsupported))
	}

	requestID, _ := cmd.Flags().GetString("request")
	items, err := lister.Snapshots(ctx, requestID)
	if err != nil {
		logger.Fatal("listing snapshots", zap.Error(err))
	}

	logger.Info("snapshots found", zap.Int("count", len(items)))

	if err := encode(os.Stdout, config.Output, items); err != nil {
		logger.Fatal("printing snapshots", zap.Error(err))
	}
}
