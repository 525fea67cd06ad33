package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	sglogger "github.com/spigell/skills-gap/internal/logger"
	"github.com/spigell/skills-gap/internal/repository"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load candidates and skill demand from a YAML or JSON file into the database",
	Run: func(cmd *cobra.Command, _ []string) {
		runImport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("from", "f", "", "YAML or JSON document with candidates and demand")
	importCmd.MarkFlagRequired("from")
}

func runImport(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := sglogger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	from, _ := cmd.Flags().GetString("from")
	source, err := repository.LoadFile(from)
	if err != nil {
		logger.Fatal("loading import file", zap.String("path", from), zap.Error(err))
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening repository", zap.Error(err))
	}
	defer store.Close()

	candidates, demand, err := importInto(ctx, source, store)
	if err != nil {
		logger.Fatal("importing", zap.Error(err))
	}

	logger.Info("import finished",
		zap.String("path", source.Path()),
		zap.Int(sglogger.FieldCandidates, candidates),
		zap.Int("demand", demand),
	)
}

// importInto replaces the store candidates with the file contents and
// upserts every demand baseline.
func importInto(ctx context.Context, source *repository.FileRepository, store repository.Store) (int, int, error) {
	w, ok := store.(repository.Writer)
	if !ok {
		return 0, 0, fmt.Errorf("import needs the sqlite or postgres driver: %w", repository.ErrUnsupported)
	}

	candidates, err := source.Candidates(ctx)
	if err != nil {
		return 0, 0, err
	}
	if err := w.ReplaceCandidates(ctx, candidates); err != nil {
		return 0, 0, fmt.Errorf("replacing candidates: %w", err)
	}

	var errs []error
	demand := source.Demand()
	for _, d := range demand {
		if err := w.SetDemand(ctx, d.Skill, d.Demand); err != nil {
			errs = append(errs, fmt.Errorf("demand for %q: %w", d.Skill, err))
		}
	}

	return len(candidates), len(demand), errors.Join(errs...)
}
