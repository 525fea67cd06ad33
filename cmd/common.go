package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/skills-gap/internal/repository"
	"github.com/spigell/skills-gap/internal/secrets"
	"github.com/spigell/skills-gap/internal/training"
)

// openStore opens the configured repository backend. The postgres DSN is
// resolved through the secrets loader so it can live in a file.
func openStore(ctx context.Context, config *Config, logger *zap.Logger) (repository.Store, error) {
	rc := config.Repository
	rc.Driver = strings.ToLower(strings.TrimSpace(rc.Driver))

	if rc.Driver == repository.DriverPostgres {
		dsnFile := strings.TrimSpace(config.DSNFile)
		if dsnFile == "" {
			dsnFile = strings.TrimSpace(viper.GetString("dsn-file"))
		}

		dsn, err := secrets.Load(secrets.Source{
			Name:  "database dsn",
			File:  dsnFile,
			Env:   "SKILLS_GAP_DSN",
			Value: rc.DSN,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set repository.dsn, dsn-file or SKILLS_GAP_DSN_FILE)", err)
		}
		rc.DSN = dsn
	}

	store, err := repository.Open(ctx, rc)
	if err != nil {
		return nil, err
	}

	driver := rc.Driver
	if driver == "" {
		driver = repository.DriverFile
	}
	logger.Debug("repository opened", zap.String("driver", driver), zap.String("path", rc.Path))

	return store, nil
}

func loadCatalog(config *Config) (*training.Catalog, error) {
	if path := strings.TrimSpace(config.TrainingCatalog); path != "" {
		return training.LoadFile(path)
	}
	return training.Default(), nil
}

// encode writes v in the configured output format.
func encode(w io.Writer, format string, v any) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
