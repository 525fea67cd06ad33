package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/skills-gap/internal/ai/gemini"
	"github.com/spigell/skills-gap/internal/filtering"
	"github.com/spigell/skills-gap/internal/gap"
	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/repository"
	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	app = "skills-gap"

	outputYAML = "yaml"
	outputJSON = "json"
)

type Config struct {
	Repository      repository.Config `mapstructure:"repository"`
	DSNFile         string            `mapstructure:"dsn-file"`
	ExcludeFile     string            `mapstructure:"exclude-file"`
	TrainingCatalog string            `mapstructure:"training-catalog"`
	Output          string            `mapstructure:"output"`
	Snapshots       bool              `mapstructure:"snapshots"`
	Filters         *FiltersConfig    `mapstructure:"filters"`
	Policy          gap.Policy        `mapstructure:"policy"`
	Scoring         readiness.Options `mapstructure:"scoring"`
	Requests        []RequestConfig   `mapstructure:"requests"`
	Notify          *NotifyConfig     `mapstructure:"notify"`
}

type FiltersConfig struct {
	ExcludedCandidates []string `mapstructure:"excluded-candidates"`
	Roles              []string `mapstructure:"roles"`
}

// RequestConfig is one skill request analysed by the analyze command.
type RequestConfig struct {
	ID           string                  `mapstructure:"id"`
	Requirements []workforce.Requirement `mapstructure:"requirements"`
}

type NotifyConfig struct {
	// Drafter is either "template" (default) or "gemini".
	Drafter         string        `mapstructure:"drafter"`
	Outbox          string        `mapstructure:"outbox"`
	SubjectTemplate string        `mapstructure:"subject-template"`
	BodyTemplate    string        `mapstructure:"body-template"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string                 `mapstructure:"api-key-file"`
	Model        string                 `mapstructure:"model"`
	MaxLogLength int                    `mapstructure:"max-log-length"`
	Prompt       gemini.PromptOverrides `mapstructure:"prompt"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skills-gap classifies a candidate pool against skill requests and scores team readiness",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("dsn-file", "SKILLS_GAP_DSN_FILE"); err != nil {
		log.Fatalf("binding SKILLS_GAP_DSN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("notify.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skills-gap.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("output", "o", outputYAML, "output format for reports: yaml or json")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

func initConfig() {
	// The version command works without any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without an explicit --config the defaults and flags are enough.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

// setDefaults seeds the policy defaults so an explicit zero in the config
// file is kept as zero.
func setDefaults(v *viper.Viper) {
	defaults := gap.DefaultPolicy()
	v.SetDefault("policy.expiry-window-days", defaults.ExpiryWindowDays)
	v.SetDefault("policy.trainable-ratio", defaults.TrainableRatio)
	v.SetDefault("policy.days-per-gap", defaults.DaysPerGap)
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	config.Output = strings.ToLower(strings.TrimSpace(config.Output))
	if config.Output == "" {
		config.Output = outputYAML
	}
	if config.Output != outputYAML && config.Output != outputJSON {
		return config, errors.New("output must be yaml or json")
	}

	return config, nil
}

func (c *Config) filteringConfig() *filtering.Config {
	cfg := &filtering.Config{ExcludeFile: c.ExcludeFile}
	if c.Filters != nil {
		cfg.ExcludedCandidates = c.Filters.ExcludedCandidates
		cfg.Roles = c.Filters.Roles
	}
	return cfg
}
