package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/skills-gap/internal/ai"
	"github.com/spigell/skills-gap/internal/ai/gemini"
	"github.com/spigell/skills-gap/internal/filtering"
	"github.com/spigell/skills-gap/internal/gap"
	sglogger "github.com/spigell/skills-gap/internal/logger"
	"github.com/spigell/skills-gap/internal/notify"
	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/repository"
	"github.com/spigell/skills-gap/internal/secrets"
	"github.com/spigell/skills-gap/internal/training"
	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	PromptShowReport       = "Show report"
	PromptNotify           = "Notify trainable candidates"
	PromptCandidatesToFile = "Dump candidates to file"
	PromptExcludeMissing   = "Append missing candidates to exclude file"
	PromptExit             = "Exit"
	excludeReasonMissing   = "missing for every analysed request"
	drafterGemini          = "gemini"
	drafterTemplate        = "template"
)

var errExit = errors.New("exit requested")

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify the candidate pool against the configured skill requests",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolP("auto-approve", "y", false, "notify trainable candidates without asking and exit")
	analyzeCmd.Flags().StringP("exclude-file", "e", "", "special file with candidates to exclude. Default is unset.")
	analyzeCmd.Flags().StringSlice("request", nil, "analyse only the requests with these ids")

	viper.BindPFlag("exclude-file", analyzeCmd.Flags().Lookup("exclude-file"))
}

// RequestReport is the readiness report of one skill request.
type RequestReport struct {
	ID     string            `json:"id" yaml:"id"`
	Report *readiness.Report `json:"report" yaml:"report"`
}

// AnalysisOutput is printed by the analyze command.
type AnalysisOutput struct {
	AsOf                 time.Time              `json:"as_of" yaml:"as_of"`
	Candidates           int                    `json:"candidates" yaml:"candidates"`
	Requests             []RequestReport        `json:"requests" yaml:"requests"`
	ExpiringCertificates []gap.CertificateAlert `json:"expiring_certificates,omitempty" yaml:"expiring_certificates,omitempty"`
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := sglogger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the skills-gap analysis", zap.String("version", version))

	requests, err := selectRequests(config.Requests, flagStrings(cmd, "request"))
	if err != nil {
		logger.Fatal("selecting skill requests", zap.Error(err))
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening repository", zap.Error(err))
	}
	defer store.Close()

	candidates, err := store.Candidates(ctx)
	if err != nil {
		logger.Fatal("loading candidates", zap.Error(err))
	}
	logger.Info("loaded candidates", zap.Int(sglogger.FieldCandidates, len(candidates)))

	pool, err := filtering.Run(ctx, config.filteringConfig(), filtering.Deps{Logger: logger}, filtering.Default(), workforce.NewPool(candidates))
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	catalog, err := loadCatalog(config)
	if err != nil {
		logger.Fatal("loading training catalog", zap.Error(err))
	}

	output, err := analyzeRequests(ctx, config, requests, pool.Candidates(), catalog, time.Now)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	for _, r := range output.Requests {
		sglogger.WithRequest(logger, r.ID, r.Report.Summary.TotalEmployees).Info("request analysed",
			zap.Int("ready", r.Report.Summary.ReadyCount),
			zap.Int("trainable", r.Report.Summary.TrainableCount),
			zap.Int("missing", r.Report.Summary.MissingCount),
			zap.Int("needs_new_hires", r.Report.NeedsNewHires),
			zap.Int("confidence", r.Report.ConfidenceScore),
		)
	}

	if err := encode(os.Stdout, config.Output, output); err != nil {
		logger.Fatal("printing report", zap.Error(err))
	}

	if config.Snapshots {
		saveSnapshots(ctx, store, output, logger)
	}

	autoApprove := cmd.Flag("auto-approve").Value.String() == "true"
	if autoApprove {
		if err := notifyAll(ctx, config, catalog, output, logger); err != nil {
			logger.Fatal("notifying candidates", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := menu(config).Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, config, catalog, pool, output, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func menu(config *Config) *promptui.Select {
	items := []string{PromptShowReport, PromptNotify, PromptCandidatesToFile}
	if excludeFile(config) != "" {
		items = append(items, PromptExcludeMissing)
	}
	return &promptui.Select{
		Label: "Proceed?",
		Items: append(items, PromptExit),
	}
}

func handleAction(ctx context.Context, action string, config *Config, catalog *training.Catalog, pool *workforce.Pool, output *AnalysisOutput, logger *zap.Logger) error {
	switch action {
	case PromptShowReport:
		return encode(os.Stdout, config.Output, output)
	case PromptNotify:
		return notifyAll(ctx, config, catalog, output, logger)
	case PromptCandidatesToFile:
		filename, err := pool.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump candidates to file: %w", err)
		}
		logger.Info("dumping candidates to file", zap.String("filename", filename))
		return nil
	case PromptExcludeMissing:
		return excludeMissing(excludeFile(config), pool, output, logger)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// analyzeRequests classifies and scores every request in parallel. Each
// request works on the same read-only candidate snapshot.
func analyzeRequests(ctx context.Context, config *Config, requests []RequestConfig, candidates []workforce.Candidate, catalog *training.Catalog, now func() time.Time) (*AnalysisOutput, error) {
	classifier := gap.New(config.Policy, gap.WithClock(now))
	scorer := readiness.NewScorer(config.Scoring)

	reports := make([]RequestReport, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			analysis, err := classifier.Classify(candidates, req.Requirements)
			if err != nil {
				return fmt.Errorf("request %q: %w", req.ID, err)
			}

			report, err := scorer.Score(analysis, req.Requirements)
			if err != nil {
				return fmt.Errorf("request %q: %w", req.ID, err)
			}

			if catalog != nil {
				catalog.Enrich(report)
			}

			reports[i] = RequestReport{ID: req.ID, Report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	window := classifier.Policy().ExpiryWindowDays
	return &AnalysisOutput{
		AsOf:                 now().UTC(),
		Candidates:           len(candidates),
		Requests:             reports,
		ExpiringCertificates: gap.ExpiringCertificates(candidates, window, now()),
	}, nil
}

// selectRequests validates request ids and narrows them to the selected ones.
func selectRequests(requests []RequestConfig, only []string) ([]RequestConfig, error) {
	if len(requests) == 0 {
		return nil, errors.New("at least one request is required under requests")
	}

	seen := make(map[string]struct{}, len(requests))
	for i := range requests {
		requests[i].ID = strings.TrimSpace(requests[i].ID)
		if requests[i].ID == "" {
			return nil, fmt.Errorf("request #%d: id is required", i+1)
		}
		if _, ok := seen[requests[i].ID]; ok {
			return nil, fmt.Errorf("request %q is defined twice", requests[i].ID)
		}
		seen[requests[i].ID] = struct{}{}
	}

	if len(only) == 0 {
		return requests, nil
	}

	selected := make([]RequestConfig, 0, len(only))
	for _, id := range only {
		found := false
		for _, req := range requests {
			if req.ID == strings.TrimSpace(id) {
				selected = append(selected, req)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("request %q is not configured", id)
		}
	}
	return selected, nil
}

func saveSnapshots(ctx context.Context, store repository.SnapshotStore, output *AnalysisOutput, logger *zap.Logger) {
	for _, r := range output.Requests {
		snapshot := repository.NewSnapshot(r.ID, r.Report, output.AsOf)
		err := store.SaveSnapshot(ctx, snapshot)
		switch {
		case errors.Is(err, repository.ErrUnsupported):
			logger.Warn("snapshots are not supported by the repository", zap.String("hint", "use the sqlite or postgres driver"))
			return
		case err != nil:
			logger.Error("saving snapshot", zap.String(sglogger.FieldRequestID, r.ID), zap.Error(err))
		default:
			logger.Info("snapshot saved",
				zap.String(sglogger.FieldRequestID, r.ID),
				zap.String("snapshot_id", snapshot.ID.String()),
			)
		}
	}
}

// missingEverywhere returns the candidates that are Missing for every request.
func missingEverywhere(pool *workforce.Pool, output *AnalysisOutput) *workforce.Pool {
	if len(output.Requests) == 0 {
		return workforce.NewPool(nil)
	}

	counts := make(map[string]int)
	for _, r := range output.Requests {
		for _, c := range r.Report.Bucket(gap.Missing) {
			counts[c.ID]++
		}
	}

	var missing []workforce.Candidate
	for _, c := range pool.Items {
		if counts[c.ID] == len(output.Requests) {
			missing = append(missing, *c)
		}
	}
	return workforce.NewPool(missing)
}

func excludeMissing(path string, pool *workforce.Pool, output *AnalysisOutput, logger *zap.Logger) error {
	missing := missingEverywhere(pool, output)
	if missing.Len() == 0 {
		logger.Info("no candidates to exclude")
		return nil
	}

	excluded, err := workforce.GetExcludedCandidatesFromFile(path)
	if err != nil {
		return err
	}

	excluded.Append(missing.ToExcluded(excludeReasonMissing))

	if err := excluded.ToFile(path); err != nil {
		return err
	}

	pool.Exclude(workforce.CandidateIDField, missing.IDs())
	logger.Info("appended to exclude file",
		zap.String("filename", path),
		zap.Strings("excluded_candidates", missing.IDs()),
	)
	return nil
}

func notifyAll(ctx context.Context, config *Config, catalog *training.Catalog, output *AnalysisOutput, logger *zap.Logger) error {
	cfg := config.Notify
	if cfg == nil {
		cfg = &NotifyConfig{}
	}

	drafter, err := newDrafter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building drafter: %w", err)
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
	if outbox := strings.TrimSpace(cfg.Outbox); outbox != "" {
		dispatcher = notify.NewOutboxDispatcher(outbox)
	}

	notifier := notify.NewNotifier(drafter, dispatcher, catalog, logger)

	var errs []error
	for _, r := range output.Requests {
		if _, err := notifier.Notify(ctx, r.ID, r.Report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newDrafter(ctx context.Context, cfg *NotifyConfig, logger *zap.Logger) (ai.Drafter, error) {
	switch provider := strings.TrimSpace(strings.ToLower(cfg.Drafter)); provider {
	case "", drafterTemplate:
		drafter, err := notify.NewTemplateDrafter(cfg.SubjectTemplate, cfg.BodyTemplate)
		if err != nil {
			return nil, err
		}
		return drafter, nil
	case drafterGemini:
		gcfg := cfg.Gemini
		if gcfg == nil {
			gcfg = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: gcfg.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set notify.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, logger)
		if err != nil {
			return nil, err
		}

		drafter := gemini.NewDrafter(generator, gcfg.MaxLogLength,
			sglogger.WithCommonFields(logger, drafterGemini, generator.Model()))
		drafter.SetPromptOverrides(gcfg.Prompt)
		return drafter, nil
	default:
		return nil, fmt.Errorf("unsupported drafter: %s", cfg.Drafter)
	}
}

func excludeFile(config *Config) string {
	if path := strings.TrimSpace(config.ExcludeFile); path != "" {
		return path
	}
	return strings.TrimSpace(viper.GetString("exclude-file"))
}

func flagStrings(cmd *cobra.Command, name string) []string {
	values, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		return nil
	}
	return values
}
