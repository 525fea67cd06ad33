package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skills-gap/internal/workforce"
)

type excludedCandidatesFilter struct {
	toggle
	ids []string
}

// NewExcludedCandidates creates a filter that removes candidates by the ids configured in the config.
func NewExcludedCandidates() Filter {
	return &excludedCandidatesFilter{}
}

func (f *excludedCandidatesFilter) Name() string { return "excluded_candidates" }

func (f *excludedCandidatesFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg == nil {
		return nil
	}
	for _, id := range cfg.ExcludedCandidates {
		if id = strings.TrimSpace(id); id != "" {
			f.ids = append(f.ids, id)
		}
	}
	return nil
}

func (f *excludedCandidatesFilter) Apply(_ context.Context, deps Deps, p *workforce.Pool) (*workforce.Pool, Step, error) {
	initial := p.Len()
	if len(f.ids) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Exclude(workforce.CandidateIDField, f.ids)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding candidates by config",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *excludedCandidatesFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["candidates"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
