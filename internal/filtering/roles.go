package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skills-gap/internal/workforce"
)

type rolesFilter struct {
	toggle
	roles []string
}

// NewRoles creates a filter that keeps only candidates holding one of the configured roles.
// With no roles configured every candidate passes.
func NewRoles() Filter {
	return &rolesFilter{}
}

func (f *rolesFilter) Name() string { return "roles" }

func (f *rolesFilter) Validate(cfg *Config) error {
	f.roles = nil
	if cfg == nil {
		return nil
	}
	for _, role := range cfg.Roles {
		if role = strings.TrimSpace(role); role != "" {
			f.roles = append(f.roles, role)
		}
	}
	return nil
}

func (f *rolesFilter) Apply(_ context.Context, deps Deps, p *workforce.Pool) (*workforce.Pool, Step, error) {
	initial := p.Len()
	if len(f.roles) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Keep(workforce.CandidateRoleField, f.roles)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding candidates outside configured roles",
			zap.Strings("roles", f.roles),
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *rolesFilter) Status() Status {
	details := map[string]string{}
	if len(f.roles) > 0 {
		details["roles"] = strings.Join(f.roles, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
