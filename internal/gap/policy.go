package gap

import (
	"fmt"
	"math"

	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	DefaultExpiryWindowDays = 90
	DefaultTrainableRatio   = 0.7
	DefaultDaysPerGap       = 7
	minDerivedTeamSize      = 2
	teamSizePerRequirement  = 2.0
)

// Policy holds the business constants of the classifier. Values are used as
// given; start from DefaultPolicy to get the defaults.
type Policy struct {
	// ExpiryWindowDays is the look-ahead for expiring certifications.
	ExpiryWindowDays int `mapstructure:"expiry-window-days"`
	// TrainableRatio is the share of requirements that must be met or
	// below-by-one for Ready4Weeks.
	TrainableRatio float64 `mapstructure:"trainable-ratio"`
	// DaysPerGap is the upskill estimate per missing or below-level skill.
	DaysPerGap int `mapstructure:"days-per-gap"`
	// TeamSize is the target team size. Zero derives it from the requirements.
	TeamSize int `mapstructure:"team-size"`
}

// DefaultPolicy returns the policy with every default applied.
func DefaultPolicy() Policy {
	return Policy{
		ExpiryWindowDays: DefaultExpiryWindowDays,
		TrainableRatio:   DefaultTrainableRatio,
		DaysPerGap:       DefaultDaysPerGap,
	}
}

// Validate rejects negative or out of range values.
func (p Policy) Validate() error {
	if p.ExpiryWindowDays < 0 {
		return fmt.Errorf("%w: expiry window must not be negative", workforce.ErrInvalidInput)
	}
	if p.TrainableRatio < 0 || p.TrainableRatio > 1 || math.IsNaN(p.TrainableRatio) {
		return fmt.Errorf("%w: trainable ratio must be within 0..1", workforce.ErrInvalidInput)
	}
	if p.DaysPerGap < 0 {
		return fmt.Errorf("%w: days per gap must not be negative", workforce.ErrInvalidInput)
	}
	if p.TeamSize < 0 {
		return fmt.Errorf("%w: team size must not be negative", workforce.ErrInvalidInput)
	}
	return nil
}

// TeamSizeFor returns the explicit team size or max(2, ceil(2 x requirements)).
func (p Policy) TeamSizeFor(requirements int) int {
	if p.TeamSize > 0 {
		return p.TeamSize
	}
	derived := int(math.Ceil(teamSizePerRequirement * float64(requirements)))
	return max(minDerivedTeamSize, derived)
}
