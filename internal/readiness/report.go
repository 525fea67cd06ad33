// Package readiness turns a gap analysis into a report: per-candidate match
// percentages, training recommendations, an aggregate confidence score,
// recommended actions and a coarse demand forecast.
package readiness

import (
	"time"

	"github.com/spigell/skills-gap/internal/gap"
	"github.com/spigell/skills-gap/internal/workforce"
)

// Effort labels the upskill effort needed for one skill.
type Effort string

const (
	QuickUpskill          Effort = "Quick Upskill"
	ExtendedTraining      Effort = "Extended Training"
	ComprehensiveTraining Effort = "Comprehensive Training"
)

// TrainingRecommendation is one skill a trainable candidate should work on.
type TrainingRecommendation struct {
	Skill     string          `json:"skill" yaml:"skill"`
	Have      workforce.Level `json:"have" yaml:"have"`
	Need      workforce.Level `json:"need" yaml:"need"`
	Mandatory bool            `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Effort    Effort          `json:"effort" yaml:"effort"`
	// Resource is filled by the host from the training catalog.
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// CandidateScore is the per-candidate line of a report.
type CandidateScore struct {
	ID                   string                   `json:"id" yaml:"id"`
	Name                 string                   `json:"name" yaml:"name"`
	Role                 string                   `json:"role,omitempty" yaml:"role,omitempty"`
	Bucket               gap.Bucket               `json:"bucket" yaml:"bucket"`
	MatchPercentage      int                      `json:"match_percentage" yaml:"match_percentage"`
	EstimatedUpskillDays int                      `json:"estimated_upskill_days,omitempty" yaml:"estimated_upskill_days,omitempty"`
	EstimatedReadyDate   *time.Time               `json:"estimated_ready_date,omitempty" yaml:"estimated_ready_date,omitempty"`
	Reason               gap.Reason               `json:"reason" yaml:"reason"`
	Training             []TrainingRecommendation `json:"training,omitempty" yaml:"training,omitempty"`
}

// Report is the final, immutable output of the engine.
type Report struct {
	AsOf            time.Time               `json:"as_of" yaml:"as_of"`
	Requirements    []workforce.Requirement `json:"requirements" yaml:"requirements"`
	TeamSize        int                     `json:"team_size" yaml:"team_size"`
	NeedsNewHires   int                     `json:"needs_new_hires" yaml:"needs_new_hires"`
	Summary         gap.Summary             `json:"summary" yaml:"summary"`
	ConfidenceScore int                     `json:"confidence_score" yaml:"confidence_score"`
	Candidates      []CandidateScore        `json:"candidates" yaml:"candidates"`
	Actions         []string                `json:"actions" yaml:"actions"`
}

// Bucket returns the report lines in bucket b, in report order.
func (r *Report) Bucket(b gap.Bucket) []CandidateScore {
	var out []CandidateScore
	for _, c := range r.Candidates {
		if c.Bucket == b {
			out = append(out, c)
		}
	}
	return out
}

// TrainableCandidates returns the Ready2Weeks and Ready4Weeks lines. This is
// the list a notification dispatcher is invoked with.
func (r *Report) TrainableCandidates() []CandidateScore {
	var out []CandidateScore
	for _, c := range r.Candidates {
		if c.Bucket.Trainable() {
			out = append(out, c)
		}
	}
	return out
}
