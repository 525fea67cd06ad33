// Package gap partitions a candidate pool against a requirement set into
// readiness buckets and estimates the hiring shortfall.
package gap

import (
	"time"

	"github.com/spigell/skills-gap/internal/workforce"
)

// Bucket is one of the four mutually exclusive readiness classifications.
type Bucket string

const (
	ReadyNow    Bucket = "ready_now"
	Ready2Weeks Bucket = "ready_2weeks"
	Ready4Weeks Bucket = "ready_4weeks"
	Missing     Bucket = "missing"
)

// Buckets lists every bucket from best to worst.
var Buckets = []Bucket{ReadyNow, Ready2Weeks, Ready4Weeks, Missing}

// Trainable reports whether the bucket carries a training timeline.
func (b Bucket) Trainable() bool {
	return b == Ready2Weeks || b == Ready4Weeks
}

// Rank orders buckets from best (0) to worst.
func (b Bucket) Rank() int {
	for i, bucket := range Buckets {
		if bucket == b {
			return i
		}
	}
	return len(Buckets)
}

// Severity describes how far a candidate is from one requirement.
type Severity int

const (
	Met Severity = iota
	BelowByOne
	BelowByTwo
	FarBelow
)

func (s Severity) String() string {
	switch s {
	case Met:
		return "met"
	case BelowByOne:
		return "below_by_one"
	case BelowByTwo:
		return "below_by_two"
	default:
		return "far_below"
	}
}

// MarshalText keeps severities readable in JSON and YAML reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SkillGap is a requirement the candidate holds below the needed level.
type SkillGap struct {
	Name string          `json:"name" yaml:"name"`
	Have workforce.Level `json:"have" yaml:"have"`
	Need workforce.Level `json:"need" yaml:"need"`
}

// RequirementGap is an unmet requirement with its severity.
type RequirementGap struct {
	Requirement workforce.Requirement `json:"requirement" yaml:"requirement"`
	Have        workforce.Level       `json:"have" yaml:"have"`
	Severity    Severity              `json:"severity" yaml:"severity"`
}

// Missing reports whether the candidate lacks the skill entirely.
func (g RequirementGap) Missing() bool {
	return g.Have == workforce.LevelNone
}

// Reason carries the structured explanation of a classification.
type Reason struct {
	MissingSkills    []string   `json:"missing_skills,omitempty" yaml:"missing_skills,omitempty"`
	BelowLevelSkills []SkillGap `json:"below_level_skills,omitempty" yaml:"below_level_skills,omitempty"`
	ExpiringCerts    []string   `json:"expiring_certs,omitempty" yaml:"expiring_certs,omitempty"`
	HasExpiredCert   bool       `json:"has_expired_cert,omitempty" yaml:"has_expired_cert,omitempty"`
}

// Entry is the classification result for one candidate.
type Entry struct {
	Candidate            workforce.Candidate `json:"candidate" yaml:"candidate"`
	Bucket               Bucket              `json:"bucket" yaml:"bucket"`
	Reason               Reason              `json:"reason" yaml:"reason"`
	MetCount             int                 `json:"met_count" yaml:"met_count"`
	Gaps                 []RequirementGap    `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	EstimatedUpskillDays int                 `json:"estimated_upskill_days,omitempty" yaml:"estimated_upskill_days,omitempty"`
	EstimatedReadyDate   *time.Time          `json:"estimated_ready_date,omitempty" yaml:"estimated_ready_date,omitempty"`
}

// Summary holds the aggregate counts of an analysis.
type Summary struct {
	TotalEmployees     int `json:"total_employees" yaml:"total_employees"`
	ReadyCount         int `json:"ready_count" yaml:"ready_count"`
	TrainableCount     int `json:"trainable_count" yaml:"trainable_count"`
	MissingCount       int `json:"missing_count" yaml:"missing_count"`
	ExpiringCertsCount int `json:"expiring_certs_count" yaml:"expiring_certs_count"`
}

// Analysis is the immutable classifier output.
type Analysis struct {
	AsOf          time.Time               `json:"as_of" yaml:"as_of"`
	WindowDays    int                     `json:"window_days" yaml:"window_days"`
	Requirements  []workforce.Requirement `json:"requirements" yaml:"requirements"`
	Entries       []Entry                 `json:"entries" yaml:"entries"`
	TeamSize      int                     `json:"team_size" yaml:"team_size"`
	NeedsNewHires int                     `json:"needs_new_hires" yaml:"needs_new_hires"`
	Summary       Summary                 `json:"summary" yaml:"summary"`
}

// Bucket returns the entries assigned to b in input order.
func (a *Analysis) Bucket(b Bucket) []Entry {
	var out []Entry
	for _, e := range a.Entries {
		if e.Bucket == b {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries in b.
func (a *Analysis) Count(b Bucket) int {
	n := 0
	for _, e := range a.Entries {
		if e.Bucket == b {
			n++
		}
	}
	return n
}

// Trainable returns the Ready2Weeks and Ready4Weeks entries in input order.
func (a *Analysis) Trainable() []Entry {
	var out []Entry
	for _, e := range a.Entries {
		if e.Bucket.Trainable() {
			out = append(out, e)
		}
	}
	return out
}

// Matched is the number of candidates in any non-Missing bucket.
func (a *Analysis) Matched() int {
	return len(a.Entries) - a.Count(Missing)
}
