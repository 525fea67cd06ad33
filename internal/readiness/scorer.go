package readiness

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/skills-gap/internal/gap"
	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	coverageWeight  = 0.6
	readinessWeight = 0.4
	maxPercent      = 100

	DefaultMaxTrainingPerCandidate = 3
)

// bucketQuality is the readiness value of a matched candidate.
var bucketQuality = map[gap.Bucket]float64{
	gap.ReadyNow:    100,
	gap.Ready2Weeks: 80,
	gap.Ready4Weeks: 60,
}

// Options tunes report generation. Zero values fall back to defaults.
type Options struct {
	// MaxTrainingPerCandidate caps the training list of each candidate.
	MaxTrainingPerCandidate int `mapstructure:"max-training-per-candidate"`
	// HighDemandSkills adds a forward-looking action when a request asks
	// for any of them. Empty disables the action.
	HighDemandSkills []string `mapstructure:"high-demand-skills"`
}

// Scorer builds reports from classifier output.
type Scorer struct {
	opts Options
}

// NewScorer returns a scorer with opts applied.
func NewScorer(opts Options) *Scorer {
	if opts.MaxTrainingPerCandidate <= 0 {
		opts.MaxTrainingPerCandidate = DefaultMaxTrainingPerCandidate
	}
	return &Scorer{opts: opts}
}

// Score builds a report with default options.
func Score(analysis *gap.Analysis, requirements []workforce.Requirement) (*Report, error) {
	return NewScorer(Options{}).Score(analysis, requirements)
}

// Score turns an analysis into a report. requirements may be nil, in which
// case the set stored in the analysis is used; otherwise it must be the set
// the analysis was built from.
func (s *Scorer) Score(analysis *gap.Analysis, requirements []workforce.Requirement) (*Report, error) {
	if analysis == nil {
		return nil, errors.New("analysis is required")
	}

	reqs := requirements
	if len(reqs) == 0 {
		reqs = analysis.Requirements
	}
	if len(reqs) != len(analysis.Requirements) {
		return nil, fmt.Errorf("%w: %d requirements given, analysis was built from %d",
			workforce.ErrInvalidInput, len(reqs), len(analysis.Requirements))
	}
	if err := sameRequirements(reqs, analysis.Requirements); err != nil {
		return nil, err
	}

	report := &Report{
		AsOf:          analysis.AsOf,
		Requirements:  append([]workforce.Requirement(nil), reqs...),
		TeamSize:      analysis.TeamSize,
		NeedsNewHires: analysis.NeedsNewHires,
		Summary:       analysis.Summary,
		Candidates:    make([]CandidateScore, 0, len(analysis.Entries)),
	}

	for _, entry := range analysis.Entries {
		line := CandidateScore{
			ID:                   entry.Candidate.ID,
			Name:                 entry.Candidate.Name,
			Role:                 entry.Candidate.Role,
			Bucket:               entry.Bucket,
			MatchPercentage:      MatchPercentage(entry.MetCount, len(reqs)),
			EstimatedUpskillDays: entry.EstimatedUpskillDays,
			EstimatedReadyDate:   entry.EstimatedReadyDate,
			Reason:               entry.Reason,
		}
		if entry.Bucket.Trainable() {
			line.Training = s.trainingFor(entry)
		}
		report.Candidates = append(report.Candidates, line)
	}

	sort.SliceStable(report.Candidates, func(i, j int) bool {
		a, b := report.Candidates[i], report.Candidates[j]
		if a.Bucket.Rank() != b.Bucket.Rank() {
			return a.Bucket.Rank() < b.Bucket.Rank()
		}
		if a.MatchPercentage != b.MatchPercentage {
			return a.MatchPercentage > b.MatchPercentage
		}
		return a.ID < b.ID
	})

	report.ConfidenceScore = ConfidenceScore(
		analysis.Count(gap.ReadyNow),
		analysis.Count(gap.Ready2Weeks),
		analysis.Count(gap.Ready4Weeks),
		analysis.TeamSize,
	)
	report.Actions = s.actions(report)

	return report, nil
}

// sameRequirements checks that given matches the analysed set by skill key,
// minimum level and mandatory flag, in any order.
func sameRequirements(given, analysed []workforce.Requirement) error {
	index := make(map[string]workforce.Requirement, len(analysed))
	for _, r := range analysed {
		index[workforce.SkillKey(r.Name)] = r
	}
	for _, r := range given {
		a, ok := index[workforce.SkillKey(r.Name)]
		if !ok {
			return fmt.Errorf("%w: requirement %q is not part of the analysis", workforce.ErrInvalidInput, r.Name)
		}
		if a.MinLevel != r.MinLevel || a.Mandatory != r.Mandatory {
			return fmt.Errorf("%w: requirement %q differs from the analysed one", workforce.ErrInvalidInput, r.Name)
		}
		delete(index, workforce.SkillKey(r.Name))
	}
	return nil
}

// MatchPercentage returns round(100 x met / total), clamped to [0, 100].
func MatchPercentage(met, total int) int {
	if total <= 0 || met <= 0 {
		return 0
	}
	if met >= total {
		return maxPercent
	}
	return int(math.Round(maxPercent * float64(met) / float64(total)))
}

// ConfidenceScore blends team coverage (60%) with the bucket quality of the
// matched candidates (40%). It is 0 when nobody matched.
func ConfidenceScore(readyNow, ready2Weeks, ready4Weeks, teamSize int) int {
	matched := readyNow + ready2Weeks + ready4Weeks
	if matched <= 0 {
		return 0
	}

	coverage := 0.0
	if teamSize > 0 {
		coverage = math.Min(maxPercent, maxPercent*float64(matched)/float64(teamSize))
	}

	readinessScore := (float64(readyNow)*bucketQuality[gap.ReadyNow] +
		float64(ready2Weeks)*bucketQuality[gap.Ready2Weeks] +
		float64(ready4Weeks)*bucketQuality[gap.Ready4Weeks]) / float64(matched)

	score := int(math.Round(coverageWeight*coverage + readinessWeight*readinessScore))
	return min(maxPercent, max(0, score))
}

func effortFor(g gap.RequirementGap) Effort {
	if g.Missing() {
		return ComprehensiveTraining
	}
	switch g.Severity {
	case gap.BelowByOne:
		return QuickUpskill
	case gap.BelowByTwo:
		return ExtendedTraining
	default:
		return ComprehensiveTraining
	}
}

// trainingFor lists the unmet requirements of a trainable candidate,
// mandatory ones first, deduplicated and capped.
func (s *Scorer) trainingFor(entry gap.Entry) []TrainingRecommendation {
	gaps := append([]gap.RequirementGap(nil), entry.Gaps...)
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Requirement.Mandatory && !gaps[j].Requirement.Mandatory
	})

	seen := make(map[string]struct{}, len(gaps))
	out := make([]TrainingRecommendation, 0, min(len(gaps), s.opts.MaxTrainingPerCandidate))
	for _, g := range gaps {
		key := workforce.SkillKey(g.Requirement.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, TrainingRecommendation{
			Skill:     g.Requirement.Name,
			Have:      g.Have,
			Need:      g.Requirement.MinLevel,
			Mandatory: g.Requirement.Mandatory,
			Effort:    effortFor(g),
		})
		if len(out) == s.opts.MaxTrainingPerCandidate {
			break
		}
	}

	return out
}
