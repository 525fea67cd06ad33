package gap

import (
	"fmt"
	"time"

	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	hoursPerDay      = 24
	twoWeeks         = 14
	fourWeeks        = 28
	belowByOneMargin = 1
	belowByTwoMargin = 2
)

// Classifier assigns candidates to readiness buckets under a Policy.
type Classifier struct {
	policy Policy
	now    func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock fixes the notion of "today" used for certificate expiry and
// estimated ready dates.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a classifier using policy as given. A zero window means only
// certificates expiring today are reported.
func New(policy Policy, opts ...Option) *Classifier {
	c := &Classifier{
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective policy.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify is the package-level entry point using the default policy with
// the given expiry window.
func Classify(candidates []workforce.Candidate, requirements []workforce.Requirement, windowDays int) (*Analysis, error) {
	policy := DefaultPolicy()
	policy.ExpiryWindowDays = windowDays
	return New(policy).Classify(candidates, requirements)
}

// Classify validates its inputs and partitions candidates into buckets.
// An empty pool yields an analysis with empty buckets.
func (c *Classifier) Classify(candidates []workforce.Candidate, requirements []workforce.Requirement) (*Analysis, error) {
	if err := c.policy.Validate(); err != nil {
		return nil, err
	}
	if err := workforce.ValidateRequirements(requirements); err != nil {
		return nil, err
	}
	if err := workforce.ValidateCandidates(candidates); err != nil {
		return nil, fmt.Errorf("candidate pool: %w", err)
	}

	today := truncateDay(c.now())
	reqs := append([]workforce.Requirement(nil), requirements...)

	analysis := &Analysis{
		AsOf:         today,
		WindowDays:   c.policy.ExpiryWindowDays,
		Requirements: reqs,
		Entries:      make([]Entry, 0, len(candidates)),
		TeamSize:     c.policy.TeamSizeFor(len(reqs)),
	}

	for _, candidate := range candidates {
		entry := c.classifyOne(candidate, reqs, today)
		analysis.Entries = append(analysis.Entries, entry)
		analysis.Summary.ExpiringCertsCount += len(entry.Reason.ExpiringCerts)
	}

	ready := analysis.Count(ReadyNow)
	trainable := analysis.Count(Ready2Weeks) + analysis.Count(Ready4Weeks)

	analysis.Summary.TotalEmployees = len(candidates)
	analysis.Summary.ReadyCount = ready
	analysis.Summary.TrainableCount = trainable
	analysis.Summary.MissingCount = analysis.Count(Missing)
	analysis.NeedsNewHires = max(0, analysis.TeamSize-(ready+trainable))

	return analysis, nil
}

func (c *Classifier) classifyOne(candidate workforce.Candidate, reqs []workforce.Requirement, today time.Time) Entry {
	levels := candidate.SkillLevels()
	entry := Entry{Candidate: candidate}

	belowByOne := 0
	for _, req := range reqs {
		have := levels[workforce.SkillKey(req.Name)]
		severity := severityOf(have, req.MinLevel)

		switch severity {
		case Met:
			entry.MetCount++
			continue
		case BelowByOne:
			belowByOne++
		}

		entry.Gaps = append(entry.Gaps, RequirementGap{Requirement: req, Have: have, Severity: severity})
		if have == workforce.LevelNone {
			entry.Reason.MissingSkills = append(entry.Reason.MissingSkills, req.Name)
		} else {
			entry.Reason.BelowLevelSkills = append(entry.Reason.BelowLevelSkills, SkillGap{
				Name: req.Name,
				Have: have,
				Need: req.MinLevel,
			})
		}
	}

	entry.Reason.ExpiringCerts, entry.Reason.HasExpiredCert = certificateStatus(candidate, today, c.policy.ExpiryWindowDays)

	total := len(reqs)
	covered := entry.MetCount + belowByOne

	switch {
	case entry.MetCount == total && !entry.Reason.HasExpiredCert:
		entry.Bucket = ReadyNow
	case covered == total:
		entry.Bucket = Ready2Weeks
	case float64(covered) >= c.policy.TrainableRatio*float64(total):
		entry.Bucket = Ready4Weeks
	default:
		entry.Bucket = Missing
	}

	if entry.Bucket.Trainable() {
		entry.EstimatedUpskillDays = c.policy.DaysPerGap * len(entry.Gaps)
		weeks := twoWeeks
		if entry.Bucket == Ready4Weeks {
			weeks = fourWeeks
		}
		ready := today.AddDate(0, 0, weeks)
		entry.EstimatedReadyDate = &ready
	}

	return entry
}

func severityOf(have, need workforce.Level) Severity {
	switch {
	case have >= need:
		return Met
	case have >= need-belowByOneMargin:
		return BelowByOne
	case have >= need-belowByTwoMargin:
		return BelowByTwo
	default:
		return FarBelow
	}
}

// certificateStatus returns the names expiring within window days and
// whether any certificate already expired.
func certificateStatus(candidate workforce.Candidate, today time.Time, window int) ([]string, bool) {
	var expiring []string
	expired := false
	for _, cert := range candidate.Certifications {
		days := DaysUntil(today, cert.ExpiresAt)
		switch {
		case days < 0:
			expired = true
		case days <= window:
			expiring = append(expiring, cert.Name)
		}
	}
	return expiring, expired
}

// DaysUntil counts calendar days from today to the date of t, in UTC.
func DaysUntil(today, t time.Time) int {
	return int(truncateDay(t).Sub(truncateDay(today)).Hours() / hoursPerDay)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
