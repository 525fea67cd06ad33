package readiness

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/skills-gap/internal/gap"
	"github.com/spigell/skills-gap/internal/workforce"
)

const (
	namesInDeployAction     = 3
	skillsInFastTrackAction = 2
	weeksPerExtensionStep   = 2
)

// actions returns the recommended directives in a fixed order:
// ready, trainable, hiring, schedule, then the optional demand note.
func (s *Scorer) actions(r *Report) []string {
	var out []string

	ready := r.Bucket(gap.ReadyNow)
	fast := r.Bucket(gap.Ready2Weeks)
	slow := r.Bucket(gap.Ready4Weeks)

	if len(ready) > 0 {
		out = append(out, fmt.Sprintf("Deploy %s immediately (%d ready now)",
			strings.Join(displayNames(ready, namesInDeployAction), ", "), len(ready)))
	}

	if len(fast) > 0 {
		skills := trainingSkills(fast, skillsInFastTrackAction)
		if len(skills) == 0 {
			out = append(out, fmt.Sprintf("Fast-track %s (2-week timeline, certification renewal only)", plural(len(fast), "candidate")))
		} else {
			out = append(out, fmt.Sprintf("Fast-track training for %s: %s", plural(len(fast), "candidate"), strings.Join(skills, ", ")))
		}
	}

	if len(slow) > 0 {
		out = append(out, fmt.Sprintf("Start comprehensive upskilling for %s (4-week timeline)", plural(len(slow), "candidate")))
	}

	if r.NeedsNewHires > 0 {
		out = append(out, fmt.Sprintf("Initiate external hiring for %s", plural(r.NeedsNewHires, "position")))
	}

	internal := len(ready) + len(fast)
	if internal >= r.TeamSize {
		out = append(out, fmt.Sprintf("Project can start on schedule with %s", plural(internal, "internal resource")))
	} else {
		shortfall := r.TeamSize - internal
		weeks := int(math.Ceil(float64(shortfall)/weeksPerExtensionStep)) * weeksPerExtensionStep
		out = append(out, fmt.Sprintf("Consider extending the timeline by %d weeks: %d of %d open seats can be filled by 4-week candidates",
			weeks, min(shortfall, len(slow)), shortfall))
	}

	if hot := s.highDemand(r.Requirements); len(hot) > 0 {
		out = append(out, fmt.Sprintf("High-demand skills requested (%s): train additional people in this combination for future requests",
			strings.Join(hot, ", ")))
	}

	return out
}

func (s *Scorer) highDemand(reqs []workforce.Requirement) []string {
	if len(s.opts.HighDemandSkills) == 0 {
		return nil
	}
	hot := make(map[string]struct{}, len(s.opts.HighDemandSkills))
	for _, name := range s.opts.HighDemandSkills {
		hot[workforce.SkillKey(name)] = struct{}{}
	}

	var out []string
	for _, req := range reqs {
		if _, ok := hot[workforce.SkillKey(req.Name)]; ok {
			out = append(out, req.Name)
		}
	}
	return out
}

func displayNames(lines []CandidateScore, limit int) []string {
	out := make([]string, 0, min(limit, len(lines)))
	for _, l := range lines[:min(limit, len(lines))] {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			name = l.ID
		}
		out = append(out, name)
	}
	return out
}

func trainingSkills(lines []CandidateScore, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lines {
		for _, t := range l.Training {
			key := workforce.SkillKey(t.Skill)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t.Skill)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
