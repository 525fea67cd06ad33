package workforce

import (
	"encoding/json"
	"os"
	"strings"
	"time"
)

const (
	CandidateIDField   = "ID"
	CandidateRoleField = "Role"
)

// Pool is the candidate snapshot handed to the filters and the classifier.
type Pool struct {
	Items []*Candidate
}

// NewPool copies the candidates into a pool.
func NewPool(candidates []Candidate) *Pool {
	items := make([]*Candidate, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		items = append(items, &c)
	}
	return &Pool{Items: items}
}

// Candidates returns a value copy of the pool contents.
func (p *Pool) Candidates() []Candidate {
	out := make([]Candidate, 0, len(p.Items))
	for _, c := range p.Items {
		out = append(out, *c)
	}
	return out
}

func (p *Pool) Len() int {
	return len(p.Items)
}

func (p *Pool) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, c := range p.Items {
		ids = append(ids, c.ID)
	}
	return ids
}

func (p *Pool) FindByID(id string) *Candidate {
	for _, c := range p.Items {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (c *Candidate) GetStringField(name string) string {
	switch name {
	case CandidateIDField:
		return c.ID
	case CandidateRoleField:
		return c.Role
	default:
		return ""
	}
}

// Exclude removes every candidate whose field equals one of targets and
// returns the removed ids. Role comparison ignores case.
func (p *Pool) Exclude(name string, targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx := 0; idx < len(p.Items); {
			c := p.Items[idx]
			if !fieldMatches(name, c.GetStringField(name), target) {
				idx++
				continue
			}
			p.RemoveByIndex(idx)
			excluded = append(excluded, c.ID)
		}
	}
	return excluded
}

// Keep removes every candidate whose field matches none of targets.
func (p *Pool) Keep(name string, targets []string) []string {
	var excluded []string
	for idx := 0; idx < len(p.Items); {
		c := p.Items[idx]
		keep := false
		for _, target := range targets {
			if fieldMatches(name, c.GetStringField(name), target) {
				keep = true
				break
			}
		}
		if keep {
			idx++
			continue
		}
		p.RemoveByIndex(idx)
		excluded = append(excluded, c.ID)
	}
	return excluded
}

func fieldMatches(name, value, target string) bool {
	if name == CandidateRoleField {
		return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(target))
	}
	return value == target
}

// RemoveByIndex removes the candidate at idx preserving order.
func (p *Pool) RemoveByIndex(idx int) {
	p.Items = append(p.Items[:idx], p.Items[idx+1:]...)
}

func (p *Pool) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ToExcluded converts the pool into exclude list entries.
func (p *Pool) ToExcluded(reason string) *ExcludedCandidates {
	excluded := &ExcludedCandidates{}
	now := time.Now().UTC()
	for _, c := range p.Items {
		excluded.Items = append(excluded.Items, &ExcludedCandidate{
			ID:         c.ID,
			Name:       c.Name,
			Reason:     reason,
			ExcludedAt: now,
		})
	}
	return excluded
}
