// Package workforce holds the strongly typed records the gap engine works on:
// skill requirements, candidates with their skills and certifications, and
// the candidate pool the host filters before analysis.
package workforce

import (
	"strings"
	"time"
)

// Level is a canonical proficiency level in the range 1..5.
// Zero means the skill is absent.
type Level int

const (
	LevelNone Level = 0
	LevelMin  Level = 1
	LevelMax  Level = 5
)

// Valid reports whether l is inside the canonical 1..5 range.
func (l Level) Valid() bool {
	return l >= LevelMin && l <= LevelMax
}

// Requirement is a named skill with a minimum proficiency level.
type Requirement struct {
	Name      string `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	MinLevel  Level  `json:"min_level" yaml:"min_level" mapstructure:"min-level" validate:"min=1,max=5"`
	Mandatory bool   `json:"mandatory" yaml:"mandatory" mapstructure:"mandatory"`
}

// Skill is a single skill a candidate holds.
type Skill struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Level Level  `json:"level" yaml:"level" validate:"min=1,max=5"`
}

// Certification is a credential with an expiry date.
type Certification struct {
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Issuer    string    `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// Candidate is a person evaluated against a requirement set.
type Candidate struct {
	ID             string          `json:"id" yaml:"id" validate:"required"`
	Name           string          `json:"name" yaml:"name"`
	Role           string          `json:"role,omitempty" yaml:"role,omitempty"`
	Skills         []Skill         `json:"skills,omitempty" yaml:"skills,omitempty" validate:"dive"`
	Certifications []Certification `json:"certifications,omitempty" yaml:"certifications,omitempty" validate:"dive"`
}

// SkillKey returns the lookup key used for case-insensitive skill matching.
func SkillKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LevelOf returns the candidate level for the named skill, or LevelNone.
func (c *Candidate) LevelOf(name string) Level {
	key := SkillKey(name)
	for _, skill := range c.Skills {
		if SkillKey(skill.Name) == key {
			return skill.Level
		}
	}
	return LevelNone
}

// SkillLevels indexes the candidate skills by lookup key.
func (c *Candidate) SkillLevels() map[string]Level {
	levels := make(map[string]Level, len(c.Skills))
	for _, skill := range c.Skills {
		levels[SkillKey(skill.Name)] = skill.Level
	}
	return levels
}
