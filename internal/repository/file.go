package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/skills-gap/internal/workforce"
)

const dateLayout = "2006-01-02"

// FileRepository serves a pool read from a YAML or JSON document. It is
// read-only.
type FileRepository struct {
	path       string
	candidates []workforce.Candidate
	demand     map[string]Demand
}

// Demand is the baseline demand of one skill.
type Demand struct {
	Skill  string `json:"skill" yaml:"skill" mapstructure:"skill"`
	Demand int    `json:"demand" yaml:"demand" mapstructure:"demand"`
}

type rawDocument struct {
	Candidates []rawCandidate `mapstructure:"candidates"`
	Demand     []Demand       `mapstructure:"demand"`
}

type rawCandidate struct {
	ID             string             `mapstructure:"id"`
	Name           string             `mapstructure:"name"`
	Role           string             `mapstructure:"role"`
	Skills         any                `mapstructure:"skills"`
	Certifications []rawCertification `mapstructure:"certifications"`
}

type rawSkill struct {
	Name  string `mapstructure:"name"`
	Level any    `mapstructure:"level"`
}

type rawCertification struct {
	Name      string `mapstructure:"name"`
	Issuer    string `mapstructure:"issuer"`
	ExpiresAt any    `mapstructure:"expires_at"`
}

// LoadFile reads and normalizes the document at path. Skills are either a
// list of {name, level} or a map of name to level; levels may use any form
// workforce.ParseLevel accepts.
func LoadFile(path string) (*FileRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: candidates file path is empty", workforce.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates file: %w", err)
	}

	repo, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	repo.path = path

	return repo, nil
}

// ParseDocument decodes a YAML or JSON document.
func ParseDocument(data []byte) (*FileRepository, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", workforce.ErrInvalidInput, err)
	}

	var doc rawDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(tree); err != nil {
		return nil, fmt.Errorf("%w: %v", workforce.ErrInvalidInput, err)
	}

	repo := &FileRepository{
		candidates: make([]workforce.Candidate, 0, len(doc.Candidates)),
		demand:     make(map[string]Demand, len(doc.Demand)),
	}

	for i, raw := range doc.Candidates {
		c, err := raw.normalize()
		if err != nil {
			return nil, fmt.Errorf("candidate #%d (%s): %w", i, raw.ID, err)
		}
		repo.candidates = append(repo.candidates, c)
	}
	if err := workforce.ValidateCandidates(repo.candidates); err != nil {
		return nil, err
	}

	for _, d := range doc.Demand {
		key := workforce.SkillKey(d.Skill)
		if key == "" || d.Demand < 0 {
			return nil, fmt.Errorf("%w: bad demand entry %q=%d", workforce.ErrInvalidInput, d.Skill, d.Demand)
		}
		repo.demand[key] = d
	}

	return repo, nil
}

func (r rawCandidate) normalize() (workforce.Candidate, error) {
	c := workforce.Candidate{
		ID:   strings.TrimSpace(r.ID),
		Name: strings.TrimSpace(r.Name),
		Role: strings.TrimSpace(r.Role),
	}

	skills, err := decodeSkills(r.Skills)
	if err != nil {
		return c, err
	}
	for _, s := range skills {
		level, err := workforce.ParseLevel(s.Level)
		if err != nil {
			return c, fmt.Errorf("skill %q: %w", s.Name, err)
		}
		c.Skills = append(c.Skills, workforce.Skill{Name: strings.TrimSpace(s.Name), Level: level})
	}

	for _, raw := range r.Certifications {
		expires, err := parseDate(raw.ExpiresAt)
		if err != nil {
			return c, fmt.Errorf("certification %q: %w", raw.Name, err)
		}
		c.Certifications = append(c.Certifications, workforce.Certification{
			Name:      strings.TrimSpace(raw.Name),
			Issuer:    strings.TrimSpace(raw.Issuer),
			ExpiresAt: expires,
		})
	}

	return c, nil
}

func decodeSkills(v any) ([]rawSkill, error) {
	switch skills := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		names := make([]string, 0, len(skills))
		for name := range skills {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make([]rawSkill, 0, len(names))
		for _, name := range names {
			out = append(out, rawSkill{Name: name, Level: skills[name]})
		}
		return out, nil
	default:
		var out []rawSkill
		if err := mapstructure.WeakDecode(v, &out); err != nil {
			return nil, fmt.Errorf("%w: skills: %v", workforce.ErrInvalidInput, err)
		}
		return out, nil
	}
}

// parseDate accepts a YAML timestamp, 2006-01-02 or RFC 3339.
func parseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.Parse(dateLayout, s); err == nil {
			return d, nil
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return d.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("%w: unsupported date %q", workforce.ErrInvalidInput, s)
	case nil:
		return time.Time{}, fmt.Errorf("%w: expiry date is missing", workforce.ErrInvalidInput)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported date %v", workforce.ErrInvalidInput, v)
	}
}

// Path returns the source document.
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Candidates(_ context.Context) ([]workforce.Candidate, error) {
	return append([]workforce.Candidate(nil), r.candidates...), nil
}

func (r *FileRepository) BaselineDemand(_ context.Context, skill string) (int, bool, error) {
	d, ok := r.demand[workforce.SkillKey(skill)]
	return d.Demand, ok, nil
}

// Demand lists every demand entry ordered by skill.
func (r *FileRepository) Demand() []Demand {
	out := make([]Demand, 0, len(r.demand))
	for _, d := range r.demand {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return workforce.SkillKey(out[i].Skill) < workforce.SkillKey(out[j].Skill)
	})
	return out
}

func (r *FileRepository) SaveSnapshot(_ context.Context, _ Snapshot) error {
	return fmt.Errorf("file repository: %w", ErrUnsupported)
}

func (r *FileRepository) Close() error {
	return nil
}
