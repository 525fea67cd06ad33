// Package training maps skills to training resources and attaches the best
// resource to report recommendations.
package training

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/workforce"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"

	CostFree = "free"

	TypeTutorial      = "tutorial"
	TypeDocumentation = "documentation"
	TypeCertification = "certification"
)

// Resource is one course, certification or tutorial.
type Resource struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Provider string `yaml:"provider" json:"provider"`
	Type     string `yaml:"type" json:"type"`
	Level    string `yaml:"level" json:"level"`
	Duration string `yaml:"duration,omitempty" json:"duration,omitempty"`
	Cost     string `yaml:"cost" json:"cost"`
}

func (r Resource) String() string {
	return fmt.Sprintf("%s <%s>", r.Name, r.URL)
}

type catalogFile struct {
	Fallback []Resource `yaml:"fallback"`
	Skills   []struct {
		Skill     string     `yaml:"skill"`
		Resources []Resource `yaml:"resources"`
	} `yaml:"skills"`
}

type entry struct {
	skill     string
	words     []string
	resources []Resource
}

// Catalog is an ordered skill to resources map.
type Catalog struct {
	entries  []entry
	index    map[string]int
	fallback []Resource
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog shipped with the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("embedded training catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a catalog in the embedded format from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read training catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode training catalog: %w", err)
	}
	if len(file.Fallback) == 0 {
		return nil, fmt.Errorf("training catalog has no fallback resources")
	}

	c := &Catalog{
		index:    make(map[string]int, len(file.Skills)),
		fallback: file.Fallback,
	}
	for _, s := range file.Skills {
		key := workforce.SkillKey(s.Skill)
		if key == "" || len(s.Resources) == 0 {
			return nil, fmt.Errorf("training catalog: skill %q has no name or resources", s.Skill)
		}
		if _, ok := c.index[key]; ok {
			return nil, fmt.Errorf("training catalog: skill %q listed twice", s.Skill)
		}
		c.index[key] = len(c.entries)
		c.entries = append(c.entries, entry{
			skill:     s.Skill,
			words:     strings.Fields(key),
			resources: s.Resources,
		})
	}

	return c, nil
}

// Skills lists the catalog skills in file order.
func (c *Catalog) Skills() []string {
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.skill)
	}
	return out
}

// Resources returns the resources for skill. Lookup is case-insensitive,
// then by whole-word containment either way ("AWS Lambda" finds AWS), then
// the fallback list.
func (c *Catalog) Resources(skill string) []Resource {
	key := workforce.SkillKey(skill)
	if i, ok := c.index[key]; ok {
		return c.entries[i].resources
	}

	words := strings.Fields(key)
	for _, e := range c.entries {
		if containsWords(words, e.words) || containsWords(e.words, words) {
			return e.resources
		}
	}

	return c.fallback
}

// Best picks one resource for reaching level need: resources matching the
// level band first, then free ones, then tutorials and documentation.
func (c *Catalog) Best(skill string, need workforce.Level) Resource {
	resources := c.Resources(skill)

	band := bandFor(need)
	var pool []Resource
	for _, r := range resources {
		if r.Level == band {
			pool = append(pool, r)
		}
	}
	if len(pool) == 0 {
		pool = resources
	}

	for _, r := range pool {
		if r.Cost == CostFree {
			return r
		}
	}
	for _, r := range pool {
		if r.Type == TypeTutorial || r.Type == TypeDocumentation {
			return r
		}
	}
	return pool[0]
}

// Enrich fills the Resource of every training recommendation in report.
func (c *Catalog) Enrich(report *readiness.Report) {
	if report == nil {
		return
	}
	for i := range report.Candidates {
		training := report.Candidates[i].Training
		for j := range training {
			training[j].Resource = c.Best(training[j].Skill, training[j].Need).String()
		}
	}
}

// Links renders up to perSkill resources for every skill as plain text, for
// use in messages.
func (c *Catalog) Links(skills []string, perSkill int) string {
	if len(skills) == 0 {
		return ""
	}
	perSkill = max(1, perSkill)

	var b strings.Builder
	b.WriteString("Training resources:\n")
	for _, skill := range skills {
		fmt.Fprintf(&b, "\n%s:\n", skill)
		resources := c.Resources(skill)
		for _, r := range resources[:min(perSkill, len(resources))] {
			cost := "[PAID]"
			if r.Cost == CostFree {
				cost = "[FREE]"
			}
			kind := "[COURSE]"
			if r.Type == TypeCertification {
				kind = "[CERT]"
			}
			fmt.Fprintf(&b, "- %s %s %s: %s\n", cost, kind, r.Name, r.URL)
		}
	}
	return b.String()
}

func bandFor(need workforce.Level) string {
	switch {
	case need >= 4:
		return LevelAdvanced
	case need == 3:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// containsWords reports whether needle appears as a contiguous word run in
// haystack.
func containsWords(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
