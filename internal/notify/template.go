package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/spigell/skills-gap/internal/ai"
	"github.com/spigell/skills-gap/internal/gap"
)

const (
	defaultSubject = `Training plan for {{.Candidate.Name}}`
	defaultBody    = `Hi {{.Candidate.Name}},

You are {{timeline .Candidate.Bucket}} for the {{.RequestID}} project team ({{.Candidate.MatchPercentage}}% of the requirements met).
{{- if .Candidate.EstimatedReadyDate}}
Estimated ready date: {{.Candidate.EstimatedReadyDate.Format "2006-01-02"}}.
{{- end}}
{{- if .Candidate.Training}}

Planned training:
{{- range .Candidate.Training}}
- {{.Skill}}: level {{.Have}} -> {{.Need}} ({{.Effort}})
{{- end}}
{{- end}}
{{- if .TrainingLinks}}

{{.TrainingLinks}}
{{- end}}
`
)

// TemplateDrafter renders invitations from Go text templates.
type TemplateDrafter struct {
	subject *template.Template
	body    *template.Template
}

var _ ai.Drafter = (*TemplateDrafter)(nil)

// NewTemplateDrafter parses the given templates. Empty strings select the
// built-in ones.
func NewTemplateDrafter(subject, body string) (*TemplateDrafter, error) {
	if strings.TrimSpace(subject) == "" {
		subject = defaultSubject
	}
	if strings.TrimSpace(body) == "" {
		body = defaultBody
	}

	funcMap := template.FuncMap{
		"timeline": timeline,
	}

	s, err := template.New("subject").Funcs(funcMap).Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	b, err := template.New("body").Funcs(funcMap).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}

	return &TemplateDrafter{subject: s, body: b}, nil
}

func (d *TemplateDrafter) Draft(_ context.Context, invitation ai.Invitation) (*ai.Message, error) {
	var subject, body bytes.Buffer
	if err := d.subject.Execute(&subject, invitation); err != nil {
		return nil, fmt.Errorf("execute subject template: %w", err)
	}
	if err := d.body.Execute(&body, invitation); err != nil {
		return nil, fmt.Errorf("execute body template: %w", err)
	}

	return &ai.Message{
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()),
	}, nil
}

func timeline(b gap.Bucket) string {
	switch b {
	case gap.Ready2Weeks:
		return "about two weeks of training away"
	case gap.Ready4Weeks:
		return "about four weeks of training away"
	case gap.ReadyNow:
		return "ready"
	default:
		return "not yet matched"
	}
}
