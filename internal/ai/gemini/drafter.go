package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/skills-gap/internal/ai"
	"github.com/spigell/skills-gap/internal/logger"
)

const (
	providerName             = "gemini"
	defaultMaxLogLength      = 200
	defaultTone              = "Friendly"
	defaultSender            = "Workforce Planning"
	maxUserInstructionRunes  = 400
	maxSingleLineFieldRunes  = 80
	systemPromptSectionSplit = "\n\n[Template]"
)

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// PromptOverrides tune the drafted message.
type PromptOverrides struct {
	Tone             string `mapstructure:"tone"`
	Sender           string `mapstructure:"sender"`
	UserInstructions string `mapstructure:"user-instructions"`
}

// Drafter writes training invitations with Gemini.
type Drafter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

var _ ai.Drafter = (*Drafter)(nil)

func NewDrafter(generator contentGenerator, maxLogLength int, log *zap.Logger) *Drafter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Drafter{
		generator: generator,
		logger:    logger.WithCommonFields(log, providerName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// SetPromptOverrides replaces the tone, sender and free-form instructions.
func (d *Drafter) SetPromptOverrides(o PromptOverrides) {
	d.overrides = o
}

func (d *Drafter) Draft(ctx context.Context, invitation ai.Invitation) (*ai.Message, error) {
	if strings.TrimSpace(invitation.Candidate.ID) == "" {
		return nil, errors.New("invitation candidate is required")
	}

	payload, err := json.MarshalIndent(invitation, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal invitation: %w", err)
	}

	system, message := d.buildPrompt(string(payload))

	d.logger.Debug("gemini draft request",
		zap.String(logger.FieldRequestID, invitation.RequestID),
		zap.String(logger.FieldCandidateID, invitation.Candidate.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", logger.TruncateForLog(message, d.maxLogLen)),
	)

	raw, err := d.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("gemini draft response",
		zap.String(logger.FieldCandidateID, invitation.Candidate.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, d.maxLogLen)),
	)

	msg, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	msg.Raw = raw

	return msg, nil
}

// buildPrompt splits the template into the system instruction and the user
// message and fills the placeholders.
func (d *Drafter) buildPrompt(invitationJSON string) (string, string) {
	tone := sanitizeSingleLine(d.overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}
	sender := sanitizeSingleLine(d.overrides.Sender)
	if sender == "" {
		sender = defaultSender
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{TONE}}", tone)
	prompt = strings.ReplaceAll(prompt, "{{SENDER}}", sender)
	prompt = strings.ReplaceAll(prompt, "{{USER_INSTRUCTIONS}}", sanitizeUserInstructions(d.overrides.UserInstructions))
	prompt = strings.ReplaceAll(prompt, "{{INVITATION_JSON}}", invitationJSON)

	system, message, found := strings.Cut(prompt, systemPromptSectionSplit)
	if !found {
		return "", strings.TrimSpace(prompt)
	}
	return strings.TrimSpace(strings.TrimPrefix(system, "[System]")), strings.TrimSpace("[Template]" + message)
}

// sanitizeSingleLine collapses whitespace, neutralizes section brackets and
// caps the length.
func sanitizeSingleLine(s string) string {
	s = neutralizeBrackets(strings.Join(strings.Fields(s), " "))
	return truncateRunes(s, maxSingleLineFieldRunes)
}

func sanitizeUserInstructions(s string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = neutralizeBrackets(strings.Join(strings.Fields(line), " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "  - none"
	}

	text := truncateRunes(strings.Join(lines, "\n"), maxUserInstructionRunes)
	out := strings.Split(text, "\n")
	for i, line := range out {
		out[i] = "  - " + line
	}
	return strings.Join(out, "\n")
}

func neutralizeBrackets(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func parseResponse(raw string) (*ai.Message, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	msg := &ai.Message{
		Subject: coerceString(data["subject"]),
		Body:    coerceString(data["body"]),
	}
	if msg.Body == "" {
		return nil, errors.New("gemini response has no body")
	}

	return msg, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
