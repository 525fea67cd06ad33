// Package ai defines the drafting contract for candidate notifications.
package ai

import (
	"context"

	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/workforce"
)

// Invitation is everything a drafter may use to write a training invitation
// for one trainable candidate.
type Invitation struct {
	RequestID     string                   `json:"request_id"`
	Requirements  []workforce.Requirement  `json:"requirements"`
	Candidate     readiness.CandidateScore `json:"candidate"`
	TrainingLinks string                   `json:"training_links,omitempty"`
}

// Message is a drafted notification.
type Message struct {
	Subject string
	Body    string
	Raw     string
}

type Drafter interface {
	Draft(ctx context.Context, invitation Invitation) (*Message, error)
}
