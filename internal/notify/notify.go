// Package notify drafts and dispatches training invitations for the
// trainable candidates of a report.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skills-gap/internal/ai"
	"github.com/spigell/skills-gap/internal/gap"
	"github.com/spigell/skills-gap/internal/logger"
	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/training"
)

const linksPerSkill = 2

// Notification is one drafted message ready for delivery.
type Notification struct {
	RequestID     string     `json:"request_id"`
	CandidateID   string     `json:"candidate_id"`
	CandidateName string     `json:"candidate_name"`
	Bucket        gap.Bucket `json:"bucket"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Dispatcher delivers notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Result counts the outcome of one Notify call.
type Result struct {
	Sent   int
	Failed int
}

// Notifier drafts a message per trainable candidate and hands it to the
// dispatcher.
type Notifier struct {
	drafter    ai.Drafter
	dispatcher Dispatcher
	catalog    *training.Catalog
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotifier wires a notifier. catalog may be nil to omit training links.
func NewNotifier(drafter ai.Drafter, dispatcher Dispatcher, catalog *training.Catalog, log *zap.Logger) *Notifier {
	return &Notifier{
		drafter:    drafter,
		dispatcher: dispatcher,
		catalog:    catalog,
		logger:     logger.WithFields(log),
		now:        time.Now,
	}
}

// Notify processes every Ready2Weeks and Ready4Weeks candidate of report.
// A failure for one candidate does not stop the others; all failures are
// returned joined.
func (n *Notifier) Notify(ctx context.Context, requestID string, report *readiness.Report) (Result, error) {
	var res Result
	if report == nil {
		return res, errors.New("report is required")
	}

	log := logger.WithRequest(n.logger, requestID, len(report.Candidates))

	var errs []error
	for _, candidate := range report.TrainableCandidates() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if err := n.notifyOne(ctx, requestID, report, candidate); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("candidate %s: %w", candidate.ID, err))
			log.Warn("notification failed",
				zap.String(logger.FieldCandidateID, candidate.ID),
				zap.String(logger.FieldBucket, string(candidate.Bucket)),
				zap.Error(err),
			)
			continue
		}
		res.Sent++
	}

	log.Info("notifications processed", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return res, errors.Join(errs...)
}

func (n *Notifier) notifyOne(ctx context.Context, requestID string, report *readiness.Report, candidate readiness.CandidateScore) error {
	invitation := ai.Invitation{
		RequestID:    requestID,
		Requirements: report.Requirements,
		Candidate:    candidate,
	}
	if n.catalog != nil {
		invitation.TrainingLinks = n.catalog.Links(trainingSkills(candidate), linksPerSkill)
	}

	msg, err := n.drafter.Draft(ctx, invitation)
	if err != nil {
		return fmt.Errorf("draft: %w", err)
	}

	return n.dispatcher.Dispatch(ctx, Notification{
		RequestID:     requestID,
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		Bucket:        candidate.Bucket,
		Subject:       strings.TrimSpace(msg.Subject),
		Body:          strings.TrimSpace(msg.Body),
		CreatedAt:     n.now().UTC(),
	})
}

func trainingSkills(c readiness.CandidateScore) []string {
	out := make([]string, 0, len(c.Training))
	for _, t := range c.Training {
		out = append(out, t.Skill)
	}
	return out
}
