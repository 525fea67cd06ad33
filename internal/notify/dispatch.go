package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/skills-gap/internal/logger"
)

// LogDispatcher writes one structured log entry per notification.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.WithFields(log)}
}

func (d *LogDispatcher) Dispatch(_ context.Context, n Notification) error {
	d.logger.Info("training invitation",
		zap.String(logger.FieldRequestID, n.RequestID),
		zap.String(logger.FieldCandidateID, n.CandidateID),
		zap.String(logger.FieldBucket, string(n.Bucket)),
		zap.String("subject", n.Subject),
		zap.String("body_preview", logger.TruncateForLog(n.Body, 120)),
	)
	return nil
}

// OutboxDispatcher appends notifications as JSON lines to a file that a mail
// relay picks up.
type OutboxDispatcher struct {
	mu   sync.Mutex
	path string
	open func(path string) (outboxFile, error)
}

type outboxFile interface {
	Write(p []byte) (int, error)
	Close() error
}

func NewOutboxDispatcher(path string) *OutboxDispatcher {
	return &OutboxDispatcher{path: path, open: openOutbox}
}

func (d *OutboxDispatcher) Dispatch(_ context.Context, n Notification) error {
	line, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.open(d.path)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write outbox: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close outbox: %w", err)
	}
	return nil
}

func openOutbox(path string) (outboxFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return f, nil
}
