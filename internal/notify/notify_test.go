package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skills-gap/internal/ai"
	"github.com/spigell/skills-gap/internal/gap"
	"github.com/spigell/skills-gap/internal/readiness"
	"github.com/spigell/skills-gap/internal/training"
)

type recordingDispatcher struct {
	sent []Notification
}

func (r *recordingDispatcher) Dispatch(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type failingDrafter struct {
	failFor string
	seen    []ai.Invitation
}

func (f *failingDrafter) Draft(_ context.Context, inv ai.Invitation) (*ai.Message, error) {
	f.seen = append(f.seen, inv)
	if inv.Candidate.ID == f.failFor {
		return nil, errors.New("model unavailable")
	}
	return &ai.Message{Subject: " hello " + inv.Candidate.Name, Body: " body "}, nil
}

func testReport() *readiness.Report {
	ready := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	return &readiness.Report{
		Candidates: []readiness.CandidateScore{
			{ID: "r1", Name: "Ready", Bucket: gap.ReadyNow, MatchPercentage: 100},
			{
				ID: "t2", Name: "Tess", Bucket: gap.Ready2Weeks, MatchPercentage: 50, EstimatedReadyDate: &ready,
				Training: []readiness.TrainingRecommendation{{Skill: "AWS", Have: 2, Need: 3, Effort: readiness.QuickUpskill}},
			},
			{ID: "t4", Name: "Theo", Bucket: gap.Ready4Weeks, MatchPercentage: 33},
			{ID: "m1", Name: "Max", Bucket: gap.Missing},
		},
	}
}

func TestNotifierOnlyTrainable(t *testing.T) {
	t.Parallel()

	drafter := &failingDrafter{failFor: "t4"}
	dispatcher := &recordingDispatcher{}
	core, observed := observer.New(zapcore.InfoLevel)

	n := NewNotifier(drafter, dispatcher, training.Default(), zap.New(core))
	res, err := n.Notify(context.Background(), "cloud-migration", testReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidate t4")
	assert.Equal(t, Result{Sent: 1, Failed: 1}, res)

	require.Len(t, drafter.seen, 2)
	assert.Equal(t, "t2", drafter.seen[0].Candidate.ID)
	assert.Contains(t, drafter.seen[0].TrainingLinks, "AWS:")
	assert.Empty(t, drafter.seen[1].TrainingLinks)

	require.Len(t, dispatcher.sent, 1)
	sent := dispatcher.sent[0]
	assert.Equal(t, "cloud-migration", sent.RequestID)
	assert.Equal(t, "hello Tess", sent.Subject)
	assert.Equal(t, "body", sent.Body)
	assert.Equal(t, gap.Ready2Weeks, sent.Bucket)

	assert.Equal(t, 1, observed.FilterMessage("notification failed").Len())
	summary := observed.FilterMessage("notifications processed").All()
	require.Len(t, summary, 1)
	assert.Equal(t, "cloud-migration", summary[0].ContextMap()["request_id"])
}

func TestNotifierNilReport(t *testing.T) {
	t.Parallel()

	n := NewNotifier(&failingDrafter{}, &recordingDispatcher{}, nil, nil)
	_, err := n.Notify(context.Background(), "x", nil)
	require.Error(t, err)
}

func TestTemplateDrafter(t *testing.T) {
	t.Parallel()

	d, err := NewTemplateDrafter("", "")
	require.NoError(t, err)

	report := testReport()
	msg, err := d.Draft(context.Background(), ai.Invitation{
		RequestID:     "cloud-migration",
		Candidate:     report.Candidates[1],
		TrainingLinks: training.Default().Links([]string{"AWS"}, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, "Training plan for Tess", msg.Subject)
	for _, want := range []string{
		"Hi Tess,",
		"about two weeks of training away for the cloud-migration project team (50% of the requirements met)",
		"Estimated ready date: 2026-03-15.",
		"- AWS: level 2 -> 3 (Quick Upskill)",
		"AWS Training and Certification",
	} {
		assert.Contains(t, msg.Body, want)
	}

	_, err = NewTemplateDrafter("{{.Broken", "")
	require.Error(t, err)
}

func TestLogDispatcher(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	d := NewLogDispatcher(zap.New(core))

	require.NoError(t, d.Dispatch(context.Background(), Notification{
		RequestID:   "req",
		CandidateID: "t2",
		Bucket:      gap.Ready4Weeks,
		Subject:     "Training",
		Body:        strings.Repeat("x", 500),
	}))

	entries := observed.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "t2", ctx["candidate_id"])
	assert.Equal(t, "ready_4weeks", ctx["bucket"])
	assert.Len(t, ctx["body_preview"], 123)
}

func TestOutboxDispatcher(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "outbox.jsonl")
	d := NewOutboxDispatcher(path)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, d.Dispatch(context.Background(), Notification{CandidateID: id, Bucket: gap.Ready2Weeks}))
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var n Notification
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &n))
		ids = append(ids, n.CandidateID)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"a", "b"}, ids)
}

type failingCloseFile struct {
	written []byte
}

func (f *failingCloseFile) Write(p []byte) (int, error) {
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *failingCloseFile) Close() error {
	return errors.New("disk full")
}

func TestOutboxDispatcherReportsCloseError(t *testing.T) {
	t.Parallel()

	file := &failingCloseFile{}
	d := NewOutboxDispatcher("outbox.jsonl")
	d.open = func(string) (outboxFile, error) { return file, nil }

	err := d.Dispatch(context.Background(), Notification{CandidateID: "t2", Bucket: gap.Ready2Weeks})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close outbox: disk full")
	assert.Contains(t, string(file.written), `"candidate_id":"t2"`)
}
