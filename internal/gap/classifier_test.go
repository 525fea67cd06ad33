package gap

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spigell/skills-gap/internal/workforce"
)

var testNow = time.Date(2026, time.March, 1, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestClassifier(policy Policy) *Classifier {
	return New(policy, WithClock(fixedClock))
}

func skills(pairs ...any) []workforce.Skill {
	out := make([]workforce.Skill, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, workforce.Skill{Name: pairs[i].(string), Level: workforce.Level(pairs[i+1].(int))})
	}
	return out
}

func TestClassifyScenarioPythonAWS(t *testing.T) {
	t.Parallel()

	reqs := []workforce.Requirement{
		{Name: "Python", MinLevel: 4},
		{Name: "AWS", MinLevel: 3},
	}
	candidates := []workforce.Candidate{
		{ID: "e1", Name: "Ann", Skills: skills("python", 5, "AWS", 2)},
	}

	analysis, err := newTestClassifier(DefaultPolicy()).Classify(candidates, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := analysis.Entries[0]
	if entry.Bucket != Ready2Weeks {
		t.Fatalf("expected %s, got %s", Ready2Weeks, entry.Bucket)
	}

	want := Reason{BelowLevelSkills: []SkillGap{{Name: "AWS", Have: 2, Need: 3}}}
	if diff := cmp.Diff(want, entry.Reason); diff != "" {
		t.Fatalf("reason mismatch (-want +got):\n%s", diff)
	}

	if entry.EstimatedUpskillDays != 7 {
		t.Fatalf("expected 7 upskill days, got %d", entry.EstimatedUpskillDays)
	}

	wantDate := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	if entry.EstimatedReadyDate == nil || !entry.EstimatedReadyDate.Equal(wantDate) {
		t.Fatalf("expected ready date %s, got %v", wantDate, entry.EstimatedReadyDate)
	}
}

func TestClassifyEmptyPool(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.TeamSize = 2

	analysis, err := newTestClassifier(policy).Classify(nil, []workforce.Requirement{{Name: "Kubernetes", MinLevel: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.NeedsNewHires != 2 {
		t.Fatalf("expected 2 new hires, got %d", analysis.NeedsNewHires)
	}
	for _, b := range Buckets {
		if n := analysis.Count(b); n != 0 {
			t.Fatalf("expected empty bucket %s, got %d", b, n)
		}
	}
	if analysis.Summary != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", analysis.Summary)
	}
}

func TestClassifyRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(DefaultPolicy())

	if _, err := c.Classify(nil, nil); !errors.Is(err, workforce.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty requirements, got %v", err)
	}

	if _, err := c.Classify(nil, []workforce.Requirement{{Name: "Go", MinLevel: 9}}); !errors.Is(err, workforce.ErrInvalidInput) {
		t.Fatalf("expected invalid input for level 9, got %v", err)
	}

	bad := []workforce.Candidate{{ID: "x", Skills: skills("Go", 0)}}
	if _, err := c.Classify(bad, []workforce.Requirement{{Name: "Go", MinLevel: 2}}); !errors.Is(err, workforce.ErrInvalidInput) {
		t.Fatalf("expected invalid input for candidate level 0, got %v", err)
	}

	policy := DefaultPolicy()
	policy.TrainableRatio = 1.5
	if _, err := newTestClassifier(policy).Classify(nil, []workforce.Requirement{{Name: "Go", MinLevel: 2}}); !errors.Is(err, workforce.ErrInvalidInput) {
		t.Fatalf("expected invalid input for ratio, got %v", err)
	}
}

func TestClassifyBuckets(t *testing.T) {
	t.Parallel()

	reqs := []workforce.Requirement{
		{Name: "Go", MinLevel: 4, Mandatory: true},
		{Name: "Kubernetes", MinLevel: 3},
		{Name: "SQL", MinLevel: 3},
		{Name: "AWS", MinLevel: 2},
	}

	tests := []struct {
		name      string
		candidate workforce.Candidate
		bucket    Bucket
		days      int
	}{
		{
			name:      "exact levels are ready now",
			candidate: workforce.Candidate{ID: "a", Skills: skills("Go", 4, "Kubernetes", 3, "SQL", 3, "AWS", 2)},
			bucket:    ReadyNow,
		},
		{
			name: "expired cert blocks ready now",
			candidate: workforce.Candidate{
				ID:             "b",
				Skills:         skills("Go", 5, "Kubernetes", 3, "SQL", 4, "AWS", 2),
				Certifications: []workforce.Certification{{Name: "CKA", ExpiresAt: testNow.AddDate(0, 0, -3)}},
			},
			bucket: Ready2Weeks,
		},
		{
			name:      "all below by one",
			candidate: workforce.Candidate{ID: "c", Skills: skills("Go", 3, "Kubernetes", 2, "SQL", 2, "AWS", 1)},
			bucket:    Ready2Weeks,
			days:      28,
		},
		{
			name:      "one below by two keeps 75 percent",
			candidate: workforce.Candidate{ID: "d", Skills: skills("Go", 2, "Kubernetes", 3, "SQL", 3, "AWS", 2)},
			bucket:    Ready4Weeks,
			days:      7,
		},
		{
			name:      "two missing drops under 70 percent",
			candidate: workforce.Candidate{ID: "e", Skills: skills("Go", 4, "Kubernetes", 3)},
			bucket:    Missing,
		},
		{
			name:      "no skills at all",
			candidate: workforce.Candidate{ID: "f"},
			bucket:    Missing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			analysis, err := newTestClassifier(DefaultPolicy()).Classify([]workforce.Candidate{tt.candidate}, reqs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			entry := analysis.Entries[0]
			if entry.Bucket != tt.bucket {
				t.Fatalf("expected %s, got %s (reason %+v)", tt.bucket, entry.Bucket, entry.Reason)
			}
			if entry.EstimatedUpskillDays != tt.days {
				t.Fatalf("expected %d upskill days, got %d", tt.days, entry.EstimatedUpskillDays)
			}
			if !entry.Bucket.Trainable() && entry.EstimatedReadyDate != nil {
				t.Fatalf("non-trainable bucket must not carry a ready date")
			}
		})
	}
}

func TestClassifyOneBelowByOneIsTwoWeeks(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 6; n++ {
		reqs := make([]workforce.Requirement, 0, n)
		have := make([]workforce.Skill, 0, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("skill-%d", i)
			reqs = append(reqs, workforce.Requirement{Name: name, MinLevel: 3})
			level := workforce.Level(3)
			if i == 0 {
				level = 2
			}
			have = append(have, workforce.Skill{Name: name, Level: level})
		}

		analysis, err := newTestClassifier(DefaultPolicy()).Classify([]workforce.Candidate{{ID: "x", Skills: have}}, reqs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entry := analysis.Entries[0]
		if entry.Bucket != Ready2Weeks || entry.EstimatedUpskillDays != 7 {
			t.Fatalf("n=%d: expected Ready2Weeks/7, got %s/%d", n, entry.Bucket, entry.EstimatedUpskillDays)
		}
	}
}

func TestClassifyMissingSkillsAndCertificates(t *testing.T) {
	t.Parallel()

	reqs := []workforce.Requirement{
		{Name: "Java", MinLevel: 1},
		{Name: "Spring", MinLevel: 4},
	}
	candidate := workforce.Candidate{
		ID:     "m",
		Skills: skills("Spring", 1),
		Certifications: []workforce.Certification{
			{Name: "OCP", ExpiresAt: testNow.AddDate(0, 0, 90)},
			{Name: "Today", ExpiresAt: testNow},
			{Name: "Later", ExpiresAt: testNow.AddDate(0, 0, 91)},
		},
	}

	analysis, err := newTestClassifier(DefaultPolicy()).Classify([]workforce.Candidate{candidate}, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := analysis.Entries[0]
	want := Reason{
		MissingSkills:    []string{"Java"},
		BelowLevelSkills: []SkillGap{{Name: "Spring", Have: 1, Need: 4}},
		ExpiringCerts:    []string{"OCP", "Today"},
	}
	if diff := cmp.Diff(want, entry.Reason); diff != "" {
		t.Fatalf("reason mismatch (-want +got):\n%s", diff)
	}

	wantSeverities := []Severity{BelowByOne, FarBelow}
	for i, g := range entry.Gaps {
		if g.Severity != wantSeverities[i] {
			t.Fatalf("gap %d: expected %s, got %s", i, wantSeverities[i], g.Severity)
		}
	}

	if analysis.Summary.ExpiringCertsCount != 2 {
		t.Fatalf("expected 2 expiring certs, got %d", analysis.Summary.ExpiringCertsCount)
	}
}

func TestClassifyEveryCandidateInExactlyOneBucket(t *testing.T) {
	t.Parallel()

	reqs := []workforce.Requirement{
		{Name: "A", MinLevel: 5},
		{Name: "B", MinLevel: 3},
		{Name: "C", MinLevel: 1},
	}

	var candidates []workforce.Candidate
	id := 0
	for a := 0; a <= 5; a++ {
		for b := 0; b <= 5; b++ {
			for c := 0; c <= 5; c++ {
				id++
				var s []workforce.Skill
				for name, level := range map[string]int{"A": a, "B": b, "C": c} {
					if level > 0 {
						s = append(s, workforce.Skill{Name: name, Level: workforce.Level(level)})
					}
				}
				candidates = append(candidates, workforce.Candidate{ID: fmt.Sprint(id), Skills: s})
			}
		}
	}

	analysis, err := newTestClassifier(DefaultPolicy()).Classify(candidates, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for _, b := range Buckets {
		total += analysis.Count(b)
	}
	if total != len(candidates) || len(analysis.Entries) != len(candidates) {
		t.Fatalf("expected %d classified candidates, got %d", len(candidates), total)
	}

	s := analysis.Summary
	if s.ReadyCount+s.TrainableCount+s.MissingCount != s.TotalEmployees {
		t.Fatalf("summary does not add up: %+v", s)
	}
	if analysis.NeedsNewHires < 0 {
		t.Fatalf("needs new hires must not be negative")
	}

	for _, e := range analysis.Entries {
		if e.Bucket.Trainable() && e.EstimatedUpskillDays != DefaultDaysPerGap*len(e.Gaps) {
			t.Fatalf("upskill days must scale with gap count: %+v", e)
		}
	}
}

func TestPolicyTeamSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		explicit int
		reqs     int
		expect   int
	}{
		{explicit: 0, reqs: 1, expect: 2},
		{explicit: 0, reqs: 3, expect: 6},
		{explicit: 5, reqs: 3, expect: 5},
	}

	for _, tt := range tests {
		p := Policy{TeamSize: tt.explicit}
		if got := p.TeamSizeFor(tt.reqs); got != tt.expect {
			t.Fatalf("TeamSizeFor(%d) with explicit %d: expected %d, got %d", tt.reqs, tt.explicit, tt.expect, got)
		}
	}
}

func TestClassifyNeedsNewHires(t *testing.T) {
	t.Parallel()

	reqs := []workforce.Requirement{{Name: "Go", MinLevel: 3}}
	candidates := []workforce.Candidate{
		{ID: "1", Skills: skills("Go", 3)},
		{ID: "2", Skills: skills("Go", 2)},
		{ID: "3", Skills: skills("Go", 1)},
		{ID: "4", Skills: skills("Go", 5)},
	}

	analysis, err := newTestClassifier(DefaultPolicy()).Classify(candidates, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// derived team size is 2 and three candidates qualify
	if analysis.TeamSize != 2 || analysis.NeedsNewHires != 0 {
		t.Fatalf("expected team size 2 and no hires, got %d/%d", analysis.TeamSize, analysis.NeedsNewHires)
	}

	policy := DefaultPolicy()
	policy.TeamSize = 5
	analysis, err = newTestClassifier(policy).Classify(candidates, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.NeedsNewHires != 2 {
		t.Fatalf("expected 2 hires, got %d", analysis.NeedsNewHires)
	}
}

func TestExpiringCertificates(t *testing.T) {
	t.Parallel()

	candidates := []workforce.Candidate{
		{ID: "1", Name: "One", Certifications: []workforce.Certification{
			{Name: "late", ExpiresAt: testNow.AddDate(0, 0, 40)},
			{Name: "gone", ExpiresAt: testNow.AddDate(0, 0, -1)},
		}},
		{ID: "2", Name: "Two", Certifications: []workforce.Certification{
			{Name: "soon", ExpiresAt: testNow.AddDate(0, 0, 5)},
			{Name: "far", ExpiresAt: testNow.AddDate(1, 0, 0)},
		}},
	}

	alerts := ExpiringCertificates(candidates, 60, testNow)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Certification.Name != "soon" || alerts[0].DaysLeft != 5 {
		t.Fatalf("unexpected first alert: %+v", alerts[0])
	}
	if alerts[1].CandidateID != "1" || alerts[1].DaysLeft != 40 {
		t.Fatalf("unexpected second alert: %+v", alerts[1])
	}
}

func TestClassifyZeroWindowReportsOnlyToday(t *testing.T) {
	t.Parallel()

	// Classify runs on the wall clock.
	today := time.Now().UTC()
	reqs := []workforce.Requirement{{Name: "Kubernetes", MinLevel: 3}}
	candidates := []workforce.Candidate{{
		ID:     "k1",
		Skills: skills("Kubernetes", 4),
		Certifications: []workforce.Certification{
			{Name: "CKA", ExpiresAt: today.AddDate(0, 0, 30)},
			{Name: "CKAD", ExpiresAt: today},
		},
	}}

	analysis, err := Classify(candidates, reqs, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.WindowDays != 0 {
		t.Fatalf("expected window 0, got %d", analysis.WindowDays)
	}
	if diff := cmp.Diff([]string{"CKAD"}, analysis.Entries[0].Reason.ExpiringCerts); diff != "" {
		t.Fatalf("expiring certs mismatch (-want +got):\n%s", diff)
	}
	if analysis.Entries[0].Bucket != ReadyNow || analysis.Summary.ExpiringCertsCount != 1 {
		t.Fatalf("unexpected entry: %+v", analysis.Entries[0])
	}
}

func TestPolicyZeroValuesAreKept(t *testing.T) {
	t.Parallel()

	reqs := []workforce.Requirement{
		{Name: "Go", MinLevel: 4},
		{Name: "SQL", MinLevel: 4},
	}
	candidates := []workforce.Candidate{{ID: "n1", Skills: skills("Go", 1)}}

	policy := DefaultPolicy()
	policy.TrainableRatio = 0
	policy.DaysPerGap = 0

	analysis, err := newTestClassifier(policy).Classify(candidates, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := analysis.Entries[0]
	if entry.Bucket != Ready4Weeks {
		t.Fatalf("expected %s with a zero ratio, got %s", Ready4Weeks, entry.Bucket)
	}
	if entry.EstimatedUpskillDays != 0 {
		t.Fatalf("expected 0 upskill days, got %d", entry.EstimatedUpskillDays)
	}
	if got := newTestClassifier(Policy{}).Policy(); got != (Policy{}) {
		t.Fatalf("expected zero policy to stay zero, got %+v", got)
	}
}
