package filtering

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/skills-gap/internal/workforce"
)

func testPool() *workforce.Pool {
	return workforce.NewPool([]workforce.Candidate{
		{ID: "1", Name: "Ada", Role: "Backend Engineer"},
		{ID: "2", Name: "Bo", Role: "Data Engineer"},
		{ID: "3", Name: "Cy", Role: "backend engineer"},
		{ID: "4", Name: "Di", Role: "Designer"},
	})
}

func TestRunDefaultChain(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "excluded.json")
	excluded := workforce.NewPool([]workforce.Candidate{{ID: "3", Name: "Cy"}}).ToExcluded("left the company")
	if err := excluded.ToFile(path); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	core, observed := observer.New(zapcore.InfoLevel)
	cfg := &Config{
		ExcludeFile:        path,
		ExcludedCandidates: []string{" 2 ", ""},
		Roles:              []string{"Backend Engineer", "Data Engineer"},
	}

	pool, err := Run(context.Background(), cfg, Deps{Logger: zap.New(core)}, Default(), testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := pool.IDs()
	if len(ids) != 1 || ids[0] != "1" {
		t.Fatalf("expected only candidate 1 left, got %v", ids)
	}

	steps := observed.FilterMessage("filter step").All()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step entries, got %d", len(steps))
	}
	want := []struct {
		name    string
		dropped int64
		left    int64
	}{
		{"exclude_file", 1, 3},
		{"excluded_candidates", 1, 2},
		{"roles", 1, 1},
	}
	for i, w := range want {
		fields := steps[i].ContextMap()
		if fields["name"] != w.name || fields["dropped"] != w.dropped || fields["left"] != w.left {
			t.Fatalf("step %d: unexpected fields %v", i, fields)
		}
	}
}

func TestRunSkipsDisabled(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	steps := Default()
	DisableByName(steps, "roles", "flag")

	pool, err := Run(context.Background(), &Config{Roles: []string{"Designer"}}, Deps{Logger: zap.New(core)}, steps, testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Len() != 4 {
		t.Fatalf("expected untouched pool, got %v", pool.IDs())
	}
	if observed.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	roles := statuses[2]
	if roles.Name != "roles" || roles.Enabled || roles.Reason != "flag" {
		t.Fatalf("unexpected roles status: %+v", roles)
	}
}

func TestRolesWithoutConfigKeepsEveryone(t *testing.T) {
	t.Parallel()

	f := NewRoles()
	if err := f.Validate(nil); err != nil {
		t.Fatalf("validate: %v", err)
	}

	pool, step, err := f.Apply(context.Background(), Deps{}, testPool())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step != (Step{Initial: 4, Dropped: 0, Left: 4}) || pool.Len() != 4 {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestExcludeFileBroken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := (&workforce.ExcludedCandidates{}).ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := NewExcludeFile()
	if err := f.Validate(&Config{ExcludeFile: filepath.Join(path, "nested")}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, _, err := f.Apply(context.Background(), Deps{}, testPool()); err == nil {
		t.Fatalf("expected error for unreadable exclude file")
	}
}

type failingFilter struct {
	toggle
	validateErr error
}

func (f *failingFilter) Name() string { return "failing" }

func (f *failingFilter) Validate(*Config) error { return f.validateErr }

func (f *failingFilter) Apply(_ context.Context, _ Deps, p *workforce.Pool) (*workforce.Pool, Step, error) {
	return p, Step{}, errors.New("boom")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), nil, Deps{}, []Filter{&failingFilter{validateErr: errors.New("bad config")}}, testPool())
	if err == nil || err.Error() != "failing: bad config" {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = Run(context.Background(), nil, Deps{}, []Filter{&failingFilter{}}, testPool())
	if err == nil || err.Error() != "failing: boom" {
		t.Fatalf("expected apply error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, nil, Deps{}, Default(), testPool()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
