package workforce

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput marks every boundary validation failure.
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

// ValidationError lists every problem found in a single input value.
type ValidationError struct {
	Subject  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Subject, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) addStruct(err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		e.add("%v", err)
		return
	}
	for _, fe := range verrs {
		e.add("%s failed on %q", fe.Namespace(), fe.Tag())
	}
}

func (e *ValidationError) errOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ValidateRequirements rejects empty sets, out of range levels and duplicate
// skill names.
func ValidateRequirements(reqs []Requirement) error {
	verr := &ValidationError{Subject: "requirements"}
	if len(reqs) == 0 {
		verr.add("at least one requirement is needed")
		return verr
	}

	seen := make(map[string]int, len(reqs))
	for i, req := range reqs {
		if err := validate.Struct(req); err != nil {
			verr.add("requirement #%d (%q)", i, req.Name)
			verr.addStruct(err)
			continue
		}

		key := SkillKey(req.Name)
		if key == "" {
			verr.add("requirement #%d has a blank name", i)
			continue
		}
		if prev, ok := seen[key]; ok {
			verr.add("requirement #%d duplicates #%d (%q)", i, prev, req.Name)
			continue
		}
		seen[key] = i
	}

	return verr.errOrNil()
}

// ValidateCandidate checks a single candidate record. Candidates without
// skills or certifications are valid.
func ValidateCandidate(c Candidate) error {
	verr := &ValidationError{Subject: fmt.Sprintf("candidate %q", c.ID)}
	if err := validate.Struct(c); err != nil {
		verr.addStruct(err)
		return verr
	}

	seen := make(map[string]struct{}, len(c.Skills))
	for _, skill := range c.Skills {
		key := SkillKey(skill.Name)
		if key == "" {
			verr.add("skill with a blank name")
			continue
		}
		if _, ok := seen[key]; ok {
			verr.add("skill %q is listed more than once", skill.Name)
			continue
		}
		seen[key] = struct{}{}
	}

	for _, cert := range c.Certifications {
		if cert.ExpiresAt.IsZero() {
			verr.add("certification %q has no expiry date", cert.Name)
		}
	}

	return verr.errOrNil()
}

// ValidateCandidates validates every candidate and rejects duplicate ids.
func ValidateCandidates(candidates []Candidate) error {
	var errs []error
	ids := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if err := ValidateCandidate(c); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := ids[c.ID]; ok {
			errs = append(errs, &ValidationError{
				Subject:  fmt.Sprintf("candidate %q", c.ID),
				Problems: []string{"duplicate id"},
			})
			continue
		}
		ids[c.ID] = struct{}{}
	}

	return errors.Join(errs...)
}
