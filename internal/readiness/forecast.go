package readiness

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultBaselineDemand is used when no baseline is known for a skill.
	DefaultBaselineDemand = 5

	monthlyGrowth    = 0.06
	evenMonthNoise   = 0.5
	oddMonthNoise    = -0.3
	noiseGrowth      = 0.1
	monthLabelLayout = "2006-01"
)

// ForecastNote is attached to every forecast for API consumers.
const ForecastNote = "coarse trend projection (about 6% monthly growth with a fixed alternating adjustment); not a statistical model"

// DemandLookup resolves the current baseline demand for a skill.
type DemandLookup interface {
	BaselineDemand(ctx context.Context, skill string) (demand int, ok bool, err error)
}

// ForecastPoint is the projected demand for one month.
type ForecastPoint struct {
	Month           string `json:"month" yaml:"month"`
	PredictedDemand int    `json:"predicted_demand" yaml:"predicted_demand"`
}

// Forecast is a demand projection for one skill.
type Forecast struct {
	Skill    string          `json:"skill" yaml:"skill"`
	Baseline int             `json:"baseline" yaml:"baseline"`
	Points   []ForecastPoint `json:"points" yaml:"points"`
	Note     string          `json:"note" yaml:"note"`
}

// Predict projects months points from baseline, starting at the month of
// start: demand(i) = round(max(0, baseline*(1+0.06i) + noise(i))) where
// noise(i) is +0.5 on even and -0.3 on odd months, scaled by (1+0.1i).
// The result is fully determined by its arguments. months < 1 yields one
// point.
func Predict(skill string, baseline, months int, start time.Time) Forecast {
	months = max(1, months)
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)

	points := make([]ForecastPoint, 0, months)
	for i := 0; i < months; i++ {
		step := float64(i)
		growth := 1 + monthlyGrowth*step
		demand := math.Max(0, float64(baseline)*growth+noise(i))
		points = append(points, ForecastPoint{
			Month:           first.AddDate(0, i, 0).Format(monthLabelLayout),
			PredictedDemand: int(math.Floor(demand + 0.5)),
		})
	}

	return Forecast{
		Skill:    skill,
		Baseline: baseline,
		Points:   points,
		Note:     ForecastNote,
	}
}

func noise(i int) float64 {
	sign := evenMonthNoise
	if i%2 != 0 {
		sign = oddMonthNoise
	}
	return sign * (1 + float64(i)*noiseGrowth)
}

// Forecaster resolves baselines through a DemandLookup before projecting.
type Forecaster struct {
	lookup DemandLookup
	now    func() time.Time
}

// NewForecaster returns a forecaster. now may be nil for time.Now.
func NewForecaster(lookup DemandLookup, now func() time.Time) *Forecaster {
	if now == nil {
		now = time.Now
	}
	return &Forecaster{lookup: lookup, now: now}
}

// Forecast projects demand for skill, falling back to DefaultBaselineDemand
// when the lookup has no value.
func (f *Forecaster) Forecast(ctx context.Context, skill string, months int) (Forecast, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return Forecast{}, fmt.Errorf("skill is required")
	}

	baseline := DefaultBaselineDemand
	if f.lookup != nil {
		demand, ok, err := f.lookup.BaselineDemand(ctx, skill)
		if err != nil {
			return Forecast{}, fmt.Errorf("baseline demand for %q: %w", skill, err)
		}
		if ok {
			baseline = demand
		}
	}

	return Predict(skill, baseline, months, f.now()), nil
}
