package timefactor

import (
	"math/rand/v2"
	"time"

	"rmf-simulator/internal/model"
)

const (
	peakOnline   = 1.4
	peakBatch    = 1.8
	offPeakBatch = 0.3
	monday       = 1.2
	monthEnd     = 1.5
	noiseMin     = 0.9
	noiseMax     = 1.1
)

// Factor is the composite load multiplier for one LPAR at one tick.
type Factor struct {
	Peak      float64 `json:"peak"`
	Weekday   float64 `json:"weekday"`
	MonthEnd  float64 `json:"month_end"`
	Noise     float64 `json:"noise"`
	Composite float64 `json:"composite"`
	PeakHour  bool    `json:"peak_hour"`
}

type Model struct {
	loc *time.Location
}

// NewModel evaluates hours and calendar days in loc. A nil loc means time.Local.
func NewModel(loc *time.Location) *Model {
	if loc == nil {
		loc = time.Local
	}
	return &Model{loc: loc}
}

func (m *Model) Location() *time.Location {
	return m.loc
}

// Compute returns the factor for lpar at the given instant with an explicit noise value.
func (m *Model) Compute(at time.Time, lpar model.LPARConfig, noise float64) Factor {
	local := at.In(m.loc)
	peakHour := lpar.IsPeakHour(local.Hour())

	f := Factor{
		Peak:     PeakFactor(lpar.Workload, peakHour),
		Weekday:  1.0,
		MonthEnd: 1.0,
		Noise:    noise,
		PeakHour: peakHour,
	}
	if local.Weekday() == time.Monday {
		f.Weekday = monday
	}
	if d := local.Day(); d >= 28 && d <= 31 {
		f.MonthEnd = monthEnd
	}
	f.Composite = f.Peak * f.Weekday * f.MonthEnd * f.Noise
	return f
}

// Draw consumes exactly one value from rng for the noise sub-factor.
func (m *Model) Draw(at time.Time, lpar model.LPARConfig, rng *rand.Rand) Factor {
	return m.Compute(at, lpar, Noise(rng))
}

// PeakFactor applies the workload schedule. Mixed partitions follow the online rule.
func PeakFactor(w model.Workload, peakHour bool) float64 {
	switch w {
	case model.WorkloadBatch:
		if peakHour {
			return peakBatch
		}
		return offPeakBatch
	default:
		if peakHour {
			return peakOnline
		}
		return 1.0
	}
}

// Noise draws uniformly from [0.9, 1.1].
func Noise(rng *rand.Rand) float64 {
	return noiseMin + rng.Float64()*(noiseMax-noiseMin)
}
