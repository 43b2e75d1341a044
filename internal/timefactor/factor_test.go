package timefactor

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmf-simulator/internal/model"
)

var (
	onlineLPAR = model.LPARConfig{Name: "PROD01", Workload: model.WorkloadOnline, PeakHours: []int{8, 9, 10, 14, 15, 16}}
	batchLPAR  = model.LPARConfig{Name: "BATCH01", Workload: model.WorkloadBatch, PeakHours: []int{22, 23, 0, 1, 2, 3, 4, 5}}
	mixedLPAR  = model.LPARConfig{Name: "TEST01", Workload: model.WorkloadMixed, PeakHours: []int{9, 10, 11, 15, 16, 17}}
)

func TestModel_Compute(t *testing.T) {
	// 2024-05-15 is a Wednesday, 2024-09-30 a Monday.
	tests := map[string]struct {
		at        time.Time
		lpar      model.LPARConfig
		noise     float64
		composite float64
		peakHour  bool
	}{
		"batch at peak hour": {
			at: time.Date(2024, 5, 15, 23, 0, 0, 0, time.UTC), lpar: batchLPAR, noise: 1.0,
			composite: 1.8, peakHour: true,
		},
		"batch off peak": {
			at: time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC), lpar: batchLPAR, noise: 1.0,
			composite: 0.3,
		},
		"online off peak": {
			at: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), lpar: onlineLPAR, noise: 1.0,
			composite: 1.0,
		},
		"mixed follows online rule": {
			at: time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC), lpar: mixedLPAR, noise: 1.0,
			composite: 1.4, peakHour: true,
		},
		"online monday month end peak max noise": {
			at: time.Date(2024, 9, 30, 9, 30, 0, 0, time.UTC), lpar: onlineLPAR, noise: 1.1,
			composite: 2.772, peakHour: true,
		},
		"month end only": {
			at: time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC), lpar: onlineLPAR, noise: 1.0,
			composite: 1.5,
		},
	}

	m := NewModel(time.UTC)
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := m.Compute(test.at, test.lpar, test.noise)
			assert.InDelta(t, test.composite, f.Composite, 1e-9)
			assert.Equal(t, test.peakHour, f.PeakHour)
		})
	}
}

func TestModel_ComputeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	m := NewModel(loc)

	// 21:00 UTC is 23:00 in loc, a batch peak hour.
	f := m.Compute(time.Date(2024, 5, 15, 21, 0, 0, 0, time.UTC), batchLPAR, 1.0)
	assert.True(t, f.PeakHour)
	assert.InDelta(t, 1.8, f.Composite, 1e-9)
}

func TestModel_DrawNoiseRange(t *testing.T) {
	m := NewModel(time.UTC)
	rng := rand.New(rand.NewPCG(1, 2))
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		f := m.Draw(at, onlineLPAR, rng)
		require.GreaterOrEqual(t, f.Noise, 0.9)
		require.LessOrEqual(t, f.Noise, 1.1)
		require.Greater(t, f.Composite, 0.0)
	}
}

func TestModel_DrawDeterministic(t *testing.T) {
	m := NewModel(time.UTC)
	at := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	a := m.Draw(at, onlineLPAR, rand.New(rand.NewPCG(42, 7)))
	b := m.Draw(at, onlineLPAR, rand.New(rand.NewPCG(42, 7)))
	assert.Equal(t, a, b)
}
