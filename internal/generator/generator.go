// Package generator turns a baseline and a shared time factor into bounded
// RMF-style samples. Every generator is a pure function of its Input.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"rmf-simulator/internal/baseline"
	"rmf-simulator/internal/model"
	"rmf-simulator/internal/timefactor"
)

const (
	localNoiseMin = 0.9
	localNoiseMax = 1.1
)

// Input is everything one generator call may read. Rand is the LPAR's local
// noise stream; the shared factor noise has already been drawn into Factor.
type Input struct {
	Sysplex string
	Entry   *baseline.Entry
	Factor  timefactor.Factor
	At      time.Time
	Rand    *rand.Rand
}

type Generator struct {
	Component model.Component
	Generate  func(Input) []model.MetricSample
}

// Default returns the seven generators in batch order.
func Default() []Generator {
	return []Generator{
		{Component: model.ComponentCPU, Generate: CPU},
		{Component: model.ComponentMemory, Generate: Memory},
		{Component: model.ComponentLDEV, Generate: LDEV},
		{Component: model.ComponentCLPR, Generate: CLPR},
		{Component: model.ComponentMPB, Generate: MPB},
		{Component: model.ComponentPorts, Generate: Ports},
		{Component: model.ComponentVolumes, Generate: Volumes},
	}
}

func (in Input) sample(metric model.MetricName, value float64, labels ...model.Label) model.MetricSample {
	return model.MetricSample{
		Timestamp: in.At,
		Sysplex:   in.Sysplex,
		LPAR:      in.Entry.Config.Name,
		Metric:    metric,
		Labels:    labels,
		Value:     value,
	}
}

func (in Input) localNoise() float64 {
	return localNoiseMin + in.Rand.Float64()*(localNoiseMax-localNoiseMin)
}

func (in Input) uniform(lo, hi float64) float64 {
	return lo + in.Rand.Float64()*(hi-lo)
}

func label(name, value string) model.Label {
	return model.Label{Name: name, Value: value}
}

// deviceID names logical devices and channel ports, e.g. 3390_00 or OSA_03.
func deviceID(kind string, n int) string {
	return fmt.Sprintf("%s_%02d", kind, n)
}

// volumeID follows the volser convention, e.g. SYSRES000 or WORK014.
func volumeID(kind string, n int) string {
	return fmt.Sprintf("%s%03d", kind, n)
}

// clamp bounds v to [lo, hi]. NaN collapses to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor0(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
