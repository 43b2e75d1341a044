package generator

import (
	"math"

	"rmf-simulator/internal/model"
)

const (
	gib                 = 1 << 30
	realFractionCap     = 0.90
	virtualOnlineRatio  = 4.0
	virtualDefaultRatio = 6.0
	csaMinBytes         = 200_000_000
	csaMaxBytes         = 800_000_000
)

func Memory(in Input) []model.MetricSample {
	cfg := in.Entry.Config
	installed := float64(cfg.MemoryGB) * gib

	fraction := clamp(in.Entry.Baseline.MemoryFraction*in.Factor.Composite, 0, realFractionCap)
	realBytes := math.Floor(installed * fraction)

	ratio := virtualDefaultRatio
	if cfg.Workload == model.WorkloadOnline {
		ratio = virtualOnlineRatio
	}
	virtual := realBytes * ratio
	csa := math.Round(in.uniform(csaMinBytes, csaMaxBytes))

	return []model.MetricSample{
		in.sample(model.MetricMemoryUsage, realBytes, label(model.LabelMemoryType, "real_storage")),
		in.sample(model.MetricMemoryUsage, virtual, label(model.LabelMemoryType, "virtual_storage")),
		in.sample(model.MetricMemoryUsage, csa, label(model.LabelMemoryType, "csa")),
	}
}
