package generator

import "rmf-simulator/internal/model"

const (
	gpCap   = 95.0
	ziipCap = 75.0
	zaapCap = 70.0

	ziipRatio = 0.6
	zaapRatio = 0.4
)

// CPU emits general purpose, zIIP and zAAP utilization. The specialty
// engines follow GP so the three samples move together.
func CPU(in Input) []model.MetricSample {
	gp := clamp(in.Entry.Baseline.CPUPct*in.Factor.Composite, 0, gpCap)
	ziip := clamp(gp*ziipRatio, 0, ziipCap)
	zaap := clamp(gp*zaapRatio, 0, zaapCap)

	return []model.MetricSample{
		in.sample(model.MetricCPUUtilization, gp, label(model.LabelCPUType, "general_purpose")),
		in.sample(model.MetricCPUUtilization, ziip, label(model.LabelCPUType, "ziip")),
		in.sample(model.MetricCPUUtilization, zaap, label(model.LabelCPUType, "zaap")),
	}
}
