package generator

import "rmf-simulator/internal/model"

const (
	portUtilMin = 5.0
	portUtilMax = 85.0
)

// Ports derives throughput from the clamped utilization, so throughput never
// exceeds 85% of the port's rated maximum.
func Ports(in Input) []model.MetricSample {
	ports := in.Entry.Config.Ports
	out := make([]model.MetricSample, 0, 2*portCount(ports))
	for _, p := range ports {
		for i := 0; i < p.Count; i++ {
			id := deviceID(p.Type, i)
			util := clamp(p.UtilPct*in.Factor.Composite*in.localNoise(), portUtilMin, portUtilMax)
			throughput := floor0(util / 100 * p.MaxMBps)

			out = append(out,
				in.sample(model.MetricPortsUtilization, util,
					label(model.LabelPortType, p.Type), label(model.LabelPortID, id)),
				in.sample(model.MetricPortsThroughput, throughput,
					label(model.LabelPortType, p.Type), label(model.LabelPortID, id)),
			)
		}
	}
	return out
}

func portCount(ports []model.PortSpec) int {
	n := 0
	for _, p := range ports {
		n += p.Count
	}
	return n
}
