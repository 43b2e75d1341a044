package generator

import "rmf-simulator/internal/model"

const (
	ldevResponseMinMS = 1.0
	ldevResponseMaxMS = 100.0
	ldevUtilMin       = 5.0
	ldevUtilMax       = 95.0
)

// LDEV emits response time and utilization per device. Each device draws its
// own local noise so devices of one type do not move in lockstep.
func LDEV(in Input) []model.MetricSample {
	devices := in.Entry.Config.Devices
	out := make([]model.MetricSample, 0, 2*deviceCount(devices))
	for _, d := range devices {
		for i := 0; i < d.Count; i++ {
			id := deviceID(d.Type, i)
			resp := clamp(d.ResponseMS*in.Factor.Composite*in.localNoise(), ldevResponseMinMS, ldevResponseMaxMS)
			util := clamp(d.UtilPct*in.Factor.Composite*in.localNoise(), ldevUtilMin, ldevUtilMax)

			out = append(out,
				in.sample(model.MetricLDEVResponseTime, resp,
					label(model.LabelDeviceType, d.Type), label(model.LabelDeviceID, id)),
				in.sample(model.MetricLDEVUtilization, util,
					label(model.LabelDeviceType, d.Type), label(model.LabelDeviceID, id)),
			)
		}
	}
	return out
}

func deviceCount(devices []model.DeviceSpec) int {
	n := 0
	for _, d := range devices {
		n += d.Count
	}
	return n
}
