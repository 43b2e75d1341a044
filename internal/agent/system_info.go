package agent

import (
	"math"
	"time"

	"rmf-simulator/internal/model"
)

type SystemInfo struct {
	Sysplex       string     `json:"sysplex"`
	Timestamp     time.Time  `json:"timestamp"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	LPARs         []LPARInfo `json:"lpars"`
}

type LPARInfo struct {
	Name              string         `json:"name"`
	Workload          model.Workload `json:"workload_type"`
	CPUCapacity       int            `json:"cpu_capacity"`
	MemoryGB          int            `json:"memory_gb"`
	PeakHours         []int          `json:"peak_hours"`
	CurrentLoadFactor float64        `json:"current_load_factor"`
	IsPeakHour        bool           `json:"is_peak_hour"`
}

// systemInfo reports the noiseless load factor of every LPAR at now.
func (a *Agent) systemInfo(now time.Time) SystemInfo {
	info := SystemInfo{
		Sysplex:       a.registry.Sysplex(),
		Timestamp:     now.In(a.factors.Location()),
		UptimeSeconds: int64(now.Sub(a.startedAt).Seconds()),
		LPARs:         make([]LPARInfo, 0, a.registry.Len()),
	}
	for _, name := range a.registry.Names() {
		e, err := a.registry.Lookup(name)
		if err != nil {
			continue
		}
		f := a.factors.Compute(now, e.Config, 1.0)
		info.LPARs = append(info.LPARs, LPARInfo{
			Name:              name,
			Workload:          e.Config.Workload,
			CPUCapacity:       e.Config.CPUCapacity,
			MemoryGB:          e.Config.MemoryGB,
			PeakHours:         append([]int{}, e.Config.PeakHours...),
			CurrentLoadFactor: math.Round(f.Composite*100) / 100,
			IsPeakHour:        f.PeakHour,
		})
	}
	return info
}
