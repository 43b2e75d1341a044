package model

type Workload string

const (
	WorkloadOnline Workload = "online"
	WorkloadBatch  Workload = "batch"
	WorkloadMixed  Workload = "mixed"
)

func (w Workload) Valid() bool {
	switch w {
	case WorkloadOnline, WorkloadBatch, WorkloadMixed:
		return true
	}
	return false
}

// LPARConfig is the frozen description of one logical partition. Zero-valued
// baseline fields and empty inventories are filled with defaults when the
// baseline registry is built.
type LPARConfig struct {
	Name         string   `json:"name" yaml:"name"`
	CPUCapacity  int      `json:"cpu_capacity" yaml:"cpu_capacity"`
	MemoryGB     int      `json:"memory_gb" yaml:"memory_gb"`
	Workload     Workload `json:"workload" yaml:"workload"`
	PeakHours    []int    `json:"peak_hours" yaml:"peak_hours"`
	CPUBase      float64  `json:"cpu_base,omitempty" yaml:"cpu_base,omitempty"`
	MemoryBase   float64  `json:"memory_base,omitempty" yaml:"memory_base,omitempty"`
	IOResponseMS float64  `json:"io_response_ms,omitempty" yaml:"io_response_ms,omitempty"`
	CFServiceUS  float64  `json:"cf_service_us,omitempty" yaml:"cf_service_us,omitempty"`

	Devices []DeviceSpec `json:"devices,omitempty" yaml:"devices,omitempty"`
	CFLinks []string     `json:"cf_links,omitempty" yaml:"cf_links,omitempty"`
	Queues  []QueueSpec  `json:"queues,omitempty" yaml:"queues,omitempty"`
	Ports   []PortSpec   `json:"ports,omitempty" yaml:"ports,omitempty"`
	Volumes []VolumeSpec `json:"volumes,omitempty" yaml:"volumes,omitempty"`
}

func (c LPARConfig) IsPeakHour(hour int) bool {
	for _, h := range c.PeakHours {
		if h == hour {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can apply overrides without touching the source.
func (c LPARConfig) Clone() LPARConfig {
	out := c
	out.PeakHours = append([]int(nil), c.PeakHours...)
	out.Devices = append([]DeviceSpec(nil), c.Devices...)
	out.CFLinks = append([]string(nil), c.CFLinks...)
	out.Queues = append([]QueueSpec(nil), c.Queues...)
	out.Ports = append([]PortSpec(nil), c.Ports...)
	out.Volumes = append([]VolumeSpec(nil), c.Volumes...)
	return out
}

type DeviceSpec struct {
	Type       string  `json:"type" yaml:"type"`
	Count      int     `json:"count" yaml:"count"`
	ResponseMS float64 `json:"response_ms" yaml:"response_ms"`
	UtilPct    float64 `json:"util_pct" yaml:"util_pct"`
}

type QueueSpec struct {
	Type       string  `json:"type" yaml:"type"`
	BaseRate   float64 `json:"base_rate" yaml:"base_rate"`
	Capacity   float64 `json:"capacity" yaml:"capacity"`
	DepthScale float64 `json:"depth_scale" yaml:"depth_scale"`
}

type PortSpec struct {
	Type    string  `json:"type" yaml:"type"`
	Count   int     `json:"count" yaml:"count"`
	MaxMBps float64 `json:"max_mbps" yaml:"max_mbps"`
	UtilPct float64 `json:"util_pct" yaml:"util_pct"`
}

type VolumeSpec struct {
	Type    string  `json:"type" yaml:"type"`
	Count   int     `json:"count" yaml:"count"`
	UtilPct float64 `json:"util_pct" yaml:"util_pct"`
	IOPS    float64 `json:"iops" yaml:"iops"`
}
