package baseline

import (
	"errors"
	"fmt"
	"strings"

	"rmf-simulator/internal/model"
)

var ErrUnknownLPAR = errors.New("unknown lpar")

// Baseline holds the starting values every generator scales by the time factor.
type Baseline struct {
	CPUPct         float64 `json:"cpu_pct"`
	MemoryFraction float64 `json:"memory_fraction"`
	IOResponseMS   float64 `json:"io_response_ms"`
	CFServiceUS    float64 `json:"cf_service_us"`
}

// Entry is the frozen view of one LPAR. It is shared read-only across ticks.
type Entry struct {
	Config   model.LPARConfig
	Baseline Baseline
}

type Registry struct {
	sysplex string
	order   []string
	entries map[string]*Entry
}

func NewRegistry(sysplex string, lpars []model.LPARConfig) (*Registry, error) {
	if strings.TrimSpace(sysplex) == "" {
		return nil, errors.New("sysplex name is required")
	}
	if len(lpars) == 0 {
		return nil, errors.New("at least one lpar is required")
	}

	r := &Registry{
		sysplex: sysplex,
		order:   make([]string, 0, len(lpars)),
		entries: make(map[string]*Entry, len(lpars)),
	}
	for _, c := range lpars {
		if _, dup := r.entries[c.Name]; dup {
			return nil, fmt.Errorf("duplicate lpar %q", c.Name)
		}
		e, err := buildEntry(c)
		if err != nil {
			return nil, fmt.Errorf("lpar %q: %w", c.Name, err)
		}
		r.order = append(r.order, c.Name)
		r.entries[c.Name] = e
	}
	return r, nil
}

func (r *Registry) Sysplex() string {
	return r.sysplex
}

// Names returns LPAR names in configuration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) Lookup(name string) (*Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLPAR, name)
	}
	return e, nil
}

func buildEntry(in model.LPARConfig) (*Entry, error) {
	c := in.Clone()
	if err := validate(c); err != nil {
		return nil, err
	}

	b := Baseline{
		CPUPct:         c.CPUBase,
		MemoryFraction: c.MemoryBase,
		IOResponseMS:   c.IOResponseMS,
		CFServiceUS:    c.CFServiceUS,
	}
	if b.CPUPct == 0 {
		b.CPUPct = cpuBaseOther
		if c.Workload == model.WorkloadOnline {
			b.CPUPct = cpuBaseOnline
		}
	}
	if b.MemoryFraction == 0 {
		b.MemoryFraction = memoryBase
	}
	if b.IOResponseMS == 0 {
		b.IOResponseMS = ioResponseBaseMS
	}
	if b.CFServiceUS == 0 {
		b.CFServiceUS = cfServiceBaseUS
	}

	if len(c.Devices) == 0 {
		c.Devices = StandardDevices()
	}
	for i := range c.Devices {
		if c.Devices[i].ResponseMS == 0 {
			c.Devices[i].ResponseMS = b.IOResponseMS
		}
	}
	if len(c.CFLinks) == 0 {
		c.CFLinks = StandardCFLinks()
	}
	if len(c.Queues) == 0 {
		c.Queues = StandardQueues()
	}
	for i := range c.Queues {
		q := &c.Queues[i]
		if q.Capacity == 0 {
			q.Capacity = q.BaseRate * 2.5
		}
		if q.DepthScale == 0 {
			q.DepthScale = defaultDepthScale
		}
	}
	if len(c.Ports) == 0 {
		c.Ports = StandardPorts()
	}
	if len(c.Volumes) == 0 {
		c.Volumes = StandardVolumes()
	}

	return &Entry{Config: c, Baseline: b}, nil
}

func validate(c model.LPARConfig) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if c.CPUCapacity <= 0 {
		return errors.New("cpu_capacity must be > 0")
	}
	if c.MemoryGB <= 0 {
		return errors.New("memory_gb must be > 0")
	}
	if !c.Workload.Valid() {
		return fmt.Errorf("unsupported workload %q", c.Workload)
	}
	for _, h := range c.PeakHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("peak hour %d out of range 0-23", h)
		}
	}
	if c.CPUBase < 0 || c.MemoryBase < 0 || c.IOResponseMS < 0 || c.CFServiceUS < 0 {
		return errors.New("baseline overrides must be >= 0")
	}
	if c.MemoryBase > 1 {
		return errors.New("memory_base is a fraction and must be <= 1")
	}
	for _, d := range c.Devices {
		if d.Type == "" || d.Count < 0 || d.ResponseMS < 0 || d.UtilPct < 0 {
			return fmt.Errorf("invalid device inventory entry %+v", d)
		}
	}
	for _, q := range c.Queues {
		if q.Type == "" || q.BaseRate < 0 || q.Capacity < 0 || q.DepthScale < 0 {
			return fmt.Errorf("invalid queue inventory entry %+v", q)
		}
		if q.Capacity == 0 && q.BaseRate == 0 {
			return fmt.Errorf("queue %q needs a base_rate or capacity", q.Type)
		}
	}
	for _, p := range c.Ports {
		if p.Type == "" || p.Count < 0 || p.MaxMBps < 0 || p.UtilPct < 0 {
			return fmt.Errorf("invalid port inventory entry %+v", p)
		}
	}
	for _, v := range c.Volumes {
		if v.Type == "" || v.Count < 0 || v.UtilPct < 0 || v.IOPS < 0 {
			return fmt.Errorf("invalid volume inventory entry %+v", v)
		}
	}
	for _, l := range c.CFLinks {
		if strings.TrimSpace(l) == "" {
			return errors.New("cf link names must not be empty")
		}
	}
	return nil
}
