package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"rmf-simulator/internal/model"
)

const DefaultSysplex = "SYSPLEX01"

// lparFile is the on-disk layout of RMF_LPAR_CONFIG.
type lparFile struct {
	Sysplex string      `yaml:"sysplex"`
	LPARs   []lparEntry `yaml:"lpars"`
}

// lparEntry mirrors model.LPARConfig with optional fields so an entry can
// borrow everything it does not set from the LPAR named in Inherits.
type lparEntry struct {
	Name         string          `yaml:"name"`
	Inherits     string          `yaml:"inherits"`
	CPUCapacity  *int            `yaml:"cpu_capacity"`
	MemoryGB     *int            `yaml:"memory_gb"`
	Workload     *model.Workload `yaml:"workload"`
	PeakHours    *[]int          `yaml:"peak_hours"`
	CPUBase      *float64        `yaml:"cpu_base"`
	MemoryBase   *float64        `yaml:"memory_base"`
	IOResponseMS *float64        `yaml:"io_response_ms"`
	CFServiceUS  *float64        `yaml:"cf_service_us"`

	Devices *[]model.DeviceSpec `yaml:"devices"`
	CFLinks *[]string           `yaml:"cf_links"`
	Queues  *[]model.QueueSpec  `yaml:"queues"`
	Ports   *[]model.PortSpec   `yaml:"ports"`
	Volumes *[]model.VolumeSpec `yaml:"volumes"`
}

// DefaultLPARs is the built-in sysplex used when no LPAR file is configured.
func DefaultLPARs() []model.LPARConfig {
	return []model.LPARConfig{
		{Name: "PROD01", CPUCapacity: 16, MemoryGB: 64, Workload: model.WorkloadOnline, PeakHours: []int{8, 9, 10, 14, 15, 16}},
		{Name: "PROD02", CPUCapacity: 12, MemoryGB: 48, Workload: model.WorkloadOnline, PeakHours: []int{8, 9, 10, 14, 15, 16}},
		{Name: "BATCH01", CPUCapacity: 8, MemoryGB: 32, Workload: model.WorkloadBatch, PeakHours: []int{22, 23, 0, 1, 2, 3, 4, 5}},
		{Name: "TEST01", CPUCapacity: 4, MemoryGB: 16, Workload: model.WorkloadMixed, PeakHours: []int{9, 10, 11, 15, 16, 17}},
	}
}

// LoadLPARs returns the sysplex name and LPAR list for cfg. Without a file
// the built-in defaults are used under cfg.Sysplex.
func LoadLPARs(cfg Config) (string, []model.LPARConfig, error) {
	if strings.TrimSpace(cfg.LPARConfigPath) == "" {
		return cfg.Sysplex, DefaultLPARs(), nil
	}
	data, err := os.ReadFile(cfg.LPARConfigPath)
	if err != nil {
		return "", nil, fmt.Errorf("read lpar config: %w", err)
	}
	sysplex, lpars, err := ParseLPARs(data)
	if err != nil {
		return "", nil, fmt.Errorf("lpar config %s: %w", cfg.LPARConfigPath, err)
	}
	if sysplex == "" {
		sysplex = cfg.Sysplex
	}
	return sysplex, lpars, nil
}

// ParseLPARs decodes an LPAR file and resolves inherits chains into flat,
// independent configs.
func ParseLPARs(data []byte) (string, []model.LPARConfig, error) {
	var f lparFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return "", nil, fmt.Errorf("decode: %w", err)
	}
	if len(f.LPARs) == 0 {
		return "", nil, errors.New("no lpars defined")
	}

	byName := make(map[string]lparEntry, len(f.LPARs))
	for _, e := range f.LPARs {
		if strings.TrimSpace(e.Name) == "" {
			return "", nil, errors.New("lpar without name")
		}
		if _, dup := byName[e.Name]; dup {
			return "", nil, fmt.Errorf("duplicate lpar %q", e.Name)
		}
		byName[e.Name] = e
	}

	r := resolver{entries: byName, done: make(map[string]model.LPARConfig), active: make(map[string]bool)}
	out := make([]model.LPARConfig, 0, len(f.LPARs))
	for _, e := range f.LPARs {
		c, err := r.resolve(e.Name)
		if err != nil {
			return "", nil, err
		}
		out = append(out, c.Clone())
	}
	return strings.TrimSpace(f.Sysplex), out, nil
}

type resolver struct {
	entries map[string]lparEntry
	done    map[string]model.LPARConfig
	active  map[string]bool
}

func (r *resolver) resolve(name string) (model.LPARConfig, error) {
	if c, ok := r.done[name]; ok {
		return c, nil
	}
	e, ok := r.entries[name]
	if !ok {
		return model.LPARConfig{}, fmt.Errorf("inherits unknown lpar %q", name)
	}
	if r.active[name] {
		return model.LPARConfig{}, fmt.Errorf("inherits cycle at lpar %q", name)
	}
	r.active[name] = true
	defer delete(r.active, name)

	var c model.LPARConfig
	if e.Inherits != "" {
		parent, err := r.resolve(e.Inherits)
		if err != nil {
			return model.LPARConfig{}, fmt.Errorf("lpar %q: %w", name, err)
		}
		c = parent.Clone()
	}
	e.applyTo(&c)
	r.done[name] = c
	return c, nil
}

func (e lparEntry) applyTo(c *model.LPARConfig) {
	c.Name = e.Name
	if e.CPUCapacity != nil {
		c.CPUCapacity = *e.CPUCapacity
	}
	if e.MemoryGB != nil {
		c.MemoryGB = *e.MemoryGB
	}
	if e.Workload != nil {
		c.Workload = *e.Workload
	}
	if e.PeakHours != nil {
		c.PeakHours = append([]int(nil), (*e.PeakHours)...)
	}
	if e.CPUBase != nil {
		c.CPUBase = *e.CPUBase
	}
	if e.MemoryBase != nil {
		c.MemoryBase = *e.MemoryBase
	}
	if e.IOResponseMS != nil {
		c.IOResponseMS = *e.IOResponseMS
	}
	if e.CFServiceUS != nil {
		c.CFServiceUS = *e.CFServiceUS
	}
	if e.Devices != nil {
		c.Devices = append([]model.DeviceSpec(nil), (*e.Devices)...)
	}
	if e.CFLinks != nil {
		c.CFLinks = append([]string(nil), (*e.CFLinks)...)
	}
	if e.Queues != nil {
		c.Queues = append([]model.QueueSpec(nil), (*e.Queues)...)
	}
	if e.Ports != nil {
		c.Ports = append([]model.PortSpec(nil), (*e.Ports)...)
	}
	if e.Volumes != nil {
		c.Volumes = append([]model.VolumeSpec(nil), (*e.Volumes)...)
	}
}
