package model

type Component string

const (
	ComponentCPU     Component = "cpu"
	ComponentMemory  Component = "memory"
	ComponentLDEV    Component = "ldev"
	ComponentCLPR    Component = "clpr"
	ComponentMPB     Component = "mpb"
	ComponentPorts   Component = "ports"
	ComponentVolumes Component = "volumes"
)

type MetricName string

const (
	MetricCPUUtilization     MetricName = "cpu_utilization"
	MetricMemoryUsage        MetricName = "memory_usage"
	MetricLDEVResponseTime   MetricName = "ldev_response_time"
	MetricLDEVUtilization    MetricName = "ldev_utilization"
	MetricCLPRServiceTime    MetricName = "clpr_service_time"
	MetricCLPRRequestRate    MetricName = "clpr_request_rate"
	MetricMPBProcessingRate  MetricName = "mpb_processing_rate"
	MetricMPBQueueDepth      MetricName = "mpb_queue_depth"
	MetricPortsUtilization   MetricName = "ports_utilization"
	MetricPortsThroughput    MetricName = "ports_throughput"
	MetricVolumesUtilization MetricName = "volumes_utilization"
	MetricVolumesIOPS        MetricName = "volumes_iops"
)

// Label names shared by generators and sinks.
const (
	LabelCPUType     = "cpu_type"
	LabelMemoryType  = "memory_type"
	LabelDeviceType  = "device_type"
	LabelDeviceID    = "device_id"
	LabelCFLink      = "cf_link"
	LabelRequestType = "request_type"
	LabelQueueType   = "queue_type"
	LabelPortType    = "port_type"
	LabelPortID      = "port_id"
	LabelVolumeType  = "volume_type"
	LabelVolumeID    = "volume_id"
)

type PromKind int

const (
	PromGauge PromKind = iota
	PromHistogram
)

// PromSpec describes how a metric is exposed on the live registry. Labels is the
// component label subset kept on the series; sysplex and lpar are always added.
type PromSpec struct {
	Name    string
	Kind    PromKind
	Labels  []string
	Buckets []float64
	Scale   float64
}

type MetricDef struct {
	Name        MetricName
	Component   Component
	Unit        string
	Help        string
	Labels      []string
	ValueColumn string
	SQLType     string
	Integer     bool
	Prom        PromSpec

	// TableName overrides the default <metric>_metrics name.
	TableName string
}

// Table is the relational table and document collection name of the metric.
func (d MetricDef) Table() string {
	if d.TableName != "" {
		return d.TableName
	}
	return string(d.Name) + "_metrics"
}

var Catalog = []MetricDef{
	{
		Name: MetricCPUUtilization, Component: ComponentCPU, Unit: "percent", TableName: "cpu_metrics",
		Help:        "CPU utilization percentage by processor class",
		Labels:      []string{LabelCPUType},
		ValueColumn: "utilization_percent", SQLType: "DECIMAL(5,2)",
		Prom: PromSpec{Name: "rmf_cpu_utilization_percent", Kind: PromGauge, Labels: []string{LabelCPUType}},
	},
	{
		Name: MetricMemoryUsage, Component: ComponentMemory, Unit: "bytes", TableName: "memory_metrics",
		Help:        "Memory usage in bytes by storage type",
		Labels:      []string{LabelMemoryType},
		ValueColumn: "usage_bytes", SQLType: "BIGINT", Integer: true,
		Prom: PromSpec{Name: "rmf_memory_usage_bytes", Kind: PromGauge, Labels: []string{LabelMemoryType}},
	},
	{
		Name: MetricLDEVResponseTime, Component: ComponentLDEV, Unit: "milliseconds",
		Help:        "Logical device response time",
		Labels:      []string{LabelDeviceType, LabelDeviceID},
		ValueColumn: "response_time_ms", SQLType: "DECIMAL(10,3)",
		Prom: PromSpec{
			Name: "rmf_ldev_response_time_seconds", Kind: PromHistogram,
			Labels:  []string{LabelDeviceType},
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			Scale:   0.001,
		},
	},
	{
		Name: MetricLDEVUtilization, Component: ComponentLDEV, Unit: "percent",
		Help:        "Logical device utilization percentage",
		Labels:      []string{LabelDeviceType, LabelDeviceID},
		ValueColumn: "utilization_percent", SQLType: "DECIMAL(5,2)",
		Prom: PromSpec{Name: "rmf_ldev_utilization_percent", Kind: PromGauge, Labels: []string{LabelDeviceID}},
	},
	{
		Name: MetricCLPRServiceTime, Component: ComponentCLPR, Unit: "microseconds",
		Help:        "Coupling facility link service time",
		Labels:      []string{LabelCFLink},
		ValueColumn: "service_time_microseconds", SQLType: "DECIMAL(10,3)",
		Prom: PromSpec{
			Name: "rmf_clpr_service_time_microseconds", Kind: PromHistogram,
			Labels:  []string{LabelCFLink},
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	},
	{
		Name: MetricCLPRRequestRate, Component: ComponentCLPR, Unit: "requests_per_second",
		Help:        "Coupling facility request rate",
		Labels:      []string{LabelCFLink, LabelRequestType},
		ValueColumn: "request_rate", SQLType: "DECIMAL(10,2)",
		Prom: PromSpec{Name: "rmf_clpr_request_rate", Kind: PromGauge, Labels: []string{LabelCFLink, LabelRequestType}},
	},
	{
		Name: MetricMPBProcessingRate, Component: ComponentMPB, Unit: "messages_per_second",
		Help:        "Message processing rate by queue type",
		Labels:      []string{LabelQueueType},
		ValueColumn: "processing_rate", SQLType: "DECIMAL(10,2)",
		Prom: PromSpec{Name: "rmf_mpb_processing_rate", Kind: PromGauge, Labels: []string{LabelQueueType}},
	},
	{
		Name: MetricMPBQueueDepth, Component: ComponentMPB, Unit: "messages",
		Help:        "Message queue depth by queue type",
		Labels:      []string{LabelQueueType},
		ValueColumn: "queue_depth", SQLType: "INT", Integer: true,
		Prom: PromSpec{Name: "rmf_mpb_queue_depth", Kind: PromGauge, Labels: []string{LabelQueueType}},
	},
	{
		Name: MetricPortsUtilization, Component: ComponentPorts, Unit: "percent",
		Help:        "Port utilization percentage",
		Labels:      []string{LabelPortType, LabelPortID},
		ValueColumn: "utilization_percent", SQLType: "DECIMAL(5,2)",
		Prom: PromSpec{Name: "rmf_ports_utilization_percent", Kind: PromGauge, Labels: []string{LabelPortType, LabelPortID}},
	},
	{
		Name: MetricPortsThroughput, Component: ComponentPorts, Unit: "megabytes_per_second",
		Help:        "Port throughput in MB/s",
		Labels:      []string{LabelPortType, LabelPortID},
		ValueColumn: "throughput_mbps", SQLType: "DECIMAL(10,2)",
		Prom: PromSpec{Name: "rmf_ports_throughput_mbps", Kind: PromGauge, Labels: []string{LabelPortType, LabelPortID}},
	},
	{
		Name: MetricVolumesUtilization, Component: ComponentVolumes, Unit: "percent",
		Help:        "Volume utilization percentage",
		Labels:      []string{LabelVolumeType, LabelVolumeID},
		ValueColumn: "utilization_percent", SQLType: "DECIMAL(5,2)",
		Prom: PromSpec{Name: "rmf_volumes_utilization_percent", Kind: PromGauge, Labels: []string{LabelVolumeType, LabelVolumeID}},
	},
	{
		Name: MetricVolumesIOPS, Component: ComponentVolumes, Unit: "iops",
		Help:        "Volume I/O operations per second",
		Labels:      []string{LabelVolumeType, LabelVolumeID},
		ValueColumn: "iops", SQLType: "INT", Integer: true,
		Prom: PromSpec{Name: "rmf_volumes_iops", Kind: PromGauge, Labels: []string{LabelVolumeType, LabelVolumeID}},
	},
}

var catalogIndex = func() map[MetricName]MetricDef {
	out := make(map[MetricName]MetricDef, len(Catalog))
	for _, d := range Catalog {
		out[d.Name] = d
	}
	return out
}()

func LookupMetric(name MetricName) (MetricDef, bool) {
	d, ok := catalogIndex[name]
	return d, ok
}
