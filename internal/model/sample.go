package model

import "time"

type Label struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// MetricSample is one generated measurement. Labels keep generator order.
type MetricSample struct {
	Timestamp time.Time  `json:"timestamp"`
	Sysplex   string     `json:"sysplex"`
	LPAR      string     `json:"lpar"`
	Metric    MetricName `json:"metric"`
	Labels    []Label    `json:"labels"`
	Value     float64    `json:"value"`
}

func (s MetricSample) Label(name string) string {
	for _, l := range s.Labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

// LabelMap flattens the sample into sysplex, lpar and the component labels.
func (s MetricSample) LabelMap() map[string]string {
	out := make(map[string]string, len(s.Labels)+2)
	out["sysplex"] = s.Sysplex
	out["lpar"] = s.LPAR
	for _, l := range s.Labels {
		out[l.Name] = l.Value
	}
	return out
}

// MetricBatch is the output of one tick across all LPARs.
type MetricBatch struct {
	ID      string         `json:"batch_id"`
	Sysplex string         `json:"sysplex"`
	Tick    time.Time      `json:"tick"`
	Samples []MetricSample `json:"samples"`
}

func (b MetricBatch) Len() int {
	return len(b.Samples)
}

// ByMetric groups samples per metric name, preserving sample order inside each group.
func (b MetricBatch) ByMetric() map[MetricName][]MetricSample {
	out := make(map[MetricName][]MetricSample)
	for _, s := range b.Samples {
		out[s.Metric] = append(out[s.Metric], s)
	}
	return out
}
