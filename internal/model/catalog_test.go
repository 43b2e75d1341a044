package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricDef_Table(t *testing.T) {
	tests := map[MetricName]string{
		MetricCPUUtilization:    "cpu_metrics",
		MetricMemoryUsage:       "memory_metrics",
		MetricLDEVResponseTime:  "ldev_response_time_metrics",
		MetricCLPRRequestRate:   "clpr_request_rate_metrics",
		MetricVolumesIOPS:       "volumes_iops_metrics",
		MetricMPBProcessingRate: "mpb_processing_rate_metrics",
	}
	for name, want := range tests {
		t.Run(string(name), func(t *testing.T) {
			def, ok := LookupMetric(name)
			require.True(t, ok)
			assert.Equal(t, want, def.Table())
		})
	}
}

func TestCatalog_TablesAreUnique(t *testing.T) {
	seen := make(map[string]MetricName, len(Catalog))
	for _, d := range Catalog {
		prev, dup := seen[d.Table()]
		assert.False(t, dup, "%s and %s share table %s", prev, d.Name, d.Table())
		seen[d.Table()] = d.Name
	}
	assert.Len(t, seen, 12)
}
