package baseline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmf-simulator/internal/model"
)

func TestNewRegistry_DerivesBaselines(t *testing.T) {
	r, err := NewRegistry("SYSPLEX01", []model.LPARConfig{
		{Name: "PROD01", CPUCapacity: 16, MemoryGB: 64, Workload: model.WorkloadOnline, PeakHours: []int{9}},
		{Name: "BATCH01", CPUCapacity: 8, MemoryGB: 32, Workload: model.WorkloadBatch, PeakHours: []int{23}},
		{Name: "TEST01", CPUCapacity: 4, MemoryGB: 16, Workload: model.WorkloadMixed, CPUBase: 30},
	})
	require.NoError(t, err)

	assert.Equal(t, "SYSPLEX01", r.Sysplex())
	assert.Equal(t, []string{"PROD01", "BATCH01", "TEST01"}, r.Names())

	prod, err := r.Lookup("PROD01")
	require.NoError(t, err)
	assert.Equal(t, Baseline{CPUPct: 45, MemoryFraction: 0.75, IOResponseMS: 15, CFServiceUS: 25}, prod.Baseline)
	assert.Len(t, prod.Config.Devices, 3)
	assert.Equal(t, StandardCFLinks(), prod.Config.CFLinks)
	assert.Len(t, prod.Config.Queues, 4)
	assert.Len(t, prod.Config.Ports, 3)
	assert.Len(t, prod.Config.Volumes, 4)

	batch, err := r.Lookup("BATCH01")
	require.NoError(t, err)
	assert.Equal(t, 25.0, batch.Baseline.CPUPct)

	test, err := r.Lookup("TEST01")
	require.NoError(t, err)
	assert.Equal(t, 30.0, test.Baseline.CPUPct)
}

func TestNewRegistry_DeviceInheritsIOResponse(t *testing.T) {
	r, err := NewRegistry("SYSPLEX01", []model.LPARConfig{{
		Name: "PROD01", CPUCapacity: 16, MemoryGB: 64, Workload: model.WorkloadOnline,
		IOResponseMS: 12,
		Devices:      []model.DeviceSpec{{Type: "3390", Count: 2, UtilPct: 40}},
		Queues:       []model.QueueSpec{{Type: "CICS", BaseRate: 1000}},
	}})
	require.NoError(t, err)

	e, err := r.Lookup("PROD01")
	require.NoError(t, err)
	assert.Equal(t, 12.0, e.Config.Devices[0].ResponseMS)
	assert.Equal(t, 2500.0, e.Config.Queues[0].Capacity)
	assert.Equal(t, 10.0, e.Config.Queues[0].DepthScale)
}

func TestNewRegistry_DoesNotAliasInput(t *testing.T) {
	in := []model.LPARConfig{{
		Name: "PROD01", CPUCapacity: 16, MemoryGB: 64, Workload: model.WorkloadOnline,
		PeakHours: []int{9},
		Devices:   []model.DeviceSpec{{Type: "3390", Count: 2, UtilPct: 40}},
	}}
	r, err := NewRegistry("SYSPLEX01", in)
	require.NoError(t, err)

	in[0].PeakHours[0] = 3
	in[0].Devices[0].Count = 99

	e, err := r.Lookup("PROD01")
	require.NoError(t, err)
	assert.Equal(t, []int{9}, e.Config.PeakHours)
	assert.Equal(t, 2, e.Config.Devices[0].Count)
}

func TestNewRegistry_Invalid(t *testing.T) {
	valid := model.LPARConfig{Name: "PROD01", CPUCapacity: 16, MemoryGB: 64, Workload: model.WorkloadOnline}

	tests := map[string]struct {
		sysplex string
		lpars   []model.LPARConfig
	}{
		"empty sysplex": {sysplex: "", lpars: []model.LPARConfig{valid}},
		"no lpars":      {sysplex: "S", lpars: nil},
		"duplicate":     {sysplex: "S", lpars: []model.LPARConfig{valid, valid}},
		"no name": {sysplex: "S", lpars: []model.LPARConfig{
			{CPUCapacity: 1, MemoryGB: 1, Workload: model.WorkloadOnline},
		}},
		"bad workload": {sysplex: "S", lpars: []model.LPARConfig{
			{Name: "X", CPUCapacity: 1, MemoryGB: 1, Workload: "interactive"},
		}},
		"bad peak hour": {sysplex: "S", lpars: []model.LPARConfig{
			{Name: "X", CPUCapacity: 1, MemoryGB: 1, Workload: model.WorkloadBatch, PeakHours: []int{24}},
		}},
		"zero memory": {sysplex: "S", lpars: []model.LPARConfig{
			{Name: "X", CPUCapacity: 1, Workload: model.WorkloadBatch},
		}},
		"memory base above one": {sysplex: "S", lpars: []model.LPARConfig{
			{Name: "X", CPUCapacity: 1, MemoryGB: 1, Workload: model.WorkloadBatch, MemoryBase: 1.5},
		}},
		"negative volume count": {sysplex: "S", lpars: []model.LPARConfig{
			{Name: "X", CPUCapacity: 1, MemoryGB: 1, Workload: model.WorkloadBatch,
				Volumes: []model.VolumeSpec{{Type: "WORK", Count: -1}}},
		}},
		"queue without rate": {sysplex: "S", lpars: []model.LPARConfig{
			{Name: "X", CPUCapacity: 1, MemoryGB: 1, Workload: model.WorkloadBatch,
				Queues: []model.QueueSpec{{Type: "CICS"}}},
		}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(test.sysplex, test.lpars)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r, err := NewRegistry("S", []model.LPARConfig{
		{Name: "PROD01", CPUCapacity: 16, MemoryGB: 64, Workload: model.WorkloadOnline},
	})
	require.NoError(t, err)

	_, err = r.Lookup("NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLPAR))
}
