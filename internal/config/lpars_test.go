package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmf-simulator/internal/model"
)

const sampleLPARs = `
sysplex: PLEXA
lpars:
  - name: PROD01
    cpu_capacity: 16
    memory_gb: 64
    workload: online
    peak_hours: [8, 9, 10]
    io_response_ms: 12
    devices:
      - {type: "3390", count: 4, response_ms: 8, util_pct: 40}
  - name: PROD03
    inherits: PROD01
    memory_gb: 128
    peak_hours: []
  - name: PROD04
    inherits: PROD03
    cpu_base: 60
`

func TestParseLPARs_Inherits(t *testing.T) {
	sysplex, lpars, err := ParseLPARs([]byte(sampleLPARs))
	require.NoError(t, err)
	assert.Equal(t, "PLEXA", sysplex)
	require.Len(t, lpars, 3)

	prod03 := lpars[1]
	assert.Equal(t, "PROD03", prod03.Name)
	assert.Equal(t, 16, prod03.CPUCapacity)
	assert.Equal(t, 128, prod03.MemoryGB)
	assert.Equal(t, model.WorkloadOnline, prod03.Workload)
	assert.Empty(t, prod03.PeakHours, "explicit empty list overrides the parent")
	assert.Equal(t, 12.0, prod03.IOResponseMS)
	require.Len(t, prod03.Devices, 1)

	prod04 := lpars[2]
	assert.Equal(t, 128, prod04.MemoryGB)
	assert.Equal(t, 60.0, prod04.CPUBase)
	assert.Equal(t, 0.0, lpars[0].CPUBase)

	lpars[1].Devices[0].Count = 99
	assert.Equal(t, 4, lpars[0].Devices[0].Count)
	assert.Equal(t, 4, lpars[2].Devices[0].Count)
	assert.Equal(t, []int{8, 9, 10}, lpars[0].PeakHours)
}

func TestParseLPARs_Errors(t *testing.T) {
	tests := map[string]struct {
		data    string
		wantErr string
	}{
		"empty": {
			data:    "sysplex: X\n",
			wantErr: "no lpars defined",
		},
		"unknown field": {
			data:    "lpars:\n  - name: A\n    cpu_capcity: 4\n",
			wantErr: "decode",
		},
		"missing name": {
			data:    "lpars:\n  - cpu_capacity: 4\n",
			wantErr: "without name",
		},
		"duplicate": {
			data:    "lpars:\n  - name: A\n  - name: A\n",
			wantErr: "duplicate lpar",
		},
		"unknown parent": {
			data:    "lpars:\n  - name: A\n    inherits: Z\n",
			wantErr: `inherits unknown lpar "Z"`,
		},
		"cycle": {
			data:    "lpars:\n  - name: A\n    inherits: B\n  - name: B\n    inherits: A\n",
			wantErr: "inherits cycle",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseLPARs([]byte(test.data))
			assert.ErrorContains(t, err, test.wantErr)
		})
	}
}

func TestLoadLPARs(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		sysplex, lpars, err := LoadLPARs(Config{Sysplex: "SYSPLEX01"})
		require.NoError(t, err)
		assert.Equal(t, "SYSPLEX01", sysplex)
		require.Len(t, lpars, 4)
		assert.Equal(t, "BATCH01", lpars[2].Name)
		assert.Equal(t, model.WorkloadBatch, lpars[2].Workload)
		assert.True(t, lpars[2].IsPeakHour(23))
		assert.False(t, lpars[2].IsPeakHour(14))
	})

	t.Run("file without sysplex uses config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lpars.yaml")
		require.NoError(t, os.WriteFile(path, []byte("lpars:\n  - name: A\n    cpu_capacity: 2\n    memory_gb: 8\n    workload: batch\n"), 0o600))

		sysplex, lpars, err := LoadLPARs(Config{Sysplex: "ENVPLEX", LPARConfigPath: path})
		require.NoError(t, err)
		assert.Equal(t, "ENVPLEX", sysplex)
		require.Len(t, lpars, 1)
		assert.Equal(t, 8, lpars[0].MemoryGB)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadLPARs(Config{Sysplex: "X", LPARConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
		assert.ErrorContains(t, err, "read lpar config")
	})
}
