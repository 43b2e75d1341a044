package version

type Info struct {
	Sysplex          string   `json:"sysplex"`
	LPARs            []string `json:"lpars"`
	Sinks            []string `json:"sinks"`
	Seed             uint64   `json:"seed"`
	SimulatorVersion string   `json:"simulator_version"`
	TickInterval     string   `json:"tick_interval"`
	ProbeListenAddr  string   `json:"probe_listen_addr"`
	CheckedAtUnix    int64    `json:"checked_at_unix"`
}
