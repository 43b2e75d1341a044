package version

import (
	"time"

	"rmf-simulator/internal/config"
)

// Get describes the running simulator. Sinks and seed are only known once the
// sinks are open, so callers pass them in.
func Get(cfg config.Config, sysplex string, lpars, sinks []string, seed uint64) *Info {
	return &Info{
		Sysplex:          sysplex,
		LPARs:            lpars,
		Sinks:            sinks,
		Seed:             seed,
		SimulatorVersion: cfg.Version,
		TickInterval:     cfg.TickInterval.String(),
		ProbeListenAddr:  cfg.ProbeListenAddr,
		CheckedAtUnix:    time.Now().UTC().Unix(),
	}
}
