package baseline

import "rmf-simulator/internal/model"

const (
	cpuBaseOnline     = 45.0
	cpuBaseOther      = 25.0
	memoryBase        = 0.75
	ioResponseBaseMS  = 15.0
	cfServiceBaseUS   = 25.0
	defaultDepthScale = 10.0
)

func StandardDevices() []model.DeviceSpec {
	return []model.DeviceSpec{
		{Type: "3390", Count: 20, ResponseMS: 8.0, UtilPct: 40},
		{Type: "flashcopy", Count: 8, ResponseMS: 2.0, UtilPct: 55},
		{Type: "tape", Count: 12, ResponseMS: 45.0, UtilPct: 25},
	}
}

func StandardCFLinks() []string {
	return []string{"CF01", "CF02", "CF03", "CF04"}
}

func StandardQueues() []model.QueueSpec {
	return []model.QueueSpec{
		{Type: "CICS", BaseRate: 5000, Capacity: 12000, DepthScale: defaultDepthScale},
		{Type: "IMS", BaseRate: 3000, Capacity: 8000, DepthScale: defaultDepthScale},
		{Type: "MQ", BaseRate: 2000, Capacity: 6000, DepthScale: defaultDepthScale},
		{Type: "BATCH", BaseRate: 500, Capacity: 2000, DepthScale: defaultDepthScale},
	}
}

func StandardPorts() []model.PortSpec {
	return []model.PortSpec{
		{Type: "OSA", Count: 4, MaxMBps: 1000, UtilPct: 35},
		{Type: "Hipersocket", Count: 2, MaxMBps: 10000, UtilPct: 15},
		{Type: "FICON", Count: 8, MaxMBps: 400, UtilPct: 45},
	}
}

func StandardVolumes() []model.VolumeSpec {
	return []model.VolumeSpec{
		{Type: "SYSRES", Count: 2, UtilPct: 60, IOPS: 1500},
		{Type: "WORK", Count: 15, UtilPct: 45, IOPS: 800},
		{Type: "USER", Count: 25, UtilPct: 35, IOPS: 600},
		{Type: "TEMP", Count: 8, UtilPct: 25, IOPS: 400},
	}
}
