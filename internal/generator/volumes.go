package generator

import (
	"math"

	"rmf-simulator/internal/model"
)

const (
	volumeUtilMin = 10.0
	volumeUtilMax = 90.0
)

func Volumes(in Input) []model.MetricSample {
	volumes := in.Entry.Config.Volumes
	n := 0
	for _, v := range volumes {
		n += v.Count
	}

	out := make([]model.MetricSample, 0, 2*n)
	for _, v := range volumes {
		for i := 0; i < v.Count; i++ {
			id := volumeID(v.Type, i)
			util := clamp(v.UtilPct*in.Factor.Composite*in.localNoise(), volumeUtilMin, volumeUtilMax)
			iops := math.Round(floor0(v.IOPS * in.Factor.Composite * in.localNoise()))

			out = append(out,
				in.sample(model.MetricVolumesUtilization, util,
					label(model.LabelVolumeType, v.Type), label(model.LabelVolumeID, id)),
				in.sample(model.MetricVolumesIOPS, iops,
					label(model.LabelVolumeType, v.Type), label(model.LabelVolumeID, id)),
			)
		}
	}
	return out
}
