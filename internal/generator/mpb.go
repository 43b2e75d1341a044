package generator

import (
	"math"

	"rmf-simulator/internal/model"
)

// maxOccupancy keeps depth finite when a queue runs at or above capacity.
const maxOccupancy = 0.99

// MPB emits processing rate and queue depth per queue type. Depth grows with
// occupancy as rho/(1-rho), so it rises sharply as headroom runs out.
func MPB(in Input) []model.MetricSample {
	queues := in.Entry.Config.Queues
	out := make([]model.MetricSample, 0, 2*len(queues))
	for _, q := range queues {
		rate := floor0(q.BaseRate * in.Factor.Composite)

		rho := clamp(rate/q.Capacity, 0, maxOccupancy)
		depth := math.Round(floor0(q.DepthScale * rho / (1 - rho) * in.localNoise()))

		out = append(out,
			in.sample(model.MetricMPBProcessingRate, rate, label(model.LabelQueueType, q.Type)),
			in.sample(model.MetricMPBQueueDepth, depth, label(model.LabelQueueType, q.Type)),
		)
	}
	return out
}
