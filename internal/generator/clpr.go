package generator

import "rmf-simulator/internal/model"

const (
	cfServiceMinUS = 5.0
	cfServiceMaxUS = 200.0
	syncRateMin    = 1000.0
	syncRateMax    = 10000.0
	asyncRateMin   = 500.0
	asyncRateMax   = 3000.0
)

const (
	RequestSynchronous  = "synchronous"
	RequestAsynchronous = "asynchronous"
)

func CLPR(in Input) []model.MetricSample {
	links := in.Entry.Config.CFLinks
	out := make([]model.MetricSample, 0, 3*len(links))
	for _, link := range links {
		service := clamp(in.Entry.Baseline.CFServiceUS*in.Factor.Composite*in.localNoise(), cfServiceMinUS, cfServiceMaxUS)
		sync := clamp(in.uniform(syncRateMin, syncRateMax)*in.Factor.Composite, syncRateMin, syncRateMax)
		async := clamp(in.uniform(asyncRateMin, asyncRateMax)*in.Factor.Composite, asyncRateMin, asyncRateMax)

		out = append(out,
			in.sample(model.MetricCLPRServiceTime, service, label(model.LabelCFLink, link)),
			in.sample(model.MetricCLPRRequestRate, sync,
				label(model.LabelCFLink, link), label(model.LabelRequestType, RequestSynchronous)),
			in.sample(model.MetricCLPRRequestRate, async,
				label(model.LabelCFLink, link), label(model.LabelRequestType, RequestAsynchronous)),
		)
	}
	return out
}
