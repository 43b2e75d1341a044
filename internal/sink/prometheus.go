package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rmf-simulator/internal/model"
)

// PrometheusSink keeps the latest value of every series in a private registry
// for scraping. Response and service times are exported as histograms.
type PrometheusSink struct {
	registry   *prometheus.Registry
	gauges     map[model.MetricName]*prometheus.GaugeVec
	histograms map[model.MetricName]*prometheus.HistogramVec
}

func NewPrometheusSink() (*PrometheusSink, error) {
	p := &PrometheusSink{
		registry:   prometheus.NewRegistry(),
		gauges:     make(map[model.MetricName]*prometheus.GaugeVec),
		histograms: make(map[model.MetricName]*prometheus.HistogramVec),
	}
	for _, def := range model.Catalog {
		labels := append([]string{"sysplex", "lpar"}, def.Prom.Labels...)
		var c prometheus.Collector
		switch def.Prom.Kind {
		case model.PromHistogram:
			h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    def.Prom.Name,
				Help:    def.Help,
				Buckets: def.Prom.Buckets,
			}, labels)
			p.histograms[def.Name] = h
			c = h
		default:
			g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: def.Prom.Name,
				Help: def.Help,
			}, labels)
			p.gauges[def.Name] = g
			c = g
		}
		if err := p.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Prom.Name, err)
		}
	}
	return p, nil
}

func (p *PrometheusSink) Name() string {
	return "prometheus"
}

func (p *PrometheusSink) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusSink) Write(_ context.Context, batch model.MetricBatch) error {
	var errs []error
	for _, s := range batch.Samples {
		if err := p.observe(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *PrometheusSink) Close(context.Context) error {
	return nil
}

func (p *PrometheusSink) observe(s model.MetricSample) error {
	def, ok := model.LookupMetric(s.Metric)
	if !ok {
		return fmt.Errorf("unknown metric %q", s.Metric)
	}
	labels := prometheus.Labels{"sysplex": s.Sysplex, "lpar": s.LPAR}
	for _, name := range def.Prom.Labels {
		labels[name] = s.Label(name)
	}
	v := s.Value
	if def.Prom.Scale != 0 {
		v *= def.Prom.Scale
	}

	if h, ok := p.histograms[s.Metric]; ok {
		obs, err := h.GetMetricWith(labels)
		if err != nil {
			return fmt.Errorf("%s: %w", def.Prom.Name, err)
		}
		obs.Observe(v)
		return nil
	}
	g, err := p.gauges[s.Metric].GetMetricWith(labels)
	if err != nil {
		return fmt.Errorf("%s: %w", def.Prom.Name, err)
	}
	g.Set(v)
	return nil
}
