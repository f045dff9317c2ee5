package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusFactory implements MetricFactory on a prometheus
// Registerer. Metric names use dots for namespacing; the factory
// rewrites them to underscores to satisfy the prometheus data model.
type PrometheusFactory struct {
	reg prometheus.Registerer
}

var _ MetricFactory = (*PrometheusFactory)(nil)

// NewPrometheusFactory creates a factory registering on reg. A nil reg
// uses the default registerer.
func NewPrometheusFactory(reg prometheus.Registerer) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{reg: reg}
}

func promName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	return promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
		Name: promName(name),
	})
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	return promauto.With(f.reg).NewHistogram(prometheus.HistogramOpts{
		Name: promName(name),
	})
}
