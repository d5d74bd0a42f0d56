// Package metrics exposes Prometheus collectors for an apiservice dispatcher.
//
//	m := metrics.New(prometheus.DefaultRegisterer, d.Registry())
//	m.Instrument(d)
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/broady/apiservice"
)

const namespace = "apiservice"

// Collector records dispatch outcomes and durations.
type Collector struct {
	dispatches *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cached     prometheus.GaugeFunc
	scans      prometheus.CounterFunc
}

// New creates the collectors and registers them with reg. registry may be
// nil, in which case no cache metrics are exported.
func New(reg prometheus.Registerer, registry *apiservice.Registry) *Collector {
	c := &Collector{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Total number of dispatched requests by service, action and outcome code.",
			},
			[]string{"service", "version", "action", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Duration of dispatched requests.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"service", "version", "action"},
		),
	}

	collectors := []prometheus.Collector{c.dispatches, c.duration}
	if registry != nil {
		c.cached = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "cached_types",
				Help:      "Number of (service, version) pairs resolved and cached.",
			},
			func() float64 { return float64(registry.Len()) },
		)
		c.scans = prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "scans_total",
				Help:      "Number of candidate type scans performed on cache misses.",
			},
			func() float64 { return float64(registry.Scans()) },
		)
		collectors = append(collectors, c.cached, c.scans)
	}

	if reg != nil {
		reg.MustRegister(collectors...)
	}
	return c
}

// Instrument attaches the collector to d's success and failure hooks.
func (c *Collector) Instrument(d *apiservice.Dispatcher) *apiservice.Dispatcher {
	return d.WithOnSuccess(c.OnSuccess).WithOnFailure(c.OnFailure)
}

// OnSuccess implements apiservice.OnSuccessFunc.
func (c *Collector) OnSuccess(_ context.Context, desc *apiservice.ServiceDescriptor, action string, d time.Duration) {
	c.observe(desc, action, "ok", d)
}

// OnFailure implements apiservice.OnFailureFunc.
func (c *Collector) OnFailure(_ context.Context, desc *apiservice.ServiceDescriptor, action string, err error, d time.Duration) {
	code := string(apiservice.CodeOf(err))
	if code == "" {
		code = "unknown"
	}
	c.observe(desc, action, code, d)
}

func (c *Collector) observe(desc *apiservice.ServiceDescriptor, action, code string, d time.Duration) {
	var service, version string
	if desc != nil {
		service, version = desc.Name, desc.Version
	}
	c.dispatches.WithLabelValues(service, version, action, code).Inc()
	c.duration.WithLabelValues(service, version, action).Observe(d.Seconds())
}
