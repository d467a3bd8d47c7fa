// Package metrics exposes Prometheus collectors for position resolution,
// provider calls and the HTTP surface.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	gatherer prometheus.Gatherer

	Resolutions      *prometheus.CounterVec
	UpstreamOutcomes *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

// NewCollector registers collectors against reg, defaulting to the global
// registry when nil. Registering twice returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	resolutions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "whereis_resolutions_total",
		Help: "Position resolutions, labeled by where the answer came from (fresh, cache, stale, none).",
	}, []string{"source"}), "whereis_resolutions_total")
	if err != nil {
		return nil, err
	}

	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "whereis_upstream_outcomes_total",
		Help: "Tracking provider queries, labeled by classified outcome.",
	}, []string{"outcome"}), "whereis_upstream_outcomes_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "whereis_upstream_duration_seconds",
		Help:    "Tracking provider query latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"}), "whereis_upstream_duration_seconds")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "whereis_http_requests_total",
		Help: "HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "path", "code"}), "whereis_http_requests_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Resolutions:      resolutions,
		UpstreamOutcomes: outcomes,
		UpstreamDuration: duration,
		HTTPRequests:     httpRequests,
	}, nil
}

func (c *Collector) ObserveResolution(source string) {
	if c == nil {
		return
	}
	c.Resolutions.WithLabelValues(source).Inc()
}

func (c *Collector) ObserveUpstream(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.UpstreamOutcomes.WithLabelValues(outcome).Inc()
	c.UpstreamDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Middleware counts requests per registered route.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)
			if c == nil {
				return err
			}
			code := ctx.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			}
			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			c.HTTPRequests.WithLabelValues(ctx.Request().Method, path, strconv.Itoa(code)).Inc()
			return err
		}
	}
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
