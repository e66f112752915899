package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for observations and the HTTP surface.
type Collector struct {
	gatherer prometheus.Gatherer

	Observations        *prometheus.CounterVec
	ObservationDuration prometheus.Histogram
	VisiblePixels       prometheus.Histogram
	LastSolidAngle      prometheus.Gauge
	GeocodeResults      *prometheus.CounterVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers the metrics against the provided registerer, defaulting to
// the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	observations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyview_observations_total",
		Help: "Visibility computations, labeled by outcome.",
	}, []string{"outcome"}), "skyview_observations_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyview_observation_duration_seconds",
		Help:    "Wall time of a full observation, cone search and geocoding included.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}), "skyview_observation_duration_seconds")
	if err != nil {
		return nil, err
	}

	pixels, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyview_visible_pixels",
		Help:    "Number of pixels returned by the cone search.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	}), "skyview_visible_pixels")
	if err != nil {
		return nil, err
	}

	solidAngle, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skyview_last_solid_angle_steradians",
		Help: "Solid angle of the most recent successful observation.",
	}), "skyview_last_solid_angle_steradians")
	if err != nil {
		return nil, err
	}

	geocode, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyview_geocode_results_total",
		Help: "Reverse geocoding results, labeled by outcome (found, not_found, error).",
	}, []string{"outcome"}), "skyview_geocode_results_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyview_http_requests_total",
		Help: "Handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "skyview_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyview_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route", "method"}), "skyview_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		Observations:        observations,
		ObservationDuration: duration,
		VisiblePixels:       pixels,
		LastSolidAngle:      solidAngle,
		GeocodeResults:      geocode,
		HTTPRequests:        requests,
		HTTPDurations:       durations,
	}, nil
}

// ObserveVisibility records one observation. Pixel count and solid angle are only
// recorded for successful outcomes.
func (c *Collector) ObserveVisibility(outcome string, pixels int, solidAngle float64, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Observations.WithLabelValues(outcome).Inc()
	c.ObservationDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		c.VisiblePixels.Observe(float64(pixels))
		c.LastSolidAngle.Set(solidAngle)
	}
}

func (c *Collector) ObserveGeocode(outcome string) {
	if c == nil {
		return
	}
	c.GeocodeResults.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Observation outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidInput = "invalid_input"
	OutcomeDomainError  = "domain_error"
	OutcomeError        = "error"
)

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

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
