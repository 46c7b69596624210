package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dpkit/pkg/constants"
)

// PrometheusMetrics provides Prometheus-based metrics collection for the
// noise service
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	server   *http.Server
	config   *PrometheusConfig

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	noiseRequestsTotal   *prometheus.CounterVec
	noiseDuration        *prometheus.HistogramVec
	epsilonConsumedTotal prometheus.Counter
	deltaConsumedTotal   prometheus.Counter
	budgetEpsilonTotal   prometheus.Gauge
	budgetDeltaTotal     prometheus.Gauge
}

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled"`
	Port      int    `json:"port"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) *PrometheusMetrics {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}
	pm.initializeMetrics()
	pm.registerMetrics()
	return pm
}

func (pm *PrometheusMetrics) initializeMetrics() {
	ns := pm.config.Namespace

	pm.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	pm.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	pm.noiseRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "noise_requests_total",
		Help:      "Total number of noise perturbation requests",
	}, []string{"mechanism", "status"})

	pm.noiseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "noise_request_duration_seconds",
		Help:      "Noise perturbation duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mechanism"})

	pm.epsilonConsumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "epsilon_consumed_total",
		Help:      "Cumulative epsilon recorded on the privacy accountant",
	})

	pm.deltaConsumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "delta_consumed_total",
		Help:      "Cumulative delta recorded on the privacy accountant",
	})

	pm.budgetEpsilonTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "budget_epsilon",
		Help:      "Current cumulative epsilon reported by the accountant",
	})

	pm.budgetDeltaTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "budget_delta",
		Help:      "Current cumulative delta reported by the accountant",
	})
}

func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		pm.noiseRequestsTotal,
		pm.noiseDuration,
		pm.epsilonConsumedTotal,
		pm.deltaConsumedTotal,
		pm.budgetEpsilonTotal,
		pm.budgetDeltaTotal,
	)
}

// Start starts the Prometheus metrics server
func (pm *PrometheusMetrics) Start(ctx context.Context) error {
	if !pm.config.Enabled {
		pm.logger.Info("Prometheus metrics disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(pm.config.Path, promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	pm.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", pm.config.Port),
		Handler: mux,
	}

	pm.logger.WithFields(logrus.Fields{
		"port": pm.config.Port,
		"path": pm.config.Path,
	}).Info("Starting Prometheus metrics server")

	go func() {
		if err := pm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pm.logger.WithError(err).Error("Prometheus metrics server error")
		}
	}()

	return nil
}

// Stop stops the Prometheus metrics server
func (pm *PrometheusMetrics) Stop(ctx context.Context) error {
	if pm.server == nil {
		return nil
	}
	pm.logger.Info("Stopping Prometheus metrics server")
	return pm.server.Shutdown(ctx)
}

// RecordHTTPRequest records an HTTP request observation
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	pm.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordNoiseRequest records a noise perturbation observation
func (pm *PrometheusMetrics) RecordNoiseRequest(mechanism, status string, duration time.Duration) {
	pm.noiseRequestsTotal.WithLabelValues(mechanism, status).Inc()
	pm.noiseDuration.WithLabelValues(mechanism).Observe(duration.Seconds())
}

// RecordPrivacySpend records consumed budget and refreshes the gauges
func (pm *PrometheusMetrics) RecordPrivacySpend(epsilon, delta, totalEpsilon, totalDelta float64) {
	pm.epsilonConsumedTotal.Add(epsilon)
	pm.deltaConsumedTotal.Add(delta)
	pm.budgetEpsilonTotal.Set(totalEpsilon)
	pm.budgetDeltaTotal.Set(totalDelta)
}

// Registry exposes the underlying registry for tests
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   true,
		Port:      constants.DefaultMetricsPort,
		Path:      "/metrics",
		Namespace: constants.MetricsNamespace,
	}
}
