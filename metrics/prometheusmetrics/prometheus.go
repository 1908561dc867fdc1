// Package prometheusmetrics exposes pipeline stage metrics on a separate
// Prometheus listener.
package prometheusmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wraps the metrics endpoint with http lifecycle handling
type Server struct {
	http.Server

	Host    string
	Port    int
	Path    string
	Logger  *zap.Logger
	Metrics *Metrics
}

// New creates a metrics Server with its own registry
func New(options ...Option) *Server {
	s := &Server{
		Port:   9090,
		Path:   "/metrics",
		Logger: zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	s.Addr = s.Host + ":" + strconv.Itoa(s.Port)

	registry := prometheus.NewRegistry()
	s.Metrics = NewMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle(s.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.Path, http.StatusPermanentRedirect)
	})
	s.Handler = mux
	return s
}

// Run starts the metrics listener in the background
func (s *Server) Run() {
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal("prometheus listen", zap.Error(err))
		}
	}()
	s.Logger.Info("prometheus listen", zap.String("addr", s.Addr), zap.String("path", s.Path))
}

// Metrics implements imageapi.Metrics with per-stage counters and a
// duration histogram
type Metrics struct {
	stages   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers pipeline metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imageapi_stage_total",
			Help: "Total pipeline stage executions",
		}, []string{"stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imageapi_stage_errors_total",
			Help: "Total pipeline stage failures",
		}, []string{"stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imageapi_stage_duration_seconds",
			Help:    "A histogram of pipeline stage latencies",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"stage"}),
	}
	reg.MustRegister(m.stages, m.errors, m.duration)
	return m
}

// RecordStage implements imageapi.Metrics
func (m *Metrics) RecordStage(stage string, err error, elapsed time.Duration) {
	m.stages.WithLabelValues(stage).Inc()
	if err != nil {
		m.errors.WithLabelValues(stage).Inc()
	}
	m.duration.WithLabelValues(stage).Observe(elapsed.Seconds())
}
