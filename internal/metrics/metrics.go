// Package metrics exposes daemon counters through Prometheus.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type service struct {
	cfg      Config
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	signals           *prometheus.CounterVec
	broadcasts        prometheus.Counter
	evictions         prometheus.Counter
	listeners         prometheus.Gauge
	snapshotFailures  prometheus.Counter
	snapshotDurations prometheus.Histogram
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op recorder
	if !cfg.Enabled() {
		logger.Debug().Msg("Metrics disabled, using no-op recorder")
		return Noop(), nil
	}

	s := newService(cfg)

	logger.Debug().
		Str("addr", cfg.Addr).
		Str("path", cfg.Path).
		Msg("Metrics service initialized successfully")

	return s, nil
}

// Noop returns a Recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

func newService(cfg Config) *service {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &service{
		cfg:      cfg,
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bard_requests_total",
				Help: "Total number of dispatched requests",
			},
			[]string{"type", "result"},
		),
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bard_trigger_signals_total",
				Help: "Total number of update-trigger signals sent",
			},
			[]string{"signal"},
		),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bard_broadcasts_total",
			Help: "Total number of snapshot pushes to listeners",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "bard_listener_evictions_total",
			Help: "Total number of listeners removed after a failed write",
		}),
		listeners: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bard_listeners",
			Help: "Current number of registered listeners",
		}),
		snapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bard_snapshot_failures_total",
			Help: "Total number of global snapshots that failed",
		}),
		snapshotDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bard_snapshot_duration_seconds",
			Help:    "Time taken to compute a global snapshot",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (s *service) Request(msgType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	s.requests.WithLabelValues(msgType, result).Inc()
}

func (s *service) Signal(name string) {
	s.signals.WithLabelValues(name).Inc()
}

func (s *service) Broadcast(listeners int) {
	if listeners > 0 {
		s.broadcasts.Inc()
	}
}

func (s *service) Eviction() {
	s.evictions.Inc()
}

func (s *service) Listeners(n int) {
	s.listeners.Set(float64(n))
}

func (s *service) Snapshot(d time.Duration, err error) {
	s.snapshotDurations.Observe(d.Seconds())
	if err != nil {
		s.snapshotFailures.Inc()
	}
}

func (s *service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Serve runs the HTTP endpoint until ctx is done, then shuts it down.
func (s *service) Serve(ctx context.Context) error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errFactory.Wrap(ErrServe, err)
	}

	return s.serve(ctx, ln)
}

func (s *service) serve(ctx context.Context, ln net.Listener) error {
	errFactory := errors.New()

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: defaultReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errFactory.Wrap(ErrServe, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrShutdown, err)
	}

	return nil
}

// No-op implementation
func (noopRecorder) Request(string, bool)          {}
func (noopRecorder) Signal(string)                 {}
func (noopRecorder) Broadcast(int)                 {}
func (noopRecorder) Eviction()                     {}
func (noopRecorder) Listeners(int)                 {}
func (noopRecorder) Snapshot(time.Duration, error) {}
func (noopRecorder) Serve(context.Context) error   { return nil }
