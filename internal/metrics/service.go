package metrics

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github/chapool/go-keyring/internal/config"
)

// Service owns the process registry and the keyring collectors.
type Service struct {
	registry *prometheus.Registry

	operations   *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	verifyMisses prometheus.Counter
	derivations  *prometheus.CounterVec
}

func New(cfg config.Server) (*Service, error) {
	namespace := strings.ReplaceAll(config.ModuleName, "-", "_")

	s := &Service{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage operations including verification and retries.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "retries_total",
			Help:      "End-to-end retries of storage operations.",
		}, []string{"op"}),
		verifyMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "verify_misses_total",
			Help:      "Read-backs that did not match the written value.",
		}),
		derivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "derivations_total",
			Help:      "Wallets and stealth addresses derived, by mode.",
		}, []string{"mode"}),
	}

	toRegister := []prometheus.Collector{s.operations, s.retries, s.verifyMisses, s.derivations}
	if cfg.Echo.EnableMetrics {
		toRegister = append(toRegister,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for _, c := range toRegister {
		if err := s.registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}

	return s, nil
}

// Registry is used by the /metrics handler and for extra collectors.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// Register adds c, e.g. a database stats collector.
func (s *Service) Register(c prometheus.Collector) error {
	return errors.Wrap(s.registry.Register(c), "failed to register collector")
}

func (s *Service) ObserveOperation(op string, outcome string, elapsed time.Duration) {
	s.operations.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

func (s *Service) IncRetry(op string) {
	s.retries.WithLabelValues(op).Inc()
}

func (s *Service) IncVerifyMiss() {
	s.verifyMisses.Inc()
}

// IncDerivation counts one derivation in mode (salt, index, legacy, stealth).
func (s *Service) IncDerivation(mode string) {
	s.derivations.WithLabelValues(mode).Inc()
}
