package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "malacounter"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	operations      *prom.CounterVec
	completions     prom.Counter
	count           prom.Gauge
	round           prom.Gauge
	total           prom.Gauge
	persistFailures *prom.CounterVec
	persistDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.operations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Counter operations applied, by operation",
		}, []string{"op"})
		pr.completions = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Rounds completed by an increment past the last bead",
		})
		pr.count = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "bead_count",
			Help:      "Current bead position within the round",
		})
		pr.round = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "round",
			Help:      "Completed rounds",
		})
		pr.total = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "total_count",
			Help:      "Lifetime bead count",
		})
		pr.persistFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "State writes that failed, by storage backend",
		}, []string{"backend"})
		pr.persistDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Duration of state writes",
			Buckets:   prom.DefBuckets,
		}, []string{"backend", "outcome"})
		reg.MustRegister(pr.operations, pr.completions, pr.count, pr.round, pr.total, pr.persistFailures, pr.persistDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncOperation(op string) {
	if p == nil || p.operations == nil {
		return
	}
	p.operations.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncCompletion() {
	if p == nil || p.completions == nil {
		return
	}
	p.completions.Inc()
}

func (p *PrometheusRecorder) SetState(count, round, total int) {
	if p == nil || p.count == nil {
		return
	}
	p.count.Set(float64(count))
	p.round.Set(float64(round))
	p.total.Set(float64(total))
}

func (p *PrometheusRecorder) IncPersistFailure(backend string) {
	if p == nil || p.persistFailures == nil {
		return
	}
	p.persistFailures.WithLabelValues(backend).Inc()
}

func (p *PrometheusRecorder) ObservePersistDuration(backend string, d time.Duration, outcome OutcomeLabel) {
	if p == nil || p.persistDuration == nil {
		return
	}
	p.persistDuration.WithLabelValues(backend, string(outcome)).Observe(d.Seconds())
}
