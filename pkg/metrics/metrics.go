// Package metrics exports advisor counters to Prometheus
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/car-advisor/advisor/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "advisor"

// Recorder holds the advisor collectors. A nil Recorder drops everything.
type Recorder struct {
	diagnoses        *prometheus.CounterVec
	fallbacks        prometheus.Counter
	upstreamFailures *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
}

// New registers the collectors on reg (the default registerer when nil)
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Completed diagnoses by resulting profile.",
		}, []string{"profile"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnosis_fallbacks_total",
			Help:      "Diagnoses that fell back to the balance profile.",
		}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed calls to the recommendation service.",
		}, []string{"endpoint"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of recommendation service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	var err error
	if r.diagnoses, err = register(reg, r.diagnoses); err != nil {
		return nil, err
	}
	if r.fallbacks, err = register(reg, r.fallbacks); err != nil {
		return nil, err
	}
	if r.upstreamFailures, err = register(reg, r.upstreamFailures); err != nil {
		return nil, err
	}
	if r.upstreamLatency, err = register(reg, r.upstreamLatency); err != nil {
		return nil, err
	}
	return r, nil
}

// register reuses an identical collector that is already registered
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register advisor metric: %w", err)
	}
	return c, nil
}

// ObserveDiagnosis counts a completed diagnosis
func (r *Recorder) ObserveDiagnosis(result *types.ProfileResult) {
	if r == nil || result == nil {
		return
	}
	r.diagnoses.WithLabelValues(string(result.Type)).Inc()
	if result.FellBack {
		r.fallbacks.Inc()
	}
}

// ObserveUpstream records one recommendation service call
func (r *Recorder) ObserveUpstream(endpoint string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
	if err != nil {
		r.upstreamFailures.WithLabelValues(endpoint).Inc()
	}
}
