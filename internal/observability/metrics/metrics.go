package metrics

import "github.com/prometheus/client_golang/prometheus"

// Lead intake outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeThrottled = "throttled"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Metrics exposes counters/histograms for the public endpoints and their upstreams.
type Metrics struct {
	leadIntakeTotal   *prometheus.CounterVec
	rateLimitTotal    *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	upstreamErrorsTot *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		leadIntakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "royscompany",
			Subsystem: "leads",
			Name:      "intake_total",
			Help:      "Lead intake requests by outcome",
		}, []string{"outcome"}),
		rateLimitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "royscompany",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by scope",
		}, []string{"scope", "decision"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "royscompany",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of third-party API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		upstreamErrorsTot: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "royscompany",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed third-party API calls",
		}, []string{"service"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadIntakeTotal, m.rateLimitTotal, m.upstreamLatency, m.upstreamErrorsTot)
	return m
}

func (m *Metrics) ObserveLeadIntake(outcome string) {
	if m == nil {
		return
	}
	m.leadIntakeTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimit(scope string, allowed bool) {
	if m == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	m.rateLimitTotal.WithLabelValues(scope, decision).Inc()
}

// ObserveUpstream records one call to service; failed calls also bump the error counter.
func (m *Metrics) ObserveUpstream(service string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(service).Observe(seconds)
	if err != nil {
		m.upstreamErrorsTot.WithLabelValues(service).Inc()
	}
}
