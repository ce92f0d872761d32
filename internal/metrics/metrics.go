package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// OutcomeSuccess labels submissions that populated the result store.
	OutcomeSuccess = "success"
	// OutcomeError labels submissions rejected by the classifier or transport.
	OutcomeError = "error"
	// OutcomeBusy labels submissions refused because one was already pending.
	OutcomeBusy = "busy"
)

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudshield",
			Name:      "submissions_total",
			Help:      "Total number of batch submissions handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	submissionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cloudshield",
			Name:      "submission_seconds",
			Help:      "Classifier submission latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	triageActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudshield",
			Name:      "triage_actions_total",
			Help:      "Remediation actions chosen by the operator, partitioned by kind.",
		},
		[]string{"action"},
	)

	exportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cloudshield",
			Name:      "exports_total",
			Help:      "Number of CSV exports served.",
		},
	)

	httpRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cloudshield",
			Name:      "http_requests_in_flight",
			Help:      "Operator API requests currently being served.",
		},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudshield",
			Name:      "http_request_seconds",
			Help:      "Operator API request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
)

// Register attaches console collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		submissionsTotal,
		submissionDurationSeconds,
		triageActionsTotal,
		exportsTotal,
		httpRequestsInFlight,
		httpRequestDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSubmission records a submission outcome and its latency.
func ObserveSubmission(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeBusy:
	default:
		outcome = OutcomeSuccess
	}
	submissionsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	submissionDurationSeconds.Observe(duration.Seconds())
}

// ObserveTriageAction counts a chosen remediation action.
func ObserveTriageAction(action string) {
	triageActionsTotal.WithLabelValues(action).Inc()
}

// ObserveExport counts a served CSV export.
func ObserveExport() {
	exportsTotal.Inc()
}

// InstrumentHandler wraps an HTTP handler with in-flight and duration
// collectors under the given handler label.
func InstrumentHandler(name string, handler http.Handler) http.Handler {
	duration := httpRequestDurationSeconds.MustCurryWith(prometheus.Labels{"handler": name})
	return promhttp.InstrumentHandlerInFlight(httpRequestsInFlight,
		promhttp.InstrumentHandlerDuration(duration, handler))
}
