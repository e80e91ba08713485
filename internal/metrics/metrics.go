package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_elevation_evaluations_total",
		Help: "Total number of elevation requests evaluated, by resulting kind",
	}, []string{"kind"})
	denialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_elevation_denials_total",
		Help: "Total number of denied elevations, by failure kind",
	}, []string{"failure"})
	consentPromptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_consent_prompts_total",
		Help: "Total number of consent prompts shown, by outcome",
	}, []string{"outcome"})
	auditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_audit_write_failures_total",
		Help: "Total number of audit rows that could not be written",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(evaluationsTotal, denialsTotal, consentPromptsTotal, auditWriteFailures)
}

// IncEvaluation counts one evaluator outcome.
func IncEvaluation(kind string) { evaluationsTotal.WithLabelValues(kind).Inc() }

// IncDenial counts one denied elevation by failure kind.
func IncDenial(failure string) { denialsTotal.WithLabelValues(failure).Inc() }

// IncConsentPrompt counts one consent prompt outcome.
func IncConsentPrompt(outcome string) { consentPromptsTotal.WithLabelValues(outcome).Inc() }

// IncAuditWriteFailure counts one failed audit append.
func IncAuditWriteFailure() { auditWriteFailures.Inc() }
