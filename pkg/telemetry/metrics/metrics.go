package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the enforcement engine.
// All collectors are registered on a private registry so tests can
// create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	// GuardrailChecks counts filter checks by direction and verdict
	// action.
	GuardrailChecks *prometheus.CounterVec

	// GuardrailTriggers counts policy triggers by policy ID.
	GuardrailTriggers *prometheus.CounterVec

	// BudgetRejections counts budget pre-check and record rejections.
	BudgetRejections prometheus.Counter

	// RateLimitRejections counts rate limit check rejections.
	RateLimitRejections prometheus.Counter

	// ApprovalsCreated counts created approval requests by risk level.
	ApprovalsCreated *prometheus.CounterVec

	// ApprovalOutcomes counts terminal approval statuses.
	ApprovalOutcomes *prometheus.CounterVec

	// EnforcementDecisions counts enforcement results by entry point
	// and outcome.
	EnforcementDecisions *prometheus.CounterVec

	// EnforcementDuration observes enforcement latency per entry point.
	EnforcementDuration *prometheus.HistogramVec
}

// New creates a Metrics with all collectors registered, alongside the
// standard Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		GuardrailChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bastion_guardrail_checks_total",
			Help: "Content filter checks by direction and verdict action.",
		}, []string{"direction", "action"}),
		GuardrailTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bastion_guardrail_triggers_total",
			Help: "Policy triggers by policy ID.",
		}, []string{"policy_id"}),
		BudgetRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bastion_budget_rejections_total",
			Help: "Budget checks that rejected a call.",
		}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bastion_ratelimit_rejections_total",
			Help: "Rate limit checks that rejected a call.",
		}),
		ApprovalsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bastion_approvals_created_total",
			Help: "Approval requests created by risk level.",
		}, []string{"risk_level"}),
		ApprovalOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bastion_approval_outcomes_total",
			Help: "Approval request terminal outcomes.",
		}, []string{"status"}),
		EnforcementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bastion_enforcement_decisions_total",
			Help: "Enforcement results by entry point and outcome.",
		}, []string{"entry_point", "outcome"}),
		EnforcementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bastion_enforcement_duration_seconds",
			Help:    "Enforcement call latency per entry point.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"entry_point"}),
	}

	registry.MustRegister(
		m.GuardrailChecks,
		m.GuardrailTriggers,
		m.BudgetRejections,
		m.RateLimitRejections,
		m.ApprovalsCreated,
		m.ApprovalOutcomes,
		m.EnforcementDecisions,
		m.EnforcementDuration,
	)
	return m
}

// ObserveEnforcement records one enforcement decision and its latency.
func (m *Metrics) ObserveEnforcement(entryPoint string, allowed bool, elapsed time.Duration) {
	outcome := "allowed"
	if !allowed {
		outcome = "blocked"
	}
	m.EnforcementDecisions.WithLabelValues(entryPoint, outcome).Inc()
	m.EnforcementDuration.WithLabelValues(entryPoint).Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
