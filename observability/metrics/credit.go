// Package metrics exposes the credit core's Prometheus instrumentation:
// background-job run counts, accrual amounts, obligation-state
// transitions, and collateralisation-sweep page sizes. Structured the way
// the teacher's observability package groups one lazily-initialised
// registry per concern behind a sync.Once.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type creditMetrics struct {
	jobRuns              *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	accrualAmountCents   *prometheus.CounterVec
	obligationTransitions *prometheus.CounterVec
	sweepPageSize        *prometheus.HistogramVec
	collateralizationSweeps *prometheus.CounterVec
}

var (
	creditMetricsOnce sync.Once
	creditRegistry    *creditMetrics
)

// Credit returns the lazily-initialised credit-core metrics registry.
func Credit() *creditMetrics {
	creditMetricsOnce.Do(func() {
		creditRegistry = &creditMetrics{
			jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "credit",
				Subsystem: "jobs",
				Name:      "runs_total",
				Help:      "Total background job runs segmented by job name and outcome.",
			}, []string{"job", "outcome"}),
			jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "credit",
				Subsystem: "jobs",
				Name:      "run_duration_seconds",
				Help:      "Latency distribution for background job runs.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"job"}),
			accrualAmountCents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "credit",
				Subsystem: "accrual",
				Name:      "interest_cents_total",
				Help:      "Total interest accrued, in USD cents, segmented by facility status at accrual time.",
			}, []string{"status"}),
			obligationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "credit",
				Subsystem: "obligation",
				Name:      "transitions_total",
				Help:      "Total obligation status transitions segmented by obligation type and resulting status.",
			}, []string{"type", "status"}),
			sweepPageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "credit",
				Subsystem: "jobs",
				Name:      "sweep_page_size",
				Help:      "Number of entities touched per page of a scanning sweep job.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			}, []string{"job"}),
			collateralizationSweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "credit",
				Subsystem: "collateralization",
				Name:      "sweeps_total",
				Help:      "Total collateralisation-from-price sweep runs segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			creditRegistry.jobRuns,
			creditRegistry.jobDuration,
			creditRegistry.accrualAmountCents,
			creditRegistry.obligationTransitions,
			creditRegistry.sweepPageSize,
			creditRegistry.collateralizationSweeps,
		)
	})
	return creditRegistry
}

// RecordJobRun records one background job run's outcome and duration.
func (m *creditMetrics) RecordJobRun(job, outcome string, durationSeconds float64) {
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(durationSeconds)
}

// RecordAccrual records interest accrued for a facility at the given
// status label.
func (m *creditMetrics) RecordAccrual(status string, amountCents uint64) {
	m.accrualAmountCents.WithLabelValues(status).Add(float64(amountCents))
}

// RecordObligationTransition records one obligation status transition.
func (m *creditMetrics) RecordObligationTransition(obligationType, status string) {
	m.obligationTransitions.WithLabelValues(obligationType, status).Inc()
}

// RecordSweepPage records the number of entities touched by one page of a
// scanning sweep job.
func (m *creditMetrics) RecordSweepPage(job string, pageSize int) {
	m.sweepPageSize.WithLabelValues(job).Observe(float64(pageSize))
}

// RecordCollateralizationSweep records one collateralisation-from-price
// sweep's outcome.
func (m *creditMetrics) RecordCollateralizationSweep(outcome string) {
	m.collateralizationSweeps.WithLabelValues(outcome).Inc()
}
