package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics records outcomes of request reconciliation decisions.
type DecisionMetrics struct {
	approveDuration *prometheus.HistogramVec
	approvals       prometheus.Counter
	rejections      prometheus.Counter
	stockConflicts  prometheus.Counter
}

// NewDecisionMetrics registers the decision metrics on the provided registerer.
func NewDecisionMetrics(reg prometheus.Registerer) *DecisionMetrics {
	if reg == nil {
		return &DecisionMetrics{}
	}
	approveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "request_approve_duration_seconds",
		Help:    "Duration of approval transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	approvals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_approvals_total",
		Help: "Requests approved with stock deducted.",
	})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_rejections_total",
		Help: "Requests rejected without touching stock.",
	})
	stockConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_stock_conflicts_total",
		Help: "Approvals aborted because stock was insufficient.",
	})
	reg.MustRegister(approveDuration, approvals, rejections, stockConflicts)
	return &DecisionMetrics{
		approveDuration: approveDuration,
		approvals:       approvals,
		rejections:      rejections,
		stockConflicts:  stockConflicts,
	}
}

// ObserveApproveDuration records how long an approval transaction took.
func (d *DecisionMetrics) ObserveApproveDuration(outcome string, duration time.Duration) {
	if d == nil || d.approveDuration == nil {
		return
	}
	d.approveDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncApproval increments the approval counter.
func (d *DecisionMetrics) IncApproval() {
	if d == nil || d.approvals == nil {
		return
	}
	d.approvals.Inc()
}

// IncRejection increments the rejection counter.
func (d *DecisionMetrics) IncRejection() {
	if d == nil || d.rejections == nil {
		return
	}
	d.rejections.Inc()
}

// IncStockConflict increments the insufficient-stock counter.
func (d *DecisionMetrics) IncStockConflict() {
	if d == nil || d.stockConflicts == nil {
		return
	}
	d.stockConflicts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
