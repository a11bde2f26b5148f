// Package metrics exposes Prometheus collectors for the debt pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DebtViewRequests counts debt view requests by view (outstanding, paid)
	// and source (cache, compute).
	DebtViewRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triptab_debt_view_requests_total",
		Help: "Debt view requests by view and whether the result was computed or cached.",
	}, []string{"view", "source"})

	// ReconcileDuration tracks how long a settlement reconciliation pass takes.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triptab_reconcile_duration_seconds",
		Help:    "Duration of settlement reconciliation passes.",
		Buckets: prometheus.DefBuckets,
	})

	// ReconcileSkipped counts settlement rows dropped for broken joins.
	ReconcileSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triptab_reconcile_skipped_rows_total",
		Help: "Settlement rows skipped during reconciliation because a join target was missing.",
	})

	// SlipVerifications counts slip checks by outcome (matched, mismatch, error).
	SlipVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triptab_slip_verifications_total",
		Help: "Slip amount verifications by outcome.",
	}, []string{"status"})

	// OCRAttempts counts OCR calls by language and result.
	OCRAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triptab_ocr_attempts_total",
		Help: "OCR recognition attempts by language and result.",
	}, []string{"language", "result"})

	// SettlementTransitions counts payment status transitions.
	SettlementTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triptab_settlement_transitions_total",
		Help: "Payment status transitions by target status.",
	}, []string{"status"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
