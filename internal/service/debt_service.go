package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/triptab/triptab/internal/cache"
	"github.com/triptab/triptab/internal/ledger"
	"github.com/triptab/triptab/internal/metrics"
	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/storage"
)

// OutstandingView is the "you still owe" screen for one debtor: per-creditor
// totals over unpaid shares, plus any shares whose payments overshoot.
type OutstandingView struct {
	Creditors []ledger.CreditorOutstanding
	Anomalies []ledger.Anomaly
}

// PaidView is the settlement history screen for one debtor: per-creditor
// pending and confirmed totals reconciled across both payment tables.
// Skipped counts rows dropped for broken joins; Drifts flags stale summary
// rows. Both are informational.
type PaidView struct {
	Pending   map[string]float64
	Confirmed map[string]float64
	Skipped   int
	Drifts    []ledger.Drift
}

// PendingApproval is one settlement awaiting the creditor's decision.
type PendingApproval struct {
	Payment models.Payment
	Share   models.BillShare
	Bill    models.Bill
	Proof   *models.PaymentProof
}

// DebtService serves the aggregated debt views with read-through caching.
type DebtService struct {
	store  storage.Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewDebtService(store storage.Store, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *DebtService {
	return &DebtService{store: store, cache: c, ttl: ttl, logger: logger}
}

// Outstanding returns the per-creditor unpaid totals for the user, optionally
// scoped to one trip. Results are cached; a storage failure is returned as-is
// rather than served as an empty view.
func (s *DebtService) Outstanding(ctx context.Context, userID, tripID string) (*OutstandingView, error) {
	key := fmt.Sprintf("debts:%s:outstanding:%s", userID, tripID)

	computed := false
	v, err := s.cache.GetOrSet(key, s.ttl, func() (any, error) {
		computed = true
		rows, err := s.store.UnpaidShares(ctx, userID, tripID)
		if err != nil {
			return nil, err
		}
		res := ledger.AggregateOutstanding(userID, rows)
		return &OutstandingView{Creditors: res.Creditors, Anomalies: res.Anomalies}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding debts: %w", err)
	}
	recordViewMetric("outstanding", computed)

	view := v.(*OutstandingView)
	for _, a := range view.Anomalies {
		s.logger.Warn("share overpaid beyond its amount",
			"share_id", a.ShareID, "amount_share", a.AmountShare, "amount_paid", a.AmountPaid)
	}
	return view, nil
}

// AlreadyPaid returns the user's settlement history: what they have paid or
// claimed to pay each creditor, reconciled across payments and proofs.
func (s *DebtService) AlreadyPaid(ctx context.Context, userID, tripID string) (*PaidView, error) {
	key := fmt.Sprintf("debts:%s:paid:%s", userID, tripID)

	computed := false
	v, err := s.cache.GetOrSet(key, s.ttl, func() (any, error) {
		computed = true
		return s.computePaid(ctx, userID, tripID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement history: %w", err)
	}
	recordViewMetric("paid", computed)
	return v.(*PaidView), nil
}

func (s *DebtService) computePaid(ctx context.Context, userID, tripID string) (*PaidView, error) {
	rows, err := s.store.SettlementRows(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := ledger.Reconcile(ledger.Rows{
		Proofs:     rows.Proofs,
		Payments:   rows.Payments,
		SharesByID: rows.SharesByID,
		BillsByID:  rows.BillsByID,
	}, ledger.Filter{DebtorID: userID})
	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	metrics.ReconcileSkipped.Add(float64(res.Skipped))

	totals := ledger.AggregateSettlements(res.Events)
	drifts := ledger.SummaryDrift(totals.Confirmed, summariesForDebtor(rows.Summaries, userID))
	for _, d := range drifts {
		s.logger.Warn("debt summary disagrees with reconciled events",
			"debt_id", d.DebtID, "creditor", d.CreditorUser,
			"summary_paid", d.SummaryPaid, "events_paid", d.EventsPaid)
	}

	return &PaidView{
		Pending:   totals.Pending,
		Confirmed: totals.Confirmed,
		Skipped:   res.Skipped,
		Drifts:    drifts,
	}, nil
}

// PendingApprovals returns the settlements waiting on the user as creditor,
// joined with their share, bill and proof so the approval screen can render
// the slip check. Payments whose joins are broken are logged and skipped.
func (s *DebtService) PendingApprovals(ctx context.Context, creditorID string) ([]PendingApproval, error) {
	rows, err := s.store.SettlementRows(ctx, creditorID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load pending settlements: %w", err)
	}

	proofIdx := make(map[proofKey]*models.PaymentProof)
	for i := range rows.Proofs {
		p := &rows.Proofs[i]
		if p.Status != models.PaymentPending {
			continue
		}
		proofIdx[proofKey{p.BillID, p.DebtorUserID, ledger.Cents(p.Amount)}] = p
	}

	var out []PendingApproval
	for _, pay := range rows.Payments {
		if pay.Status != models.PaymentPending {
			continue
		}
		share, ok := rows.SharesByID[pay.BillShareID]
		if !ok {
			s.logger.Warn("pending payment references missing share",
				"payment_id", pay.ID, "bill_share_id", pay.BillShareID)
			continue
		}
		bill, ok := rows.BillsByID[share.BillID]
		if !ok || bill.PaidByUserID != creditorID {
			continue
		}
		out = append(out, PendingApproval{
			Payment: pay,
			Share:   share,
			Bill:    bill,
			Proof:   proofIdx[proofKey{bill.ID, share.UserID, ledger.Cents(pay.Amount)}],
		})
	}
	return out, nil
}

// InvalidateUser drops every cached debt view for the user. Called after any
// write that changes what they owe or are owed.
func (s *DebtService) InvalidateUser(userID string) {
	s.cache.InvalidatePrefix("debts:" + userID + ":")
}

type proofKey struct {
	billID   string
	debtorID string
	cents    int64
}

func summariesForDebtor(summaries []models.DebtSummary, userID string) []models.DebtSummary {
	var out []models.DebtSummary
	for _, sum := range summaries {
		if sum.DebtorUser == userID {
			out = append(out, sum)
		}
	}
	return out
}

func recordViewMetric(view string, computed bool) {
	source := "cache"
	if computed {
		source = "compute"
	}
	metrics.DebtViewRequests.WithLabelValues(view, source).Inc()
}
