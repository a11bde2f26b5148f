package ledger

import (
	"sort"

	"github.com/triptab/triptab/internal/models"
)

// amountTolerance absorbs floating point noise when comparing currency sums.
const amountTolerance = 0.01

// CreditorOutstanding is one creditor group in the outstanding view: how much
// the querying debtor still owes this creditor across unpaid shares.
type CreditorOutstanding struct {
	CreditorID string

	// Total is the sum of unpaid amount_share values.
	Total float64

	// TripCount is the number of distinct trips the debt spans,
	// displayed as "N lists".
	TripCount int

	// LastActivity is the max bill created_at in the group, used for
	// recency ordering.
	LastActivity int64
}

// Anomaly reports a share whose approved payments exceed its fixed amount.
// The share still counts as settled; the excess is surfaced, never clamped.
type Anomaly struct {
	ShareID     string
	AmountShare float64
	AmountPaid  float64
}

// OutstandingResult is the aggregated outstanding view for one debtor.
type OutstandingResult struct {
	Creditors []CreditorOutstanding
	Anomalies []Anomaly
}

// AggregateOutstanding folds unpaid bill_share rows into per-creditor totals
// for the given debtor.
//
// Rows are excluded when the creditor is the querying user, when the share's
// own debtor equals its creditor (self-debt), or when the share is already
// paid. Groups are sorted by total descending, tie-broken by most recent
// activity descending, then creditor id for determinism.
func AggregateOutstanding(userID string, rows []models.ShareWithBill) OutstandingResult {
	groups := make(map[string]*CreditorOutstanding)
	trips := make(map[string]map[string]struct{})
	var anomalies []Anomaly

	for _, row := range rows {
		creditor := row.Bill.PaidByUserID
		if creditor == "" || creditor == userID || creditor == row.Share.UserID {
			continue
		}
		if row.Share.AmountPaid > row.Share.AmountShare+amountTolerance {
			anomalies = append(anomalies, Anomaly{
				ShareID:     row.Share.ID,
				AmountShare: row.Share.AmountShare,
				AmountPaid:  row.Share.AmountPaid,
			})
		}
		if row.Share.Status != models.ShareUnpaid {
			continue
		}

		g, ok := groups[creditor]
		if !ok {
			g = &CreditorOutstanding{CreditorID: creditor}
			groups[creditor] = g
			trips[creditor] = make(map[string]struct{})
		}
		g.Total += row.Share.AmountShare
		trips[creditor][row.Bill.TripID] = struct{}{}
		if row.Bill.CreatedAt > g.LastActivity {
			g.LastActivity = row.Bill.CreatedAt
		}
	}

	creditors := make([]CreditorOutstanding, 0, len(groups))
	for id, g := range groups {
		g.TripCount = len(trips[id])
		creditors = append(creditors, *g)
	}
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].Total != creditors[j].Total {
			return creditors[i].Total > creditors[j].Total
		}
		if creditors[i].LastActivity != creditors[j].LastActivity {
			return creditors[i].LastActivity > creditors[j].LastActivity
		}
		return creditors[i].CreditorID < creditors[j].CreditorID
	})

	return OutstandingResult{Creditors: creditors, Anomalies: anomalies}
}

// SettlementTotals holds the two parallel per-creditor maps derived from
// reconciled settlement events.
type SettlementTotals struct {
	// Pending is the amount-by-creditor awaiting confirmation.
	Pending map[string]float64

	// Confirmed is the amount-by-creditor already approved.
	Confirmed map[string]float64
}

// AggregateSettlements folds a reconciled event set into pending and
// confirmed totals per creditor.
func AggregateSettlements(events []Event) SettlementTotals {
	totals := SettlementTotals{
		Pending:   make(map[string]float64),
		Confirmed: make(map[string]float64),
	}
	for _, ev := range events {
		switch ev.Status {
		case models.PaymentPending:
			totals.Pending[ev.CreditorID] += ev.Amount
		case models.PaymentApproved:
			totals.Confirmed[ev.CreditorID] += ev.Amount
		}
	}
	return totals
}
