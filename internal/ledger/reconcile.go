// Package ledger implements the debt aggregation and settlement
// reconciliation core: folding bill shares into per-creditor outstanding
// totals, and merging the redundant payment records (Payment, PaymentProof,
// DebtSummary) into a single deduplicated event view.
package ledger

import (
	"log/slog"
	"math"

	"github.com/triptab/triptab/internal/models"
)

// Source identifies which table a settlement event was derived from.
type Source string

const (
	SourceProof   Source = "payment_proof"
	SourcePayment Source = "payment"
)

// Event is one deduplicated settlement signal: a debtor attempted or
// completed payment toward a share of a bill.
type Event struct {
	BillID     string
	DebtorID   string
	CreditorID string
	Amount     float64
	Status     models.PaymentStatus
	Source     Source
	CreatedAt  int64
}

// eventKey is the best-effort fingerprint used to recognize the same
// real-world payment recorded in both tables. Amounts are compared in whole
// cents so two float representations of the same value collide as intended.
// Two genuinely distinct payments with identical (bill, debtor, amount) will
// also collide and be counted once; that approximation is deliberate.
type eventKey struct {
	billID   string
	debtorID string
	cents    int64
}

// Cents rounds a currency amount to integer minor units.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (e Event) key() eventKey {
	return eventKey{billID: e.BillID, debtorID: e.DebtorID, cents: Cents(e.Amount)}
}

// Rows carries the raw row-sets plus the join indexes needed to resolve a
// Payment back to its bill and debtor.
type Rows struct {
	Proofs     []models.PaymentProof
	Payments   []models.Payment
	SharesByID map[string]models.BillShare
	BillsByID  map[string]models.Bill
}

// Filter restricts the merged event set to one side of the ledger. Empty
// fields match everything.
type Filter struct {
	CreditorID string
	DebtorID   string
}

// Result is the merged event set plus a count of rows that could not be
// resolved (orphaned payments, missing bills). Skipped rows are logged and
// excluded; they never abort the reconciliation.
type Result struct {
	Events  []Event
	Skipped int
}

// Reconcile merges PaymentProof and Payment rows into a single event set,
// counting each real-world payment exactly once.
//
// PaymentProof rows are taken first since they carry creditor and debtor
// directly. Payment rows are then joined Payment -> BillShare -> Bill to
// recover the same fields; any Payment whose fingerprint matches an existing
// proof event is a duplicate and dropped. Rejected rows never produce events.
//
// Running Reconcile twice over the same rows yields an identical event set.
func Reconcile(rows Rows, f Filter) Result {
	seen := make(map[eventKey]struct{})
	var res Result

	for _, p := range rows.Proofs {
		if p.Status == models.PaymentRejected {
			continue
		}
		ev := Event{
			BillID:     p.BillID,
			DebtorID:   p.DebtorUserID,
			CreditorID: p.CreditorID,
			Amount:     p.Amount,
			Status:     p.Status,
			Source:     SourceProof,
			CreatedAt:  p.CreatedAt,
		}
		if !matches(ev, f) {
			continue
		}
		k := ev.key()
		if _, dup := seen[k]; dup {
			// The proof table itself can hold resubmissions of the
			// same slip; first one wins.
			continue
		}
		seen[k] = struct{}{}
		res.Events = append(res.Events, ev)
	}

	for _, pay := range rows.Payments {
		if pay.Status == models.PaymentRejected {
			continue
		}
		share, ok := rows.SharesByID[pay.BillShareID]
		if !ok {
			slog.Warn("reconcile: payment references missing bill share",
				"payment_id", pay.ID, "bill_share_id", pay.BillShareID)
			res.Skipped++
			continue
		}
		bill, ok := rows.BillsByID[share.BillID]
		if !ok {
			slog.Warn("reconcile: bill share references missing bill",
				"payment_id", pay.ID, "bill_id", share.BillID)
			res.Skipped++
			continue
		}
		ev := Event{
			BillID:     bill.ID,
			DebtorID:   share.UserID,
			CreditorID: bill.PaidByUserID,
			Amount:     pay.Amount,
			Status:     pay.Status,
			Source:     SourcePayment,
			CreatedAt:  pay.CreatedAt,
		}
		if !matches(ev, f) {
			continue
		}
		k := ev.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		res.Events = append(res.Events, ev)
	}

	return res
}

func matches(ev Event, f Filter) bool {
	if ev.CreditorID == ev.DebtorID {
		// A user is never their own creditor.
		return false
	}
	if f.CreditorID != "" && ev.CreditorID != f.CreditorID {
		return false
	}
	if f.DebtorID != "" && ev.DebtorID != f.DebtorID {
		return false
	}
	return true
}

// Drift reports a debt_summary row whose confirmed total disagrees with the
// event-derived figure by more than a cent. Summaries are upserted
// opportunistically and allowed to be stale; drift is surfaced for operators,
// never adopted as the truth.
type Drift struct {
	DebtID       string
	CreditorUser string
	SummaryPaid  float64
	EventsPaid   float64
}

// SummaryDrift cross-checks per-creditor confirmed totals against the
// debt_summary rows for the same debtor.
func SummaryDrift(confirmed map[string]float64, summaries []models.DebtSummary) []Drift {
	var drifts []Drift
	for _, s := range summaries {
		got := confirmed[s.CreditorUser]
		if math.Abs(s.AmountPaid-got) > amountTolerance {
			drifts = append(drifts, Drift{
				DebtID:       s.DebtID,
				CreditorUser: s.CreditorUser,
				SummaryPaid:  s.AmountPaid,
				EventsPaid:   got,
			})
		}
	}
	return drifts
}
