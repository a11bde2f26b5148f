package api

import (
	"math"
	"net/http"

	"github.com/triptab/triptab/internal/ledger"
	"github.com/triptab/triptab/internal/middleware"
)

// Amounts are aggregated with plain float addition; rounding to 2 decimals
// happens here, at the presentation boundary, and nowhere earlier.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// roundAmounts copies the map so cached views are never mutated.
func roundAmounts(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round2(v)
	}
	return out
}

type creditorDebt struct {
	CreditorID   string  `json:"creditor_id"`
	Total        float64 `json:"total"`
	TripCount    int     `json:"trip_count"`
	LastActivity int64   `json:"last_activity"`
}

type outstandingResponse struct {
	Creditors []creditorDebt   `json:"creditors"`
	Anomalies []ledger.Anomaly `json:"anomalies,omitempty"`
}

func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tripID := r.URL.Query().Get("trip_id")

	view, err := s.debts.Outstanding(r.Context(), userID, tripID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := outstandingResponse{Creditors: make([]creditorDebt, 0, len(view.Creditors)), Anomalies: view.Anomalies}
	for _, c := range view.Creditors {
		resp.Creditors = append(resp.Creditors, creditorDebt{
			CreditorID:   c.CreditorID,
			Total:        round2(c.Total),
			TripCount:    c.TripCount,
			LastActivity: c.LastActivity,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type paidResponse struct {
	Pending   map[string]float64 `json:"pending"`
	Confirmed map[string]float64 `json:"confirmed"`
	Skipped   int                `json:"skipped,omitempty"`
	Drifts    []ledger.Drift     `json:"drifts,omitempty"`
}

func (s *Server) handleAlreadyPaid(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	tripID := r.URL.Query().Get("trip_id")

	view, err := s.debts.AlreadyPaid(r.Context(), userID, tripID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paidResponse{
		Pending:   roundAmounts(view.Pending),
		Confirmed: roundAmounts(view.Confirmed),
		Skipped:   view.Skipped,
		Drifts:    view.Drifts,
	})
}

type pendingApprovalResponse struct {
	PaymentID  string  `json:"payment_id"`
	DebtorID   string  `json:"debtor_id"`
	BillID     string  `json:"bill_id"`
	BillTitle  string  `json:"bill_title"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	CreatedAt  int64   `json:"created_at"`
	SlipURL    string  `json:"slip_url,omitempty"`
	SlipCheck  string  `json:"slip_check,omitempty"`
	SlipAmount float64 `json:"slip_amount,omitempty"`
}

func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	pending, err := s.debts.PendingApprovals(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]pendingApprovalResponse, 0, len(pending))
	for _, p := range pending {
		item := pendingApprovalResponse{
			PaymentID: p.Payment.ID,
			DebtorID:  p.Share.UserID,
			BillID:    p.Bill.ID,
			BillTitle: p.Bill.Title,
			Amount:    round2(p.Payment.Amount),
			Method:    p.Payment.Method,
			CreatedAt: p.Payment.CreatedAt,
		}
		if p.Proof != nil {
			item.SlipURL = p.Proof.ImageURL
			item.SlipCheck = p.Proof.SlipCheck
			item.SlipAmount = round2(p.Proof.SlipAmount)
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}
