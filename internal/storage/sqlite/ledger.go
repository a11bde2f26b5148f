package sqlite

import (
	"context"
	"fmt"

	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/storage"
)

// UnpaidShares returns unpaid shares where the user is debtor, joined with
// their bills. Any query failure wraps storage.ErrUnavailable so callers can
// tell "backend down" apart from a legitimately empty ledger.
func (s *SQLiteStore) UnpaidShares(ctx context.Context, debtorID, tripID string) ([]models.ShareWithBill, error) {
	query := `
		SELECT bs.id, bs.bill_id, bs.user_id, bs.amount_share, bs.status, bs.amount_paid, bs.is_confirmed,
		       b.id, b.trip_id, b.title, b.total_amount, b.paid_by_user_id, b.created_at
		FROM bill_shares bs
		JOIN bills b ON b.id = bs.bill_id
		WHERE bs.user_id = ? AND bs.status = 'unpaid'`
	args := []any{debtorID}
	if tripID != "" {
		query += " AND b.trip_id = ?"
		args = append(args, tripID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: unpaid shares query: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.ShareWithBill
	for rows.Next() {
		var r models.ShareWithBill
		if err := rows.Scan(
			&r.Share.ID, &r.Share.BillID, &r.Share.UserID, &r.Share.AmountShare,
			&r.Share.Status, &r.Share.AmountPaid, &r.Share.IsConfirmed,
			&r.Bill.ID, &r.Bill.TripID, &r.Bill.Title, &r.Bill.TotalAmount,
			&r.Bill.PaidByUserID, &r.Bill.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan unpaid share: %v", storage.ErrUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate unpaid shares: %v", storage.ErrUnavailable, err)
	}
	return out, nil
}

// ListTripShares returns every share in the trip joined with its bill,
// ordered by bill recording time. Used for trip-wide exports.
func (s *SQLiteStore) ListTripShares(ctx context.Context, tripID string) ([]models.ShareWithBill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bs.id, bs.bill_id, bs.user_id, bs.amount_share, bs.status, bs.amount_paid, bs.is_confirmed,
		       b.id, b.trip_id, b.title, b.total_amount, b.paid_by_user_id, b.created_at
		FROM bill_shares bs
		JOIN bills b ON b.id = bs.bill_id
		WHERE b.trip_id = ?
		ORDER BY b.created_at, bs.id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("%w: trip shares query: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.ShareWithBill
	for rows.Next() {
		var r models.ShareWithBill
		if err := rows.Scan(
			&r.Share.ID, &r.Share.BillID, &r.Share.UserID, &r.Share.AmountShare,
			&r.Share.Status, &r.Share.AmountPaid, &r.Share.IsConfirmed,
			&r.Bill.ID, &r.Bill.TripID, &r.Bill.Title, &r.Bill.TotalAmount,
			&r.Bill.PaidByUserID, &r.Bill.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan trip share: %v", storage.ErrUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate trip shares: %v", storage.ErrUnavailable, err)
	}
	return out, nil
}

// SettlementRows returns every payment signal involving the user as either
// party: pending and approved proofs, the payment rows touching their bills
// or shares, and their debt summaries, along with the share and bill indexes
// needed for the reconciliation joins. Pending rows appear for the debtor
// too, so a submitted-but-undecided payment shows up in their history.
func (s *SQLiteStore) SettlementRows(ctx context.Context, userID, tripID string) (*storage.SettlementRows, error) {
	out := &storage.SettlementRows{
		SharesByID: make(map[string]models.BillShare),
		BillsByID:  make(map[string]models.Bill),
	}

	if err := s.loadProofs(ctx, userID, out); err != nil {
		return nil, err
	}
	if err := s.loadPayments(ctx, userID, out); err != nil {
		return nil, err
	}
	if err := s.loadSummaries(ctx, userID, tripID, out); err != nil {
		return nil, err
	}

	if tripID != "" {
		filterTrip(out, tripID)
	}
	return out, nil
}

func (s *SQLiteStore) loadProofs(ctx context.Context, userID string, out *storage.SettlementRows) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bill_id, creditor_id, debtor_user_id, amount, image_url, slip_qr, status, slip_check, slip_amount, created_at
		 FROM payment_proofs
		 WHERE (creditor_id = ? OR debtor_user_id = ?)
		   AND status IN ('pending', 'approved')`,
		userID, userID,
	)
	if err != nil {
		return fmt.Errorf("%w: payment proofs query: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PaymentProof
		if err := rows.Scan(&p.ID, &p.BillID, &p.CreditorID, &p.DebtorUserID, &p.Amount,
			&p.ImageURL, &p.SlipQR, &p.Status, &p.SlipCheck, &p.SlipAmount, &p.CreatedAt); err != nil {
			return fmt.Errorf("%w: scan payment proof: %v", storage.ErrUnavailable, err)
		}
		out.Proofs = append(out.Proofs, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate payment proofs: %v", storage.ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) loadPayments(ctx context.Context, userID string, out *storage.SettlementRows) error {
	// Pull payments with their share and bill in one pass; the maps double
	// as the reconciliation join indexes.
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.bill_share_id, p.amount, p.method, p.status, p.created_at, p.updated_at,
		        bs.id, bs.bill_id, bs.user_id, bs.amount_share, bs.status, bs.amount_paid, bs.is_confirmed,
		        b.id, b.trip_id, b.title, b.total_amount, b.paid_by_user_id, b.created_at
		 FROM payments p
		 JOIN bill_shares bs ON bs.id = p.bill_share_id
		 JOIN bills b ON b.id = bs.bill_id
		 WHERE (b.paid_by_user_id = ? OR bs.user_id = ?)
		   AND p.status IN ('pending', 'approved')`,
		userID, userID,
	)
	if err != nil {
		return fmt.Errorf("%w: payments query: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Payment
		var bs models.BillShare
		var b models.Bill
		if err := rows.Scan(
			&p.ID, &p.BillShareID, &p.Amount, &p.Method, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&bs.ID, &bs.BillID, &bs.UserID, &bs.AmountShare, &bs.Status, &bs.AmountPaid, &bs.IsConfirmed,
			&b.ID, &b.TripID, &b.Title, &b.TotalAmount, &b.PaidByUserID, &b.CreatedAt,
		); err != nil {
			return fmt.Errorf("%w: scan payment: %v", storage.ErrUnavailable, err)
		}
		out.Payments = append(out.Payments, p)
		out.SharesByID[bs.ID] = bs
		out.BillsByID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate payments: %v", storage.ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) loadSummaries(ctx context.Context, userID, tripID string, out *storage.SettlementRows) error {
	query := `SELECT debt_id, trip_id, debtor_user, creditor_user, amount_owed, amount_paid, status, last_update
	          FROM debt_summaries WHERE (debtor_user = ? OR creditor_user = ?)`
	args := []any{userID, userID}
	if tripID != "" {
		query += " AND trip_id = ?"
		args = append(args, tripID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: debt summaries query: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DebtSummary
		if err := rows.Scan(&d.DebtID, &d.TripID, &d.DebtorUser, &d.CreditorUser,
			&d.AmountOwed, &d.AmountPaid, &d.Status, &d.LastUpdate); err != nil {
			return fmt.Errorf("%w: scan debt summary: %v", storage.ErrUnavailable, err)
		}
		out.Summaries = append(out.Summaries, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate debt summaries: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// filterTrip narrows the row-sets to one trip. Proofs are filtered through
// the bill index when the bill is known; unknown bills are kept so the
// reconciler can decide (it skips what it cannot resolve).
func filterTrip(rows *storage.SettlementRows, tripID string) {
	proofs := rows.Proofs[:0]
	for _, p := range rows.Proofs {
		if b, ok := rows.BillsByID[p.BillID]; ok && b.TripID != tripID {
			continue
		}
		proofs = append(proofs, p)
	}
	rows.Proofs = proofs

	payments := rows.Payments[:0]
	for _, p := range rows.Payments {
		share, ok := rows.SharesByID[p.BillShareID]
		if ok {
			if b, ok := rows.BillsByID[share.BillID]; ok && b.TripID != tripID {
				continue
			}
		}
		payments = append(payments, p)
	}
	rows.Payments = payments
}
