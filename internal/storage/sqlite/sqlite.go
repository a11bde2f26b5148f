// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a bill and its shares in one transaction.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill, shares []models.BillShare) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Title == "" {
		bill.Title = fmt.Sprintf("Bill - %s", time.Now().Format("Jan 2, 2006"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO bills (id, trip_id, title, total_amount, paid_by_user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		bill.ID, bill.TripID, bill.Title, bill.TotalAmount, bill.PaidByUserID, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i := range shares {
		share := &shares[i]
		if share.ID == "" {
			share.ID = uuid.New().String()
		}
		share.BillID = bill.ID
		if share.Status == "" {
			share.Status = models.ShareUnpaid
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO bill_shares (id, bill_id, user_id, amount_share, status, amount_paid, is_confirmed) VALUES (?, ?, ?, ?, ?, ?, ?)",
			share.ID, share.BillID, share.UserID, share.AmountShare, share.Status, share.AmountPaid, share.IsConfirmed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bill share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, trip_id, title, total_amount, paid_by_user_id, created_at FROM bills WHERE id = ?",
		billID,
	).Scan(&bill.ID, &bill.TripID, &bill.Title, &bill.TotalAmount, &bill.PaidByUserID, &bill.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// GetBillShare retrieves a single share by ID.
func (s *SQLiteStore) GetBillShare(ctx context.Context, shareID string) (*models.BillShare, error) {
	share := &models.BillShare{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, bill_id, user_id, amount_share, status, amount_paid, is_confirmed FROM bill_shares WHERE id = ?",
		shareID,
	).Scan(&share.ID, &share.BillID, &share.UserID, &share.AmountShare, &share.Status, &share.AmountPaid, &share.IsConfirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill share %s: %w", shareID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill share: %w", err)
	}
	return share, nil
}

// ApplyApprovedPayment folds an approved amount into a share, flipping its
// status to paid once the share is covered. Overpayment is recorded as-is;
// surfacing it is the aggregation layer's job.
func (s *SQLiteStore) ApplyApprovedPayment(ctx context.Context, shareID string, amount float64) (*models.BillShare, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	share := &models.BillShare{}
	err = tx.QueryRowContext(ctx,
		"SELECT id, bill_id, user_id, amount_share, status, amount_paid, is_confirmed FROM bill_shares WHERE id = ?",
		shareID,
	).Scan(&share.ID, &share.BillID, &share.UserID, &share.AmountShare, &share.Status, &share.AmountPaid, &share.IsConfirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill share %s: %w", shareID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill share: %w", err)
	}

	share.AmountPaid += amount
	if share.AmountPaid+0.005 >= share.AmountShare {
		share.Status = models.SharePaid
		share.IsConfirmed = true
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE bill_shares SET amount_paid = ?, status = ?, is_confirmed = ? WHERE id = ?",
		share.AmountPaid, share.Status, share.IsConfirmed, share.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update bill share: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return share, nil
}

// CreatePayment persists a new payment attempt.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if payment.CreatedAt == 0 {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt == 0 {
		payment.UpdatedAt = payment.CreatedAt
	}
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payments (id, bill_share_id, amount, method, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		payment.ID, payment.BillShareID, payment.Amount, payment.Method, payment.Status, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	p := &models.Payment{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, bill_share_id, amount, method, status, created_at, updated_at FROM payments WHERE id = ?",
		paymentID,
	).Scan(&p.ID, &p.BillShareID, &p.Amount, &p.Method, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", paymentID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// TransitionPayment conditionally moves a payment from pending to the target
// status. A payment that is no longer pending returns ErrConflict, so two
// concurrent approvals settle a share exactly once.
func (s *SQLiteStore) TransitionPayment(ctx context.Context, paymentID string, to models.PaymentStatus) (*models.Payment, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = 'pending'",
		to, time.Now().Unix(), paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to transition payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing payment from a lost race.
		if _, err := s.GetPayment(ctx, paymentID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("payment %s is not pending: %w", paymentID, storage.ErrConflict)
	}
	return s.GetPayment(ctx, paymentID)
}

// CreatePaymentProof persists a new payment proof.
func (s *SQLiteStore) CreatePaymentProof(ctx context.Context, proof *models.PaymentProof) error {
	if proof.ID == "" {
		proof.ID = uuid.New().String()
	}
	if proof.CreatedAt == 0 {
		proof.CreatedAt = time.Now().Unix()
	}
	if proof.Status == "" {
		proof.Status = models.PaymentPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_proofs (id, bill_id, creditor_id, debtor_user_id, amount, image_url, slip_qr, status, slip_check, slip_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		proof.ID, proof.BillID, proof.CreditorID, proof.DebtorUserID, proof.Amount,
		proof.ImageURL, proof.SlipQR, proof.Status, proof.SlipCheck, proof.SlipAmount, proof.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment proof: %w", err)
	}
	return nil
}

// TransitionProofs moves every pending proof matching the (bill, debtor,
// amount) fingerprint to the target status. Proofs share no key with
// payments, so the fingerprint is the only available join.
func (s *SQLiteStore) TransitionProofs(ctx context.Context, billID, debtorID string, amount float64, to models.PaymentStatus) error {
	cents := int64(math.Round(amount * 100))
	_, err := s.db.ExecContext(ctx,
		`UPDATE payment_proofs SET status = ?
		 WHERE bill_id = ? AND debtor_user_id = ? AND CAST(ROUND(amount * 100) AS INTEGER) = ? AND status = 'pending'`,
		to, billID, debtorID, cents,
	)
	if err != nil {
		return fmt.Errorf("failed to transition payment proofs: %w", err)
	}
	return nil
}

// UpsertDebtSummary inserts or refreshes the running total for one
// (trip, debtor, creditor) pair.
func (s *SQLiteStore) UpsertDebtSummary(ctx context.Context, summary *models.DebtSummary) error {
	if summary.DebtID == "" {
		summary.DebtID = uuid.New().String()
	}
	if summary.LastUpdate == 0 {
		summary.LastUpdate = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debt_summaries (debt_id, trip_id, debtor_user, creditor_user, amount_owed, amount_paid, status, last_update)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (trip_id, debtor_user, creditor_user)
		 DO UPDATE SET amount_owed = excluded.amount_owed, amount_paid = excluded.amount_paid,
		               status = excluded.status, last_update = excluded.last_update`,
		summary.DebtID, summary.TripID, summary.DebtorUser, summary.CreditorUser,
		summary.AmountOwed, summary.AmountPaid, summary.Status, summary.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert debt summary: %w", err)
	}
	return nil
}
