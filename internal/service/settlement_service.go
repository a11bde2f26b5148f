package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/triptab/triptab/internal/blob"
	"github.com/triptab/triptab/internal/ledger"
	"github.com/triptab/triptab/internal/metrics"
	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/notify"
	"github.com/triptab/triptab/internal/slip"
	"github.com/triptab/triptab/internal/storage"
)

// SubmitRequest carries one settlement submission from a debtor.
type SubmitRequest struct {
	ShareID string
	Amount  float64
	Method  string

	// SlipImage is the uploaded payment slip, optional.
	SlipImage []byte

	// SlipQR is the raw QR payload scanned off the slip, optional.
	SlipQR string
}

// SubmitResult is the recorded settlement plus the advisory slip check.
type SubmitResult struct {
	Payment      *models.Payment
	Proof        *models.PaymentProof
	Verification slip.Verification
}

// OCR turns a slip image into text. Implementations may try several
// languages before giving up.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// SettlementService records payment submissions and applies creditor
// decisions. Approvals for the same payment are serialized by an in-flight
// guard; the storage transition is conditional besides, so even racing
// processes cannot double-apply.
type SettlementService struct {
	store    storage.Store
	blobs    blob.Store
	ocr      OCR
	notifier notify.Notifier
	debts    *DebtService
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSettlementService(store storage.Store, blobs blob.Store, ocr OCR, notifier notify.Notifier, debts *DebtService, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		store:    store,
		blobs:    blobs,
		ocr:      ocr,
		notifier: notifier,
		debts:    debts,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Submit records a debtor's payment attempt against their share: a Payment
// row, a PaymentProof row carrying the slip, and an advisory slip-amount
// check. The slip check never blocks submission; its failure modes are
// recorded as status "error".
func (s *SettlementService) Submit(ctx context.Context, debtorID string, req SubmitRequest) (*SubmitResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	share, err := s.store.GetBillShare(ctx, req.ShareID)
	if err != nil {
		return nil, fmt.Errorf("failed to load share: %w", err)
	}
	if share.UserID != debtorID {
		return nil, ErrPermissionDenied
	}

	bill, err := s.store.GetBill(ctx, share.BillID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill: %w", err)
	}
	if bill.PaidByUserID == debtorID {
		return nil, ErrSelfPayment
	}

	imageURL, err := s.uploadSlip(ctx, req.SlipImage)
	if err != nil {
		return nil, err
	}

	verification := s.checkSlip(ctx, req.SlipImage, req.Amount)

	now := time.Now().Unix()
	payment := &models.Payment{
		ID:          uuid.New().String(),
		BillShareID: share.ID,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      models.PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	proof := &models.PaymentProof{
		ID:           uuid.New().String(),
		BillID:       bill.ID,
		CreditorID:   bill.PaidByUserID,
		DebtorUserID: debtorID,
		Amount:       req.Amount,
		ImageURL:     imageURL,
		SlipQR:       req.SlipQR,
		Status:       models.PaymentPending,
		SlipCheck:    string(verification.Status),
		SlipAmount:   verification.Extracted,
		CreatedAt:    now,
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if err := s.store.CreatePaymentProof(ctx, proof); err != nil {
		return nil, fmt.Errorf("failed to record payment proof: %w", err)
	}

	s.logger.Info("settlement submitted",
		"payment_id", payment.ID, "share_id", share.ID,
		"debtor", debtorID, "creditor", bill.PaidByUserID,
		"amount", req.Amount, "slip_check", verification.Status)

	s.debts.InvalidateUser(debtorID)
	s.debts.InvalidateUser(bill.PaidByUserID)
	s.notifier.Notify(ctx, notify.New(bill.PaidByUserID, models.NotifyPaymentSubmit,
		fmt.Sprintf("Payment of %.2f submitted for %s", req.Amount, bill.Title), payment.ID))

	return &SubmitResult{Payment: payment, Proof: proof, Verification: verification}, nil
}

// Approve applies the creditor's approval: the payment flips to approved,
// the amount folds into the share, matching proofs flip with it, and the
// pair's debt summary is refreshed.
func (s *SettlementService) Approve(ctx context.Context, creditorID, paymentID string) error {
	return s.decide(ctx, creditorID, paymentID, models.PaymentApproved)
}

// Reject marks the payment and its matching proofs rejected. The share is
// untouched; the debtor may resubmit.
func (s *SettlementService) Reject(ctx context.Context, creditorID, paymentID string) error {
	return s.decide(ctx, creditorID, paymentID, models.PaymentRejected)
}

func (s *SettlementService) decide(ctx context.Context, creditorID, paymentID string, to models.PaymentStatus) error {
	if !s.acquire(paymentID) {
		return ErrSettlementInFlight
	}
	defer s.release(paymentID)

	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	share, err := s.store.GetBillShare(ctx, payment.BillShareID)
	if err != nil {
		return fmt.Errorf("failed to load share: %w", err)
	}
	bill, err := s.store.GetBill(ctx, share.BillID)
	if err != nil {
		return fmt.Errorf("failed to load bill: %w", err)
	}
	if bill.PaidByUserID != creditorID {
		return ErrPermissionDenied
	}

	if _, err := s.store.TransitionPayment(ctx, paymentID, to); err != nil {
		return fmt.Errorf("failed to transition payment: %w", err)
	}
	metrics.SettlementTransitions.WithLabelValues(string(to)).Inc()

	if to == models.PaymentApproved {
		if _, err := s.store.ApplyApprovedPayment(ctx, share.ID, payment.Amount); err != nil {
			return fmt.Errorf("failed to apply approved payment: %w", err)
		}
	}

	// Proofs share no key with payments; flip the ones carrying the same
	// (bill, debtor, amount) fingerprint so both tables agree.
	if err := s.store.TransitionProofs(ctx, bill.ID, share.UserID, payment.Amount, to); err != nil {
		s.logger.Error("failed to transition matching proofs",
			"payment_id", paymentID, "bill_id", bill.ID, "error", err)
	}

	if to == models.PaymentApproved {
		if err := s.refreshSummary(ctx, bill.TripID, share.UserID, creditorID); err != nil {
			// The summary is a denormalized convenience; reconciliation
			// treats it as secondary, so a failed refresh is not fatal.
			s.logger.Error("failed to refresh debt summary",
				"trip_id", bill.TripID, "debtor", share.UserID, "error", err)
		}
	}

	s.logger.Info("settlement decided",
		"payment_id", paymentID, "status", to,
		"debtor", share.UserID, "creditor", creditorID, "amount", payment.Amount)

	s.debts.InvalidateUser(share.UserID)
	s.debts.InvalidateUser(creditorID)

	kind, verb := models.NotifyPaymentApproved, "approved"
	if to == models.PaymentRejected {
		kind, verb = models.NotifyPaymentRejected, "rejected"
	}
	s.notifier.Notify(ctx, notify.New(share.UserID, kind,
		fmt.Sprintf("Your payment of %.2f for %s was %s", payment.Amount, bill.Title, verb), paymentID))

	return nil
}

// refreshSummary recomputes the (debtor, creditor, trip) running totals from
// the live tables and upserts the summary row.
func (s *SettlementService) refreshSummary(ctx context.Context, tripID, debtorID, creditorID string) error {
	shares, err := s.store.ListTripShares(ctx, tripID)
	if err != nil {
		return err
	}
	var owed float64
	for _, r := range shares {
		if r.Share.UserID == debtorID && r.Bill.PaidByUserID == creditorID {
			owed += r.Share.AmountShare
		}
	}

	rows, err := s.store.SettlementRows(ctx, debtorID, tripID)
	if err != nil {
		return err
	}
	res := ledger.Reconcile(ledger.Rows{
		Proofs:     rows.Proofs,
		Payments:   rows.Payments,
		SharesByID: rows.SharesByID,
		BillsByID:  rows.BillsByID,
	}, ledger.Filter{DebtorID: debtorID, CreditorID: creditorID})
	paid := ledger.AggregateSettlements(res.Events).Confirmed[creditorID]

	status := models.SummaryPending
	switch {
	case owed > 0 && paid+0.005 >= owed:
		status = models.SummarySettled
	case paid > 0:
		status = models.SummaryPartial
	}

	return s.store.UpsertDebtSummary(ctx, &models.DebtSummary{
		DebtID:       uuid.New().String(),
		TripID:       tripID,
		DebtorUser:   debtorID,
		CreditorUser: creditorID,
		AmountOwed:   owed,
		AmountPaid:   math.Round(paid*100) / 100,
		Status:       status,
		LastUpdate:   time.Now().Unix(),
	})
}

func (s *SettlementService) uploadSlip(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 || s.blobs == nil {
		return "", nil
	}
	url, err := s.blobs.Upload(ctx, "slips/"+uuid.New().String()+".jpg", image, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to store slip image: %w", err)
	}
	return url, nil
}

// VerifySlip runs the slip check on its own, for the pre-submission preview
// in the client. Same heuristic, same advisory-only semantics.
func (s *SettlementService) VerifySlip(ctx context.Context, image []byte, expected float64) slip.Verification {
	return s.checkSlip(ctx, image, expected)
}

// checkSlip runs the advisory OCR + amount-matching heuristic. Every failure
// path degrades to status "error"; it never blocks the submission.
func (s *SettlementService) checkSlip(ctx context.Context, image []byte, expected float64) slip.Verification {
	v := slip.Verification{Status: slip.StatusError, Expected: expected}
	if len(image) == 0 || s.ocr == nil {
		metrics.SlipVerifications.WithLabelValues(string(v.Status)).Inc()
		return v
	}

	text, err := s.ocr.Recognize(ctx, image)
	if err != nil {
		s.logger.Warn("slip OCR failed", "error", err)
		metrics.SlipVerifications.WithLabelValues(string(v.Status)).Inc()
		return v
	}

	v = slip.Verify(text, expected)
	metrics.SlipVerifications.WithLabelValues(string(v.Status)).Inc()
	return v
}

func (s *SettlementService) acquire(paymentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[paymentID]; busy {
		return false
	}
	s.inFlight[paymentID] = struct{}{}
	return true
}

func (s *SettlementService) release(paymentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, paymentID)
}
