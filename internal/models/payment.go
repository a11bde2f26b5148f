package models

// PaymentStatus tracks the lifecycle of a payment attempt.
// A payment terminates at approved or rejected.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// Payment is a debtor's payment attempt against a bill share. A share may
// accumulate multiple attempts (e.g. a rejection followed by a resubmission).
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string

	// BillShareID is the share this payment is settling.
	BillShareID string

	// Amount is the amount the debtor claims to have paid.
	Amount float64

	// Method is how the debtor paid (e.g. "promptpay", "cash").
	Method string

	// Status is pending until the creditor approves or rejects.
	Status PaymentStatus

	// CreatedAt is the Unix timestamp when the payment was submitted.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last status change.
	UpdatedAt int64
}

// PaymentProof is a parallel, partially redundant record of the same event as
// Payment, carrying the uploaded slip. The two are reconciled by the
// (bill, debtor, amount) fingerprint since no shared key exists between them.
type PaymentProof struct {
	// ID is the unique identifier for the proof (UUID format).
	ID string

	// BillID is the bill the proof settles a share of.
	BillID string

	// CreditorID is the user being paid.
	CreditorID string

	// DebtorUserID is the user who paid.
	DebtorUserID string

	// Amount is the amount shown on the slip submission.
	Amount float64

	// ImageURL is the stored slip image location.
	ImageURL string

	// SlipQR is the raw QR payload scanned off the slip, if any.
	SlipQR string

	// Status mirrors the payment lifecycle.
	Status PaymentStatus

	// SlipCheck is the advisory result of the slip-amount heuristic:
	// "matched", "mismatch" or "error". Informational only; approval is
	// always a human decision.
	SlipCheck string

	// SlipAmount is the amount the heuristic extracted, for audit.
	SlipAmount float64

	// CreatedAt is the Unix timestamp when the proof was submitted.
	CreatedAt int64
}
