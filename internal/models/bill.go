package models

// ShareStatus tracks whether a bill share has been settled.
type ShareStatus string

const (
	ShareUnpaid ShareStatus = "unpaid"
	SharePaid   ShareStatus = "paid"
)

// Bill represents a group expense recorded by the user who paid it.
// Bills are immutable once their shares are generated.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// TripID is the trip this bill belongs to.
	TripID string

	// Title is the human-readable name for the bill.
	Title string

	// TotalAmount is the full amount of the expense.
	TotalAmount float64

	// PaidByUserID is the user who fronted the money (the creditor).
	PaidByUserID string

	// CreatedAt is the Unix timestamp when the bill was recorded.
	CreatedAt int64
}

// BillShare is one debtor's portion of a bill. One row per participant per
// bill, created together with the bill. AmountShare is fixed at creation;
// Status, AmountPaid and IsConfirmed mutate as payments are approved.
type BillShare struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	// BillID is the bill this share belongs to.
	BillID string

	// UserID is the debtor who owes this share.
	UserID string

	// AmountShare is the fixed amount owed.
	AmountShare float64

	// Status is unpaid until an approved payment covers the share.
	Status ShareStatus

	// AmountPaid is the total of approved payments against this share.
	AmountPaid float64

	// IsConfirmed is set when the creditor has confirmed settlement.
	IsConfirmed bool
}

// ShareWithBill is a bill share joined with the bill fields the aggregation
// needs: the creditor, the trip and the recording time.
type ShareWithBill struct {
	Share BillShare
	Bill  Bill
}
