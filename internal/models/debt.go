package models

// SummaryStatus tracks how much of a summarized debt has been paid.
type SummaryStatus string

const (
	SummaryPending SummaryStatus = "pending"
	SummaryPartial SummaryStatus = "partial"
	SummarySettled SummaryStatus = "settled"
)

// DebtSummary is a denormalized running total for one (debtor, creditor, trip)
// pair, upserted by approval handlers. It may lag the payment tables or be
// absent entirely; the reconciler treats it as a secondary signal only.
type DebtSummary struct {
	// DebtID is the unique identifier for the summary row (UUID format).
	DebtID string

	// TripID scopes the summary to one trip.
	TripID string

	// DebtorUser is the user who owes.
	DebtorUser string

	// CreditorUser is the user who is owed.
	CreditorUser string

	// AmountOwed is the total of shares assigned to the debtor.
	AmountOwed float64

	// AmountPaid is the running total of approved payments.
	AmountPaid float64

	// Status is pending, partial or settled.
	Status SummaryStatus

	// LastUpdate is the Unix timestamp of the last upsert.
	LastUpdate int64
}
