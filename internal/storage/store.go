// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/triptab/triptab/internal/models"
)

var (
	// ErrUnavailable wraps any read failure so callers can distinguish
	// "data unavailable" from a valid empty result and decide whether to
	// retry. Partial silent success is never returned.
	ErrUnavailable = errors.New("data unavailable")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional state transition finds
	// the record no longer in the expected state (e.g. a payment already
	// approved by a concurrent request).
	ErrConflict = errors.New("conflicting state transition")
)

// SettlementRows is the raw material for one reconciliation run: every
// payment signal involving a user, plus the join indexes needed to resolve a
// payment back to its bill and debtor.
type SettlementRows struct {
	Proofs     []models.PaymentProof
	Payments   []models.Payment
	SharesByID map[string]models.BillShare
	BillsByID  map[string]models.Bill
	Summaries  []models.DebtSummary
}

// LedgerReader issues the read queries the reconciliation core consumes.
// Implementations are read-only; emptiness is a valid terminal state.
type LedgerReader interface {
	// UnpaidShares returns unpaid bill_share rows where the user is
	// debtor, joined with their bills. tripID optionally filters to one
	// trip.
	UnpaidShares(ctx context.Context, debtorID, tripID string) ([]models.ShareWithBill, error)

	// SettlementRows returns pending and approved payment and
	// payment_proof rows where the user is either party, along with the
	// user's debt_summary rows.
	SettlementRows(ctx context.Context, userID, tripID string) (*SettlementRows, error)
}

// Store defines the full persistence interface. The abstraction allows
// swapping storage backends without changing the service layer.
type Store interface {
	LedgerReader

	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserPromptPay(ctx context.Context, userID, promptPayID string) error

	// Trips
	CreateTrip(ctx context.Context, trip *models.Trip, memberIDs []string) error
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	ListTripsForUser(ctx context.Context, userID string) ([]*models.Trip, error)
	ListTripMembers(ctx context.Context, tripID string) ([]string, error)
	DeleteTrip(ctx context.Context, tripID string) error

	// Bills. CreateBill persists the bill and its shares atomically;
	// IDs and CreatedAt are populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill, shares []models.BillShare) error
	GetBill(ctx context.Context, billID string) (*models.Bill, error)
	GetBillShare(ctx context.Context, shareID string) (*models.BillShare, error)
	ListTripShares(ctx context.Context, tripID string) ([]models.ShareWithBill, error)

	// Payments. TransitionPayment performs a conditional update: the
	// payment moves from pending to the target status only if it is still
	// pending, otherwise ErrConflict. ApplyApprovedPayment folds an
	// approved amount into the share and flips its status once covered.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	TransitionPayment(ctx context.Context, paymentID string, to models.PaymentStatus) (*models.Payment, error)
	CreatePaymentProof(ctx context.Context, proof *models.PaymentProof) error
	TransitionProofs(ctx context.Context, billID, debtorID string, amount float64, to models.PaymentStatus) error
	ApplyApprovedPayment(ctx context.Context, shareID string, amount float64) (*models.BillShare, error)

	// Debt summaries are upserted opportunistically on approval.
	UpsertDebtSummary(ctx context.Context, summary *models.DebtSummary) error

	// Friends
	CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error
	GetFriendRequest(ctx context.Context, requestID string) (*models.FriendRequest, error)
	UpdateFriendRequest(ctx context.Context, requestID string, status models.FriendRequestStatus) error
	CreateFriendship(ctx context.Context, a, b string) error
	ListFriends(ctx context.Context, userID string) ([]string, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error

	// Close releases any resources held by the store.
	Close() error
}
