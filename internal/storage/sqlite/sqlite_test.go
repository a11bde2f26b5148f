package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "triptab-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateBill generates IDs and persists shares", func(t *testing.T) {
		bill := &models.Bill{TripID: "t1", Title: "Dinner", TotalAmount: 100.0, PaidByUserID: "bob"}
		shares := []models.BillShare{
			{UserID: "alice", AmountShare: 50.0},
			{UserID: "bob", AmountShare: 50.0},
		}

		if err := store.CreateBill(ctx, bill, shares); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if bill.ID == "" || bill.CreatedAt == 0 {
			t.Error("expected bill ID and CreatedAt to be generated")
		}
		if shares[0].ID == "" || shares[0].BillID != bill.ID {
			t.Error("expected share ID and BillID to be populated")
		}
		if shares[0].Status != models.ShareUnpaid {
			t.Errorf("share status = %s, want unpaid", shares[0].Status)
		}
	})

	t.Run("UnpaidShares joins bills and filters debtor", func(t *testing.T) {
		rows, err := store.UnpaidShares(ctx, "alice", "")
		if err != nil {
			t.Fatalf("UnpaidShares failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 unpaid share for alice, got %d", len(rows))
		}
		if rows[0].Bill.PaidByUserID != "bob" {
			t.Errorf("joined bill creditor = %s, want bob", rows[0].Bill.PaidByUserID)
		}
	})

	t.Run("UnpaidShares trip filter", func(t *testing.T) {
		rows, err := store.UnpaidShares(ctx, "alice", "other-trip")
		if err != nil {
			t.Fatalf("UnpaidShares failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("expected no shares for other trip, got %d", len(rows))
		}
	})

	t.Run("GetBill returns ErrNotFound for missing id", func(t *testing.T) {
		_, err := store.GetBill(ctx, "nonexistent")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTransitionPayment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bill := &models.Bill{TripID: "t1", TotalAmount: 50.0, PaidByUserID: "bob"}
	shares := []models.BillShare{{UserID: "alice", AmountShare: 50.0}}
	if err := store.CreateBill(ctx, bill, shares); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	payment := &models.Payment{BillShareID: shares[0].ID, Amount: 50.0, Method: "promptpay"}
	if err := store.CreatePayment(ctx, payment); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	t.Run("pending to approved succeeds once", func(t *testing.T) {
		got, err := store.TransitionPayment(ctx, payment.ID, models.PaymentApproved)
		if err != nil {
			t.Fatalf("TransitionPayment failed: %v", err)
		}
		if got.Status != models.PaymentApproved {
			t.Errorf("status = %s, want approved", got.Status)
		}
	})

	t.Run("second transition conflicts", func(t *testing.T) {
		_, err := store.TransitionPayment(ctx, payment.ID, models.PaymentApproved)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("expected ErrConflict on double approve, got %v", err)
		}
	})

	t.Run("missing payment is not a conflict", func(t *testing.T) {
		_, err := store.TransitionPayment(ctx, "nonexistent", models.PaymentApproved)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestApplyApprovedPayment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bill := &models.Bill{TripID: "t1", TotalAmount: 100.0, PaidByUserID: "bob"}
	shares := []models.BillShare{{UserID: "alice", AmountShare: 100.0}}
	if err := store.CreateBill(ctx, bill, shares); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	share, err := store.ApplyApprovedPayment(ctx, shares[0].ID, 40.0)
	if err != nil {
		t.Fatalf("ApplyApprovedPayment failed: %v", err)
	}
	if share.Status != models.ShareUnpaid {
		t.Errorf("partially paid share status = %s, want unpaid", share.Status)
	}

	share, err = store.ApplyApprovedPayment(ctx, shares[0].ID, 60.0)
	if err != nil {
		t.Fatalf("ApplyApprovedPayment failed: %v", err)
	}
	if share.Status != models.SharePaid || !share.IsConfirmed {
		t.Errorf("fully paid share = %+v, want paid and confirmed", share)
	}
	if share.AmountPaid != 100.0 {
		t.Errorf("AmountPaid = %v, want 100.0", share.AmountPaid)
	}
}

func TestSettlementRowsRoles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bill := &models.Bill{TripID: "t1", TotalAmount: 50.0, PaidByUserID: "bob"}
	shares := []models.BillShare{{UserID: "alice", AmountShare: 50.0}}
	if err := store.CreateBill(ctx, bill, shares); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	payment := &models.Payment{BillShareID: shares[0].ID, Amount: 50.0}
	if err := store.CreatePayment(ctx, payment); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	proof := &models.PaymentProof{BillID: bill.ID, CreditorID: "bob", DebtorUserID: "alice", Amount: 50.0}
	if err := store.CreatePaymentProof(ctx, proof); err != nil {
		t.Fatalf("CreatePaymentProof failed: %v", err)
	}

	// Pending rows are visible to the creditor, not the debtor.
	rows, err := store.SettlementRows(ctx, "bob", "")
	if err != nil {
		t.Fatalf("SettlementRows failed: %v", err)
	}
	if len(rows.Proofs) != 1 || len(rows.Payments) != 1 {
		t.Errorf("creditor view = %d proofs / %d payments, want 1/1", len(rows.Proofs), len(rows.Payments))
	}
	if _, ok := rows.SharesByID[shares[0].ID]; !ok {
		t.Error("join index missing the payment's share")
	}

	rows, err = store.SettlementRows(ctx, "alice", "")
	if err != nil {
		t.Fatalf("SettlementRows failed: %v", err)
	}
	if len(rows.Proofs) != 0 || len(rows.Payments) != 0 {
		t.Errorf("debtor sees pending rows: %d proofs / %d payments", len(rows.Proofs), len(rows.Payments))
	}

	// Approved rows become visible to both parties.
	if _, err := store.TransitionPayment(ctx, payment.ID, models.PaymentApproved); err != nil {
		t.Fatalf("TransitionPayment failed: %v", err)
	}
	if err := store.TransitionProofs(ctx, bill.ID, "alice", 50.0, models.PaymentApproved); err != nil {
		t.Fatalf("TransitionProofs failed: %v", err)
	}

	rows, err = store.SettlementRows(ctx, "alice", "")
	if err != nil {
		t.Fatalf("SettlementRows failed: %v", err)
	}
	if len(rows.Proofs) != 1 || len(rows.Payments) != 1 {
		t.Errorf("debtor view after approval = %d proofs / %d payments, want 1/1", len(rows.Proofs), len(rows.Payments))
	}
}

func TestUpsertDebtSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.DebtSummary{
		TripID: "t1", DebtorUser: "alice", CreditorUser: "bob",
		AmountOwed: 100.0, AmountPaid: 0, Status: models.SummaryPending,
	}
	if err := store.UpsertDebtSummary(ctx, first); err != nil {
		t.Fatalf("UpsertDebtSummary failed: %v", err)
	}

	second := &models.DebtSummary{
		TripID: "t1", DebtorUser: "alice", CreditorUser: "bob",
		AmountOwed: 100.0, AmountPaid: 100.0, Status: models.SummarySettled,
	}
	if err := store.UpsertDebtSummary(ctx, second); err != nil {
		t.Fatalf("UpsertDebtSummary upsert failed: %v", err)
	}

	rows, err := store.SettlementRows(ctx, "alice", "")
	if err != nil {
		t.Fatalf("SettlementRows failed: %v", err)
	}
	if len(rows.Summaries) != 1 {
		t.Fatalf("expected 1 summary after upsert, got %d", len(rows.Summaries))
	}
	if rows.Summaries[0].AmountPaid != 100.0 || rows.Summaries[0].Status != models.SummarySettled {
		t.Errorf("summary not refreshed: %+v", rows.Summaries[0])
	}
}

func TestTripsAndFriends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := models.NewUser("alice@example.com", "Alice", "hash")
	bob := models.NewUser("bob@example.com", "Bob", "hash")
	for _, u := range []*models.User{alice, bob} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	trip := &models.Trip{Name: "Chiang Mai", OwnerID: alice.ID}
	if err := store.CreateTrip(ctx, trip, []string{bob.ID}); err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}

	members, err := store.ListTripMembers(ctx, trip.ID)
	if err != nil {
		t.Fatalf("ListTripMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("expected owner + 1 member, got %d", len(members))
	}

	trips, err := store.ListTripsForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListTripsForUser failed: %v", err)
	}
	if len(trips) != 1 || trips[0].ID != trip.ID {
		t.Errorf("bob's trips = %+v, want the created trip", trips)
	}

	if err := store.DeleteTrip(ctx, trip.ID); err != nil {
		t.Fatalf("DeleteTrip failed: %v", err)
	}
	if err := store.DeleteTrip(ctx, trip.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}

	// Friendship pairs are stored once regardless of direction.
	if err := store.CreateFriendship(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("CreateFriendship failed: %v", err)
	}
	if err := store.CreateFriendship(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("CreateFriendship reverse failed: %v", err)
	}
	friends, err := store.ListFriends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if len(friends) != 1 || friends[0] != bob.ID {
		t.Errorf("alice's friends = %v, want [%s]", friends, bob.ID)
	}
}
