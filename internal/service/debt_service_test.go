package service

import (
	"context"
	"errors"
	"testing"

	"github.com/triptab/triptab/internal/storage"
)

func TestOutstandingTripFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice", "Alice")
	env.addUser(t, "bob", "Bob")

	bill1, _ := env.seedBill(t, "alice", "bob", 100)
	bill2, _ := env.seedBill(t, "alice", "bob", 300)

	all, err := env.debts.Outstanding(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Outstanding failed: %v", err)
	}
	if len(all.Creditors) != 1 {
		t.Fatalf("creditors = %d, want 1", len(all.Creditors))
	}
	if all.Creditors[0].Total != 200 {
		t.Errorf("total = %v, want 200", all.Creditors[0].Total)
	}
	// Two trips feed the same creditor group.
	if all.Creditors[0].TripCount != 2 {
		t.Errorf("trip count = %d, want 2", all.Creditors[0].TripCount)
	}

	one, err := env.debts.Outstanding(ctx, "bob", bill1.TripID)
	if err != nil {
		t.Fatalf("Outstanding with trip filter failed: %v", err)
	}
	if len(one.Creditors) != 1 || one.Creditors[0].Total != 50 {
		t.Errorf("filtered view = %+v, want 50 owed", one.Creditors)
	}

	other, err := env.debts.Outstanding(ctx, "bob", bill2.TripID)
	if err != nil {
		t.Fatalf("Outstanding with trip filter failed: %v", err)
	}
	if len(other.Creditors) != 1 || other.Creditors[0].Total != 150 {
		t.Errorf("filtered view = %+v, want 150 owed", other.Creditors)
	}
}

func TestOutstandingCachesResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice", "Alice")
	env.addUser(t, "bob", "Bob")

	_, share := env.seedBill(t, "alice", "bob", 100)

	first, err := env.debts.Outstanding(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Outstanding failed: %v", err)
	}
	if len(first.Creditors) != 1 || first.Creditors[0].Total != 50 {
		t.Fatalf("initial view = %+v, want 50 owed", first.Creditors)
	}

	// A direct store write bypasses the service, so the cached view is
	// served until something invalidates it.
	if _, err := env.store.ApplyApprovedPayment(ctx, share.ID, 50); err != nil {
		t.Fatalf("ApplyApprovedPayment failed: %v", err)
	}
	cached, err := env.debts.Outstanding(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Outstanding failed: %v", err)
	}
	if len(cached.Creditors) != 1 || cached.Creditors[0].Total != 50 {
		t.Errorf("expected cached view, got %+v", cached.Creditors)
	}

	env.debts.InvalidateUser("bob")
	fresh, err := env.debts.Outstanding(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Outstanding after invalidation failed: %v", err)
	}
	if len(fresh.Creditors) != 0 {
		t.Errorf("fresh view = %+v, want empty after full payment", fresh.Creditors)
	}
}

func TestAlreadyPaidShowsOwnPendingSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice", "Alice")
	env.addUser(t, "bob", "Bob")

	_, share := env.seedBill(t, "alice", "bob", 200)
	if _, err := env.settlements.Submit(ctx, "bob", SubmitRequest{ShareID: share.ID, Amount: 100}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The submission is still awaiting alice's decision, but bob's own
	// history must already show it as pending.
	paid, err := env.debts.AlreadyPaid(ctx, "bob", "")
	if err != nil {
		t.Fatalf("AlreadyPaid failed: %v", err)
	}
	if paid.Pending["alice"] != 100 {
		t.Errorf("pending[alice] = %v, want 100", paid.Pending["alice"])
	}
	if len(paid.Confirmed) != 0 {
		t.Errorf("confirmed = %+v, want empty before approval", paid.Confirmed)
	}

	// The share is not settled yet, so it stays in the outstanding view.
	out, err := env.debts.Outstanding(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Outstanding failed: %v", err)
	}
	if len(out.Creditors) != 1 || out.Creditors[0].Total != 100 {
		t.Errorf("outstanding with pending submission = %+v, want 100 owed", out.Creditors)
	}
}

func TestOutstandingUnavailableIsAnError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice", "Alice")
	env.addUser(t, "bob", "Bob")
	env.seedBill(t, "alice", "bob", 100)

	env.store.Close()

	// A backend failure surfaces as an error, never as an empty view.
	if _, err := env.debts.Outstanding(ctx, "bob", ""); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("Outstanding with closed store = %v, want ErrUnavailable", err)
	}
	if _, err := env.debts.AlreadyPaid(ctx, "bob", ""); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("AlreadyPaid with closed store = %v, want ErrUnavailable", err)
	}
}

func TestPendingApprovalsOnlyForCreditor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice", "Alice")
	env.addUser(t, "bob", "Bob")

	_, share := env.seedBill(t, "alice", "bob", 100)
	if _, err := env.settlements.Submit(ctx, "bob", SubmitRequest{ShareID: share.ID, Amount: 50}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	forCreditor, err := env.debts.PendingApprovals(ctx, "alice")
	if err != nil {
		t.Fatalf("PendingApprovals failed: %v", err)
	}
	if len(forCreditor) != 1 {
		t.Errorf("creditor pending = %d, want 1", len(forCreditor))
	}

	forDebtor, err := env.debts.PendingApprovals(ctx, "bob")
	if err != nil {
		t.Fatalf("PendingApprovals failed: %v", err)
	}
	if len(forDebtor) != 0 {
		t.Errorf("debtor pending = %d, want 0", len(forDebtor))
	}
}
