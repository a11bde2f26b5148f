package ledger

import (
	"math"
	"testing"

	"github.com/triptab/triptab/internal/models"
)

func shareRow(shareID, billID, tripID, debtor, creditor string, amount float64, status models.ShareStatus, createdAt int64) models.ShareWithBill {
	return models.ShareWithBill{
		Share: models.BillShare{
			ID:          shareID,
			BillID:      billID,
			UserID:      debtor,
			AmountShare: amount,
			Status:      status,
		},
		Bill: models.Bill{
			ID:           billID,
			TripID:       tripID,
			PaidByUserID: creditor,
			CreatedAt:    createdAt,
		},
	}
}

func TestAggregateOutstanding(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		rows     []models.ShareWithBill
		validate func(t *testing.T, res OutstandingResult)
	}{
		{
			name:   "single unpaid share",
			userID: "alice",
			rows: []models.ShareWithBill{
				shareRow("s1", "b1", "t1", "alice", "bob", 100.0, models.ShareUnpaid, 10),
			},
			validate: func(t *testing.T, res OutstandingResult) {
				if len(res.Creditors) != 1 {
					t.Fatalf("expected 1 creditor group, got %d", len(res.Creditors))
				}
				g := res.Creditors[0]
				if g.CreditorID != "bob" || math.Abs(g.Total-100.0) > 0.01 {
					t.Errorf("got %+v, want bob owed 100.00", g)
				}
				if g.TripCount != 1 {
					t.Errorf("TripCount = %d, want 1", g.TripCount)
				}
			},
		},
		{
			name:   "two bills same creditor sum and count distinct trips",
			userID: "alice",
			rows: []models.ShareWithBill{
				shareRow("s1", "b1", "t1", "alice", "bob", 30.0, models.ShareUnpaid, 10),
				shareRow("s2", "b2", "t2", "alice", "bob", 70.0, models.ShareUnpaid, 20),
			},
			validate: func(t *testing.T, res OutstandingResult) {
				if len(res.Creditors) != 1 {
					t.Fatalf("expected 1 creditor group, got %d", len(res.Creditors))
				}
				g := res.Creditors[0]
				if math.Abs(g.Total-100.0) > 0.01 {
					t.Errorf("Total = %v, want 100.0", g.Total)
				}
				if g.TripCount != 2 {
					t.Errorf("TripCount = %d, want 2", g.TripCount)
				}
				if g.LastActivity != 20 {
					t.Errorf("LastActivity = %d, want 20", g.LastActivity)
				}
			},
		},
		{
			name:   "no self-debt",
			userID: "alice",
			rows: []models.ShareWithBill{
				// alice somehow owes herself; must never appear
				shareRow("s1", "b1", "t1", "alice", "alice", 50.0, models.ShareUnpaid, 10),
				shareRow("s2", "b2", "t1", "alice", "bob", 25.0, models.ShareUnpaid, 20),
			},
			validate: func(t *testing.T, res OutstandingResult) {
				for _, g := range res.Creditors {
					if g.CreditorID == "alice" {
						t.Fatalf("self-debt leaked into aggregation: %+v", g)
					}
				}
				if len(res.Creditors) != 1 {
					t.Fatalf("expected 1 creditor group, got %d", len(res.Creditors))
				}
			},
		},
		{
			name:   "paid shares excluded",
			userID: "alice",
			rows: []models.ShareWithBill{
				shareRow("s1", "b1", "t1", "alice", "bob", 40.0, models.SharePaid, 10),
				shareRow("s2", "b2", "t1", "alice", "bob", 60.0, models.ShareUnpaid, 20),
			},
			validate: func(t *testing.T, res OutstandingResult) {
				if math.Abs(res.Creditors[0].Total-60.0) > 0.01 {
					t.Errorf("Total = %v, want 60.0 (paid share must not count)", res.Creditors[0].Total)
				}
			},
		},
		{
			name:   "sorted by total desc then recency desc",
			userID: "alice",
			rows: []models.ShareWithBill{
				shareRow("s1", "b1", "t1", "alice", "bob", 50.0, models.ShareUnpaid, 10),
				shareRow("s2", "b2", "t1", "alice", "carol", 80.0, models.ShareUnpaid, 5),
				shareRow("s3", "b3", "t1", "alice", "dave", 50.0, models.ShareUnpaid, 30),
			},
			validate: func(t *testing.T, res OutstandingResult) {
				want := []string{"carol", "dave", "bob"}
				if len(res.Creditors) != len(want) {
					t.Fatalf("expected %d groups, got %d", len(want), len(res.Creditors))
				}
				for i, id := range want {
					if res.Creditors[i].CreditorID != id {
						t.Errorf("position %d = %s, want %s", i, res.Creditors[i].CreditorID, id)
					}
				}
			},
		},
		{
			name:   "overpaid share surfaces anomaly",
			userID: "alice",
			rows: []models.ShareWithBill{
				{
					Share: models.BillShare{ID: "s1", BillID: "b1", UserID: "alice", AmountShare: 50.0, AmountPaid: 75.0, Status: models.SharePaid},
					Bill:  models.Bill{ID: "b1", TripID: "t1", PaidByUserID: "bob", CreatedAt: 10},
				},
			},
			validate: func(t *testing.T, res OutstandingResult) {
				if len(res.Anomalies) != 1 {
					t.Fatalf("expected 1 anomaly, got %d", len(res.Anomalies))
				}
				a := res.Anomalies[0]
				if a.ShareID != "s1" || a.AmountPaid != 75.0 {
					t.Errorf("unexpected anomaly: %+v", a)
				}
			},
		},
		{
			name:     "empty input is a valid terminal state",
			userID:   "alice",
			rows:     nil,
			validate: func(t *testing.T, res OutstandingResult) {
				if len(res.Creditors) != 0 || len(res.Anomalies) != 0 {
					t.Errorf("expected empty result, got %+v", res)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, AggregateOutstanding(tt.userID, tt.rows))
		})
	}
}

func TestAggregateSettlements(t *testing.T) {
	events := []Event{
		{BillID: "b1", DebtorID: "alice", CreditorID: "bob", Amount: 100.0, Status: models.PaymentPending},
		{BillID: "b2", DebtorID: "alice", CreditorID: "bob", Amount: 40.0, Status: models.PaymentApproved},
		{BillID: "b3", DebtorID: "alice", CreditorID: "carol", Amount: 25.0, Status: models.PaymentApproved},
	}

	totals := AggregateSettlements(events)

	if math.Abs(totals.Pending["bob"]-100.0) > 0.01 {
		t.Errorf("Pending[bob] = %v, want 100.0", totals.Pending["bob"])
	}
	if math.Abs(totals.Confirmed["bob"]-40.0) > 0.01 {
		t.Errorf("Confirmed[bob] = %v, want 40.0", totals.Confirmed["bob"])
	}
	if math.Abs(totals.Confirmed["carol"]-25.0) > 0.01 {
		t.Errorf("Confirmed[carol] = %v, want 25.0", totals.Confirmed["carol"])
	}
	if totals.Pending["carol"] != 0 {
		t.Errorf("Pending[carol] = %v, want 0", totals.Pending["carol"])
	}
}

// Conservation: outstanding + approved == everything the creditor ever
// assigned to this debtor, within rounding tolerance.
func TestConservation(t *testing.T) {
	rows := []models.ShareWithBill{
		shareRow("s1", "b1", "t1", "alice", "bob", 30.0, models.ShareUnpaid, 10),
		shareRow("s2", "b2", "t1", "alice", "bob", 70.0, models.ShareUnpaid, 20),
		shareRow("s3", "b3", "t2", "alice", "bob", 55.5, models.SharePaid, 30),
	}
	events := []Event{
		{BillID: "b3", DebtorID: "alice", CreditorID: "bob", Amount: 55.5, Status: models.PaymentApproved},
	}

	outstanding := AggregateOutstanding("alice", rows)
	totals := AggregateSettlements(events)

	var assigned float64
	for _, r := range rows {
		assigned += r.Share.AmountShare
	}

	got := outstanding.Creditors[0].Total + totals.Confirmed["bob"]
	if math.Abs(got-assigned) > 0.01 {
		t.Errorf("outstanding + approved = %v, want %v", got, assigned)
	}
}
