package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/triptab/triptab/internal/export"
	"github.com/triptab/triptab/internal/models"
	"github.com/triptab/triptab/internal/storage"
)

// TripService manages trips and the bills recorded against them.
type TripService struct {
	store  storage.Store
	debts  *DebtService
	logger *slog.Logger
}

func NewTripService(store storage.Store, debts *DebtService, logger *slog.Logger) *TripService {
	return &TripService{store: store, debts: debts, logger: logger}
}

// CreateTrip creates a trip owned by the caller. The owner is always a
// member; memberIDs may add more.
func (s *TripService) CreateTrip(ctx context.Context, ownerID, name string, memberIDs []string) (*models.Trip, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: trip name is required", ErrInvalidInput)
	}
	trip := &models.Trip{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.CreateTrip(ctx, trip, memberIDs); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	s.logger.Info("trip created", "trip_id", trip.ID, "owner", ownerID)
	return trip, nil
}

// ListTrips returns the trips the user belongs to.
func (s *TripService) ListTrips(ctx context.Context, userID string) ([]*models.Trip, error) {
	trips, err := s.store.ListTripsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

// GetTrip returns the trip if the caller is a member.
func (s *TripService) GetTrip(ctx context.Context, userID, tripID string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	if err := s.requireMember(ctx, userID, tripID); err != nil {
		return nil, err
	}
	return trip, nil
}

// DeleteTrip removes a trip. Only the owner may delete it.
func (s *TripService) DeleteTrip(ctx context.Context, userID, tripID string) error {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to load trip: %w", err)
	}
	if trip.OwnerID != userID {
		return ErrPermissionDenied
	}
	members, err := s.store.ListTripMembers(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to load trip members: %w", err)
	}
	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	for _, id := range members {
		s.debts.InvalidateUser(id)
	}
	s.logger.Info("trip deleted", "trip_id", tripID, "owner", userID)
	return nil
}

// AddBill records an expense paid by the caller, split equally across the
// participants. Shares are fixed in whole cents; the rounding remainder goes
// to the payer's own share so the split always sums to the total.
func (s *TripService) AddBill(ctx context.Context, payerID, tripID, title string, total float64, participantIDs []string) (*models.Bill, []models.BillShare, error) {
	if title == "" || total <= 0 {
		return nil, nil, fmt.Errorf("%w: bill needs a title and a positive total", ErrInvalidInput)
	}
	if err := s.requireMember(ctx, payerID, tripID); err != nil {
		return nil, nil, err
	}

	participants := dedupeWith(participantIDs, payerID)
	bill := &models.Bill{
		ID:           uuid.New().String(),
		TripID:       tripID,
		Title:        title,
		TotalAmount:  total,
		PaidByUserID: payerID,
		CreatedAt:    time.Now().Unix(),
	}
	shares := splitEqually(bill, participants, payerID)

	if err := s.store.CreateBill(ctx, bill, shares); err != nil {
		return nil, nil, fmt.Errorf("failed to create bill: %w", err)
	}
	s.logger.Info("bill created",
		"bill_id", bill.ID, "trip_id", tripID, "total", total, "participants", len(participants))

	for _, p := range participants {
		s.debts.InvalidateUser(p)
	}
	return bill, shares, nil
}

// Report renders the trip's settlement report as an xlsx workbook.
func (s *TripService) Report(ctx context.Context, userID, tripID string) (*bytes.Buffer, error) {
	if err := s.requireMember(ctx, userID, tripID); err != nil {
		return nil, err
	}

	shares, err := s.store.ListTripShares(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip shares: %w", err)
	}

	members, err := s.store.ListTripMembers(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip members: %w", err)
	}
	names := make(map[string]string, len(members))
	for _, id := range members {
		user, err := s.store.GetUserByID(ctx, id)
		if err == nil && user != nil {
			names[id] = user.Name
		}
	}

	return export.TripReport(shares, names)
}

func (s *TripService) requireMember(ctx context.Context, userID, tripID string) error {
	members, err := s.store.ListTripMembers(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to load trip members: %w", err)
	}
	for _, id := range members {
		if id == userID {
			return nil
		}
	}
	return ErrPermissionDenied
}

// splitEqually divides the total into whole-cent shares. Every participant
// gets the floor share; the payer's own share absorbs the remainder.
func splitEqually(bill *models.Bill, participants []string, payerID string) []models.BillShare {
	n := int64(len(participants))
	totalCents := int64(math.Round(bill.TotalAmount * 100))
	base := totalCents / n
	remainder := totalCents - base*n

	shares := make([]models.BillShare, 0, n)
	for _, userID := range participants {
		cents := base
		if userID == payerID {
			cents += remainder
		}
		shares = append(shares, models.BillShare{
			ID:          uuid.New().String(),
			BillID:      bill.ID,
			UserID:      userID,
			AmountShare: float64(cents) / 100,
			Status:      models.ShareUnpaid,
		})
	}
	return shares
}

// dedupeWith returns participants with duplicates removed and required
// always present.
func dedupeWith(participants []string, required string) []string {
	seen := map[string]struct{}{required: {}}
	out := []string{required}
	for _, id := range participants {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
