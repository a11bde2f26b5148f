package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/triptab/triptab/internal/middleware"
	"github.com/triptab/triptab/internal/models"
)

type createTripRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type tripResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
	CreatedAt int64  `json:"created_at"`
}

func toTripResponse(t *models.Trip) tripResponse {
	return tripResponse{ID: t.ID, Name: t.Name, OwnerID: t.OwnerID, CreatedAt: t.CreatedAt}
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := s.trips.CreateTrip(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.MemberIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTripResponse(trip))
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.trips.ListTrips(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		resp = append(resp, toTripResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.GetTrip(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "tripID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripResponse(trip))
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.DeleteTrip(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "tripID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addBillRequest struct {
	Title          string   `json:"title"`
	Total          float64  `json:"total"`
	ParticipantIDs []string `json:"participant_ids"`
}

type shareResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	AmountShare float64 `json:"amount_share"`
	Status      string  `json:"status"`
}

type billResponse struct {
	ID           string          `json:"id"`
	TripID       string          `json:"trip_id"`
	Title        string          `json:"title"`
	TotalAmount  float64         `json:"total_amount"`
	PaidByUserID string          `json:"paid_by_user_id"`
	CreatedAt    int64           `json:"created_at"`
	Shares       []shareResponse `json:"shares"`
}

func (s *Server) handleAddBill(w http.ResponseWriter, r *http.Request) {
	var req addBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bill, shares, err := s.trips.AddBill(r.Context(), middleware.GetUserID(r.Context()),
		chi.URLParam(r, "tripID"), req.Title, req.Total, req.ParticipantIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := billResponse{
		ID:           bill.ID,
		TripID:       bill.TripID,
		Title:        bill.Title,
		TotalAmount:  bill.TotalAmount,
		PaidByUserID: bill.PaidByUserID,
		CreatedAt:    bill.CreatedAt,
		Shares:       make([]shareResponse, 0, len(shares)),
	}
	for _, sh := range shares {
		resp.Shares = append(resp.Shares, shareResponse{
			ID:          sh.ID,
			UserID:      sh.UserID,
			AmountShare: sh.AmountShare,
			Status:      string(sh.Status),
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleTripReport(w http.ResponseWriter, r *http.Request) {
	buf, err := s.trips.Report(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "tripID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="trip-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
