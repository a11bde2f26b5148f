// Package api exposes the HTTP surface: auth, trips, bills, debt views,
// settlements, friends and notifications, plus metrics and media.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/triptab/triptab/internal/auth"
	"github.com/triptab/triptab/internal/metrics"
	"github.com/triptab/triptab/internal/middleware"
	"github.com/triptab/triptab/internal/service"
	"github.com/triptab/triptab/internal/storage"
)

// Server wires the services onto a chi router.
type Server struct {
	auth        *service.AuthService
	debts       *service.DebtService
	settlements *service.SettlementService
	trips       *service.TripService
	social      *service.SocialService
	users       *UserAPI
	jwtManager  *auth.JWTManager
	media       http.Handler
}

func NewServer(
	authSvc *service.AuthService,
	debts *service.DebtService,
	settlements *service.SettlementService,
	trips *service.TripService,
	social *service.SocialService,
	users *UserAPI,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		auth:        authSvc,
		debts:       debts,
		settlements: settlements,
		trips:       trips,
		social:      social,
		users:       users,
		jwtManager:  jwtManager,
	}
}

// SetMediaHandler mounts a handler serving uploaded slip images.
func (s *Server) SetMediaHandler(h http.Handler) { s.media = h }

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.jwtManager))

		r.Get("/users/me", s.users.handleMe)
		r.Put("/users/me/promptpay", s.users.handleSetPromptPay)
		r.Get("/users/me/qr", s.users.handleQR)

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", s.handleCreateTrip)
			r.Get("/", s.handleListTrips)
			r.Get("/{tripID}", s.handleGetTrip)
			r.Delete("/{tripID}", s.handleDeleteTrip)
			r.Post("/{tripID}/bills", s.handleAddBill)
			r.Get("/{tripID}/report.xlsx", s.handleTripReport)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/outstanding", s.handleOutstanding)
			r.Get("/paid", s.handleAlreadyPaid)
			r.Get("/pending-approvals", s.handlePendingApprovals)
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", s.handleSubmitSettlement)
			r.Post("/{paymentID}/approve", s.handleApprove)
			r.Post("/{paymentID}/reject", s.handleReject)
		})
		r.Post("/slip/verify", s.handleVerifySlip)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", s.handleListFriends)
			r.Post("/requests", s.handleSendFriendRequest)
			r.Post("/requests/{requestID}/accept", s.respondFriendRequest(true))
			r.Post("/requests/{requestID}/decline", s.respondFriendRequest(false))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Post("/{notificationID}/read", s.handleMarkNotificationRead)
		})
	})

	if s.media != nil {
		r.Mount("/media", http.StripPrefix("/media", s.media))
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and storage sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrSelfPayment),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, service.ErrSettlementInFlight),
		errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
