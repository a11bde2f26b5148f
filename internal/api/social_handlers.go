package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/triptab/triptab/internal/middleware"
)

type friendRequestRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := s.social.SendFriendRequest(r.Context(), middleware.GetUserID(r.Context()), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"request_id": created.ID})
}

func (s *Server) respondFriendRequest(accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		if err := s.social.RespondFriendRequest(r.Context(), middleware.GetUserID(r.Context()), requestID, accept); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"request_id": requestID})
	}
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.social.ListFriends(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if friends == nil {
		friends = []string{}
	}
	writeJSON(w, http.StatusOK, friends)
}

type notificationResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RefID     string `json:"ref_id,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := s.social.Notifications(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		resp = append(resp, notificationResponse{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Message:   n.Message,
			RefID:     n.RefID,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "notificationID")
	if err := s.social.MarkRead(r.Context(), notificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"notification_id": notificationID})
}
