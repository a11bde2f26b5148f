package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/triptab/triptab/internal/middleware"
	"github.com/triptab/triptab/internal/qr"
	"github.com/triptab/triptab/internal/storage"
)

// UserAPI serves the profile endpoints, including the PromptPay receiving
// QR other members scan to pay the user back.
type UserAPI struct {
	store  storage.Store
	logger *slog.Logger
}

func NewUserAPI(store storage.Store, logger *slog.Logger) *UserAPI {
	return &UserAPI{store: store, logger: logger}
}

func (a *UserAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := a.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type setPromptPayRequest struct {
	PromptPayID string `json:"promptpay_id"`
}

func (a *UserAPI) handleSetPromptPay(w http.ResponseWriter, r *http.Request) {
	var req setPromptPayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := a.store.UpdateUserPromptPay(r.Context(), userID, req.PromptPayID); err != nil {
		writeServiceError(w, err)
		return
	}
	a.logger.Info("promptpay id updated", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"promptpay_id": req.PromptPayID})
}

// handleQR renders the user's PromptPay QR as a PNG. An optional amount
// query locks the amount into the code.
func (a *UserAPI) handleQR(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := a.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if user == nil || user.PromptPayID == "" {
		writeError(w, http.StatusNotFound, "no promptpay id on profile")
		return
	}

	var amount float64
	if raw := r.URL.Query().Get("amount"); raw != "" {
		amount, err = strconv.ParseFloat(raw, 64)
		if err != nil || amount < 0 {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
	}

	png, err := qr.Image(user.PromptPayID, amount, 512)
	if err != nil {
		a.logger.Error("failed to render promptpay qr", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render qr")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
