package api

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/triptab/triptab/internal/middleware"
	"github.com/triptab/triptab/internal/service"
	"github.com/triptab/triptab/internal/slip"
)

type submitSettlementRequest struct {
	ShareID string  `json:"share_id"`
	Amount  float64 `json:"amount"`
	Method  string  `json:"method"`

	// SlipImage is the payment slip, base64-encoded. Optional.
	SlipImage string `json:"slip_image,omitempty"`
	SlipQR    string `json:"slip_qr,omitempty"`
}

type verificationResponse struct {
	Status    string  `json:"status"`
	Expected  float64 `json:"expected"`
	Extracted float64 `json:"extracted,omitempty"`
	Found     bool    `json:"found"`
}

type submitSettlementResponse struct {
	PaymentID    string               `json:"payment_id"`
	ProofID      string               `json:"proof_id"`
	SlipURL      string               `json:"slip_url,omitempty"`
	Verification verificationResponse `json:"verification"`
}

func toVerificationResponse(v slip.Verification) verificationResponse {
	return verificationResponse{
		Status:    string(v.Status),
		Expected:  v.Expected,
		Extracted: v.Extracted,
		Found:     v.Found,
	}
}

func (s *Server) handleSubmitSettlement(w http.ResponseWriter, r *http.Request) {
	var req submitSettlementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	image, err := decodeImage(req.SlipImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "slip_image is not valid base64")
		return
	}

	res, err := s.settlements.Submit(r.Context(), middleware.GetUserID(r.Context()), service.SubmitRequest{
		ShareID:   req.ShareID,
		Amount:    req.Amount,
		Method:    req.Method,
		SlipImage: image,
		SlipQR:    req.SlipQR,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitSettlementResponse{
		PaymentID:    res.Payment.ID,
		ProofID:      res.Proof.ID,
		SlipURL:      res.Proof.ImageURL,
		Verification: toVerificationResponse(res.Verification),
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.decideSettlement(w, r, s.settlements.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.decideSettlement(w, r, s.settlements.Reject)
}

func (s *Server) decideSettlement(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, creditorID, paymentID string) error) {
	paymentID := chi.URLParam(r, "paymentID")
	if err := decide(r.Context(), middleware.GetUserID(r.Context()), paymentID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payment_id": paymentID})
}

type verifySlipRequest struct {
	SlipImage string  `json:"slip_image"`
	Expected  float64 `json:"expected"`
}

// handleVerifySlip runs the advisory slip check without recording anything,
// so the client can preview the result before submitting.
func (s *Server) handleVerifySlip(w http.ResponseWriter, r *http.Request) {
	var req verifySlipRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	image, err := decodeImage(req.SlipImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "slip_image is not valid base64")
		return
	}
	v := s.settlements.VerifySlip(r.Context(), image, req.Expected)
	writeJSON(w, http.StatusOK, toVerificationResponse(v))
}

func decodeImage(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}
