package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mbxbilling/insights/internal/contact"
	"github.com/mbxbilling/insights/internal/middleware"
)

const maxContactBody = 64 << 10

type ContactHandler struct {
	svc    *contact.Service
	logger *slog.Logger
}

func NewContactHandler(svc *contact.Service, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, logger: logger}
}

type contactResponse struct {
	Message string `json:"message"`
}

// Submit answers dropped and delivered submissions identically.
func (h *ContactHandler) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub contact.Submission
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContactBody)).Decode(&sub); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}

		_, err := h.svc.Submit(r.Context(), sub)
		var verr *contact.ValidationError
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, contactResponse{Message: contact.SuccessMessage})
		case errors.Is(err, contact.ErrConsentRequired):
			writeError(w, r, http.StatusUnprocessableEntity, "CONSENT_REQUIRED", contact.ConsentMessage, nil)
		case errors.As(err, &verr):
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", verr.Fields)
		case errors.Is(err, contact.ErrDeliveryFailed):
			writeError(w, r, http.StatusBadGateway, "DELIVERY_FAILED", contact.FailureMessage, nil)
		default:
			h.logger.Error("contact submit failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
			writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", contact.FailureMessage, nil)
		}
	}
}
