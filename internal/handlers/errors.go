package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mbxbilling/insights/internal/middleware"
	"github.com/mbxbilling/insights/internal/posts"
)

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	writeJSON(w, status, map[string]any{
		"error": APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// writePostsError maps the posts package sentinels onto HTTP statuses.
// Anything unrecognised is logged and reported as a 500.
func writePostsError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, posts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
	case errors.Is(err, posts.ErrSlugExists):
		writeError(w, r, http.StatusConflict, "CONFLICT", "slug already exists", nil)
	case errors.Is(err, posts.ErrTagExists):
		writeError(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, posts.ErrAuthorNotFound):
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", map[string]string{"author_id": "unknown author"})
	case errors.Is(err, posts.ErrInvalidPost):
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, posts.ErrUnsupportedImage):
		writeError(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error(), nil)
	case errors.Is(err, posts.ErrImageTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "image too large", nil)
	case errors.Is(err, posts.ErrStorageDisabled):
		writeError(w, r, http.StatusServiceUnavailable, "STORAGE_DISABLED", "image storage is not configured", nil)
	default:
		logger.Error(op+" failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
