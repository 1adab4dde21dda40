package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mbxbilling/insights/internal/posts"
)

type TaxonomyHandler struct {
	svc    *posts.Service
	logger *slog.Logger
}

func NewTaxonomyHandler(svc *posts.Service, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{svc: svc, logger: logger}
}

func (h *TaxonomyHandler) ListAuthors() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authors, err := h.svc.ListAuthors(r.Context())
		if err != nil {
			writePostsError(w, r, h.logger, "list authors", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": authors})
	}
}

func (h *TaxonomyHandler) CreateAuthor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req posts.AuthorDraft
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", map[string]string{"name": "required"})
			return
		}
		author, err := h.svc.CreateAuthor(r.Context(), req)
		if err != nil {
			writePostsError(w, r, h.logger, "create author", err)
			return
		}
		writeJSON(w, http.StatusCreated, author)
	}
}

func (h *TaxonomyHandler) ListTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := h.svc.ListTags(r.Context())
		if err != nil {
			writePostsError(w, r, h.logger, "list tags", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": tags})
	}
}

type createTagRequest struct {
	Name string `json:"name"`
}

func (h *TaxonomyHandler) CreateTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTagRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", map[string]string{"name": "required"})
			return
		}
		tag, err := h.svc.CreateTag(r.Context(), req.Name)
		if err != nil {
			writePostsError(w, r, h.logger, "create tag", err)
			return
		}
		writeJSON(w, http.StatusCreated, tag)
	}
}

func (h *TaxonomyHandler) ListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.svc.ListCategories(r.Context())
		if err != nil {
			writePostsError(w, r, h.logger, "list categories", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": categories})
	}
}
