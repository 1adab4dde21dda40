package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mbxbilling/insights/internal/posts"
)

func (h *PostsHandler) ListAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *posts.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			s := posts.Status(raw)
			if !s.Valid() {
				writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "status must be draft or published", nil)
				return
			}
			status = &s
		}

		list, err := h.svc.ListAll(r.Context(), status, r.URL.Query().Get("search"))
		if err != nil {
			writePostsError(w, r, h.logger, "list posts", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": list, "total": len(list)})
	}
}

func (h *PostsHandler) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.svc.Stats(r.Context())
		if err != nil {
			writePostsError(w, r, h.logger, "stats", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (h *PostsHandler) GetByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		post, err := h.svc.GetByID(r.Context(), id)
		if err != nil {
			writePostsError(w, r, h.logger, "get post", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req posts.PostDraft
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}
		if req.Status != "" && !req.Status.Valid() {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed",
				map[string]string{"status": "must be draft or published"})
			return
		}

		post, err := h.svc.Create(r.Context(), req)
		if err != nil {
			writePostsError(w, r, h.logger, "create post", err)
			return
		}
		writeJSON(w, http.StatusCreated, post)
	}
}

func (h *PostsHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var patch posts.Patch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
			return
		}
		if patch.Empty() {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "no fields to update", nil)
			return
		}
		if patch.Status != nil && !patch.Status.Valid() {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed",
				map[string]string{"status": "must be draft or published"})
			return
		}

		post, err := h.svc.Update(r.Context(), id, patch)
		if err != nil {
			writePostsError(w, r, h.logger, "update post", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := h.svc.Delete(r.Context(), id); err != nil {
			writePostsError(w, r, h.logger, "delete post", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UploadCover takes the raw image as the request body; Content-Type names
// the image format.
func (h *PostsHandler) UploadCover() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		post, err := h.svc.UploadCover(r.Context(), id, r.Body, r.Header.Get("Content-Type"))
		if err != nil {
			writePostsError(w, r, h.logger, "upload cover", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return uuid.Nil, false
	}
	return id, true
}
