package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mbxbilling/insights/internal/posts"
	"github.com/mbxbilling/insights/internal/seq"
)

type PostsHandler struct {
	svc    *posts.Service
	logger *slog.Logger
}

func NewPostsHandler(svc *posts.Service, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		svc:    svc,
		logger: logger,
	}
}

// listResponse echoes the caller's seq token so a client can discard
// responses to requests it has already superseded.
type listResponse struct {
	*posts.ListResult
	Seq uint64 `json:"seq,omitempty"`
}

func (h *PostsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := parseIntParam(q.Get("page"))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "page must be an integer", nil)
			return
		}
		size := q.Get("page_size")
		if size == "" {
			size = q.Get("per_page")
		}
		pageSize, err := parseIntParam(size)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "page_size must be an integer", nil)
			return
		}

		result, err := h.svc.ListPublished(r.Context(), posts.ListQuery{
			Page:     page,
			PageSize: pageSize,
			Search:   q.Get("search"),
			Tags:     tagParams(q["tag"]),
		})
		if err != nil {
			writePostsError(w, r, h.logger, "list posts", err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{ListResult: result, Seq: seq.Parse(q.Get("seq"))})
	}
}

func (h *PostsHandler) GetBySlug() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		if slug == "" {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "slug is required", nil)
			return
		}

		post, err := h.svc.GetBySlug(r.Context(), slug)
		if err != nil {
			writePostsError(w, r, h.logger, "get post", err)
			return
		}
		rendered, err := posts.Render(post)
		if err != nil {
			writePostsError(w, r, h.logger, "render post", err)
			return
		}
		writeJSON(w, http.StatusOK, rendered)
	}
}

func parseIntParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// tagParams accepts both ?tag=a&tag=b and ?tag=a,b.
func tagParams(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
