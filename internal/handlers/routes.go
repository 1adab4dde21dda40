package handlers

import (
	"log/slog"
	"net/http"

	"github.com/mbxbilling/insights/internal/contact"
	"github.com/mbxbilling/insights/internal/middleware"
	"github.com/mbxbilling/insights/internal/posts"
)

type RouterDeps struct {
	Posts         *posts.Service
	Contact       *contact.Service
	Health        *HealthDeps
	ContactLimits *middleware.RateLimiter
	Logger        *slog.Logger
}

// NewRouter wires every route onto a ServeMux and wraps it with request ID
// and access logging.
func NewRouter(deps RouterDeps) http.Handler {
	postsHandler := NewPostsHandler(deps.Posts, deps.Logger)
	taxonomy := NewTaxonomyHandler(deps.Posts, deps.Logger)
	contactHandler := NewContactHandler(deps.Contact, deps.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health(deps.Health))

	mux.HandleFunc("GET /posts", postsHandler.List())
	mux.HandleFunc("GET /posts/{slug}", postsHandler.GetBySlug())
	mux.HandleFunc("GET /authors", taxonomy.ListAuthors())
	mux.HandleFunc("GET /tags", taxonomy.ListTags())
	mux.HandleFunc("GET /categories", taxonomy.ListCategories())

	mux.HandleFunc("GET /admin/posts", postsHandler.ListAll())
	mux.HandleFunc("GET /admin/stats", postsHandler.Stats())
	mux.HandleFunc("POST /admin/posts", postsHandler.Create())
	mux.HandleFunc("GET /admin/posts/{id}", postsHandler.GetByID())
	mux.HandleFunc("PATCH /admin/posts/{id}", postsHandler.Update())
	mux.HandleFunc("DELETE /admin/posts/{id}", postsHandler.Delete())
	mux.HandleFunc("PUT /admin/posts/{id}/cover", postsHandler.UploadCover())
	mux.HandleFunc("POST /admin/authors", taxonomy.CreateAuthor())
	mux.HandleFunc("POST /admin/tags", taxonomy.CreateTag())

	var submit http.Handler = contactHandler.Submit()
	if deps.ContactLimits != nil {
		submit = deps.ContactLimits.Limit(submit)
	}
	mux.Handle("POST /contact", submit)

	return middleware.RequestID(middleware.Logging(deps.Logger)(mux))
}
