package posts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the content store. Implementations resolve author, tags
// and categories on every returned post and never cache associations.
type Repository interface {
	List(ctx context.Context, f Filter) ([]*Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Create(ctx context.Context, p *Post, tagIDs, categoryIDs []uuid.UUID) (*Post, error)
	Update(ctx context.Context, p *Post, tagIDs, categoryIDs *[]uuid.UUID) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, status *Status) (int, error)

	ListAuthors(ctx context.Context) ([]Author, error)
	CreateAuthor(ctx context.Context, a Author) (*Author, error)
	ListTags(ctx context.Context) ([]Tag, error)
	CreateTag(ctx context.Context, t Tag) (*Tag, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// Clock is swapped in tests.
type Clock func() time.Time
