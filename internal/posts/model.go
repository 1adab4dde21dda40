package posts

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	Draft     Status = "draft"
	Published Status = "published"
)

func (s Status) Valid() bool {
	return s == Draft || s == Published
}

type Author struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Post struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Content       string     `json:"content"`
	Status        Status     `json:"status"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	AuthorID      uuid.UUID  `json:"author_id"`
	Author        Author     `json:"author"`
	Tags          []Tag      `json:"tags"`
	Categories    []Category `json:"categories"`
}

// HasTag reports whether the post carries a tag with exactly this name.
func (p *Post) HasTag(name string) bool {
	for _, t := range p.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// PostDraft is the input of Create. Slug is derived from Title when empty and
// PublishedAt is stamped when Status is Published and it is nil.
type PostDraft struct {
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Excerpt       string      `json:"excerpt"`
	Content       string      `json:"content"`
	Status        Status      `json:"status"`
	PublishedAt   *time.Time  `json:"published_at"`
	CoverImageURL string      `json:"cover_image_url"`
	AuthorID      uuid.UUID   `json:"author_id"`
	TagIDs        []uuid.UUID `json:"tag_ids"`
	CategoryIDs   []uuid.UUID `json:"category_ids"`
}

// Patch is the input of Update. Nil fields are left unchanged; non-nil
// TagIDs/CategoryIDs replace the whole association set.
type Patch struct {
	Title         *string      `json:"title"`
	Slug          *string      `json:"slug"`
	Excerpt       *string      `json:"excerpt"`
	Content       *string      `json:"content"`
	Status        *Status      `json:"status"`
	PublishedAt   *time.Time   `json:"published_at"`
	CoverImageURL *string      `json:"cover_image_url"`
	AuthorID      *uuid.UUID   `json:"author_id"`
	TagIDs        *[]uuid.UUID `json:"tag_ids"`
	CategoryIDs   *[]uuid.UUID `json:"category_ids"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Slug == nil && p.Excerpt == nil && p.Content == nil &&
		p.Status == nil && p.PublishedAt == nil && p.CoverImageURL == nil &&
		p.AuthorID == nil && p.TagIDs == nil && p.CategoryIDs == nil
}

type AuthorDraft struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// Filter is pushed down to the repository. A nil Status matches every post.
type Filter struct {
	Status *Status
	Search string
}

type ListQuery struct {
	Page     int
	PageSize int
	Search   string
	Tags     []string
}

type ListResult struct {
	Posts      []*Post `json:"data"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}

type Stats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
	Authors   int `json:"authors"`
}
