package posts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbxbilling/insights/internal/events"
	"github.com/mbxbilling/insights/internal/storage"
)

// DraftPublishedAtPolicy decides what happens to PublishedAt when a
// published post is moved back to draft.
type DraftPublishedAtPolicy string

const (
	KeepPublishedAt  DraftPublishedAtPolicy = "keep"
	ClearPublishedAt DraftPublishedAtPolicy = "clear"
)

type ServiceConfig struct {
	DefaultPageSize  int
	DraftPolicy      DraftPublishedAtPolicy
	S3Bucket         string
	AWSRegion        string
	PublicMediaURL   string
	MaxCoverBytes    int64
	AllowedCoverMIME map[string]string
}

var defaultCoverTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Service struct {
	repo      Repository
	storage   storage.Storage
	publisher events.Publisher
	cfg       ServiceConfig
	logger    *slog.Logger
	now       Clock
}

func NewService(repo Repository, st storage.Storage, pub events.Publisher, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.DraftPolicy == "" {
		cfg.DraftPolicy = KeepPublishedAt
	}
	if cfg.MaxCoverBytes <= 0 {
		cfg.MaxCoverBytes = 5 << 20
	}
	if cfg.AllowedCoverMIME == nil {
		cfg.AllowedCoverMIME = defaultCoverTypes
	}
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		storage:   st,
		publisher: pub,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(c Clock) *Service {
	s.now = c
	return s
}

func (s *Service) ListPublished(ctx context.Context, q ListQuery) (*ListResult, error) {
	q.Page, q.PageSize = Normalize(q.Page, q.PageSize, s.cfg.DefaultPageSize)
	status := Published
	candidates, err := s.repo.List(ctx, Filter{Status: &status, Search: q.Search})
	if err != nil {
		return nil, s.fail("list published posts", err)
	}
	return Select(candidates, q), nil
}

// GetBySlug returns the published post with this slug. Drafts are reported
// as ErrNotFound.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, s.fail("get post by slug", err)
	}
	if post.Status != Published {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get post", err)
	}
	return post, nil
}

// ListAll returns posts of every status, optionally narrowed by status and
// search term, for the admin dashboard.
func (s *Service) ListAll(ctx context.Context, status *Status, search string) ([]*Post, error) {
	out, err := s.repo.List(ctx, Filter{Status: status, Search: search})
	if err != nil {
		return nil, s.fail("list posts", err)
	}
	if out == nil {
		out = []*Post{}
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.repo.Count(ctx, nil)
	if err != nil {
		return nil, s.fail("count posts", err)
	}
	published := Published
	pub, err := s.repo.Count(ctx, &published)
	if err != nil {
		return nil, s.fail("count published posts", err)
	}
	authors, err := s.repo.ListAuthors(ctx)
	if err != nil {
		return nil, s.fail("list authors", err)
	}
	return &Stats{Total: total, Published: pub, Drafts: total - pub, Authors: len(authors)}, nil
}

func (s *Service) Create(ctx context.Context, d PostDraft) (*Post, error) {
	now := s.now()
	post := &Post{
		ID:            uuid.New(),
		Title:         d.Title,
		Slug:          d.Slug,
		Excerpt:       d.Excerpt,
		Content:       d.Content,
		Status:        d.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
		CoverImageURL: d.CoverImageURL,
		AuthorID:      d.AuthorID,
	}
	if post.Slug == "" {
		post.Slug = Slugify(d.Title)
	}
	if post.Status == "" {
		post.Status = Draft
	}
	if post.Status == Published {
		if d.PublishedAt != nil {
			t := d.PublishedAt.UTC()
			post.PublishedAt = &t
		} else {
			post.PublishedAt = &now
		}
	}

	created, err := s.repo.Create(ctx, post, d.TagIDs, d.CategoryIDs)
	if err != nil {
		return nil, s.fail("create post", err)
	}
	s.logger.Info("post created", "post_id", created.ID, "slug", created.Slug, "status", created.Status)
	if created.Status == Published {
		s.announce(ctx, created)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Post, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("load post", err)
	}
	wasPublished := current.Status == Published
	next := *current

	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Slug != nil {
		next.Slug = *patch.Slug
		if next.Slug == "" {
			next.Slug = Slugify(next.Title)
		}
	}
	if patch.Excerpt != nil {
		next.Excerpt = *patch.Excerpt
	}
	if patch.Content != nil {
		next.Content = *patch.Content
	}
	if patch.CoverImageURL != nil {
		next.CoverImageURL = *patch.CoverImageURL
	}
	if patch.AuthorID != nil {
		next.AuthorID = *patch.AuthorID
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}

	// An explicit publish time only applies to a post that ends up
	// published; drafts never gain one from a patch.
	now := s.now()
	switch {
	case next.Status == Published && patch.PublishedAt != nil:
		t := patch.PublishedAt.UTC()
		next.PublishedAt = &t
	case next.Status == Published && patch.Status != nil:
		next.PublishedAt = &now
	case next.Status == Draft && patch.Status != nil && s.cfg.DraftPolicy == ClearPublishedAt:
		next.PublishedAt = nil
	}
	next.UpdatedAt = now
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}

	updated, err := s.repo.Update(ctx, &next, patch.TagIDs, patch.CategoryIDs)
	if err != nil {
		return nil, s.fail("update post", err)
	}
	s.logger.Info("post updated", "post_id", updated.ID, "slug", updated.Slug, "status", updated.Status)
	if !wasPublished && updated.Status == Published {
		s.announce(ctx, updated)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail("delete post", err)
	}
	if s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, coverPrefix(id)); err != nil {
			s.logger.Warn("delete cover images failed", "post_id", id, "error", err)
		}
	}
	s.logger.Info("post deleted", "post_id", id)
	return nil
}

// UploadCover stores a cover image and points the post at its public URL.
// The previous cover object is removed best-effort.
func (s *Service) UploadCover(ctx context.Context, id uuid.UUID, body io.Reader, contentType string) (*Post, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	ext, ok := s.cfg.AllowedCoverMIME[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, mediaType)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("load post", err)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.cfg.MaxCoverBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxCoverBytes {
		return nil, ErrImageTooLarge
	}

	key := coverPrefix(id) + uuid.NewString() + ext
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), mediaType); err != nil {
		return nil, s.fail("upload cover", fmt.Errorf("upload to s3: %w", err))
	}

	url := s.s3PublicURL(key)
	updated, err := s.Update(ctx, id, Patch{CoverImageURL: &url})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, err
	}
	if old := s.keyFromURL(current.CoverImageURL); old != "" && old != key {
		if err := s.storage.Delete(ctx, old); err != nil {
			s.logger.Warn("delete previous cover failed", "key", old, "error", err)
		}
	}
	return updated, nil
}

func (s *Service) ListAuthors(ctx context.Context) ([]Author, error) {
	out, err := s.repo.ListAuthors(ctx)
	if err != nil {
		return nil, s.fail("list authors", err)
	}
	return out, nil
}

func (s *Service) CreateAuthor(ctx context.Context, d AuthorDraft) (*Author, error) {
	a, err := s.repo.CreateAuthor(ctx, Author{
		ID:        uuid.New(),
		Name:      d.Name,
		Bio:       d.Bio,
		AvatarURL: d.AvatarURL,
	})
	if err != nil {
		return nil, s.fail("create author", err)
	}
	return a, nil
}

func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	out, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, s.fail("list tags", err)
	}
	return out, nil
}

// CreateTag inserts a tag as given; name uniqueness is left to the store.
func (s *Service) CreateTag(ctx context.Context, name string) (*Tag, error) {
	t, err := s.repo.CreateTag(ctx, Tag{ID: uuid.New(), Name: name})
	if err != nil {
		return nil, s.fail("create tag", err)
	}
	return t, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	out, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, s.fail("list categories", err)
	}
	return out, nil
}

func (s *Service) announce(ctx context.Context, p *Post) {
	e := events.NewPostPublished(p.ID, p.Slug, p.Title)
	if err := s.publisher.PublishPostPublished(ctx, e); err != nil {
		s.logger.Error("publish post.published event failed", "post_id", p.ID, "error", err)
	}
}

// fail logs store failures and hands err back unchanged. Expected outcomes
// (not found, conflicts) are not logged.
func (s *Service) fail(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSlugExists),
		errors.Is(err, ErrTagExists), errors.Is(err, ErrAuthorNotFound),
		errors.Is(err, ErrInvalidPost):
	default:
		s.logger.Error(op+" failed", "error", err)
	}
	return err
}

func (s *Service) s3PublicURL(key string) string {
	if s.cfg.PublicMediaURL != "" {
		return strings.TrimRight(s.cfg.PublicMediaURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.AWSRegion, key)
}

func (s *Service) keyFromURL(url string) string {
	if url == "" {
		return ""
	}
	prefix := s.s3PublicURL("")
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

func coverPrefix(id uuid.UUID) string {
	return "covers/" + id.String() + "/"
}
