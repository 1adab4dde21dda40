package posts

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-process store with the same constraints as the
// postgres schema (unique slug, unique tag name, author foreign key). It
// backs tests and runs the API without DATABASE_URL.
type MemoryRepository struct {
	mu         sync.RWMutex
	posts      map[uuid.UUID]*Post
	authors    map[uuid.UUID]Author
	tags       map[uuid.UUID]Tag
	categories map[uuid.UUID]Category
	postTags   map[uuid.UUID][]uuid.UUID
	postCats   map[uuid.UUID][]uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		posts:      make(map[uuid.UUID]*Post),
		authors:    make(map[uuid.UUID]Author),
		tags:       make(map[uuid.UUID]Tag),
		categories: make(map[uuid.UUID]Category),
		postTags:   make(map[uuid.UUID][]uuid.UUID),
		postCats:   make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddCategory seeds a category; categories have no create operation.
func (r *MemoryRepository) AddCategory(name string) Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Category{ID: uuid.New(), Name: name}
	r.categories[c.ID] = c
	return c
}

// Rows inserted by migration 00002_seed_taxonomy.sql; keep both in step.
var (
	seedAuthors = []Author{
		{ID: uuid.MustParse("6f1c7d0e-2a1b-4c55-9a0e-7d7f3a9c0001"), Name: "MBX Editorial", Bio: "The MBX editorial team brings decades of experience in medical billing and revenue cycle management."},
		{ID: uuid.MustParse("6f1c7d0e-2a1b-4c55-9a0e-7d7f3a9c0002"), Name: "Ayesha Khan", Bio: "RCM Specialist with 8+ years of experience helping practices optimize their revenue cycle."},
	}
	seedTags = []Tag{
		{ID: uuid.MustParse("0b9e6a52-5d2f-4f0e-8d61-3c1f6f0a0001"), Name: "Denials"},
		{ID: uuid.MustParse("0b9e6a52-5d2f-4f0e-8d61-3c1f6f0a0002"), Name: "Clean Claims"},
		{ID: uuid.MustParse("0b9e6a52-5d2f-4f0e-8d61-3c1f6f0a0003"), Name: "Revenue Cycle"},
		{ID: uuid.MustParse("0b9e6a52-5d2f-4f0e-8d61-3c1f6f0a0004"), Name: "Credentialing"},
		{ID: uuid.MustParse("0b9e6a52-5d2f-4f0e-8d61-3c1f6f0a0005"), Name: "Compliance"},
	}
	seedCategories = []Category{
		{ID: uuid.MustParse("a4d3c1b2-7e6f-4a5b-9c8d-1e2f3a4b0001"), Name: "Billing"},
		{ID: uuid.MustParse("a4d3c1b2-7e6f-4a5b-9c8d-1e2f3a4b0002"), Name: "Practice Management"},
	}
)

// SeedTaxonomy loads the authors, tags and categories a migrated
// database starts with. Rows already present are left alone.
func (r *MemoryRepository) SeedTaxonomy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range seedAuthors {
		if _, ok := r.authors[a.ID]; !ok {
			r.authors[a.ID] = a
		}
	}
	for _, t := range seedTags {
		if _, ok := r.tags[t.ID]; !ok {
			r.tags[t.ID] = t
		}
	}
	for _, c := range seedCategories {
		if _, ok := r.categories[c.ID]; !ok {
			r.categories[c.ID] = c
		}
	}
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, r.resolve(p))
	}
	return Apply(all, f), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.resolve(p), nil
}

func (r *MemoryRepository) GetBySlug(_ context.Context, slug string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.posts {
		if p.Slug == slug {
			return r.resolve(p), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Create(_ context.Context, p *Post, tagIDs, categoryIDs []uuid.UUID) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkPost(p); err != nil {
		return nil, err
	}
	stored := *p
	stored.Tags, stored.Categories, stored.Author = nil, nil, Author{}
	r.posts[stored.ID] = &stored
	r.postTags[stored.ID] = r.knownTags(tagIDs)
	r.postCats[stored.ID] = r.knownCategories(categoryIDs)
	return r.resolve(&stored), nil
}

func (r *MemoryRepository) Update(_ context.Context, p *Post, tagIDs, categoryIDs *[]uuid.UUID) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return nil, ErrNotFound
	}
	if err := r.checkPost(p); err != nil {
		return nil, err
	}
	stored := *p
	stored.Tags, stored.Categories, stored.Author = nil, nil, Author{}
	r.posts[stored.ID] = &stored
	if tagIDs != nil {
		r.postTags[stored.ID] = r.knownTags(*tagIDs)
	}
	if categoryIDs != nil {
		r.postCats[stored.ID] = r.knownCategories(*categoryIDs)
	}
	return r.resolve(&stored), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.posts, id)
	delete(r.postTags, id)
	delete(r.postCats, id)
	return nil
}

func (r *MemoryRepository) Count(_ context.Context, status *Status) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.posts {
		if status == nil || p.Status == *status {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListAuthors(context.Context) ([]Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Author, 0, len(r.authors))
	for _, a := range r.authors {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) CreateAuthor(_ context.Context, a Author) (*Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authors[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) ListTags(context.Context) ([]Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tag, 0, len(r.tags))
	for _, t := range r.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) CreateTag(_ context.Context, t Tag) (*Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tags {
		if strings.EqualFold(existing.Name, t.Name) {
			return nil, ErrTagExists
		}
	}
	r.tags[t.ID] = t
	return &t, nil
}

func (r *MemoryRepository) ListCategories(context.Context) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) checkPost(p *Post) error {
	if p.Title == "" || p.Slug == "" || p.Content == "" || !p.Status.Valid() {
		return ErrInvalidPost
	}
	if _, ok := r.authors[p.AuthorID]; !ok {
		return ErrAuthorNotFound
	}
	for id, other := range r.posts {
		if id != p.ID && other.Slug == p.Slug {
			return ErrSlugExists
		}
	}
	return nil
}

func (r *MemoryRepository) knownTags(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.tags[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (r *MemoryRepository) knownCategories(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.categories[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// resolve returns a copy of p with its author and associations attached.
func (r *MemoryRepository) resolve(p *Post) *Post {
	out := *p
	out.Author = r.authors[p.AuthorID]
	out.Tags = make([]Tag, 0, len(r.postTags[p.ID]))
	for _, id := range r.postTags[p.ID] {
		if t, ok := r.tags[id]; ok {
			out.Tags = append(out.Tags, t)
		}
	}
	out.Categories = make([]Category, 0, len(r.postCats[p.ID]))
	for _, id := range r.postCats[p.ID] {
		if c, ok := r.categories[id]; ok {
			out.Categories = append(out.Categories, c)
		}
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		out.PublishedAt = &t
	}
	return &out
}
