package posts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mbxbilling/insights/internal/events"
	"github.com/mbxbilling/insights/internal/storage"
)

type mockStorage struct {
	upload       func(ctx context.Context, key string, body io.Reader, contentType string) error
	delete       func(ctx context.Context, key string) error
	deletePrefix func(ctx context.Context, prefix string) error
	exists       func(ctx context.Context, key string) (bool, error)
}

func (m *mockStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if m.upload != nil {
		return m.upload(ctx, key, body, contentType)
	}
	return nil
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.delete != nil {
		return m.delete(ctx, key)
	}
	return nil
}

func (m *mockStorage) DeletePrefix(ctx context.Context, prefix string) error {
	if m.deletePrefix != nil {
		return m.deletePrefix(ctx, prefix)
	}
	return nil
}

func (m *mockStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.exists != nil {
		return m.exists(ctx, key)
	}
	return false, nil
}

type mockPublisher struct {
	mu        sync.Mutex
	published []events.PostPublished
	err       error
}

func (m *mockPublisher) PublishPostPublished(_ context.Context, e events.PostPublished) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, e)
	return m.err
}

func (m *mockPublisher) PublishContactReceived(context.Context, events.ContactReceived) error {
	return nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc    *Service
	repo   *MemoryRepository
	pub    *mockPublisher
	clock  *testClock
	author Author
}

func newFixture(t *testing.T, st storage.Storage, cfg ServiceConfig) *fixture {
	t.Helper()
	repo := NewMemoryRepository()
	author, err := repo.CreateAuthor(context.Background(), Author{ID: uuid.New(), Name: "Dana Reyes"})
	if err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	pub := &mockPublisher{}
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, st, pub, cfg, nil).WithClock(clock.Now)
	return &fixture{svc: svc, repo: repo, pub: pub, clock: clock, author: *author}
}

func (f *fixture) draft(title string, status Status) PostDraft {
	return PostDraft{Title: title, Content: "Body of " + title, Status: status, AuthorID: f.author.ID}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("published without publish time is stamped now", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		got, err := f.svc.Create(ctx, f.draft("Hello", Published))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(f.clock.now) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, f.clock.now)
		}
		if !got.CreatedAt.Equal(f.clock.now) || !got.UpdatedAt.Equal(f.clock.now) {
			t.Errorf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
		}
		if got.Author.Name != "Dana Reyes" {
			t.Errorf("author not resolved: %+v", got.Author)
		}
		if len(f.pub.published) != 1 || f.pub.published[0].Payload.PostID != got.ID {
			t.Errorf("published events = %+v", f.pub.published)
		}
	})

	t.Run("draft has no publish time", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		got, err := f.svc.Create(ctx, f.draft("Hello", Draft))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.PublishedAt != nil {
			t.Errorf("PublishedAt = %v, want nil", got.PublishedAt)
		}
		if len(f.pub.published) != 0 {
			t.Errorf("draft announced: %+v", f.pub.published)
		}
	})

	t.Run("status defaults to draft", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		got, err := f.svc.Create(ctx, f.draft("Hello", ""))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.Status != Draft {
			t.Errorf("Status = %q", got.Status)
		}
	})

	t.Run("explicit publish time is kept", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		when := time.Date(2023, 11, 5, 12, 0, 0, 0, time.UTC)
		d := f.draft("Backdated", Published)
		d.PublishedAt = &when
		got, err := f.svc.Create(ctx, d)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(when) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, when)
		}
	})

	t.Run("slug derived from title", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		got, err := f.svc.Create(ctx, f.draft("5 Common Claim Denial Reasons—and How to Fix Them", Draft))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.Slug != "5-common-claim-denial-reasons-and-how-to-fix-them" {
			t.Errorf("Slug = %q", got.Slug)
		}
	})

	t.Run("explicit slug wins", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		d := f.draft("Hello", Draft)
		d.Slug = "custom-slug"
		got, err := f.svc.Create(ctx, d)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.Slug != "custom-slug" {
			t.Errorf("Slug = %q", got.Slug)
		}
	})

	t.Run("duplicate slug", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		if _, err := f.svc.Create(ctx, f.draft("Same", Draft)); err != nil {
			t.Fatalf("Create: %v", err)
		}
		_, err := f.svc.Create(ctx, f.draft("Same", Draft))
		if !errors.Is(err, ErrSlugExists) {
			t.Errorf("got err %v, want ErrSlugExists", err)
		}
	})

	t.Run("unknown author", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		d := f.draft("Orphan", Draft)
		d.AuthorID = uuid.New()
		_, err := f.svc.Create(ctx, d)
		if !errors.Is(err, ErrAuthorNotFound) {
			t.Errorf("got err %v, want ErrAuthorNotFound", err)
		}
	})

	t.Run("empty title rejected by store", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		_, err := f.svc.Create(ctx, f.draft("", Draft))
		if !errors.Is(err, ErrInvalidPost) {
			t.Errorf("got err %v, want ErrInvalidPost", err)
		}
	})

	t.Run("tags and categories attached", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		tag, err := f.svc.CreateTag(ctx, "Denials")
		if err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
		cat := f.repo.AddCategory("Revenue Cycle")
		d := f.draft("Tagged", Draft)
		d.TagIDs = []uuid.UUID{tag.ID, uuid.New()}
		d.CategoryIDs = []uuid.UUID{cat.ID}
		got, err := f.svc.Create(ctx, d)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if len(got.Tags) != 1 || got.Tags[0].Name != "Denials" {
			t.Errorf("Tags = %+v", got.Tags)
		}
		if len(got.Categories) != 1 || got.Categories[0].ID != cat.ID {
			t.Errorf("Categories = %+v", got.Categories)
		}
	})

	t.Run("publish failure does not fail create", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		f.pub.err = errors.New("broker down")
		if _, err := f.svc.Create(ctx, f.draft("Hello", Published)); err != nil {
			t.Errorf("Create: %v", err)
		}
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("editing a published post keeps its publish time", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, err := f.svc.Create(ctx, f.draft("Original", Published))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		f.clock.Advance(2 * time.Hour)
		title := "Renamed"
		got, err := f.svc.Update(ctx, created.ID, Patch{Title: &title})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Title != "Renamed" {
			t.Errorf("Title = %q", got.Title)
		}
		if got.Slug != created.Slug {
			t.Errorf("slug changed to %q", got.Slug)
		}
		if !got.PublishedAt.Equal(*created.PublishedAt) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, created.PublishedAt)
		}
		if !got.UpdatedAt.Equal(f.clock.now) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, f.clock.now)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("CreatedAt changed")
		}
		if len(f.pub.published) != 1 {
			t.Errorf("re-announced on edit: %d events", len(f.pub.published))
		}
	})

	t.Run("draft to published stamps now", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, err := f.svc.Create(ctx, f.draft("Pending", Draft))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		f.clock.Advance(24 * time.Hour)
		status := Published
		got, err := f.svc.Update(ctx, created.ID, Patch{Status: &status})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(f.clock.now) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, f.clock.now)
		}
		if len(f.pub.published) != 1 || f.pub.published[0].Payload.Slug != "pending" {
			t.Errorf("published events = %+v", f.pub.published)
		}
	})

	t.Run("back to draft keeps publish time by default", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Live", Published))
		status := Draft
		got, err := f.svc.Update(ctx, created.ID, Patch{Status: &status})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.PublishedAt == nil {
			t.Error("PublishedAt cleared under keep policy")
		}
	})

	t.Run("back to draft clears publish time under clear policy", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{DraftPolicy: ClearPublishedAt})
		created, _ := f.svc.Create(ctx, f.draft("Live", Published))
		status := Draft
		got, err := f.svc.Update(ctx, created.ID, Patch{Status: &status})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.PublishedAt != nil {
			t.Errorf("PublishedAt = %v, want nil", got.PublishedAt)
		}
	})

	t.Run("empty slug is re-derived from title", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("First Title", Draft))
		title, slug := "Second Title", ""
		got, err := f.svc.Update(ctx, created.ID, Patch{Title: &title, Slug: &slug})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Slug != "second-title" {
			t.Errorf("Slug = %q", got.Slug)
		}
	})

	t.Run("tag set replaced only when given", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		a, _ := f.svc.CreateTag(ctx, "Coding")
		b, _ := f.svc.CreateTag(ctx, "Compliance")
		d := f.draft("Tagged", Draft)
		d.TagIDs = []uuid.UUID{a.ID}
		created, _ := f.svc.Create(ctx, d)

		excerpt := "short"
		got, err := f.svc.Update(ctx, created.ID, Patch{Excerpt: &excerpt})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(got.Tags) != 1 || got.Tags[0].ID != a.ID {
			t.Errorf("Tags after unrelated edit = %+v", got.Tags)
		}

		ids := []uuid.UUID{b.ID}
		got, err = f.svc.Update(ctx, created.ID, Patch{TagIDs: &ids})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(got.Tags) != 1 || got.Tags[0].ID != b.ID {
			t.Errorf("Tags = %+v", got.Tags)
		}
	})

	t.Run("publish time on a draft is ignored", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Still Draft", Draft))
		when := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
		got, err := f.svc.Update(ctx, created.ID, Patch{PublishedAt: &when})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Status != Draft || got.PublishedAt != nil {
			t.Errorf("draft got PublishedAt %v", got.PublishedAt)
		}
	})

	t.Run("publish time on a published post is applied", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Live", Published))
		when := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
		got, err := f.svc.Update(ctx, created.ID, Patch{PublishedAt: &when})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(when) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, when)
		}
	})

	t.Run("publishing with an explicit time uses it", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Scheduled", Draft))
		when := time.Date(2024, 2, 14, 8, 0, 0, 0, time.UTC)
		status := Published
		got, err := f.svc.Update(ctx, created.ID, Patch{Status: &status, PublishedAt: &when})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.PublishedAt == nil || !got.PublishedAt.Equal(when) {
			t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, when)
		}
	})

	t.Run("missing post", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		title := "x"
		_, err := f.svc.Update(ctx, uuid.New(), Patch{Title: &title})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got err %v, want ErrNotFound", err)
		}
	})

	t.Run("slug conflict", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		_, _ = f.svc.Create(ctx, f.draft("Taken", Draft))
		other, _ := f.svc.Create(ctx, f.draft("Other", Draft))
		slug := "taken"
		_, err := f.svc.Update(ctx, other.ID, Patch{Slug: &slug})
		if !errors.Is(err, ErrSlugExists) {
			t.Errorf("got err %v, want ErrSlugExists", err)
		}
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes post and its cover images", func(t *testing.T) {
		var prefix string
		st := &mockStorage{deletePrefix: func(_ context.Context, p string) error {
			prefix = p
			return nil
		}}
		f := newFixture(t, st, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Doomed", Draft))
		if err := f.svc.Delete(ctx, created.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if prefix != "covers/"+created.ID.String()+"/" {
			t.Errorf("DeletePrefix(%q)", prefix)
		}
		if _, err := f.svc.GetByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("post still present: %v", err)
		}
	})

	t.Run("storage failure is not fatal", func(t *testing.T) {
		st := &mockStorage{deletePrefix: func(context.Context, string) error { return errors.New("s3 down") }}
		f := newFixture(t, st, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Doomed", Draft))
		if err := f.svc.Delete(ctx, created.ID); err != nil {
			t.Errorf("Delete: %v", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		if err := f.svc.Delete(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("got err %v, want ErrNotFound", err)
		}
	})
}

// seedPublished creates published posts one hour apart; the last title is
// the newest.
func seedPublished(t *testing.T, f *fixture, titles ...string) []*Post {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*Post, 0, len(titles))
	for i, title := range titles {
		when := base.Add(time.Duration(i) * time.Hour)
		d := f.draft(title, Published)
		d.PublishedAt = &when
		p, err := f.svc.Create(context.Background(), d)
		if err != nil {
			t.Fatalf("Create %q: %v", title, err)
		}
		out = append(out, p)
	}
	return out
}

func TestService_ListPublished(t *testing.T) {
	ctx := context.Background()

	t.Run("pages newest first", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		seeded := seedPublished(t, f, "Oldest", "Middle", "Newest")
		if _, err := f.svc.Create(ctx, f.draft("Hidden draft", Draft)); err != nil {
			t.Fatalf("Create: %v", err)
		}

		first, err := f.svc.ListPublished(ctx, ListQuery{Page: 1, PageSize: 2})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if first.Total != 3 || first.TotalPages != 2 || len(first.Posts) != 2 {
			t.Fatalf("page 1 = total %d, pages %d, len %d", first.Total, first.TotalPages, len(first.Posts))
		}
		if first.Posts[0].ID != seeded[2].ID || first.Posts[1].ID != seeded[1].ID {
			t.Errorf("page 1 order = %q, %q", first.Posts[0].Title, first.Posts[1].Title)
		}

		second, err := f.svc.ListPublished(ctx, ListQuery{Page: 2, PageSize: 2})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if len(second.Posts) != 1 || second.Posts[0].ID != seeded[0].ID {
			t.Errorf("page 2 = %+v", second.Posts)
		}
	})

	t.Run("pages concatenate to the full sequence", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		titles := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
		seedPublished(t, f, titles...)

		all, err := f.svc.ListPublished(ctx, ListQuery{Page: 1, PageSize: 100})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		var joined []*Post
		for page := 1; page <= 3; page++ {
			res, err := f.svc.ListPublished(ctx, ListQuery{Page: page, PageSize: 3})
			if err != nil {
				t.Fatalf("ListPublished page %d: %v", page, err)
			}
			if res.TotalPages != 3 {
				t.Errorf("TotalPages = %d, want 3", res.TotalPages)
			}
			joined = append(joined, res.Posts...)
		}
		if len(joined) != len(all.Posts) {
			t.Fatalf("joined %d posts, want %d", len(joined), len(all.Posts))
		}
		for i := range joined {
			if joined[i].ID != all.Posts[i].ID {
				t.Errorf("position %d: %q, want %q", i, joined[i].Title, all.Posts[i].Title)
			}
		}
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		seedPublished(t, f, "Only")
		res, err := f.svc.ListPublished(ctx, ListQuery{Page: 5, PageSize: 2})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if len(res.Posts) != 0 || res.Total != 1 || res.TotalPages != 1 {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		res, err := f.svc.ListPublished(ctx, ListQuery{})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if res.Page != 1 || res.PerPage != DefaultPageSize {
			t.Errorf("page %d per_page %d", res.Page, res.PerPage)
		}
		if res.Posts == nil || res.TotalPages != 0 {
			t.Errorf("empty result = %+v", res)
		}
	})

	t.Run("search matches title or excerpt case-insensitively", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		seedPublished(t, f, "Prior Authorization Basics", "Coding Updates")
		d := f.draft("Quarterly Review", Published)
		d.Excerpt = "What changed in PRIOR auth this quarter"
		if _, err := f.svc.Create(ctx, d); err != nil {
			t.Fatalf("Create: %v", err)
		}
		res, err := f.svc.ListPublished(ctx, ListQuery{Search: "prior"})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if res.Total != 2 {
			t.Errorf("Total = %d, want 2", res.Total)
		}
	})

	t.Run("search term is matched as given", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		seedPublished(t, f, "Claims-first billing", "Claims")
		res, err := f.svc.ListPublished(ctx, ListQuery{Search: " claims "})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if res.Total != 0 {
			t.Errorf("padded term matched %d posts, want 0", res.Total)
		}
		res, err = f.svc.ListPublished(ctx, ListQuery{Search: "claims-first"})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if res.Total != 1 {
			t.Errorf("Total = %d, want 1", res.Total)
		}
	})

	t.Run("tag filter", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		denials, _ := f.svc.CreateTag(ctx, "Denials")
		d := f.draft("Denial Guide", Published)
		d.TagIDs = []uuid.UUID{denials.ID}
		if _, err := f.svc.Create(ctx, d); err != nil {
			t.Fatalf("Create: %v", err)
		}
		seedPublished(t, f, "Untagged")

		res, err := f.svc.ListPublished(ctx, ListQuery{Tags: []string{"Denials"}})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if res.Total != 1 || res.Posts[0].Title != "Denial Guide" {
			t.Errorf("got %+v", res)
		}

		none, err := f.svc.ListPublished(ctx, ListQuery{Tags: []string{"Nope"}})
		if err != nil {
			t.Fatalf("ListPublished: %v", err)
		}
		if len(none.Posts) != 0 || none.Total != 0 || none.TotalPages != 0 {
			t.Errorf("non-matching tag = %+v", none)
		}
	})
}

func TestService_GetBySlug(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, ServiceConfig{})
	_, _ = f.svc.Create(ctx, f.draft("Public", Published))
	_, _ = f.svc.Create(ctx, f.draft("Secret", Draft))

	got, err := f.svc.GetBySlug(ctx, "public")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if got.Author.ID != f.author.ID || got.Tags == nil || got.Categories == nil {
		t.Errorf("associations not resolved: %+v", got)
	}
	if _, err := f.svc.GetBySlug(ctx, "secret"); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft: got err %v, want ErrNotFound", err)
	}
	if _, err := f.svc.GetBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got err %v, want ErrNotFound", err)
	}
}

func TestService_ListAllAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, ServiceConfig{})
	seedPublished(t, f, "One", "Two")
	_, _ = f.svc.Create(ctx, f.draft("Three", Draft))

	all, err := f.svc.ListAll(ctx, nil, "")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAll = %d posts", len(all))
	}
	if all[2].Title != "Three" {
		t.Errorf("unpublished post should sort last, got %q", all[2].Title)
	}

	draft := Draft
	drafts, err := f.svc.ListAll(ctx, &draft, "")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(drafts) != 1 {
		t.Errorf("drafts = %d", len(drafts))
	}

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{Total: 3, Published: 2, Drafts: 1, Authors: 1}
	if *stats != want {
		t.Errorf("Stats = %+v, want %+v", *stats, want)
	}
}

func TestService_Taxonomy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, ServiceConfig{})

	if _, err := f.svc.CreateTag(ctx, "Billing"); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if _, err := f.svc.CreateTag(ctx, "billing"); !errors.Is(err, ErrTagExists) {
		t.Errorf("got err %v, want ErrTagExists", err)
	}
	tags, _ := f.svc.ListTags(ctx)
	if len(tags) != 1 {
		t.Errorf("tags = %+v", tags)
	}

	author, err := f.svc.CreateAuthor(ctx, AuthorDraft{Name: "Avery Chen", Bio: "RCM lead"})
	if err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	authors, _ := f.svc.ListAuthors(ctx)
	if len(authors) != 2 || authors[0].ID != author.ID {
		t.Errorf("authors = %+v", authors)
	}

	f.repo.AddCategory("Practice Management")
	cats, _ := f.svc.ListCategories(ctx)
	if len(cats) != 1 || cats[0].Name != "Practice Management" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestService_UploadCover(t *testing.T) {
	ctx := context.Background()
	png := []byte("\x89PNG fake image")

	t.Run("storage disabled", func(t *testing.T) {
		f := newFixture(t, nil, ServiceConfig{})
		_, err := f.svc.UploadCover(ctx, uuid.New(), bytes.NewReader(png), "image/png")
		if !errors.Is(err, ErrStorageDisabled) {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		f := newFixture(t, &mockStorage{}, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Cover", Draft))
		_, err := f.svc.UploadCover(ctx, created.ID, strings.NewReader("hello"), "text/plain")
		if !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t, &mockStorage{}, ServiceConfig{MaxCoverBytes: 4})
		created, _ := f.svc.Create(ctx, f.draft("Cover", Draft))
		_, err := f.svc.UploadCover(ctx, created.ID, bytes.NewReader(png), "image/png")
		if !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("replaces previous cover", func(t *testing.T) {
		var uploaded, deleted []string
		st := &mockStorage{
			upload: func(_ context.Context, key string, body io.Reader, contentType string) error {
				data, _ := io.ReadAll(body)
				if !bytes.Equal(data, png) || contentType != "image/png" {
					t.Errorf("Upload body=%q contentType=%q", data, contentType)
				}
				uploaded = append(uploaded, key)
				return nil
			},
			delete: func(_ context.Context, key string) error {
				deleted = append(deleted, key)
				return nil
			},
		}
		f := newFixture(t, st, ServiceConfig{S3Bucket: "media", AWSRegion: "us-east-1"})
		created, _ := f.svc.Create(ctx, f.draft("Cover", Draft))

		first, err := f.svc.UploadCover(ctx, created.ID, bytes.NewReader(png), "image/png")
		if err != nil {
			t.Fatalf("UploadCover: %v", err)
		}
		prefix := "covers/" + created.ID.String() + "/"
		if len(uploaded) != 1 || !strings.HasPrefix(uploaded[0], prefix) || !strings.HasSuffix(uploaded[0], ".png") {
			t.Fatalf("uploaded = %v", uploaded)
		}
		if first.CoverImageURL != "https://media.s3.us-east-1.amazonaws.com/"+uploaded[0] {
			t.Errorf("CoverImageURL = %q", first.CoverImageURL)
		}

		if _, err := f.svc.UploadCover(ctx, created.ID, bytes.NewReader(png), "image/png; charset=binary"); err != nil {
			t.Fatalf("UploadCover: %v", err)
		}
		if len(deleted) != 1 || deleted[0] != uploaded[0] {
			t.Errorf("deleted = %v, want [%s]", deleted, uploaded[0])
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		st := &mockStorage{upload: func(context.Context, string, io.Reader, string) error {
			return errors.New("upload failed")
		}}
		f := newFixture(t, st, ServiceConfig{})
		created, _ := f.svc.Create(ctx, f.draft("Cover", Draft))
		_, err := f.svc.UploadCover(ctx, created.ID, bytes.NewReader(png), "image/png")
		if err == nil || !strings.Contains(err.Error(), "upload to s3") {
			t.Errorf("got err %v", err)
		}
	})
}

func TestService_s3PublicURL(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil, ServiceConfig{S3Bucket: "mybucket", AWSRegion: "us-east-1"}, nil)
	if u := svc.s3PublicURL("covers/a.png"); u != "https://mybucket.s3.us-east-1.amazonaws.com/covers/a.png" {
		t.Errorf("got %q", u)
	}
	cdn := NewService(NewMemoryRepository(), nil, nil, ServiceConfig{PublicMediaURL: "https://cdn.example.com/"}, nil)
	if u := cdn.s3PublicURL("covers/a.png"); u != "https://cdn.example.com/covers/a.png" {
		t.Errorf("got %q", u)
	}
	if k := cdn.keyFromURL("https://elsewhere.example.com/x.png"); k != "" {
		t.Errorf("foreign URL mapped to key %q", k)
	}
}
