package posts

import (
	"bytes"
	"sort"
	"strings"
)

const (
	DefaultPageSize = 9
	MaxPageSize     = 100
)

// Normalize clamps page to >= 1 and pageSize to (0, MaxPageSize], falling
// back to def when pageSize is not positive.
func Normalize(page, pageSize, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if def < 1 {
		def = DefaultPageSize
	}
	if pageSize < 1 {
		pageSize = def
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// TotalPages is ceil(total/pageSize), 0 when there is nothing to show.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Page returns the offset/limit window of posts for a 1-based page. Pages
// past the end are empty, never an error.
func Page(posts []*Post, page, pageSize int) []*Post {
	if page < 1 || pageSize < 1 || len(posts) == 0 || page-1 > (len(posts)-1)/pageSize {
		return []*Post{}
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end]
}

// MatchesSearch is a case-insensitive substring test on title or excerpt.
func MatchesSearch(p *Post, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Excerpt), term)
}

// MatchesTags requires at least one of the post's tags to be in names.
func MatchesTags(p *Post, names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if p.HasTag(n) {
			return true
		}
	}
	return false
}

// Apply filters posts by f, ordered by publish date (nulls last) then
// creation date, newest first.
func Apply(all []*Post, f Filter) []*Post {
	out := make([]*Post, 0, len(all))
	for _, p := range all {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if !MatchesSearch(p, f.Search) {
			continue
		}
		out = append(out, p)
	}
	SortNewest(out)
	return out
}

func SortNewest(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		switch {
		case a.PublishedAt != nil && b.PublishedAt == nil:
			return true
		case a.PublishedAt == nil && b.PublishedAt != nil:
			return false
		case a.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
			return a.PublishedAt.After(*b.PublishedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// Select runs the listing contract over posts already restricted to the
// published status and the search term: tag filter, then pagination.
func Select(candidates []*Post, q ListQuery) *ListResult {
	matched := make([]*Post, 0, len(candidates))
	for _, p := range candidates {
		if MatchesTags(p, q.Tags) {
			matched = append(matched, p)
		}
	}
	return &ListResult{
		Posts:      Page(matched, q.Page, q.PageSize),
		Total:      len(matched),
		Page:       q.Page,
		PerPage:    q.PageSize,
		TotalPages: TotalPages(len(matched), q.PageSize),
	}
}
