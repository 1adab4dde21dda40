package posts

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const wordsPerMinute = 225

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	// UGCPolicy keeps formatting and links but drops scripts and handlers.
	sanitizer = bluemonday.UGCPolicy()
)

// Rendered is the public detail view of a post.
type Rendered struct {
	*Post
	ContentHTML    string `json:"content_html"`
	ReadingMinutes int    `json:"reading_minutes"`
}

func Render(p *Post) (*Rendered, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(p.Content), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return &Rendered{
		Post:           p,
		ContentHTML:    sanitizer.Sanitize(buf.String()),
		ReadingMinutes: ReadingMinutes(p.Content),
	}, nil
}

// ReadingMinutes estimates reading time at 225 words per minute, never
// less than one minute.
func ReadingMinutes(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
