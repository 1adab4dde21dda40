package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypePostPublished   = "post.published"
	TypeContactReceived = "contact.received"
)

type PostPublishedPayload struct {
	PostID uuid.UUID `json:"post_id"`
	Slug   string    `json:"slug"`
	Title  string    `json:"title"`
}

type PostPublished struct {
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Payload   PostPublishedPayload `json:"payload"`
}

func NewPostPublished(postID uuid.UUID, slug, title string) PostPublished {
	return PostPublished{
		Type:      TypePostPublished,
		Timestamp: time.Now().UTC(),
		Payload: PostPublishedPayload{
			PostID: postID,
			Slug:   slug,
			Title:  title,
		},
	}
}

// InquiryPayload is a contact form submission that passed the spam checks.
type InquiryPayload struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	PracticeName        string    `json:"practice_name,omitempty"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone,omitempty"`
	Specialty           string    `json:"specialty,omitempty"`
	MonthlyClaimsVolume string    `json:"monthly_claims_volume,omitempty"`
	Message             string    `json:"message"`
}

type ContactReceived struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   InquiryPayload `json:"payload"`
}

func NewContactReceived(p InquiryPayload) ContactReceived {
	return ContactReceived{
		Type:      TypeContactReceived,
		Timestamp: time.Now().UTC(),
		Payload:   p,
	}
}
