// Package contact accepts "free billing audit" inquiries from the public
// site and hands them to a delivery queue after lightweight spam checks.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbxbilling/insights/internal/events"
)

const DefaultMinDwell = 3 * time.Second

var (
	ErrConsentRequired = errors.New("privacy policy consent required")
	ErrDeliveryFailed  = errors.New("inquiry delivery failed")
)

// Messages shown to the visitor.
const (
	SuccessMessage = "Thank you for your inquiry. We'll reach out within one business day."
	ConsentMessage = "Please agree to the Privacy Policy to continue."
	FailureMessage = "Something went wrong. Please try again."
)

type Outcome int

const (
	// OutcomeDropped is answered exactly like OutcomeDelivered so automated
	// submitters cannot tell they were caught.
	OutcomeDropped Outcome = iota
	OutcomeDelivered
)

type Submission struct {
	Name                string    `json:"name"`
	PracticeName        string    `json:"practice_name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	Specialty           string    `json:"specialty"`
	MonthlyClaimsVolume string    `json:"monthly_claims_volume"`
	Message             string    `json:"message"`
	AgreeToPrivacy      bool      `json:"agree_to_privacy"`
	Honeypot            string    `json:"honeypot"`
	RenderedAt          time.Time `json:"rendered_at"`
}

// Deliverer forwards an accepted inquiry to the sales team.
type Deliverer interface {
	Deliver(ctx context.Context, inquiry events.InquiryPayload) error
}

// QueueDeliverer delivers inquiries as contact.received events.
type QueueDeliverer struct {
	Publisher events.Publisher
}

func (d QueueDeliverer) Deliver(ctx context.Context, inquiry events.InquiryPayload) error {
	return d.Publisher.PublishContactReceived(ctx, events.NewContactReceived(inquiry))
}

type Service struct {
	deliverer Deliverer
	minDwell  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(d Deliverer, minDwell time.Duration, logger *slog.Logger) *Service {
	if minDwell <= 0 {
		minDwell = DefaultMinDwell
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deliverer: d, minDwell: minDwell, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Suspicious reports whether a submission should be dropped without
// telling the sender: the decoy field is filled, or the form came back
// faster than a person can fill it in.
func (s *Service) Suspicious(sub Submission) (bool, string) {
	if sub.Honeypot != "" {
		return true, "honeypot"
	}
	if sub.RenderedAt.IsZero() || s.now().Sub(sub.RenderedAt) < s.minDwell {
		return true, "dwell"
	}
	return false, ""
}

func (s *Service) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	if drop, reason := s.Suspicious(sub); drop {
		s.logger.Info("contact submission dropped", "reason", reason)
		return OutcomeDropped, nil
	}
	if !sub.AgreeToPrivacy {
		return OutcomeDropped, ErrConsentRequired
	}
	if fields := missingFields(sub); len(fields) > 0 {
		return OutcomeDropped, &ValidationError{Fields: fields}
	}

	inquiry := events.InquiryPayload{
		ID:                  uuid.New(),
		Name:                sub.Name,
		PracticeName:        sub.PracticeName,
		Email:               sub.Email,
		Phone:               sub.Phone,
		Specialty:           sub.Specialty,
		MonthlyClaimsVolume: sub.MonthlyClaimsVolume,
		Message:             sub.Message,
	}
	if err := s.deliverer.Deliver(ctx, inquiry); err != nil {
		s.logger.Error("contact delivery failed", "inquiry_id", inquiry.ID, "error", err)
		return OutcomeDropped, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	s.logger.Info("contact submission delivered", "inquiry_id", inquiry.ID, "specialty", sub.Specialty)
	return OutcomeDelivered, nil
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid contact submission: %d field(s)", len(e.Fields))
}

func missingFields(sub Submission) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(sub.Name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(sub.Email) == "" {
		fields["email"] = "required"
	} else if _, err := mail.ParseAddress(sub.Email); err != nil {
		fields["email"] = "invalid"
	}
	if strings.TrimSpace(sub.Message) == "" {
		fields["message"] = "required"
	}
	return fields
}
