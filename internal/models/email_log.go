package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType for transactional and bulk mail.
const (
	EmailTypeWelcome        = "welcome"
	EmailTypePaymentSuccess = "payment_success"
	EmailTypePaymentFailed  = "payment_failed"
	EmailTypeReminder       = "payment_reminder"
	EmailTypeBulk           = "bulk"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records each attempted send.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	WebinarID      *uuid.UUID `json:"webinar_id,omitempty"`
	RegistrationID *uuid.UUID `json:"registration_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
