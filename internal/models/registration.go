package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus values for a registration.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Registration is one person's attempt to attend one webinar, tracked
// through payment states. At most one pending or paid row exists per
// (webinar, email) pair; a failed attempt is retried on the same row
// with a fresh gateway order.
type Registration struct {
	ID        uuid.UUID `json:"id"`
	WebinarID uuid.UUID `json:"webinar_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"` // pending, paid, failed

	OrderID   string `json:"order_id,omitempty"`   // current gateway order
	PaymentID string `json:"payment_id,omitempty"` // set once verified
	Amount    int    `json:"amount"`               // whole currency units

	WelcomeSent  bool `json:"welcome_sent"`
	ReminderSent bool `json:"reminder_sent"`
	SuccessSent  bool `json:"success_sent"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}
