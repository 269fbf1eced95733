package models

import (
	"time"

	"github.com/google/uuid"
)

// Webinar represents a webinar session that visitors register and pay for.
type Webinar struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartsAt        time.Time  `json:"starts_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Speaker         string     `json:"speaker"`
	Price           int        `json:"price"`                      // whole currency units; 0 = configured default fee
	MaxParticipants *int       `json:"max_participants,omitempty"` // nil = unlimited
	IsActive        bool       `json:"is_active"`
	IsDeleted       bool       `json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Open reports whether the webinar accepts registrations.
func (w *Webinar) Open() bool {
	return w.IsActive && !w.IsDeleted
}
