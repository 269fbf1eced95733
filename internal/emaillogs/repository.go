package emaillogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-webinars/backend/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts the outcome of one send attempt.
func (r *Repository) Record(ctx context.Context, log *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, webinar_id, registration_id, email_type, recipient_email, subject, status, sent_at, error_message)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, CASE WHEN $6 = 'sent' THEN NOW() END, $7)
		RETURNING id, sent_at, created_at`
	return r.pool.QueryRow(ctx, q,
		log.WebinarID, log.RegistrationID, log.EmailType, log.RecipientEmail,
		log.Subject, log.Status, nullIfEmpty(log.ErrorMessage),
	).Scan(&log.ID, &log.SentAt, &log.CreatedAt)
}

// List returns email logs, newest first, optionally scoped to a webinar.
func (r *Repository) List(ctx context.Context, webinarID *uuid.UUID, limit int) ([]*models.EmailLog, error) {
	q := `SELECT id, webinar_id, registration_id, email_type, recipient_email, COALESCE(subject, ''), status, sent_at, COALESCE(error_message, ''), created_at
		FROM email_logs`
	var args []interface{}
	if webinarID != nil {
		q += ` WHERE webinar_id = $1`
		args = append(args, *webinarID)
	}
	q += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		if webinarID != nil {
			q += ` LIMIT $2`
		} else {
			q += ` LIMIT $1`
		}
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.WebinarID, &el.RegistrationID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status, &el.SentAt, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
