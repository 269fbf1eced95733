package webinars

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-webinars/backend/internal/models"
)

// ErrNotFound is returned when no webinar matches.
var ErrNotFound = errors.New("webinar not found")

const columns = `id, title, description, starts_at, duration_minutes, speaker, price, max_participants, is_active, is_deleted, deleted_at, created_at, updated_at`

// Repository handles webinar persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new webinar.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	const q = `INSERT INTO webinars (id, title, description, starts_at, duration_minutes, speaker, price, max_participants, is_active)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, w.Title, w.Description, w.StartsAt, w.DurationMinutes, w.Speaker, w.Price, w.MaxParticipants, w.IsActive).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

// GetByID returns a webinar by ID, including soft-deleted rows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	var w models.Webinar
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM webinars WHERE id = $1`, id).Scan(scanDest(&w)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOpen returns a webinar only if it is active and not deleted.
func (r *Repository) GetOpen(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	var w models.Webinar
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM webinars WHERE id = $1 AND is_active AND NOT is_deleted`, id).Scan(scanDest(&w)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns webinars newest-start first. When openOnly is set, only
// active, not-deleted webinars are returned (the public listing).
func (r *Repository) List(ctx context.Context, openOnly bool) ([]models.Webinar, error) {
	q := `SELECT ` + columns + ` FROM webinars WHERE NOT is_deleted`
	if openOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY starts_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Webinar
	for rows.Next() {
		var w models.Webinar
		if err := rows.Scan(scanDest(&w)...); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// Update writes the full row. The caller loads the webinar first and
// mutates only the fields it wants changed.
func (r *Repository) Update(ctx context.Context, w *models.Webinar) error {
	const q = `UPDATE webinars
		SET title = $1, description = $2, starts_at = $3, duration_minutes = $4, speaker = $5,
		    price = $6, max_participants = $7, is_active = $8, updated_at = NOW()
		WHERE id = $9 AND NOT is_deleted`
	tag, err := r.pool.Exec(ctx, q, w.Title, w.Description, w.StartsAt, w.DurationMinutes, w.Speaker, w.Price, w.MaxParticipants, w.IsActive, w.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a webinar deleted. Rows are never hard-deleted so
// past registrations keep their reference.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE webinars SET is_deleted = TRUE, is_active = FALSE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDeleted returns soft-deleted webinars, most recently deleted first.
func (r *Repository) ListDeleted(ctx context.Context) ([]models.Webinar, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM webinars WHERE is_deleted ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Webinar
	for rows.Next() {
		var w models.Webinar
		if err := rows.Scan(scanDest(&w)...); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// Restore undoes a soft delete: the webinar comes back active.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE webinars SET is_deleted = FALSE, is_active = TRUE, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPaid returns the number of paid registrations for a webinar,
// used for the capacity check.
func (r *Repository) CountPaid(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE webinar_id = $1 AND status = 'paid'`, id).Scan(&n)
	return n, err
}

func scanDest(w *models.Webinar) []interface{} {
	return []interface{}{
		&w.ID, &w.Title, &w.Description, &w.StartsAt, &w.DurationMinutes, &w.Speaker,
		&w.Price, &w.MaxParticipants, &w.IsActive, &w.IsDeleted, &w.DeletedAt,
		&w.CreatedAt, &w.UpdatedAt,
	}
}
