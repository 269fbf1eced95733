package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aspire-webinars/backend/internal/models"
)

var (
	// ErrNotFound is returned when no registration matches.
	ErrNotFound = errors.New("registration not found")
	// ErrConflict is returned when an insert loses the race on the
	// (webinar, email) uniqueness constraint. Callers re-read and resume.
	ErrConflict = errors.New("registration conflict")
)

const columns = `id, webinar_id, full_name, email, phone, status, COALESCE(order_id, ''), COALESCE(payment_id, ''), amount, welcome_sent, reminder_sent, success_sent, created_at, updated_at, paid_at`

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending registration. The partial unique index on
// (webinar_id, lower(email)) serializes concurrent first attempts;
// the loser gets ErrConflict.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, webinar_id, full_name, email, phone, status, amount)
		VALUES (gen_random_uuid(), $1, $2, lower($3), $4, 'pending', $5)
		RETURNING id, status, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, reg.WebinarID, reg.FullName, reg.Email, reg.Phone, reg.Amount).
		Scan(&reg.ID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetByID returns a registration by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM registrations WHERE id = $1`, id)
}

// GetByWebinarAndEmail returns the registration for (webinar, email),
// or (nil, nil) when none exists.
func (r *Repository) GetByWebinarAndEmail(ctx context.Context, webinarID uuid.UUID, email string) (*models.Registration, error) {
	reg, err := r.getOne(ctx, `SELECT `+columns+` FROM registrations WHERE webinar_id = $1 AND email = lower($2)`, webinarID, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return reg, err
}

// GetByOrderID returns the registration holding the given gateway
// order, or (nil, nil) when none exists.
func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*models.Registration, error) {
	reg, err := r.getOne(ctx, `SELECT `+columns+` FROM registrations WHERE order_id = $1`, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return reg, err
}

// SetOrder attaches a freshly created gateway order to a registration.
func (r *Repository) SetOrder(ctx context.Context, id uuid.UUID, orderID string, amount int) error {
	const q = `UPDATE registrations SET order_id = $1, amount = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, orderID, amount, id)
	return err
}

// Resume reuses an existing pending or failed registration for a new
// payment attempt: contact details are overwritten, the stored order
// id is replaced, and the row returns to pending.
func (r *Repository) Resume(ctx context.Context, id uuid.UUID, fullName, phone, orderID string, amount int) error {
	const q = `UPDATE registrations
		SET full_name = $1, phone = $2, order_id = $3, amount = $4, status = 'pending', updated_at = NOW()
		WHERE id = $5 AND status IN ('pending', 'failed')`
	tag, err := r.pool.Exec(ctx, q, fullName, phone, orderID, amount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// MarkPaid transitions a registration to paid with the verified payment id.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) error {
	const q = `UPDATE registrations SET status = 'paid', payment_id = $1, paid_at = NOW(), updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, paymentID, id)
	return err
}

// MarkFailed transitions a registration to failed. The stored order id
// is kept so the attempt can be inspected and retried.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE registrations SET status = 'failed', updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Delete removes a registration. Only the explicit admin delete uses this.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Filter narrows admin listings.
type Filter struct {
	Status    string // pending, paid, failed, or "" for all
	WebinarID *uuid.UUID
	Search    string // substring match on name, email, phone
}

// List returns registrations matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Registration, error) {
	q := `SELECT ` + columns + ` FROM registrations`
	var conds []string
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.WebinarID != nil {
		args = append(args, *f.WebinarID)
		conds = append(conds, fmt.Sprintf("webinar_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(scanDest(&reg)...); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// Recent returns the latest registrations for the admin dashboard.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM registrations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(scanDest(&reg)...); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// Stats aggregates dashboard numbers. Revenue counts paid rows, with
// zero amounts falling back to the default fee.
type Stats struct {
	Paid    int `json:"paid"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
	Revenue int `json:"revenue"`
}

// GetStats returns registration counts by status and total revenue.
func (r *Repository) GetStats(ctx context.Context, defaultFee int) (*Stats, error) {
	const q = `SELECT
		COUNT(*) FILTER (WHERE status = 'paid'),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'failed'),
		COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE $1 END) FILTER (WHERE status = 'paid'), 0)
		FROM registrations`
	var s Stats
	if err := r.pool.QueryRow(ctx, q, defaultFee).Scan(&s.Paid, &s.Pending, &s.Failed, &s.Revenue); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListPendingWithoutReminder returns pending registrations that have
// not yet received a payment reminder.
func (r *Repository) ListPendingWithoutReminder(ctx context.Context) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM registrations WHERE status = 'pending' AND NOT reminder_sent ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(scanDest(&reg)...); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// MarkNotified sets the notification flag for the given email type.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID, emailType string) error {
	var column string
	switch emailType {
	case models.EmailTypeWelcome:
		column = "welcome_sent"
	case models.EmailTypeReminder:
		column = "reminder_sent"
	case models.EmailTypePaymentSuccess:
		column = "success_sent"
	default:
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE registrations SET `+column+` = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *Repository) getOne(ctx context.Context, q string, args ...interface{}) (*models.Registration, error) {
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, args...).Scan(scanDest(&reg)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func scanDest(reg *models.Registration) []interface{} {
	return []interface{}{
		&reg.ID, &reg.WebinarID, &reg.FullName, &reg.Email, &reg.Phone, &reg.Status,
		&reg.OrderID, &reg.PaymentID, &reg.Amount,
		&reg.WelcomeSent, &reg.ReminderSent, &reg.SuccessSent,
		&reg.CreatedAt, &reg.UpdatedAt, &reg.PaidAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
