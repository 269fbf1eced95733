package registrations

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/internal/auth"
	"github.com/aspire-webinars/backend/internal/middleware"
	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/internal/payments"
	"github.com/aspire-webinars/backend/pkg/queue"
	"github.com/aspire-webinars/backend/pkg/response"
)

// RegisterRequest is the body for POST /register.
type RegisterRequest struct {
	WebinarID string `json:"webinar_id" binding:"required,uuid"`
	FullName  string `json:"full_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required"`
}

// Repo is the registration persistence the HTTP layer reads from.
type Repo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	List(ctx context.Context, f Filter) ([]models.Registration, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Recent(ctx context.Context, limit int) ([]models.Registration, error)
	GetStats(ctx context.Context, defaultFee int) (*Stats, error)
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	service    *Service
	repo       Repo
	notifier   Notifier
	jwt        *auth.JWTService
	keyID      string // public gateway key for the checkout page
	defaultFee int
	logger     *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(service *Service, repo Repo, notifier Notifier, jwtService *auth.JWTService, keyID string, defaultFee int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:    service,
		repo:       repo,
		notifier:   notifier,
		jwt:        jwtService,
		keyID:      keyID,
		defaultFee: defaultFee,
		logger:     logger,
	}
}

// Register handles POST /register. Creates or resumes a registration
// and returns the gateway order the client pays against.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	webinarID, err := uuid.Parse(req.WebinarID)
	if err != nil {
		response.BadRequest(c, "invalid webinar_id")
		return
	}

	result, err := h.service.RegisterOrResume(c.Request.Context(), Input{
		WebinarID: webinarID,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	switch {
	case errors.Is(err, ErrWebinarNotFound):
		response.NotFound(c, "webinar not found")
		return
	case errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(c, "already registered and paid for this webinar")
		return
	case errors.Is(err, ErrWebinarFull):
		response.Conflict(c, "webinar is full")
		return
	case errors.Is(err, ErrConflict):
		response.Conflict(c, "registration in progress, please retry")
		return
	case errors.Is(err, payments.ErrGateway):
		response.BadGateway(c, "payment initiation failed, please try again")
		return
	case err != nil:
		h.logger.Error("register failed", zap.Error(err), zap.String("webinar_id", req.WebinarID))
		response.Internal(c, "registration failed")
		return
	}

	token, err := h.jwt.GenerateAttendee(result.Registration.ID)
	if err != nil {
		response.Internal(c, "failed to issue session token")
		return
	}

	response.OK(c, gin.H{
		"registration_id": result.Registration.ID,
		"resumed":         result.Resumed,
		"order_id":        result.Order.ID,
		"amount":          result.Registration.Amount,
		"amount_minor":    result.Order.Amount,
		"currency":        result.Order.Currency,
		"key_id":          h.keyID,
		"token":           token,
	})
}

// Me handles GET /registrations/me with an attendee token. Reports
// payment status and whether webinar content is accessible.
func (h *Handler) Me(c *gin.Context) {
	subject := c.GetString(middleware.ContextSubject)
	id, err := uuid.Parse(subject)
	if err != nil {
		response.Unauthorized(c, "invalid registration token")
		return
	}
	reg, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("load registration failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to load registration")
		return
	}
	response.OK(c, gin.H{
		"registration": reg,
		"has_access":   reg.Status == models.PaymentStatusPaid,
	})
}

// Resend handles POST /admin/registrations/:id/resend: re-queues the
// welcome email for a paid registration.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load registration")
		return
	}
	if reg.Status != models.PaymentStatusPaid {
		response.BadRequest(c, "registration has not completed payment")
		return
	}

	err = h.notifier.EnqueueTransactionalEmail(c.Request.Context(), queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: reg.ID,
		Force:          true,
	})
	if err != nil {
		h.logger.Error("enqueue resend failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "failed to queue email")
		return
	}
	response.Accepted(c, gin.H{"message": "welcome email queued"})
}

// List handles GET /admin/registrations?state=&webinar_id=&search=.
func (h *Handler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, gin.H{"registrations": list, "count": len(list)})
}

// Export handles GET /admin/registrations/export. Streams the filtered
// set as CSV.
func (h *Handler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	list, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		response.Internal(c, "failed to export registrations")
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, list, h.defaultFee); err != nil {
		response.Internal(c, "failed to build export")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+exportFilename(time.Now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Delete handles DELETE /admin/registrations/:id, the only hard delete
// in the system.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to delete registration")
		return
	}
	response.NoContent(c)
}

// Dashboard handles GET /admin/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.repo.GetStats(c.Request.Context(), h.defaultFee)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	recent, err := h.repo.Recent(c.Request.Context(), 10)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	response.OK(c, gin.H{
		"stats":  stats,
		"total":  stats.Paid + stats.Pending + stats.Failed,
		"recent": recent,
	})
}

func (h *Handler) parseFilter(c *gin.Context) (Filter, bool) {
	var filter Filter
	switch state := c.Query("state"); state {
	case "", models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed:
		filter.Status = state
	default:
		response.BadRequest(c, "invalid state filter")
		return filter, false
	}
	if raw := c.Query("webinar_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid webinar_id")
			return filter, false
		}
		filter.WebinarID = &id
	}
	filter.Search = c.Query("search")
	return filter, true
}
