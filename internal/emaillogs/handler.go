package emaillogs

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/pkg/queue"
	"github.com/aspire-webinars/backend/pkg/response"
)

// Handler handles the admin email surface: sent-mail history, bulk
// sends, and reminder sweeps. Sending itself happens in the worker;
// requests only enqueue.
type Handler struct {
	repo   *Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, queue: q, logger: logger}
}

// List handles GET /admin/emails?webinar_id=.
func (h *Handler) List(c *gin.Context) {
	var webinarID *uuid.UUID
	if raw := c.Query("webinar_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid webinar_id")
			return
		}
		webinarID = &id
	}
	logs, err := h.repo.List(c.Request.Context(), webinarID, 200)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// BulkRequest is the body for POST /admin/emails/bulk.
type BulkRequest struct {
	Filter  string `json:"filter"` // all, paid, pending
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// SendBulk handles POST /admin/emails/bulk. The batch can run for
// minutes on large recipient sets, so it is enqueued for the worker
// rather than sent inline.
func (h *Handler) SendBulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "subject and message are required")
		return
	}
	switch req.Filter {
	case "", "all", "paid", "pending":
	default:
		response.BadRequest(c, "invalid filter")
		return
	}
	if req.Filter == "" {
		req.Filter = "all"
	}

	jobID, err := h.queue.EnqueueBulkEmail(c.Request.Context(), queue.BulkEmailPayload{
		Filter:  req.Filter,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		response.Internal(c, "failed to queue bulk email")
		return
	}
	h.logger.Info("bulk email queued", zap.String("job_id", jobID), zap.String("filter", req.Filter))
	response.Accepted(c, gin.H{"job_id": jobID, "filter": req.Filter})
}

// SendReminders handles POST /admin/emails/reminders. Enqueues a sweep
// that mails pending registrations without a reminder yet.
func (h *Handler) SendReminders(c *gin.Context) {
	jobID, err := h.queue.EnqueueReminderSweep(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to queue reminders")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID})
}
