package webinars

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/pkg/response"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// CreateRequest is the body for POST /admin/webinars.
type CreateRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	StartsAt        string `json:"starts_at" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Speaker         string `json:"speaker"`
	Price           int    `json:"price"`
	MaxParticipants *int   `json:"max_participants"`
	IsActive        *bool  `json:"is_active"`
}

// UpdateRequest is the body for PATCH /admin/webinars/:id.
type UpdateRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	StartsAt        *string `json:"starts_at"`
	DurationMinutes *int    `json:"duration_minutes"`
	Speaker         *string `json:"speaker"`
	Price           *int    `json:"price"`
	MaxParticipants *int    `json:"max_participants"`
	IsActive        *bool   `json:"is_active"`
}

// Store is the webinar persistence the HTTP layer needs.
type Store interface {
	Create(ctx context.Context, w *models.Webinar) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	GetOpen(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	List(ctx context.Context, openOnly bool) ([]models.Webinar, error)
	ListDeleted(ctx context.Context) ([]models.Webinar, error)
	Update(ctx context.Context, w *models.Webinar) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
}

// Handler handles webinar HTTP endpoints.
type Handler struct {
	repo Store
}

// NewHandler creates a webinar handler.
func NewHandler(repo Store) *Handler {
	return &Handler{repo: repo}
}

// ListOpen handles GET /webinars. Public: only active, not-deleted webinars.
func (h *Handler) ListOpen(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), true)
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}
	response.OK(c, list)
}

// GetOpen handles GET /webinars/:id. Public.
func (h *Handler) GetOpen(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.repo.GetOpen(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	response.OK(c, w)
}

// List handles GET /admin/webinars. Includes inactive webinars.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), false)
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/webinars.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	if req.Price < 0 {
		response.BadRequest(c, "price must not be negative")
		return
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	w := &models.Webinar{
		Title:           req.Title,
		Description:     req.Description,
		StartsAt:        startsAt,
		DurationMinutes: duration,
		Speaker:         req.Speaker,
		Price:           req.Price,
		MaxParticipants: req.MaxParticipants,
		IsActive:        active,
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		response.Internal(c, "failed to create webinar")
		return
	}
	response.Created(c, w)
}

// Update handles PATCH /admin/webinars/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || w.IsDeleted {
		response.NotFound(c, "webinar not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Title != nil {
		w.Title = *req.Title
	}
	if req.Description != nil {
		w.Description = *req.Description
	}
	if req.StartsAt != nil {
		t, err := parseTime(*req.StartsAt)
		if err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
		w.StartsAt = t
	}
	if req.DurationMinutes != nil {
		w.DurationMinutes = *req.DurationMinutes
	}
	if req.Speaker != nil {
		w.Speaker = *req.Speaker
	}
	if req.Price != nil {
		if *req.Price < 0 {
			response.BadRequest(c, "price must not be negative")
			return
		}
		w.Price = *req.Price
	}
	if req.MaxParticipants != nil {
		w.MaxParticipants = req.MaxParticipants
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}

	if err := h.repo.Update(c.Request.Context(), w); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "webinar not found")
			return
		}
		response.Internal(c, "failed to update webinar")
		return
	}
	response.OK(c, w)
}

// Delete handles DELETE /admin/webinars/:id. Soft delete only.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	if err := h.repo.SoftDelete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "webinar not found")
			return
		}
		response.Internal(c, "failed to delete webinar")
		return
	}
	response.NoContent(c)
}

// ListDeleted handles GET /admin/webinars/deleted.
func (h *Handler) ListDeleted(c *gin.Context) {
	list, err := h.repo.ListDeleted(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list deleted webinars")
		return
	}
	response.OK(c, list)
}

// Restore handles POST /admin/webinars/:id/restore.
func (h *Handler) Restore(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	if err := h.repo.Restore(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "deleted webinar not found")
			return
		}
		response.Internal(c, "failed to restore webinar")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load webinar")
		return
	}
	response.OK(c, w)
}
