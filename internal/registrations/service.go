package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/internal/payments"
	"github.com/aspire-webinars/backend/internal/webinars"
	"github.com/aspire-webinars/backend/pkg/queue"
)

var (
	// ErrAlreadyRegistered is terminal: the email holds a paid
	// registration for this webinar and no new order is created.
	ErrAlreadyRegistered = errors.New("already registered and paid")
	// ErrWebinarNotFound is returned for unknown, inactive, or deleted webinars.
	ErrWebinarNotFound = errors.New("webinar not found")
	// ErrWebinarFull is returned when paid registrations have reached capacity.
	ErrWebinarFull = errors.New("webinar is full")
)

// Store is the registration persistence the reconciler needs.
type Store interface {
	GetByWebinarAndEmail(ctx context.Context, webinarID uuid.UUID, email string) (*models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) error
	SetOrder(ctx context.Context, id uuid.UUID, orderID string, amount int) error
	Resume(ctx context.Context, id uuid.UUID, fullName, phone, orderID string, amount int) error
}

// WebinarStore looks up the target webinar.
type WebinarStore interface {
	GetOpen(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	CountPaid(ctx context.Context, id uuid.UUID) (int, error)
}

// OrderCreator creates gateway orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int, receipt string, notes map[string]string) (*payments.Order, error)
}

// Notifier enqueues transactional email jobs.
type Notifier interface {
	EnqueueTransactionalEmail(ctx context.Context, payload queue.TransactionalEmailPayload) error
}

// Input is one registration attempt.
type Input struct {
	WebinarID uuid.UUID
	FullName  string
	Email     string
	Phone     string
}

// Result is the outcome of a registration attempt: the row (new or
// reused) and the fresh gateway order to pay.
type Result struct {
	Registration *models.Registration
	Order        *payments.Order
	Resumed      bool
}

// Service decides whether a payment attempt reuses or replaces an
// existing registration.
type Service struct {
	store      Store
	webinars   WebinarStore
	orders     OrderCreator
	notifier   Notifier
	defaultFee int
	logger     *zap.Logger
}

// NewService creates a registration reconciler.
func NewService(store Store, webinarStore WebinarStore, orders OrderCreator, notifier Notifier, defaultFee int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		webinars:   webinarStore,
		orders:     orders,
		notifier:   notifier,
		defaultFee: defaultFee,
		logger:     logger,
	}
}

// RegisterOrResume implements the reconciliation policy:
//   - paid registration exists: reject, no new order
//   - pending or failed exists: reuse the row, overwrite contact
//     details, attach a fresh order
//   - none: insert a pending row and attach a fresh order
//
// A lost race on the uniqueness constraint is re-read once and resumed;
// if it still cannot settle, ErrConflict surfaces to the caller.
func (s *Service) RegisterOrResume(ctx context.Context, in Input) (*Result, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	w, err := s.webinars.GetOpen(ctx, in.WebinarID)
	if errors.Is(err, webinars.ErrNotFound) {
		return nil, ErrWebinarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load webinar: %w", err)
	}

	amount := w.Price
	if amount <= 0 {
		amount = s.defaultFee
	}

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.store.GetByWebinarAndEmail(ctx, w.ID, email)
		if err != nil {
			return nil, fmt.Errorf("lookup registration: %w", err)
		}

		if existing != nil {
			if existing.Status == models.PaymentStatusPaid {
				return nil, ErrAlreadyRegistered
			}
			return s.resume(ctx, existing, in, amount)
		}

		if w.MaxParticipants != nil {
			paid, err := s.webinars.CountPaid(ctx, w.ID)
			if err != nil {
				return nil, fmt.Errorf("count paid: %w", err)
			}
			if paid >= *w.MaxParticipants {
				return nil, ErrWebinarFull
			}
		}

		reg := &models.Registration{
			WebinarID: w.ID,
			FullName:  in.FullName,
			Email:     email,
			Phone:     in.Phone,
			Amount:    amount,
		}
		err = s.store.Create(ctx, reg)
		if errors.Is(err, ErrConflict) {
			// Lost the race to a concurrent submission; re-read and resume.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create registration: %w", err)
		}

		order, err := s.orders.CreateOrder(ctx, amount, receiptFor(reg.ID), orderNotes(reg))
		if err != nil {
			// The pending row stays; the next attempt resumes it.
			return nil, err
		}
		if err := s.store.SetOrder(ctx, reg.ID, order.ID, amount); err != nil {
			return nil, fmt.Errorf("attach order: %w", err)
		}
		reg.OrderID = order.ID

		s.welcome(ctx, reg.ID)
		s.logger.Info("registration created",
			zap.String("registration_id", reg.ID.String()),
			zap.String("webinar_id", w.ID.String()),
			zap.String("order_id", order.ID),
		)
		return &Result{Registration: reg, Order: order, Resumed: false}, nil
	}
	return nil, ErrConflict
}

func (s *Service) resume(ctx context.Context, existing *models.Registration, in Input, amount int) (*Result, error) {
	order, err := s.orders.CreateOrder(ctx, amount, receiptFor(existing.ID), orderNotes(existing))
	if err != nil {
		return nil, err
	}
	if err := s.store.Resume(ctx, existing.ID, in.FullName, in.Phone, order.ID, amount); err != nil {
		return nil, fmt.Errorf("resume registration: %w", err)
	}
	existing.FullName = in.FullName
	existing.Phone = in.Phone
	existing.OrderID = order.ID
	existing.Amount = amount
	existing.Status = models.PaymentStatusPending

	s.logger.Info("registration resumed",
		zap.String("registration_id", existing.ID.String()),
		zap.String("order_id", order.ID),
	)
	return &Result{Registration: existing, Order: order, Resumed: true}, nil
}

// welcome enqueues the welcome email, best effort.
func (s *Service) welcome(ctx context.Context, registrationID uuid.UUID) {
	err := s.notifier.EnqueueTransactionalEmail(ctx, queue.TransactionalEmailPayload{
		EmailType:      models.EmailTypeWelcome,
		RegistrationID: registrationID,
	})
	if err != nil {
		s.logger.Error("enqueue welcome email failed",
			zap.String("registration_id", registrationID.String()),
			zap.Error(err),
		)
	}
}

func receiptFor(registrationID uuid.UUID) string {
	return fmt.Sprintf("webinar_%s_%d", registrationID, time.Now().Unix())
}

func orderNotes(reg *models.Registration) map[string]string {
	return map[string]string{
		"registration_id": reg.ID.String(),
		"webinar_id":      reg.WebinarID.String(),
	}
}
