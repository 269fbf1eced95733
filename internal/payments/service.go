package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/pkg/queue"
)

// ErrUnknownOrder is returned for callbacks referencing no stored
// registration (an orphaned callback).
var ErrUnknownOrder = errors.New("no registration for order")

// ErrVerificationFailed is returned when the callback signature does
// not match; the registration is marked failed before this surfaces.
var ErrVerificationFailed = errors.New("signature verification failed")

// RegistrationStore is the slice of registration persistence the
// payment completion flow needs. GetByOrderID returns (nil, nil) when
// no registration holds the order.
type RegistrationStore interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.Registration, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// Notifier enqueues transactional email jobs.
type Notifier interface {
	EnqueueTransactionalEmail(ctx context.Context, payload queue.TransactionalEmailPayload) error
}

// Service reconciles gateway callbacks against stored registrations.
type Service struct {
	store    RegistrationStore
	notifier Notifier
	secret   string
	logger   *zap.Logger
}

// NewService creates a payment completion service.
func NewService(store RegistrationStore, notifier Notifier, keySecret string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, secret: keySecret, logger: logger}
}

// Complete processes a gateway payment callback. On a valid signature
// the registration transitions to paid and a success email is queued;
// on an invalid one it transitions to failed and a failure email is
// queued. Notification failures are logged, never propagated: the
// returned error reflects lookup and verification only.
func (s *Service) Complete(ctx context.Context, orderID, paymentID, signature string) (*models.Registration, error) {
	reg, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lookup order: %w", err)
	}
	if reg == nil {
		s.logger.Warn("callback for unknown order", zap.String("order_id", orderID))
		return nil, ErrUnknownOrder
	}

	if !VerifySignature(orderID, paymentID, signature, s.secret) {
		// A forged callback must not revoke a settled payment.
		if reg.Status == models.PaymentStatusPaid {
			return reg, ErrVerificationFailed
		}
		if err := s.store.MarkFailed(ctx, reg.ID); err != nil {
			return nil, fmt.Errorf("mark failed: %w", err)
		}
		reg.Status = models.PaymentStatusFailed
		s.notify(ctx, models.EmailTypePaymentFailed, reg.ID)
		return reg, ErrVerificationFailed
	}

	if err := s.store.MarkPaid(ctx, reg.ID, paymentID); err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	reg.Status = models.PaymentStatusPaid
	reg.PaymentID = paymentID
	s.notify(ctx, models.EmailTypePaymentSuccess, reg.ID)

	s.logger.Info("payment verified",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
		zap.String("registration_id", reg.ID.String()),
	)
	return reg, nil
}

func (s *Service) notify(ctx context.Context, emailType string, registrationID uuid.UUID) {
	err := s.notifier.EnqueueTransactionalEmail(ctx, queue.TransactionalEmailPayload{
		EmailType:      emailType,
		RegistrationID: registrationID,
	})
	if err != nil {
		s.logger.Error("enqueue email failed",
			zap.String("email_type", emailType),
			zap.String("registration_id", registrationID.String()),
			zap.Error(err),
		)
	}
}
