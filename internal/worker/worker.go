package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aspire-webinars/backend/internal/models"
	"github.com/aspire-webinars/backend/internal/notifications"
	"github.com/aspire-webinars/backend/internal/registrations"
	"github.com/aspire-webinars/backend/pkg/queue"
)

// RegistrationStore is the registration persistence the worker reads
// and flags.
type RegistrationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	List(ctx context.Context, f registrations.Filter) ([]models.Registration, error)
	ListPendingWithoutReminder(ctx context.Context) ([]models.Registration, error)
	MarkNotified(ctx context.Context, id uuid.UUID, emailType string) error
}

// WebinarStore looks up the webinar an email renders against.
type WebinarStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// EmailLogStore records send attempts.
type EmailLogStore interface {
	Record(ctx context.Context, log *models.EmailLog) error
}

// JobQueue is the slice of the queue the worker drives.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
	EnqueueTransactionalEmail(ctx context.Context, payload queue.TransactionalEmailPayload) error
}

// EmailProcessor processes email jobs: render, send over SMTP, update
// notification flags, and record each attempt in email_logs. Running
// here keeps slow sends (bulk batches can take minutes) off the
// request path and lets them survive client disconnects.
type EmailProcessor struct {
	regRepo     RegistrationStore
	webinarRepo WebinarStore
	logRepo     EmailLogStore
	dispatcher  *notifications.Dispatcher
	queue       JobQueue
	logger      *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(
	regRepo RegistrationStore,
	webinarRepo WebinarStore,
	logRepo EmailLogStore,
	dispatcher *notifications.Dispatcher,
	q JobQueue,
	logger *zap.Logger,
) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{
		regRepo:     regRepo,
		webinarRepo: webinarRepo,
		logRepo:     logRepo,
		dispatcher:  dispatcher,
		queue:       q,
		logger:      logger,
	}
}

// Process executes one job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeTransactionalEmail:
		return p.processTransactional(ctx, job)
	case queue.JobTypeBulkEmail:
		return p.processBulk(ctx, job)
	case queue.JobTypeReminderSweep:
		return p.processReminderSweep(ctx)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *EmailProcessor) processTransactional(ctx context.Context, job *queue.Job) error {
	var payload queue.TransactionalEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	reg, err := p.regRepo.GetByID(ctx, payload.RegistrationID)
	if err != nil {
		return fmt.Errorf("registration not found: %s", payload.RegistrationID)
	}
	if !payload.Force && alreadyNotified(reg, payload.EmailType) {
		p.logger.Debug("notification already sent",
			zap.String("registration_id", reg.ID.String()),
			zap.String("email_type", payload.EmailType),
		)
		return nil
	}
	w, err := p.webinarRepo.GetByID(ctx, reg.WebinarID)
	if err != nil {
		return fmt.Errorf("webinar not found: %s", reg.WebinarID)
	}

	email, err := notifications.RenderTransactional(payload.EmailType, reg, w)
	if err != nil {
		return err
	}

	sendErr := p.dispatcher.Send(ctx, reg.Email, email)
	p.record(ctx, &models.EmailLog{
		WebinarID:      &reg.WebinarID,
		RegistrationID: &reg.ID,
		EmailType:      payload.EmailType,
		RecipientEmail: reg.Email,
		Subject:        email.Subject,
	}, sendErr)
	if sendErr != nil {
		return fmt.Errorf("send: %w", sendErr)
	}

	if err := p.regRepo.MarkNotified(ctx, reg.ID, payload.EmailType); err != nil {
		p.logger.Error("mark notified failed", zap.String("registration_id", reg.ID.String()), zap.Error(err))
	}
	return nil
}

func (p *EmailProcessor) processBulk(ctx context.Context, job *queue.Job) error {
	var payload queue.BulkEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var filter registrations.Filter
	switch payload.Filter {
	case "paid":
		filter.Status = models.PaymentStatusPaid
	case "pending":
		filter.Status = models.PaymentStatusPending
	}
	regs, err := p.regRepo.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}

	recipients := make([]notifications.BulkRecipient, 0, len(regs))
	for _, reg := range regs {
		recipients = append(recipients, notifications.BulkRecipient{Name: reg.FullName, Email: reg.Email})
	}

	result := p.dispatcher.SendBulk(ctx, recipients, payload.Subject, payload.Message)

	failed := make(map[string]error, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.Email] = f.Err
	}
	for _, reg := range regs {
		p.record(ctx, &models.EmailLog{
			WebinarID:      &reg.WebinarID,
			RegistrationID: &reg.ID,
			EmailType:      models.EmailTypeBulk,
			RecipientEmail: reg.Email,
			Subject:        payload.Subject,
		}, failed[reg.Email])
	}

	p.logger.Info("bulk email job complete",
		zap.String("job_id", job.ID),
		zap.String("filter", payload.Filter),
		zap.Int("sent", result.Sent),
		zap.Int("failed", len(result.Failures)),
	)
	return nil
}

// processReminderSweep fans out one reminder job per pending
// registration that has not been reminded yet.
func (p *EmailProcessor) processReminderSweep(ctx context.Context) error {
	regs, err := p.regRepo.ListPendingWithoutReminder(ctx)
	if err != nil {
		return fmt.Errorf("load pending registrations: %w", err)
	}
	for _, reg := range regs {
		err := p.queue.EnqueueTransactionalEmail(ctx, queue.TransactionalEmailPayload{
			EmailType:      models.EmailTypeReminder,
			RegistrationID: reg.ID,
		})
		if err != nil {
			return fmt.Errorf("enqueue reminder: %w", err)
		}
	}
	p.logger.Info("reminder sweep enqueued", zap.Int("count", len(regs)))
	return nil
}

// record writes the email log; failures here never fail the job.
func (p *EmailProcessor) record(ctx context.Context, log *models.EmailLog, sendErr error) {
	if sendErr != nil {
		log.Status = models.EmailLogStatusFailed
		log.ErrorMessage = sendErr.Error()
	} else {
		log.Status = models.EmailLogStatusSent
	}
	if err := p.logRepo.Record(ctx, log); err != nil {
		p.logger.Error("record email log failed", zap.String("to", log.RecipientEmail), zap.Error(err))
	}
}

func alreadyNotified(reg *models.Registration, emailType string) bool {
	switch emailType {
	case models.EmailTypeWelcome:
		return reg.WelcomeSent
	case models.EmailTypeReminder:
		return reg.ReminderSent
	case models.EmailTypePaymentSuccess:
		return reg.SuccessSent
	default:
		return false
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("email worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
