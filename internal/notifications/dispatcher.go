package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BulkRecipient is one target of a bulk batch.
type BulkRecipient struct {
	Name  string
	Email string
}

// SendFailure records one recipient that could not be delivered to.
type SendFailure struct {
	Email string
	Err   error
}

// BulkResult reports the outcome of a bulk batch. Failures are
// collected, never re-raised.
type BulkResult struct {
	Sent     int
	Failures []SendFailure
}

// Dispatcher sends transactional and bulk emails. Bulk batches are
// throttled with a fixed inter-message delay to respect the provider's
// rate limit.
type Dispatcher struct {
	sender Sender
	delay  time.Duration
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(sender Sender, bulkDelay time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sender: sender, delay: bulkDelay, logger: logger}
}

// Send delivers one rendered email.
func (d *Dispatcher) Send(ctx context.Context, to string, email Email) error {
	return d.sender.Send(ctx, to, email.Subject, email.HTML)
}

// SendBulk delivers a personalized message to each recipient in
// sequence. A failure for one recipient is logged and collected; the
// rest of the batch continues. Cancellation stops between messages.
func (d *Dispatcher) SendBulk(ctx context.Context, recipients []BulkRecipient, subject, message string) BulkResult {
	var result BulkResult
	for i, rcpt := range recipients {
		if ctx.Err() != nil {
			d.logger.Warn("bulk send canceled",
				zap.Int("sent", result.Sent),
				zap.Int("remaining", len(recipients)-i),
			)
			return result
		}
		if i > 0 && d.delay > 0 {
			select {
			case <-ctx.Done():
				d.logger.Warn("bulk send canceled",
					zap.Int("sent", result.Sent),
					zap.Int("remaining", len(recipients)-i),
				)
				return result
			case <-time.After(d.delay):
			}
		}

		email := RenderBulk(subject, message, rcpt.Name)
		if err := d.sender.Send(ctx, rcpt.Email, email.Subject, email.HTML); err != nil {
			d.logger.Warn("bulk recipient failed", zap.String("to", rcpt.Email), zap.Error(err))
			result.Failures = append(result.Failures, SendFailure{Email: rcpt.Email, Err: err})
			continue
		}
		result.Sent++
	}
	d.logger.Info("bulk send complete",
		zap.Int("sent", result.Sent),
		zap.Int("failed", len(result.Failures)),
	)
	return result
}
