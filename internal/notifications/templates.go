package notifications

import (
	"fmt"
	"strings"

	"github.com/aspire-webinars/backend/internal/models"
)

// Email is a rendered message ready to send.
type Email struct {
	Subject string
	HTML    string
}

// RenderTransactional renders the template for the given email type.
func RenderTransactional(emailType string, reg *models.Registration, w *models.Webinar) (Email, error) {
	switch emailType {
	case models.EmailTypeWelcome:
		return welcomeEmail(reg, w), nil
	case models.EmailTypePaymentSuccess:
		return paymentSuccessEmail(reg, w), nil
	case models.EmailTypePaymentFailed:
		return paymentFailedEmail(reg, w), nil
	case models.EmailTypeReminder:
		return reminderEmail(reg, w), nil
	default:
		return Email{}, fmt.Errorf("unknown email type: %s", emailType)
	}
}

func welcomeEmail(reg *models.Registration, w *models.Webinar) Email {
	return Email{
		Subject: fmt.Sprintf("Welcome to %s!", w.Title),
		HTML: fmt.Sprintf(`<h2>Welcome to %s!</h2>
<p>Dear %s,</p>
<p>Thank you for registering for our webinar "%s".</p>
<p><strong>Webinar Details:</strong></p>
<ul>
  <li>Date: %s</li>
  <li>Duration: %d minutes</li>
  <li>Speaker: %s</li>
</ul>
<p>Complete your payment to confirm your seat. We will send you the joining link before the webinar starts.</p>
<p>Best regards,<br>Webinar Team</p>`,
			w.Title, reg.FullName, w.Title,
			w.StartsAt.Format("Monday, 2 January 2006 15:04 MST"),
			w.DurationMinutes, w.Speaker),
	}
}

func paymentSuccessEmail(reg *models.Registration, w *models.Webinar) Email {
	return Email{
		Subject: fmt.Sprintf("Payment confirmed for %s", w.Title),
		HTML: fmt.Sprintf(`<h2>Payment Confirmed</h2>
<p>Dear %s,</p>
<p>Your payment for "%s" has been received. Your seat is confirmed.</p>
<p>Date: %s</p>
<p>We will send you the joining link before the webinar starts.</p>
<p>Best regards,<br>Webinar Team</p>`,
			reg.FullName, w.Title,
			w.StartsAt.Format("Monday, 2 January 2006 15:04 MST")),
	}
}

func paymentFailedEmail(reg *models.Registration, w *models.Webinar) Email {
	return Email{
		Subject: fmt.Sprintf("Payment failed for %s", w.Title),
		HTML: fmt.Sprintf(`<h2>Payment Failed</h2>
<p>Dear %s,</p>
<p>We could not verify your payment for "%s". No amount has been captured for a failed payment.</p>
<p>You can retry the payment from the registration page at any time.</p>
<p>Best regards,<br>Webinar Team</p>`,
			reg.FullName, w.Title),
	}
}

func reminderEmail(reg *models.Registration, w *models.Webinar) Email {
	return Email{
		Subject: fmt.Sprintf("Complete your registration for %s", w.Title),
		HTML: fmt.Sprintf(`<h2>Your seat is waiting</h2>
<p>Dear %s,</p>
<p>You registered for "%s" but have not completed the payment yet.</p>
<p>Complete it now to confirm your seat for %s.</p>
<p>Best regards,<br>Webinar Team</p>`,
			reg.FullName, w.Title,
			w.StartsAt.Format("Monday, 2 January 2006 15:04 MST")),
	}
}

// RenderBulk personalizes a bulk message for one recipient. Every
// {{name}} placeholder in the message is replaced.
func RenderBulk(subject, message, name string) Email {
	personalized := strings.ReplaceAll(message, "{{name}}", name)
	return Email{
		Subject: subject,
		HTML: fmt.Sprintf(`<h2>%s</h2>
<p>Dear %s,</p>
%s
<p>Best regards,<br>Webinar Team</p>`,
			subject, name, personalized),
	}
}
