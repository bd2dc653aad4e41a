// Package notification delivers patient-facing email. Delivery is best
// effort; callers decide whether a failure matters.
package notification

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/quantalab/lims-api/internal/model"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends transactional mail over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendResultReleased tells a registered patient their results are ready.
// Values and flags are deliberately left out of the mail body.
func (m *Mailer) SendResultReleased(ctx context.Context, recipient string, result *model.TestResult) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", "Your lab results are ready")
	msg.SetBody("text/html", fmt.Sprintf(`
		<h2>Lab Results Available</h2>
		<p>Your results for sample <strong>%s</strong> have been released
		and are now available in your patient portal.</p>
		<p>If you have questions about your results, please contact the
		laboratory.</p>
	`, result.SampleID))

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send release notification: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
