// Package mail is the outbound email boundary. The rest of the app only
// sees the Mailer interface, delivery runs through Resend in production and
// falls back to the log when no API key is configured.
package mail

import (
	"fmt"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

// Mailer sends the transactional mails of the app.
type Mailer interface {
	SendVerifyCode(to, code string) error
}

// ResendMailer delivers mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer returns a Mailer backed by the Resend API.
func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

var _ Mailer = &ResendMailer{}

// SendVerifyCode mails the account verification code to a new user.
func (m *ResendMailer) SendVerifyCode(to, code string) error {
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Verify your Loop Life account",
		Html: fmt.Sprintf(`
			<h1>Thanks for registering on Loop Life!</h1>
			<p>To verify your account, use the following code:</p>
			<h2>%s</h2>
			<p>You can copy and paste this code on the verification page.</p>`, code),
	})
	return err
}

// LogMailer writes mails to the log instead of sending them. Used in
// development so registration works without mail credentials.
type LogMailer struct{}

var _ Mailer = &LogMailer{}

// SendVerifyCode logs the verification code.
func (m *LogMailer) SendVerifyCode(to, code string) error {
	log.WithFields(log.Fields{
		"to":   to,
		"code": code,
	}).Info("verification mail (not sent, no mail credentials)")
	return nil
}
