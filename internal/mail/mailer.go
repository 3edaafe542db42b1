// Package mail sends the two customer-facing emails the service core needs:
// welcome credentials for auto-provisioned accounts and "your report/claim is
// ready" notices. Both are strictly post-commit side effects: callers invoke
// them after the primary transaction has committed and must treat failures as
// log-and-continue, never as a reason to fail the operation.
package mail

import (
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/tbourn/go-vehicle-backend/internal/sysutil"
)

// Mailer is the narrow sending capability the service layer depends on.
type Mailer interface {
	// SendWelcome delivers the generated credentials of a freshly
	// auto-provisioned account.
	SendWelcome(to, name, password string) error

	// SendReportReady tells a customer that a document tied to refID (a PDI
	// report or a claim PDF) is available.
	SendReportReady(to, name, subject, refID string) error
}

// SMTPMailer sends real mail through an SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendWelcome implements Mailer.
func (s *SMTPMailer) SendWelcome(to, name, password string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetAddressHeader("To", to, name)
	m.SetHeader("Subject", "Your account is ready")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nAn account has been created for you.\n\nLogin: %s\nTemporary password: %s\n\nPlease change your password after your first login.\n",
		name, to, password,
	))
	return s.dialer().DialAndSend(m)
}

// SendReportReady implements Mailer.
func (s *SMTPMailer) SendReportReady(to, name, subject, refID string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetAddressHeader("To", to, name)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\n%s\nReference: %s\n\nYou can view it from your account dashboard.\n",
		name, subject, refID,
	))
	return s.dialer().DialAndSend(m)
}

func (s *SMTPMailer) dialer() *gomail.Dialer {
	return gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
}

// LogMailer is the default when no SMTP relay is configured: it records the
// would-be mail in the logs and succeeds. Credentials are never logged.
type LogMailer struct {
	Log zerolog.Logger
}

// SendWelcome implements Mailer.
func (l *LogMailer) SendWelcome(to, name, _ string) error {
	l.Log.Info().Str("to", sysutil.MaskEmail(to)).Str("name", name).Msg("welcome mail suppressed (smtp disabled)")
	return nil
}

// SendReportReady implements Mailer.
func (l *LogMailer) SendReportReady(to, name, subject, refID string) error {
	l.Log.Info().
		Str("to", sysutil.MaskEmail(to)).
		Str("subject", subject).
		Str("ref", refID).
		Msg("report-ready mail suppressed (smtp disabled)")
	return nil
}
