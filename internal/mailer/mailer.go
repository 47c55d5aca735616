// Package mailer delivers account emails over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dajohi/goemail"

	"github.com/iliyamo/account-service/internal/queue"
)

// Mailer sends confirmation and password-reset emails. When SMTP credentials
// are not configured the mailer runs disabled and only logs what it would
// have sent, so the rest of the service keeps working in development.
type Mailer struct {
	smtp        *goemail.SMTP
	from        string
	frontendURL string
	disabled    bool
	log         *slog.Logger
}

// New builds a Mailer. host is "host:port"; an empty host, user or password
// disables delivery.
func New(host, user, password, from, frontendURL string, skipVerify bool, log *slog.Logger) (*Mailer, error) {
	if host == "" || user == "" || password == "" {
		log.Info("mailer disabled: smtp credentials missing")
		return &Mailer{disabled: true, frontendURL: frontendURL, log: log}, nil
	}

	u := url.URL{Scheme: "smtps", User: url.UserPassword(user, password), Host: host}
	smtp, err := goemail.NewSMTP(u.String(), &tls.Config{InsecureSkipVerify: skipVerify})
	if err != nil {
		return nil, err
	}
	log.Info("mailer enabled", "host", host, "from", from)
	return &Mailer{smtp: smtp, from: from, frontendURL: frontendURL, log: log}, nil
}

// Send delivers the email described by the event.
func (m *Mailer) Send(ev queue.EmailRequestedEvent) error {
	subject, body, err := m.compose(ev)
	if err != nil {
		return err
	}
	if m.disabled {
		m.log.Info("mailer disabled, dropping email",
			"to", ev.Email, "template", ev.Template)
		return nil
	}

	m.log.Info("sending email", "to", ev.Email, "template", ev.Template)
	msg := goemail.NewHTMLMessage(m.from, subject, body)
	msg.AddTo(ev.Email)
	return m.smtp.Send(msg)
}

func (m *Mailer) compose(ev queue.EmailRequestedEvent) (subject, body string, err error) {
	switch ev.Template {
	case queue.TemplateConfirmEmail:
		link := fmt.Sprintf("%s/account/confirm/%s", m.frontendURL, ev.Token)
		return "Verification email",
			fmt.Sprintf(`<b>Click <a href="%s">here</a> to confirm your email</b>`, link), nil
	case queue.TemplateForgotPassword:
		link := fmt.Sprintf("%s/account/reset/%s", m.frontendURL, ev.Token)
		return "Reset password email",
			fmt.Sprintf(`<b>Click <a href="%s">here</a> to reset your password</b>`, link), nil
	}
	return "", "", fmt.Errorf("unknown mail template %q", ev.Template)
}
