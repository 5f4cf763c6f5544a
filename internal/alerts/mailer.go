package alerts

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Mailer sends plain text email over SMTP with TLS. When no host is
// configured it logs the message instead, which keeps local development
// working without a mail account.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	log      *slog.Logger
}

func NewMailer(host, port, username, password, from string, log *slog.Logger) *Mailer {
	return &Mailer{host: host, port: port, username: username, password: password, from: from, log: log}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		m.log.Info("mail (no smtp host configured)", "to", to, "subject", subject)
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\n", m.from)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "MIME-Version: 1.0\r\n"
	msg += "Content-Type: text/plain; charset=\"utf-8\"\r\n"
	msg += "\r\n" + body + "\r\n"

	addr := m.host + ":" + m.port
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return c.Quit()
}
