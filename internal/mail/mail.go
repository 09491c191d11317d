// Package mail sends outgoing application mail. Delivery transport is an
// external concern; the default implementation only logs the message.
package mail

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(to, subject, body string) error
}

// LogMailer writes outgoing mail to the log instead of delivering it.
type LogMailer struct {
	From string
	Log  *zap.Logger
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.Log.Info("outgoing mail",
		zap.String("from", m.From),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// SMTPMailer delivers mail over plain SMTP with optional auth.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	var a smtp.Auth
	if m.Username != "" {
		a = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, a, m.From, []string{to}, []byte(msg))
}
