package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/E-Bousk/natours/domain"
)

// Config stores the outbound SMTP configuration
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Mailer sends plain text mail over SMTP
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// New creates a Mailer from the SMTP configuration
func New(cfg Config) domain.Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers one plain text message to the recipient
func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("can't send mail to %s: %w", to, err)
	}

	return nil
}
