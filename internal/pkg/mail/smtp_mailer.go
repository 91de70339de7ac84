package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Sender delivers a rendered HTML mail.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends emails via SMTP
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSenderFromEnv() *SMTPSender {
	sender := env.GetEnv("SMTP_SENDER", env.GetEnv("MAIL_FROM", ""))
	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Infof("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}
	return &SMTPSender{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		From:     sender,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	var auth smtp.Auth
	if s.Username != "" && s.Password != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	send := s.sendMail
	if send == nil {
		send = smtp.SendMail
	}

	err := send(addr, auth, s.From, []string{to}, buildMessage(s.From, to, subject, htmlBody))
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
	} else {
		log.Infof("[Mail] Email sent to %s via %s", to, addr)
	}
	return err
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)
}
