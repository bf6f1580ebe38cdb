package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bitwise74/labyrinth-api/config"

	"gopkg.in/gomail.v2"
)

var ErrMailDisabled = errors.New("mail is not configured")

// Mailer sends account mails
type Mailer interface {
	SendResetMail(ctx context.Context, to, token string) error
}

type SMTPMailer struct {
	cfg       config.Mail
	publicURL string
	send      func(m *gomail.Message) error
}

func NewSMTPMailer(cfg config.Mail, publicURL string) *SMTPMailer {
	m := &SMTPMailer{
		cfg:       cfg,
		publicURL: strings.TrimRight(publicURL, "/"),
	}

	m.send = func(msg *gomail.Message) error {
		return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Sender, cfg.Password).DialAndSend(msg)
	}

	return m
}

// ResetLink is the frontend page a reset token is redeemed on
func ResetLink(publicURL, token string) string {
	return strings.TrimRight(publicURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func (m *SMTPMailer) SendResetMail(ctx context.Context, to, token string) error {
	if m.cfg.Host == "" {
		return ErrMailDisabled
	}

	if strings.EqualFold(to, m.cfg.Sender) {
		return errors.New("invalid email address")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	link := ResetLink(m.publicURL, token)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/plain", fmt.Sprintf("Open the link below to choose a new password:\n\n%s\n\nThe link expires in 1 hour. If you didn't ask for a reset you can ignore this mail.", link))
	msg.AddAlternative("text/html", fmt.Sprintf("Click <a href='%s'>here</a> to reset your password.<br><br>This link will expire in 1 hour.", link))

	if err := m.send(msg); err != nil {
		return fmt.Errorf("failed to send reset mail, %w", err)
	}

	return nil
}
