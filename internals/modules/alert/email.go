package alert

import (
	"context"
	"crypto/tls"
	"fmt"

	"healthwatch/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends one plain text mail per alert over SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	return &EmailNotifier{
		dialer: d,
		from:   cfg.From,
		to:     cfg.To,
	}
}

func (n *EmailNotifier) Name() string { return config.ChannelEmail }

// Send gives up waiting when ctx ends; gomail has no context support so the
// SMTP exchange itself may still finish in the background.
func (n *EmailNotifier) Send(ctx context.Context, p AlertPayload) error {
	m := n.buildMessage(p)

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.dialer.DialAndSend(m)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *EmailNotifier) buildMessage(p AlertPayload) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to...)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", p.Severity, p.Title))
	if p.MentionAll {
		m.SetHeader("X-Priority", "1")
	}
	m.SetBody("text/plain", formatPlainText(p)+"\r\n\r\n--\r\nhealthwatch")
	return m
}
