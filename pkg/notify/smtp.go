package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"time"

	"marketplace-api/pkg/utils"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails a link containing the token.
type SMTPNotifier struct {
	config utils.EmailConfig
	send   sendFunc
}

func NewSMTPNotifier(config utils.EmailConfig) *SMTPNotifier {
	return &SMTPNotifier{config: config, send: smtp.SendMail}
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := n.render(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.config.User != "" {
		auth = smtp.PlainAuth("", n.config.User, n.config.Password, n.config.Host)
	}

	addr := net.JoinHostPort(n.config.Host, strconv.Itoa(n.config.Port))
	if err := n.send(addr, auth, n.config.From, []string{msg.Email}, body); err != nil {
		return fmt.Errorf("send %s mail to %s: %w", msg.Purpose, msg.Email, err)
	}
	return nil
}

func (n *SMTPNotifier) render(msg Notification) ([]byte, error) {
	var subject, path string
	switch msg.Purpose {
	case PurposePasswordReset:
		subject, path = "Reset your password", "/reset-password"
	case PurposeEmailVerification:
		subject, path = "Verify your email address", "/verify-email"
	default:
		return nil, fmt.Errorf("unknown notification purpose %q", msg.Purpose)
	}

	link, err := url.Parse(n.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse CLIENT_URL: %w", err)
	}
	link = link.JoinPath(path)
	q := link.Query()
	q.Set("token", msg.Token)
	link.RawQuery = q.Encode()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Email)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	if msg.Name != "" {
		fmt.Fprintf(&buf, "Hi %s,\r\n\r\n", msg.Name)
	}
	fmt.Fprintf(&buf, "Open this link to continue:\r\n%s\r\n\r\n", link.String())
	fmt.Fprintf(&buf, "The link expires at %s.\r\n", msg.ExpiresAt.UTC().Format(time.RFC1123))
	buf.WriteString("If you did not ask for this, ignore this message.\r\n")

	return buf.Bytes(), nil
}
