// Package mail delivers transactional email such as password reset links.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no delivery backend is set up.
var ErrNotConfigured = errors.New("mail: sender not configured")

// Message is a plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Sender delivers a message or hands it off for delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResetPasswordLink builds <frontendURL>/auth/ResetPassword?token=...&email=...
func ResetPasswordLink(frontendURL, rawToken, email string) string {
	q := url.Values{}
	q.Set("token", rawToken)
	q.Set("email", email)
	return strings.TrimRight(frontendURL, "/") + "/auth/ResetPassword?" + q.Encode()
}

// ResetPasswordMessage renders the reset email for a user.
func ResetPasswordMessage(to, name, link string, ttl time.Duration) Message {
	greeting := "Hello,"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}
	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\nWe received a request to reset your password. Use the link below to choose a new one:\n\n")
	b.WriteString(link)
	fmt.Fprintf(&b, "\n\nThis link expires in %d minutes and can be used once.\n", int(ttl.Minutes()))
	b.WriteString("If you did not request a reset, you can ignore this email.\n")
	return Message{To: to, Subject: "Reset your password", Text: b.String()}
}

func envelopeAddress(raw string) (string, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

// buildMessage renders an RFC 5322 message with a plain 8bit body.
func buildMessage(from string, msg Message, now time.Time) ([]byte, error) {
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return nil, errors.New("subject contains line break")
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Text, "\r\n", "\n"), "\n", "\r\n"))
	return buf.Bytes(), nil
}
