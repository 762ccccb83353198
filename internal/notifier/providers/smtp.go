// Package providers holds the concrete delivery backends for the notifier.
package providers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers run summaries through a plain-auth SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender creates a sender for the given relay and from-address.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers one run summary as a multipart/alternative message, so the
// operator's mail client picks the HTML rendering and everything else falls
// back to the plain text.
func (s *SMTPSender) Send(to, subject, htmlBody, plainBody string) error {
	boundary, err := mimeBoundary()
	if err != nil {
		return err
	}
	msg := buildMessage(s.from, to, subject, boundary, plainBody, htmlBody)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send summary email: %w", err)
	}
	return nil
}

// mimeBoundary returns a random part boundary that cannot collide with the
// report bodies.
func mimeBoundary() (string, error) {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate MIME boundary: %w", err)
	}
	return "promopost-" + hex.EncodeToString(b[:]), nil
}

func buildMessage(from, to, subject, boundary, plainBody, htmlBody string) string {
	var msg strings.Builder

	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	// Least-preferred part first, per RFC 2046.
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(plainBody)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.String()
}
