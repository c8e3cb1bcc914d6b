// Package email delivers session reports over SMTP and through a remote
// beliefpad server.
package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"beliefpad/api/internal/logging"
)

var (
	ErrNotConfigured = errors.New("email not configured")
	ErrDelivery      = errors.New("email delivery failed")
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email. Text is required, HTML is an optional
// alternative part.
type Message struct {
	To          string
	ReplyTo     string
	FromName    string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// sender is the part of gomail.Dialer the service uses.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service provides email sending
type Service struct {
	config Config
	sender sender
	logger logging.Logger
}

// NewService creates a new email service
func NewService(config Config, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		config: config,
		sender: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port > 0 && s.config.From != ""
}

// Send delivers msg and returns the Message-ID it was sent with.
func (s *Service) Send(_ context.Context, msg Message) (string, error) {
	if !s.IsConfigured() {
		return "", ErrNotConfigured
	}

	messageID := "<" + uuid.NewString() + "@beliefpad>"
	m := s.newMessage(msg, messageID)

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("email", "send failed", map[string]any{"to": msg.To, "error": err.Error()})
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	s.logger.Info("email", "email sent", map[string]any{"to": msg.To, "message_id": messageID})
	return messageID, nil
}

func (s *Service) newMessage(msg Message, messageID string) *gomail.Message {
	fromName := strings.TrimSpace(msg.FromName)
	if fromName == "" {
		fromName = s.config.FromName
	}

	m := gomail.NewMessage()
	if fromName != "" {
		m.SetAddressHeader("From", s.config.From, fromName)
	} else {
		m.SetHeader("From", s.config.From)
	}
	m.SetHeader("To", msg.To)
	if strings.TrimSpace(msg.ReplyTo) != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)

	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		m.Attach(a.Filename, settings...)
	}
	return m
}
