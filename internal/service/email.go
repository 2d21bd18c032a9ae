package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends billing notifications. In development it logs
// instead of sending so webhooks can be replayed without side effects.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appName   string
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appName:   appName,
	}
}

func (s *EmailService) SendPaymentFailed(email, name string) error {
	subject, body := paymentFailedTemplate(name, s.appName)
	return s.send("payment_failed", email, subject, body)
}

func (s *EmailService) SendSubscriptionCanceled(email, name string, periodEnd *time.Time) error {
	subject, body := subscriptionCanceledTemplate(name, s.appName, periodEnd)
	return s.send("subscription_canceled", email, subject, body)
}

func (s *EmailService) send(kind, email, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", email, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", email)
	}
	return err
}
