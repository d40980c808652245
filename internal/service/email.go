package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/templui/fileshare/internal/format"
	"github.com/templui/fileshare/internal/model"
)

// AccessItem is one download listed in an access digest.
type AccessItem struct {
	FileName     string
	DownloadedAt time.Time
	IPAddress    string
}

// ExpiryItem is one share listed in an expiry digest.
type ExpiryItem struct {
	FileName  string
	ExpiresAt time.Time
}

// emailSender is the part of the resend client we use.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type EmailService struct {
	sender    emailSender
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	s := &EmailService{
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
	if apiKey != "" && !isDev {
		s.sender = resend.NewClient(apiKey).Emails
	}
	return s
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		slog.Debug("email body (dev mode)", "type", kind, "body", body)
		return nil
	}

	if s.sender == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	_, err := s.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}

func (s *EmailService) SendShareLink(ctx context.Context, to, senderName string, share *model.FileShare) error {
	subject, body := shareLinkEmailTemplate(
		senderName,
		share.FileName,
		format.Size(share.FileSize),
		share.ShareLink,
		format.DateTime(share.ExpiresAt),
		share.Message,
		s.appName,
	)
	return s.send(ctx, "share_link", to, subject, body)
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	subject, body := welcomeEmailTemplate(name, s.appURL, s.appName)
	return s.send(ctx, "welcome", to, subject, body)
}

func (s *EmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	link := s.appURL + "/auth/verify?token=" + url.QueryEscape(token)
	subject, body := verifyEmailTemplate(name, link, s.appName)
	return s.send(ctx, "verify_email", to, subject, body)
}

func (s *EmailService) SendAccessDigest(ctx context.Context, to, name string, items []AccessItem) error {
	subject, body := accessDigestEmailTemplate(name, items, s.appURL, s.appName)
	return s.send(ctx, "access_digest", to, subject, body)
}

func (s *EmailService) SendExpiryDigest(ctx context.Context, to, name string, items []ExpiryItem) error {
	subject, body := expiryDigestEmailTemplate(name, items, s.appURL, s.appName)
	return s.send(ctx, "expiry_digest", to, subject, body)
}
