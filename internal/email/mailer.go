package email

import (
	"context"
	"fmt"
)

// Mailer composes the human-facing messages for each token flow and
// hands them to a Sender.
type Mailer struct {
	sender  Sender
	baseURL string
}

func NewMailer(sender Sender, baseURL string) *Mailer {
	return &Mailer{sender: sender, baseURL: baseURL}
}

func (m *Mailer) SendVerification(ctx context.Context, to, tokenValue string) error {
	link := m.baseURL + "/auth/verify-email?token=" + tokenValue
	body := linkBody(
		"Verify your email",
		"Click the link below to verify your email address (expires in 24 hours):",
		link,
	)
	return m.sender.Send(ctx, to, "Verify your Sonora account", body)
}

func (m *Mailer) SendMagicLink(ctx context.Context, to, tokenValue string) error {
	link := m.baseURL + "/auth/magic-link/verify?token=" + tokenValue
	body := linkBody(
		"Sign in to Sonora",
		"Click the link below to sign in (expires in 15 minutes):",
		link,
	)
	return m.sender.Send(ctx, to, "Your sign-in link", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, tokenValue string) error {
	link := m.baseURL + "/auth/reset-password?token=" + tokenValue
	body := linkBody(
		"Reset your password",
		"Click the link below to choose a new password (expires in 1 hour):",
		link,
	)
	return m.sender.Send(ctx, to, "Reset your Sonora password", body)
}

func linkBody(heading, lead, link string) string {
	return fmt.Sprintf(
		`<h2>%s</h2><p>%s</p><p><a href="%s">%s</a></p><p>If you didn't request this email, you can safely ignore it.</p>`,
		heading, lead, link, link,
	)
}
