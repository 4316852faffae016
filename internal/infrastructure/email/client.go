// Package email sends hot-lead notifications through Resend.
package email

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Sender abstracts the Resend API so tests can capture messages.
type Sender interface {
	Send(req *resend.SendEmailRequest) (resend.SendEmailResponse, error)
}

// Settings configures the notifier.
type Settings struct {
	APIKey    string
	To        string
	FromEmail string
	FromName  string
	SiteName  string
}

// ResendNotifier implements leads.Notifier.
type ResendNotifier struct {
	sender   Sender
	settings Settings
}

// NewResendNotifier builds a notifier. It returns nil when no API key or
// recipient is configured, meaning notifications are disabled.
func NewResendNotifier(settings Settings) *ResendNotifier {
	if settings.APIKey == "" || settings.To == "" {
		return nil
	}
	return NewNotifierWithSender(resend.NewClient(settings.APIKey).Emails, settings)
}

// NewNotifierWithSender builds a notifier around any Sender.
func NewNotifierWithSender(sender Sender, settings Settings) *ResendNotifier {
	if settings.FromEmail == "" {
		settings.FromEmail = "noreply@example.com"
	}
	if settings.FromName == "" {
		settings.FromName = "Intentstack"
	}
	return &ResendNotifier{sender: sender, settings: settings}
}

// NotifyLead composes and sends the lead alert.
func (n *ResendNotifier) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := templates.LeadContent(templates.LeadProps{
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Company:     lead.Company,
		ProductType: lead.Params.ProductType,
		Quantity:    lead.Params.Quantity,
		Source:      lead.Params.Source,
		Score:       lead.Score,
		Status:      string(lead.Status),
	})
	if err != nil {
		return fmt.Errorf("failed to render lead email: %w", err)
	}
	html, err := templates.Layout(templates.LayoutProps{
		Preheader: fmt.Sprintf("Lead score %d", lead.Score),
		Content:   content,
		SiteName:  n.settings.SiteName,
	})
	if err != nil {
		return fmt.Errorf("failed to render email layout: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.settings.FromName, n.settings.FromEmail),
		To:      []string{n.settings.To},
		Subject: fmt.Sprintf("[%s] New %s lead: %s (%d)", n.settings.SiteName, lead.Status, lead.Name, lead.Score),
		Html:    html,
	}
	if lead.Email != "" {
		params.ReplyTo = lead.Email
	}

	if _, err := n.sender.Send(params); err != nil {
		return fmt.Errorf("failed to send lead email via Resend: %w", err)
	}
	return nil
}
