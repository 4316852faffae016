package services

import (
	"context"
	"strings"

	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// LeadInput is a print request as submitted by the storefront.
type LeadInput struct {
	UserIdentifier string         `json:"userIdentifier"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Company        string         `json:"company"`
	Params         map[string]any `json:"params"`
}

// LeadScoreResult is the breakdown of a lead score.
type LeadScoreResult struct {
	Score     int             `json:"score"`
	Status    leads.Status    `json:"status"`
	Breakdown leads.Breakdown `json:"breakdown"`
	Notify    bool            `json:"notify"`
}

// LeadService scores, stores and announces leads.
type LeadService struct {
	repo     leads.Repository
	notifier leads.Notifier
	settings LeadSettings
	logger   *logging.ChanneledLogger
}

// NewLeadService creates a new lead service. The notifier is optional.
func NewLeadService(repo leads.Repository, notifier leads.Notifier, settings LeadSettings, logger *logging.ChanneledLogger) *LeadService {
	return &LeadService{repo: repo, notifier: notifier, settings: settings, logger: logger}
}

// Score rates params without storing anything.
func (s *LeadService) Score(params leads.Params) LeadScoreResult {
	b := leads.Score(params)
	return LeadScoreResult{
		Score:     b.Total,
		Status:    leads.StatusFor(b.Total),
		Breakdown: b,
		Notify:    leads.NeedsNotification(b.Total, s.settings.NotifyThreshold),
	}
}

// Capture scores and stores a lead, then notifies sales when the score is
// high enough. A failed notification leaves the lead unnotified.
func (s *LeadService) Capture(ctx context.Context, in LeadInput) (*leads.Lead, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, failures.Validation("capture_lead", "name is required")
	}
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		return nil, failures.Validation("capture_lead", "email or phone is required")
	}

	params := leads.ParamsFromMap(in.Params)
	params.HasContactInfo = true
	if strings.TrimSpace(in.Company) != "" {
		params.HasCompany = true
	}
	scored := s.Score(params)

	lead := &leads.Lead{
		UserIdentifier: strings.TrimSpace(in.UserIdentifier),
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		Company:        strings.TrimSpace(in.Company),
		Params:         params,
		Score:          scored.Score,
		Status:         scored.Status,
	}
	if err := s.repo.Store(ctx, lead); err != nil {
		return nil, failures.Storage("capture_lead", err)
	}
	s.logger.Leads().Info("Lead captured", "leadId", lead.ID, "score", lead.Score, "status", lead.Status)

	if scored.Notify {
		s.notify(ctx, lead)
	}
	return lead, nil
}

func (s *LeadService) notify(ctx context.Context, lead *leads.Lead) {
	if s.notifier == nil {
		s.logger.Leads().Warn("Hot lead not announced, no notifier configured", "leadId", lead.ID)
		return
	}
	if err := s.notifier.NotifyLead(ctx, lead); err != nil {
		s.logger.LogError(logging.ChannelLeads, "notify_lead", failures.Upstream("notify_lead", err), map[string]any{"leadId": lead.ID})
		return
	}
	if err := s.repo.MarkNotified(ctx, lead.ID); err != nil {
		s.logger.LogError(logging.ChannelLeads, "mark_notified", failures.Storage("mark_notified", err), map[string]any{"leadId": lead.ID})
		return
	}
	lead.Notified = true
}

// List returns stored leads, optionally filtered by status.
func (s *LeadService) List(ctx context.Context, status leads.Status, limit int) ([]*leads.Lead, error) {
	out, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, failures.Storage("list_leads", err)
	}
	return out, nil
}
