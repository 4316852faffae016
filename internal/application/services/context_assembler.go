package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AtRiskMedia/intentstack/internal/domain/commerce"
	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/domain/knowledge"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

// Section names in prompt order.
const (
	SectionCapabilities = "SYSTEM CAPABILITIES"
	SectionKnowledge    = "KNOWLEDGE BASE"
	SectionEvents       = "RECENT ACTIVITY"
	SectionCommerce     = "COMMERCE STATE"
	SectionUser         = "USER PROFILE"
	SectionConversation = "CONVERSATION FACTS"
	SectionOrders       = "ORDER TRACKING"
)

// OrderKeywords switch on the order-tracking section.
var OrderKeywords = []string{"order", "tracking", "status", "سفارش", "پیگیری", "وضعیت"}

// SiteInfo describes the storefront itself.
type SiteInfo interface {
	Capabilities() []string
	Site() map[string]any
}

// ContextSources are the optional inputs of the assembler; nil sources are
// skipped.
type ContextSources struct {
	Site          SiteInfo
	Knowledge     knowledge.Base
	Events        events.Repository
	Commerce      commerce.Provider
	Personas      *PersonaService
	Conversations decision.ConversationRepository
	Leads         leads.Repository
}

// ContextAssembler builds the sectioned prompt context for one user.
type ContextAssembler struct {
	sources    ContextSources
	settings   ContextSettings
	compressor *Compressor
	logger     *logging.ChanneledLogger
	now        func() time.Time
}

// defaultConversationMessages bounds the history read for conversation facts.
const defaultConversationMessages = 20

// NewContextAssembler creates a new context assembler.
func NewContextAssembler(sources ContextSources, settings ContextSettings, logger *logging.ChanneledLogger) *ContextAssembler {
	return &ContextAssembler{
		sources:    sources,
		settings:   settings,
		compressor: NewCompressor(settings.TokenBudget),
		logger:     logger,
		now:        time.Now,
	}
}

// Assemble builds the context for userID and an optional query.
func (a *ContextAssembler) Assemble(ctx context.Context, userID, query string) string {
	return a.AssembleFor(ctx, decision.UserContext{UserIdentifier: userID, Message: query})
}

// AssembleFor fetches every source concurrently and joins the non-empty
// sections in fixed order. A failing source is logged and omitted.
func (a *ContextAssembler) AssembleFor(ctx context.Context, uc decision.UserContext) string {
	order := []string{SectionCapabilities, SectionKnowledge, SectionEvents, SectionCommerce, SectionUser, SectionConversation}
	builders := map[string]func(context.Context, decision.UserContext) (string, error){
		SectionCapabilities: a.capabilities,
		SectionKnowledge:    a.knowledgeFacts,
		SectionEvents:       a.recentEvents,
		SectionCommerce:     a.commerceState,
		SectionUser:         a.userFacts,
		SectionConversation: a.conversationFacts,
	}
	if mentionsOrders(uc.Message) {
		order = append(order, SectionOrders)
		builders[SectionOrders] = a.orderFacts
	}

	bodies := make([]string, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range order {
		i, name := i, name
		build := builders[name]
		g.Go(func() error {
			body, err := build(gctx, uc)
			if err != nil {
				a.logger.LogError(logging.ChannelContext, "assemble_section", err, map[string]any{
					"section": name,
					"user":    logging.MaskIdentifier(uc.UserIdentifier),
				})
				return nil
			}
			bodies[i] = strings.TrimSpace(body)
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	included := 0
	for i, name := range order {
		if bodies[i] == "" {
			continue
		}
		if included > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n%s", name, bodies[i])
		included++
	}

	a.logger.Context().Debug("Context assembled",
		"user", logging.MaskIdentifier(uc.UserIdentifier),
		"sections", included,
		"length", b.Len())
	return security.SanitizeText(b.String())
}

func mentionsOrders(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range OrderKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

func (a *ContextAssembler) capabilities(_ context.Context, _ decision.UserContext) (string, error) {
	if a.sources.Site == nil {
		return "", nil
	}
	var lines []string
	for _, c := range a.sources.Site.Capabilities() {
		if c = strings.TrimSpace(c); c != "" {
			lines = append(lines, "- "+c)
		}
	}
	site := security.SanitizeMap(a.sources.Site.Site())
	keys := make([]string, 0, len(site))
	for k := range site {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, site[k]))
	}
	return strings.Join(lines, "\n"), nil
}

func (a *ContextAssembler) knowledgeFacts(ctx context.Context, uc decision.UserContext) (string, error) {
	if a.sources.Knowledge == nil {
		return "", nil
	}
	query := strings.TrimSpace(uc.Message + " " + uc.CurrentPage + " " + uc.CurrentElement)
	facts, err := a.sources.Knowledge.Relevant(ctx, query, a.settings.KnowledgeFacts)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(facts))
	for _, f := range facts {
		lines = append(lines, fmt.Sprintf("- [%s] %s", f.Topic, strings.TrimSpace(f.Content)))
	}
	return strings.Join(lines, "\n"), nil
}

func (a *ContextAssembler) recentEvents(ctx context.Context, uc decision.UserContext) (string, error) {
	if a.sources.Events == nil {
		return "", nil
	}
	window := a.settings.ActivityWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	recent, err := a.sources.Events.FindRecentByUser(ctx, uc.UserIdentifier, a.now().UTC().Add(-window))
	if err != nil {
		return "", err
	}
	if limit := a.settings.RecentEvents; limit > 0 && len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		line := fmt.Sprintf("- %s on %s", e.EventType, e.ElementClass)
		if text := e.Text(); text != "" {
			line += fmt.Sprintf(" (%q)", Truncate(text, 80))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func (a *ContextAssembler) commerceState(ctx context.Context, uc decision.UserContext) (string, error) {
	if a.sources.Commerce == nil {
		return "", nil
	}
	snap, err := a.sources.Commerce.Snapshot(ctx, uc.UserIdentifier)
	if err != nil || snap.Empty() {
		return "", err
	}
	var lines []string
	for _, item := range snap.Cart {
		lines = append(lines, fmt.Sprintf("- cart: %s x%d", item.Name, item.Quantity))
	}
	if len(snap.Cart) > 0 {
		lines = append(lines, fmt.Sprintf("cart total: %.0f", snap.CartTotal))
	}
	if len(snap.ViewedProducts) > 0 {
		lines = append(lines, "viewed products: "+strings.Join(snap.ViewedProducts, ", "))
	}
	return strings.Join(lines, "\n"), nil
}

func (a *ContextAssembler) userFacts(ctx context.Context, uc decision.UserContext) (string, error) {
	var lines []string
	if a.sources.Personas != nil {
		d := a.sources.Personas.Resolve(ctx, uc.UserIdentifier)
		lines = append(lines, fmt.Sprintf("persona: %s (score %d, confidence %.2f%%)", d.Type, d.Score, d.Confidence))
	}
	if uc.UserRoleContext != "" {
		lines = append(lines, "role: "+uc.UserRoleContext)
	}
	if uc.CurrentPage != "" {
		lines = append(lines, "current page: "+uc.CurrentPage)
	}
	if uc.CurrentElement != "" {
		lines = append(lines, "current element: "+uc.CurrentElement)
	}
	return strings.Join(lines, "\n"), nil
}

func (a *ContextAssembler) conversationFacts(ctx context.Context, uc decision.UserContext) (string, error) {
	if a.sources.Conversations == nil {
		return "", nil
	}
	limit := a.settings.ConversationMessages
	if limit <= 0 {
		limit = defaultConversationMessages
	}
	history, err := a.sources.Conversations.Recent(ctx, uc.UserIdentifier, limit)
	if err != nil {
		return "", err
	}
	return a.compressor.Compress(history), nil
}

func (a *ContextAssembler) orderFacts(ctx context.Context, uc decision.UserContext) (string, error) {
	if a.sources.Leads == nil {
		return "", nil
	}
	captured, err := a.sources.Leads.FindByUser(ctx, uc.UserIdentifier)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(captured))
	for _, l := range captured {
		lines = append(lines, fmt.Sprintf("- request %s: %s, quantity %d, status %s, submitted %s",
			l.ID, l.Params.ProductType, l.Params.Quantity, l.Status, l.CreatedAt.UTC().Format("2006-01-02")))
	}
	return strings.Join(lines, "\n"), nil
}
