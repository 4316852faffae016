package services

import (
	"context"
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/commerce"
	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
)

// EventCommerceProvider derives the commerce snapshot from what the
// storefront already reports: add_to_cart clicks, product views and the
// print requests captured as leads.
type EventCommerceProvider struct {
	events   events.Repository
	leads    leads.Repository
	lookback time.Duration
	now      func() time.Time
}

// NewEventCommerceProvider creates a provider looking back over lookback.
func NewEventCommerceProvider(eventRepo events.Repository, leadRepo leads.Repository, lookback time.Duration) *EventCommerceProvider {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &EventCommerceProvider{events: eventRepo, leads: leadRepo, lookback: lookback, now: time.Now}
}

// Snapshot assembles cart, viewed products and orders for userID.
func (p *EventCommerceProvider) Snapshot(ctx context.Context, userID string) (*commerce.Snapshot, error) {
	snap := &commerce.Snapshot{}

	recent, err := p.events.FindRecentByUser(ctx, userID, p.now().UTC().Add(-p.lookback))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, e := range recent {
		product := productOf(e)
		if product == "" {
			continue
		}
		if strings.Contains(strings.ToLower(e.ElementClass), "add_to_cart") {
			qty := int(events.NumberOf(e.ElementData["quantity"]))
			if qty <= 0 {
				qty = 1
			}
			price := float64(events.NumberOf(e.ElementData["price"]))
			snap.Cart = append(snap.Cart, commerce.CartItem{
				ProductID: stringValue(e.ElementData["product_id"]),
				Name:      product,
				Quantity:  qty,
				Price:     price,
			})
			snap.CartTotal += price * float64(qty)
		}
		if !seen[product] {
			seen[product] = true
			snap.ViewedProducts = append(snap.ViewedProducts, product)
		}
	}

	if p.leads != nil {
		captured, err := p.leads.FindByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, l := range captured {
			snap.Orders = append(snap.Orders, commerce.Order{
				Reference:   l.ID,
				ProductType: l.Params.ProductType,
				Status:      string(l.Status),
				CreatedAt:   l.CreatedAt,
			})
		}
	}
	return snap, nil
}

func productOf(e *events.InteractionEvent) string {
	if e == nil || e.ElementData == nil {
		return ""
	}
	for _, key := range []string{"product", "product_name", "product_type"} {
		if s := stringValue(e.ElementData[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
