// Package leads scores inbound print requests and defines the lead record.
package leads

import (
	"strings"

	"github.com/AtRiskMedia/intentstack/internal/domain/events"
)

// Status is the lead temperature band.
type Status string

const (
	StatusHot    Status = "hot"
	StatusWarm   Status = "warm"
	StatusMedium Status = "medium"
	StatusCold   Status = "cold"
)

const (
	maxSource       = 25
	maxVolume       = 20
	maxProduct      = 20
	maxEngagement   = 20
	maxCompleteness = 15
	maxSpeed        = 15
)

var sourceScores = map[string]int{
	"referral":           25,
	"returning_customer": 22,
	"instagram":          18,
	"google":             15,
	"telegram":           15,
	"website":            10,
	"direct":             8,
	"unknown":            5,
}

var productScores = map[string]int{
	"gold_foil":     20,
	"uv_coating":    18,
	"book":          16,
	"packaging":     16,
	"catalog":       14,
	"brochure":      12,
	"business_card": 10,
	"flyer":         8,
	"sticker":       8,
	"other":         5,
}

type tier struct {
	min    int64
	points int
}

var volumeTiers = []tier{{10000, 20}, {5000, 15}, {1000, 10}, {500, 6}, {1, 3}}

var messageTiers = []tier{{10, 10}, {5, 6}, {2, 3}}

var productViewTiers = []tier{{5, 5}, {2, 3}}

var invoiceViewTiers = []tier{{3, 5}, {1, 2}}

// speedTiers are upper bounds in hours.
var speedTiers = []tier{{1, 15}, {24, 10}, {72, 6}, {168, 3}}

// Params are the inputs to lead scoring. Zero values score nothing.
type Params struct {
	Source         string   `json:"source"`
	Quantity       int64    `json:"quantity"`
	ProductType    string   `json:"product_type"`
	MessageCount   int64    `json:"message_count"`
	ViewedProducts int64    `json:"viewed_products"`
	ViewedInvoices int64    `json:"viewed_invoices"`
	HasContactInfo bool     `json:"has_contact_info"`
	HasBudget      bool     `json:"has_budget"`
	HasCompany     bool     `json:"has_company"`
	HasDeadline    bool     `json:"has_deadline"`
	DecisionHours  *float64 `json:"decision_hours,omitempty"`
}

// ParamsFromMap reads loosely typed request data. Missing keys score zero.
// Engagement counters may be nested under "engagement"; completeness flags
// accept either has_* booleans or the raw field values.
func ParamsFromMap(m map[string]any) Params {
	engagement, _ := m["engagement"].(map[string]any)
	if engagement == nil {
		engagement = m
	}
	p := Params{
		Source:         stringOf(first(m, "source", "source_referral")),
		Quantity:       events.NumberOf(first(m, "quantity", "volume")),
		ProductType:    stringOf(m["product_type"]),
		MessageCount:   events.NumberOf(engagement["message_count"]),
		ViewedProducts: events.NumberOf(engagement["viewed_products"]),
		ViewedInvoices: events.NumberOf(engagement["viewed_invoices"]),
		HasContactInfo: present(m, "has_contact_info", "contact_info"),
		HasBudget:      present(m, "has_budget", "budget"),
		HasCompany:     present(m, "has_company", "company"),
		HasDeadline:    present(m, "has_deadline", "deadline"),
	}
	if v, ok := m["decision_hours"]; ok && v != nil {
		p.SetDecisionHours(floatOf(v))
	}
	return p
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// present checks the boolean flag first, then whether the raw value is set.
func present(m map[string]any, flag, field string) bool {
	if v, ok := m[flag]; ok && v != nil {
		return boolOf(v)
	}
	switch v := m[field].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	default:
		return true
	}
}

// SetDecisionHours records how quickly the customer decided.
func (p *Params) SetDecisionHours(h float64) {
	p.DecisionHours = &h
}

// Breakdown is the per-dimension result of ScoreLead.
type Breakdown struct {
	Source        int `json:"source"`
	Volume        int `json:"volume"`
	Product       int `json:"product"`
	Engagement    int `json:"engagement"`
	Completeness  int `json:"completeness"`
	DecisionSpeed int `json:"decisionSpeed"`
	Total         int `json:"total"`
}

// ScoreLead returns the clamped 0-100 lead score.
func ScoreLead(p Params) int {
	return Score(p).Total
}

// Score returns each capped sub-score and the clamped total.
func Score(p Params) Breakdown {
	b := Breakdown{
		Source:        capAt(sourceScores[normalize(p.Source)], maxSource),
		Volume:        capAt(tierAtLeast(volumeTiers, p.Quantity), maxVolume),
		Product:       capAt(productScores[normalize(p.ProductType)], maxProduct),
		Engagement:    capAt(engagement(p), maxEngagement),
		Completeness:  capAt(completeness(p), maxCompleteness),
		DecisionSpeed: capAt(decisionSpeed(p), maxSpeed),
	}
	total := b.Source + b.Volume + b.Product + b.Engagement + b.Completeness + b.DecisionSpeed
	b.Total = clamp(total, 0, 100)
	return b
}

// StatusFor maps a score onto its band.
func StatusFor(score int) Status {
	switch {
	case score >= 80:
		return StatusHot
	case score >= 60:
		return StatusWarm
	case score >= 40:
		return StatusMedium
	default:
		return StatusCold
	}
}

// NeedsNotification reports whether a lead should alert the sales team.
func NeedsNotification(score, threshold int) bool {
	return score >= threshold
}

func engagement(p Params) int {
	return tierAtLeast(messageTiers, p.MessageCount) +
		tierAtLeast(productViewTiers, p.ViewedProducts) +
		tierAtLeast(invoiceViewTiers, p.ViewedInvoices)
}

func completeness(p Params) int {
	n := 0
	if p.HasContactInfo {
		n += 8
	}
	if p.HasBudget {
		n += 7
	}
	if p.HasCompany {
		n += 3
	}
	if p.HasDeadline {
		n += 2
	}
	return n
}

func decisionSpeed(p Params) int {
	if p.DecisionHours == nil || *p.DecisionHours < 0 {
		return 0
	}
	for _, t := range speedTiers {
		if *p.DecisionHours <= float64(t.min) {
			return t.points
		}
	}
	return 0
}

func tierAtLeast(tiers []tier, v int64) int {
	for _, t := range tiers {
		if v >= t.min {
			return t.points
		}
	}
	return 0
}

func capAt(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func boolOf(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "1" || s == "yes"
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return float64(events.NumberOf(v))
}
