package persona

import (
	"strings"

	"github.com/AtRiskMedia/intentstack/internal/domain/events"
)

// Matcher decides whether a haystack hits any of the keywords. The default is
// a case-insensitive substring check; a classifier can be swapped in without
// touching the rule tables.
type Matcher interface {
	Match(haystack string, keywords []string) bool
}

// SubstringMatcher is the literal case-insensitive substring Matcher.
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(haystack string, keywords []string) bool {
	if haystack == "" {
		return false
	}
	h := strings.ToLower(haystack)
	for _, k := range keywords {
		if k != "" && strings.Contains(h, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Rule attributes a persona (optional) plus a weight when its keywords match.
type Rule struct {
	Keywords []string
	Persona  Type
	Weight   int
	Intent   string
	Category string
}

// baseWeights is the per-event-type base delta.
var baseWeights = map[events.EventType]int{
	events.EventHover:    1,
	events.EventClick:    5,
	events.EventLongView: 10,
	events.EventScrollTo: 2,
}

// classBonuses add to the event weight when the element class matches.
var classBonuses = []Rule{
	{Keywords: []string{"price"}, Weight: 3, Persona: PriceSensitive, Intent: "compare_price", Category: "pricing"},
	{Keywords: []string{"product"}, Weight: 5, Intent: "browse_product", Category: "catalog"},
	{Keywords: []string{"license", "permission"}, Weight: 10, Persona: Author, Intent: "publish", Category: "publishing"},
}

// moduleMappings map page-builder module classes to personas. First match wins.
var moduleMappings = []Rule{
	{Keywords: []string{"et_pb_wc_add_to_cart"}, Persona: Business, Weight: 5, Intent: "purchase", Category: "commerce"},
	{Keywords: []string{"et_pb_wc_checkout", "et_pb_wc_cart"}, Persona: Business, Weight: 8, Intent: "purchase", Category: "commerce"},
	{Keywords: []string{"et_pb_pricing_table", "et_pb_wc_price"}, Persona: PriceSensitive, Weight: 4, Intent: "compare_price", Category: "pricing"},
	{Keywords: []string{"et_pb_contact_form"}, Persona: Business, Weight: 6, Intent: "contact", Category: "support"},
	{Keywords: []string{"et_pb_blog", "et_pb_post_content"}, Persona: Author, Weight: 3, Intent: "research", Category: "content"},
	{Keywords: []string{"et_pb_gallery", "et_pb_portfolio", "et_pb_filterable_portfolio"}, Persona: Designer, Weight: 4, Intent: "inspiration", Category: "design"},
	{Keywords: []string{"et_pb_wc_reviews", "et_pb_testimonial"}, Persona: LoyalCustomer, Weight: 2, Intent: "trust", Category: "social_proof"},
	{Keywords: []string{"et_pb_wc_related_products", "et_pb_shop"}, Persona: CasualBrowser, Weight: 2, Intent: "browse_product", Category: "catalog"},
	{Keywords: []string{"et_pb_image"}, Persona: Designer, Weight: 2, Intent: "inspiration", Category: "design"},
}

// contentPatterns detect personas from visible element text. First match wins.
var contentPatterns = []Rule{
	{Keywords: []string{"isbn", "manuscript", "کتاب", "نویسنده", "book printing"}, Persona: Author, Weight: 8, Intent: "print_book", Category: "publishing"},
	{Keywords: []string{"publisher", "ناشر", "انتشارات", "circulation", "تیراژ"}, Persona: Publisher, Weight: 8, Intent: "bulk_print", Category: "publishing"},
	{Keywords: []string{"business card", "کارت ویزیت", "letterhead", "سربرگ", "invoice", "فاکتور", "brochure", "بروشور"}, Persona: Business, Weight: 6, Intent: "brand_stationery", Category: "office"},
	{Keywords: []string{"design", "طراحی", "template", "قالب", "mockup", "psd"}, Persona: Designer, Weight: 6, Intent: "design_service", Category: "design"},
	{Keywords: []string{"thesis", "پایان نامه", "پایان‌نامه", "dissertation", "student", "دانشجو"}, Persona: Student, Weight: 6, Intent: "print_thesis", Category: "academic"},
	{Keywords: []string{"discount", "تخفیف", "coupon", "کد تخفیف", "cheap", "ارزان"}, Persona: PriceSensitive, Weight: 5, Intent: "find_discount", Category: "pricing"},
	{Keywords: []string{"reorder", "سفارش مجدد", "my orders", "سفارش‌های من"}, Persona: LoyalCustomer, Weight: 6, Intent: "reorder", Category: "account"},
}

// Rules scores interaction events.
type Rules struct {
	matcher Matcher
}

// NewRules returns rules backed by m, or the substring matcher when m is nil.
func NewRules(m Matcher) *Rules {
	if m == nil {
		m = SubstringMatcher{}
	}
	return &Rules{matcher: m}
}

// ScoreResult is the output of ScoreEvent. Deltas may be empty.
type ScoreResult struct {
	Deltas   map[Type]int `json:"deltas"`
	Weight   int          `json:"weight"`
	Intent   string       `json:"intent,omitempty"`
	Category string       `json:"category,omitempty"`
}

// ScoreEvent maps one interaction onto persona deltas. The event weight is the
// base weight for the type plus every class keyword bonus; each attributed
// persona receives that weight plus its own rule weight, summed across tables.
func (r *Rules) ScoreEvent(eventType events.EventType, elementClass string, elementData map[string]any) ScoreResult {
	result := ScoreResult{Deltas: make(map[Type]int)}

	weight := baseWeights[eventType]
	var attributed []Rule
	for _, rule := range classBonuses {
		if r.matcher.Match(elementClass, rule.Keywords) {
			weight += rule.Weight
			if rule.Persona != "" {
				attributed = append(attributed, Rule{Persona: rule.Persona})
			}
			if result.Intent == "" {
				result.Intent, result.Category = rule.Intent, rule.Category
			}
		}
	}
	result.Weight = weight
	if weight == 0 {
		return result
	}

	if module, ok := r.firstMatch(moduleMappings, elementClass); ok {
		attributed = append(attributed, module)
		result.Intent, result.Category = module.Intent, module.Category
	}

	text := ""
	if elementData != nil {
		if s, ok := elementData["text"].(string); ok {
			text = s
		}
	}
	if content, ok := r.firstMatch(contentPatterns, text); ok {
		attributed = append(attributed, content)
		result.Intent, result.Category = content.Intent, content.Category
	}

	for _, rule := range attributed {
		result.Deltas[rule.Persona] += weight + rule.Weight
	}
	return result
}

func (r *Rules) firstMatch(table []Rule, haystack string) (Rule, bool) {
	for _, rule := range table {
		if r.matcher.Match(haystack, rule.Keywords) {
			return rule, true
		}
	}
	return Rule{}, false
}
