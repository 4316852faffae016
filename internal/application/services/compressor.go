package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
)

// MaxConversationFacts caps how many facts survive compression.
const MaxConversationFacts = 10

// charsPerToken approximates tokens from characters.
const charsPerToken = 4

// ConversationKeywords mark sentences worth keeping even without numbers.
var ConversationKeywords = []string{
	"price", "quantity", "deadline", "budget", "order", "delivery", "paper",
	"book", "business card", "brochure", "catalog", "packaging", "sticker", "flyer",
	"foil", "uv", "size", "color",
	"قیمت", "تعداد", "تیراژ", "سفارش", "تحویل", "بودجه", "کاغذ", "کتاب",
	"کارت ویزیت", "بروشور", "کاتالوگ", "بسته بندی", "استیکر", "طلاکوب", "سایز", "رنگ",
}

// Compressor turns chat history into a short list of facts.
type Compressor struct {
	Keywords    []string
	TokenBudget int
}

// NewCompressor returns a compressor with the default keywords.
func NewCompressor(tokenBudget int) *Compressor {
	if tokenBudget <= 0 {
		tokenBudget = 500
	}
	return &Compressor{Keywords: ConversationKeywords, TokenBudget: tokenBudget}
}

// Facts extracts numeric mentions and keyword hits from messages, oldest
// first, deduplicated and capped at MaxConversationFacts most recent.
func (c *Compressor) Facts(messages []*decision.Message) []string {
	var facts []string
	seen := make(map[string]bool)
	for _, m := range messages {
		if m == nil {
			continue
		}
		for _, sentence := range splitSentences(m.Content) {
			if !hasDigit(sentence) && !c.hasKeyword(sentence) {
				continue
			}
			fact := string(m.Role) + ": " + sentence
			key := strings.ToLower(fact)
			if seen[key] {
				continue
			}
			seen[key] = true
			facts = append(facts, fact)
		}
	}
	if len(facts) > MaxConversationFacts {
		facts = facts[len(facts)-MaxConversationFacts:]
	}
	return facts
}

// Compress renders the facts as a bullet list within the token budget.
func (c *Compressor) Compress(messages []*decision.Message) string {
	facts := c.Facts(messages)
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range facts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(f)
	}
	return Truncate(b.String(), c.TokenBudget*charsPerToken)
}

func (c *Compressor) hasKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range c.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Truncate limits s to maxChars runes, ending with "..." when cut.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	keep := maxChars - 3
	if keep < 0 {
		keep = 0
	}
	runes := 0
	for i := range s {
		if runes == keep {
			return s[:i] + "..."
		}
		runes++
	}
	return s + "..."
}

// hasDigit reports ASCII, Persian or Arabic-Indic digits.
func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// splitSentences breaks text on sentence punctuation and newlines. A period
// between two digits is a decimal point, not a boundary.
func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	flush := func(end int) {
		if p := strings.TrimSpace(string(runes[start:end])); p != "" {
			out = append(out, p)
		}
		start = end + 1
	}
	for i, r := range runes {
		switch r {
		case '.':
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			flush(i)
		case '!', '?', '؟', '\n', '؛', ';':
			flush(i)
		}
	}
	if start < len(runes) {
		flush(len(runes))
	}
	return out
}
