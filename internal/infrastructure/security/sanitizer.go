package security

import (
	"reflect"
	"regexp"
	"strings"
)

// Replacement markers. None of them can be matched again by the value
// patterns, which keeps sanitization idempotent.
const (
	FilteredValue = "[FILTERED]"
	FilteredJWT   = "[JWT_FILTERED]"
	FilteredEmail = "[EMAIL_FILTERED]"
	FilteredCard  = "[CARD_FILTERED]"
	FilteredIP    = "[IP_FILTERED]"
	FilteredToken = "[TOKEN_FILTERED]"
	FilteredBlob  = "[OBJECT]"
)

var sensitiveKeyFragments = []string{
	"password", "passwd", "secret", "token", "credential", "session",
	"nonce", "cookie", "api_key", "apikey", "private_key",
}

// matched only as whole key segments so that e.g. "author" survives
var sensitiveKeySegments = map[string]bool{
	"auth":          true,
	"authorization": true,
	"salt":          true,
}

var valuePatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), FilteredJWT},
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), FilteredEmail},
	{regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`), FilteredCard},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), FilteredIP},
	{regexp.MustCompile(`\b[A-Za-z0-9]{32,}\b`), FilteredToken},
}

var keySplitter = regexp.MustCompile(`[^a-z0-9]+`)

// IsSensitiveKey reports whether values under key must be dropped entirely.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	for _, seg := range keySplitter.Split(k, -1) {
		if sensitiveKeySegments[seg] {
			return true
		}
	}
	return false
}

// SanitizeText masks secrets and personal data inside free text.
func SanitizeText(s string) string {
	for _, p := range valuePatterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// SanitizeMap returns a sanitized copy of m.
func SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if IsSensitiveKey(k) {
			out[k] = FilteredValue
			continue
		}
		out[k] = SanitizeValue(v)
	}
	return out
}

// SanitizeValue walks maps and slices, masking sensitive keys first and
// sensitive text second. Composite values it cannot walk become "[OBJECT]".
func SanitizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return SanitizeText(val)
	case map[string]any:
		return SanitizeMap(val)
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			if IsSensitiveKey(k) {
				out[k] = FilteredValue
				continue
			}
			out[k] = SanitizeText(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = SanitizeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = SanitizeText(s)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v
	case reflect.String:
		return SanitizeText(rv.String())
	default:
		return FilteredBlob
	}
}
