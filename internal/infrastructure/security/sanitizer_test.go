package security

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"email":   {"write to sara.k@example.co.ir please", "write to [EMAIL_FILTERED] please"},
		"jwt":     {"Bearer eyJhbGciOi.eyJzdWIiOiIx.c2lnbmF0dXJl", "Bearer [JWT_FILTERED]"},
		"card":    {"card 4111 1111 1111 1111 ok", "card [CARD_FILTERED] ok"},
		"ip":      {"from 192.168.1.20", "from [IP_FILTERED]"},
		"token":   {"key abcdefghijklmnopqrstuvwxyz0123456789", "key [TOKEN_FILTERED]"},
		"plain":   {"چاپ ۵۰۰ کارت ویزیت", "چاپ ۵۰۰ کارت ویزیت"},
		"phone":   {"call 09120000000", "call 09120000000"},
		"numbers": {"12000 flyers", "12000 flyers"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeText(tc.in))
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"password", "user_PASSWD", "apiKey", "api_key", "authToken", "session_id", "Authorization", "x-auth", "salt", "wp_nonce"} {
		assert.True(t, IsSensitiveKey(k), k)
	}
	for _, k := range []string{"author", "text", "dwell_time", "product", "salted_caramel"} {
		assert.False(t, IsSensitiveKey(k), k)
	}
}

type opaque struct{ Secret string }

func TestSanitizeValue_Nested(t *testing.T) {
	in := map[string]any{
		"text":     "contact me at a@b.com",
		"password": "hunter2",
		"author":   "Hafez",
		"profile": map[string]any{
			"api_key": "x",
			"ips":     []any{"10.0.0.1", 42, true},
		},
		"headers": map[string]string{"Authorization": "Bearer x", "Accept": "json"},
		"tags":    []string{"gold_foil", "me@x.io"},
		"raw":     opaque{Secret: "s"},
		"count":   3.5,
	}

	want := map[string]any{
		"text":     "contact me at [EMAIL_FILTERED]",
		"password": FilteredValue,
		"author":   "Hafez",
		"profile": map[string]any{
			"api_key": FilteredValue,
			"ips":     []any{FilteredIP, 42, true},
		},
		"headers": map[string]any{"Authorization": FilteredValue, "Accept": "json"},
		"tags":    []any{"gold_foil", FilteredEmail},
		"raw":     FilteredBlob,
		"count":   3.5,
	}

	got := SanitizeValue(in)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SanitizeValue mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeValue_Idempotent(t *testing.T) {
	inputs := []any{
		"mail x@y.com token abcdefghijklmnopqrstuvwxyzABCDEFGH from 1.2.3.4",
		map[string]any{"session": "abc", "nested": map[string]any{"note": "eyJa.eyJb.sig", "card": "5500-0000-0000-0004"}},
		[]any{"a@b.cd", map[string]any{"cookie": "c"}},
	}
	for _, in := range inputs {
		once := SanitizeValue(in)
		twice := SanitizeValue(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("not idempotent (-once +twice):\n%s", diff)
		}
	}
}
