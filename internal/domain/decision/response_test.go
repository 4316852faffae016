package decision

import (
	"testing"

	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateResponse_MinimalWithNoneAction(t *testing.T) {
	got, err := ValidateResponse(map[string]any{
		"thought":  "user compares prices",
		"response": "سلام! چطور می‌توانم کمک کنم؟",
		"action":   "none",
	})

	require.NoError(t, err)
	assert.Equal(t, ActionNone, got.Action)
	assert.False(t, got.HasAction())
}

func TestValidateResponse_RejectsMissingRequired(t *testing.T) {
	cases := map[string]map[string]any{
		"missing thought":  {"response": "hi"},
		"missing response": {"thought": "x"},
		"empty response":   {"thought": "x", "response": "  "},
		"wrong type":       {"thought": 3, "response": "hi"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ValidateResponse(raw)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, failures.ErrValidation)
		})
	}
}

func TestValidateResponse_RejectsWholesale(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown action":  {"thought": "x", "response": "y", "action": "launch_rocket"},
		"unknown persona": {"thought": "x", "response": "y", "persona_update": "wizard"},
		"data not object": {"thought": "x", "response": "y", "data": []any{1}},
		"target numeric":  {"thought": "x", "response": "y", "target": 4},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ValidateResponse(raw)
			assert.Nil(t, got)
			assert.Error(t, err)
		})
	}
}

func TestValidateResponse_FullPayload(t *testing.T) {
	got, err := ValidateJSON([]byte(`{
		"thought": "wants foil pricing",
		"response": "قیمت طلاکوب را ببینید",
		"action": "highlight_element",
		"target": "#price-calculator",
		"data": {"color": "gold"},
		"persona_update": "business"
	}`))

	require.NoError(t, err)
	assert.Equal(t, ActionHighlightElement, got.Action)
	assert.True(t, got.HasAction())
	assert.Equal(t, "#price-calculator", got.Target)
	assert.Equal(t, "gold", got.Data["color"])
	assert.Equal(t, persona.Business, got.PersonaUpdate)
}

func TestValidateResponse_NotAnObject(t *testing.T) {
	_, err := ValidateResponse([]any{"thought"})
	assert.ErrorIs(t, err, failures.ErrValidation)

	_, err = ValidateJSON([]byte(`{"thought":`))
	assert.ErrorIs(t, err, failures.ErrValidation)
}
