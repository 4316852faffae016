// Package decision holds the trigger decision model, the AI response contract
// and its validation.
package decision

import (
	"encoding/json"
	"strings"

	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
)

// ActionType is a UI command the assistant may request.
type ActionType string

const (
	ActionHighlightElement ActionType = "highlight_element"
	ActionShowTooltip      ActionType = "show_tooltip"
	ActionScrollTo         ActionType = "scroll_to"
	ActionOpenModal        ActionType = "open_modal"
	ActionUpdateCalculator ActionType = "update_calculator"
	ActionSuggestProduct   ActionType = "suggest_product"
	ActionShowDiscount     ActionType = "show_discount"
	ActionChangeCSS        ActionType = "change_css"
	ActionRedirect         ActionType = "redirect"
	ActionNone             ActionType = "none"
)

// ActionTypes lists every accepted action value.
var ActionTypes = []ActionType{
	ActionHighlightElement, ActionShowTooltip, ActionScrollTo, ActionOpenModal,
	ActionUpdateCalculator, ActionSuggestProduct, ActionShowDiscount,
	ActionChangeCSS, ActionRedirect, ActionNone,
}

func isActionType(s string) bool {
	for _, a := range ActionTypes {
		if string(a) == s {
			return true
		}
	}
	return false
}

// AIResponse is a validated assistant reply.
type AIResponse struct {
	Thought       string         `json:"thought"`
	Response      string         `json:"response"`
	Action        ActionType     `json:"action,omitempty"`
	Target        string         `json:"target,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	PersonaUpdate persona.Type   `json:"persona_update,omitempty"`
}

// HasAction reports whether the reply carries a dispatchable UI action.
func (r *AIResponse) HasAction() bool {
	return r.Action != "" && r.Action != ActionNone
}

// ValidateResponse checks a decoded AI payload and converts it into an
// AIResponse. Any violation rejects the whole payload.
func ValidateResponse(raw any) (*AIResponse, error) {
	const op = "decision.validate"

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, failures.Validation(op, "response is not an object")
	}

	thought, err := requiredString(obj, "thought")
	if err != nil {
		return nil, failures.Validation(op, "%w", err)
	}
	response, err := requiredString(obj, "response")
	if err != nil {
		return nil, failures.Validation(op, "%w", err)
	}

	out := &AIResponse{Thought: thought, Response: response}

	if v, present := obj["action"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, failures.Validation(op, "action must be a string")
		}
		s = strings.TrimSpace(s)
		if s != "" {
			if !isActionType(s) {
				return nil, failures.Validation(op, "unknown action %q", s)
			}
			out.Action = ActionType(s)
		}
	}

	if v, present := obj["target"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, failures.Validation(op, "target must be a string")
		}
		out.Target = s
	}

	if v, present := obj["data"]; present && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, failures.Validation(op, "data must be an object")
		}
		out.Data = m
	}

	if v, present := obj["persona_update"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, failures.Validation(op, "persona_update must be a string")
		}
		if strings.TrimSpace(s) != "" {
			t, known := persona.ParseType(s)
			if !known {
				return nil, failures.Validation(op, "unknown persona_update %q", s)
			}
			out.PersonaUpdate = t
		}
	}

	return out, nil
}

// ValidateJSON decodes and validates a raw JSON document.
func ValidateJSON(raw []byte) (*AIResponse, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, failures.Validation("decision.validate", "malformed json: %v", err)
	}
	return ValidateResponse(decoded)
}

func requiredString(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", &fieldError{field: key, reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &fieldError{field: key, reason: "must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		return "", &fieldError{field: key, reason: "must not be empty"}
	}
	return s, nil
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string { return e.field + " " + e.reason }
