package ai

import (
	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"google.golang.org/genai"
)

// DecisionSchema constrains model output to the assistant reply contract.
func DecisionSchema() *genai.Schema {
	actions := make([]string, len(decision.ActionTypes))
	for i, a := range decision.ActionTypes {
		actions[i] = string(a)
	}
	personas := make([]string, len(persona.AllTypes))
	for i, p := range persona.AllTypes {
		personas[i] = string(p)
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"thought":        {Type: genai.TypeString, Description: "Private reasoning about the visitor."},
			"response":       {Type: genai.TypeString, Description: "Reply shown to the visitor."},
			"action":         {Type: genai.TypeString, Enum: actions},
			"target":         {Type: genai.TypeString, Description: "CSS selector or URL the action applies to."},
			"data": {
				Type:     genai.TypeObject,
				Nullable: genai.Ptr(true),
				Properties: map[string]*genai.Schema{
					"message":          {Type: genai.TypeString},
					"product_id":       {Type: genai.TypeString},
					"url":              {Type: genai.TypeString},
					"css":              {Type: genai.TypeString},
					"quantity":         {Type: genai.TypeInteger},
					"discount_percent": {Type: genai.TypeNumber},
				},
			},
			"persona_update": {Type: genai.TypeString, Enum: personas, Nullable: genai.Ptr(true)},
		},
		Required:         []string{"thought", "response"},
		PropertyOrdering: []string{"thought", "response", "action", "target", "data", "persona_update"},
	}
}
