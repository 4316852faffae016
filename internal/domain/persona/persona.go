// Package persona holds the persona archetypes, the pure scoring rules that
// turn interactions into score deltas, and the dominant-persona ranking.
package persona

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
)

// Type is a behavioral archetype.
type Type string

const (
	Author         Type = "author"
	Business       Type = "business"
	Designer       Type = "designer"
	Student        Type = "student"
	General        Type = "general"
	Publisher      Type = "publisher"
	LoyalCustomer  Type = "loyal_customer"
	CasualBrowser  Type = "casual_browser"
	PriceSensitive Type = "price_sensitive"
)

// AllTypes lists every persona type in alphabetical order.
var AllTypes = []Type{
	Author, Business, CasualBrowser, Designer, General,
	LoyalCustomer, PriceSensitive, Publisher, Student,
}

// ParseType returns the persona type for s and whether it is known.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Thresholds is the score at which a persona is considered fully confident.
type Thresholds map[Type]int

// DefaultThresholds returns the built-in per-persona thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Author:         100,
		Business:       80,
		Designer:       70,
		Student:        50,
		General:        0,
		Publisher:      100,
		LoyalCustomer:  60,
		CasualBrowser:  40,
		PriceSensitive: 60,
	}
}

// Score is one stored (user, persona) counter.
type Score struct {
	UserIdentifier string    `json:"userIdentifier"`
	PersonaType    Type      `json:"personaType"`
	Score          int       `json:"score"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Dominant is the derived ranking result for a user.
type Dominant struct {
	Type       Type         `json:"type"`
	Score      int          `json:"score"`
	Confidence float64      `json:"confidence"`
	AllScores  map[Type]int `json:"allScores"`
}

// Repository is the per-(user, persona) accumulating store. AddScore must be
// atomic per row.
type Repository interface {
	AddScore(ctx context.Context, userID string, personaType Type, delta int) error
	GetScores(ctx context.Context, userID string) (map[Type]int, error)
	Reset(ctx context.Context, userID string) error
}

// Resolve ranks scores and computes confidence against thresholds.
// Equal scores resolve alphabetically by persona type.
func Resolve(scores map[Type]int, thresholds Thresholds) Dominant {
	all := make(map[Type]int, len(scores))
	for t, s := range scores {
		all[t] = s
	}
	if len(scores) == 0 {
		return Dominant{Type: General, Score: 0, Confidence: 0, AllScores: all}
	}

	ranked := make([]Type, 0, len(scores))
	for t := range scores {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	top := ranked[0]
	return Dominant{
		Type:       top,
		Score:      scores[top],
		Confidence: Confidence(scores[top], thresholds[top]),
		AllScores:  all,
	}
}

// Confidence is min(100, round(score/threshold*100, 2)); a non-positive
// threshold yields 0.
func Confidence(score, threshold int) float64 {
	if threshold <= 0 || score <= 0 {
		return 0
	}
	c := math.Round(float64(score)/float64(threshold)*100*100) / 100
	return math.Min(100, c)
}

// Ranked returns all scores ordered the same way Resolve orders them.
func Ranked(scores map[Type]int) []Score {
	out := make([]Score, 0, len(scores))
	for t, s := range scores {
		out = append(out, Score{PersonaType: t, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PersonaType < out[j].PersonaType
	})
	return out
}
