// Package knowledge defines the store-level facts the assistant is grounded on.
package knowledge

import (
	"context"
	"sort"
	"strings"
)

// Fact is one knowledge-base entry.
type Fact struct {
	Topic    string   `yaml:"topic" json:"topic"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Content  string   `yaml:"content" json:"content"`
	Always   bool     `yaml:"always" json:"always"` // included for every query
}

// Base looks up facts relevant to a query.
type Base interface {
	Relevant(ctx context.Context, query string, limit int) ([]Fact, error)
}

// Rank orders facts by keyword hits against query. Facts marked Always come
// first; facts with no hits are dropped.
func Rank(facts []Fact, query string, limit int) []Fact {
	q := strings.ToLower(query)
	type scored struct {
		fact Fact
		hits int
		idx  int
	}
	var picked []scored
	for i, f := range facts {
		hits := 0
		for _, kw := range f.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(q, kw) {
				hits++
			}
		}
		if f.Always {
			hits += 1000
		}
		if hits > 0 {
			picked = append(picked, scored{fact: f, hits: hits, idx: i})
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].hits != picked[j].hits {
			return picked[i].hits > picked[j].hits
		}
		return picked[i].idx < picked[j].idx
	})
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	out := make([]Fact, len(picked))
	for i, p := range picked {
		out[i] = p.fact
	}
	return out
}
