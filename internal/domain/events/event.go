// Package events defines raw interaction events and the contract for storing them.
package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventType is the closed set of interaction kinds the storefront reports.
type EventType string

const (
	EventHover       EventType = "hover"
	EventClick       EventType = "click"
	EventLongView    EventType = "long_view"
	EventScrollTo    EventType = "scroll_to"
	EventModuleDwell EventType = "module_dwell"
	EventOther       EventType = "other"
)

// ParseEventType maps a wire value onto the closed set. Unknown values
// become EventOther so they are stored but carry no base weight.
func ParseEventType(s string) EventType {
	switch t := EventType(strings.ToLower(strings.TrimSpace(s))); t {
	case EventHover, EventClick, EventLongView, EventScrollTo, EventModuleDwell:
		return t
	default:
		return EventOther
	}
}

// InteractionEvent is one recorded interaction. Immutable once stored.
type InteractionEvent struct {
	ID             string         `json:"id"`
	UserIdentifier string         `json:"userIdentifier"`
	EventType      EventType      `json:"eventType"`
	ElementClass   string         `json:"elementClass"`
	ElementData    map[string]any `json:"elementData"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Text returns element_data.text when it is a string.
func (e InteractionEvent) Text() string {
	if e.ElementData == nil {
		return ""
	}
	if s, ok := e.ElementData["text"].(string); ok {
		return s
	}
	return ""
}

// DwellTime returns element_data.dwell_time in milliseconds. JSON numbers,
// integers and numeric strings are accepted.
func (e InteractionEvent) DwellTime() int64 {
	if e.ElementData == nil {
		return 0
	}
	return NumberOf(e.ElementData["dwell_time"])
}

// NumberOf coerces loosely typed payload values into an integer.
func NumberOf(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int64(f)
		}
	case fmt.Stringer:
		return NumberOf(n.String())
	}
	return 0
}

// Repository stores and reads interaction events.
type Repository interface {
	Store(ctx context.Context, event *InteractionEvent) error
	FindRecentByUser(ctx context.Context, userID string, since time.Time) ([]*InteractionEvent, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
