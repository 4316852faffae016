package performance

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker
	order      []string
	alerts     []*PerformanceAlert
	thresholds *AlertThresholds
	config     *TrackerConfig
	mu         sync.RWMutex
	started    time.Time
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers   int  `json:"maxMarkers"`   // Maximum number of markers to retain
	MaxAlerts    int  `json:"maxAlerts"`    // Maximum number of alerts to retain
	EnableAlerts bool `json:"enableAlerts"` // Whether to generate performance alerts
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:   5000,
		MaxAlerts:    200,
		EnableAlerts: true,
	}
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"`
	AIInvocationThreshold     time.Duration `json:"aiInvocationThreshold"`
	TriggerThreshold          time.Duration `json:"triggerThreshold"`
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     time.Second * 2,
		CriticalResponseThreshold: time.Second * 10,
		AIInvocationThreshold:     time.Second * 15,
		TriggerThreshold:          time.Millisecond * 200,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		markers:    make(map[string]*Marker),
		thresholds: DefaultAlertThresholds(),
		config:     config,
		started:    time.Now(),
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, userID string) *Marker {
	marker := &Marker{
		Operation: operation,
		UserID:    userID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true,
	}
	markerID := fmt.Sprintf("%s_%s_%d", userID, operation, time.Now().UnixNano())

	t.mu.Lock()
	t.markers[markerID] = marker
	t.order = append(t.order, markerID)
	for len(t.order) > t.config.MaxMarkers {
		delete(t.markers, t.order[0])
		t.order = t.order[1:]
	}
	t.mu.Unlock()

	return marker
}

// CompleteOperation completes an operation and checks for alerts
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil {
		return
	}
	marker.Complete()
	if !t.config.EnableAlerts {
		return
	}
	snap := marker.snapshot()
	alerts := t.evaluateThresholds(snap)
	if len(alerts) == 0 {
		return
	}
	t.mu.Lock()
	t.alerts = append(t.alerts, alerts...)
	if len(t.alerts) > t.config.MaxAlerts {
		t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
	}
	t.mu.Unlock()
}

func (t *Tracker) evaluateThresholds(m Marker) []*PerformanceAlert {
	var alerts []*PerformanceAlert
	if m.Duration > t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, newAlert(m, AlertCritical, t.thresholds.CriticalResponseThreshold,
			"Operation exceeded critical response time threshold"))
	} else if m.Duration > t.thresholds.SlowResponseThreshold && !strings.HasPrefix(m.Operation, "ai") {
		alerts = append(alerts, newAlert(m, AlertWarning, t.thresholds.SlowResponseThreshold,
			"Operation exceeded slow response time threshold"))
	}

	switch {
	case strings.HasPrefix(m.Operation, "ai") && m.Duration > t.thresholds.AIInvocationThreshold:
		alerts = append(alerts, newAlert(m, AlertWarning, t.thresholds.AIInvocationThreshold,
			"AI invocation exceeded threshold"))
	case strings.HasPrefix(m.Operation, "trigger") && m.Duration > t.thresholds.TriggerThreshold:
		alerts = append(alerts, newAlert(m, AlertWarning, t.thresholds.TriggerThreshold,
			"Trigger evaluation exceeded threshold"))
	}
	return alerts
}

func newAlert(m Marker, severity AlertSeverity, threshold time.Duration, message string) *PerformanceAlert {
	return &PerformanceAlert{
		Timestamp: time.Now(),
		Severity:  severity,
		Operation: m.Operation,
		Threshold: threshold,
		Actual:    m.Duration,
		Message:   message,
	}
}

// GetAlerts returns a copy of the retained alerts
func (t *Tracker) GetAlerts() []*PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*PerformanceAlert, len(t.alerts))
	copy(out, t.alerts)
	return out
}

// GetOverallStats returns aggregate counts per operation
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	type opStats struct {
		Count    int           `json:"count"`
		Failures int           `json:"failures"`
		Average  time.Duration `json:"average"`
		total    time.Duration
	}
	ops := make(map[string]*opStats)
	for _, marker := range t.markers {
		m := marker.snapshot()
		if !m.Completed {
			continue
		}
		s, ok := ops[m.Operation]
		if !ok {
			s = &opStats{}
			ops[m.Operation] = s
		}
		s.Count++
		s.total += m.Duration
		if !m.Success {
			s.Failures++
		}
	}
	for _, s := range ops {
		s.Average = s.total / time.Duration(s.Count)
	}
	return map[string]any{
		"uptime":     time.Since(t.started).String(),
		"operations": ops,
		"alerts":     len(t.alerts),
	}
}
