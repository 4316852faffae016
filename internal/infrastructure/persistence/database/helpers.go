// Package database provides database helper functions
package database

import (
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// TimeLayout is the on-disk timestamp format. Fixed width so that string
// comparison orders rows chronologically.
const TimeLayout = "2006-01-02 15:04:05.000"

// FormatTime renders t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp. Legacy second-precision and RFC3339
// values are accepted; anything else yields the zero time.
func ParseTime(s string) time.Time {
	for _, layout := range []string{TimeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetSlowQueryThreshold returns the configured slow query threshold
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery checks if a query duration exceeds threshold
// and logs it using the slow query channel if it does
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration, userID string) {
	threshold := GetSlowQueryThreshold()

	// purges scan the whole event table
	if strings.HasPrefix(query, "PURGE_") {
		threshold *= 3
	}

	if duration > threshold {
		logger.LogSlowQuery(query, duration, userID)
	}
}
