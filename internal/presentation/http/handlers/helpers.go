// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
)

// statusFor maps a failure kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, failures.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, failures.ErrSecurityBlock):
		return http.StatusForbidden
	case errors.Is(err, failures.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, failures.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides storage and upstream causes from callers.
func publicMessage(err error) string {
	if errors.Is(err, failures.ErrValidation) {
		return err.Error()
	}
	return http.StatusText(statusFor(err))
}

// userIDParam reads and trims the :userId path parameter.
func userIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("userId"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return "", false
	}
	return id, true
}

// limitQuery reads ?limit= within [1, max], falling back to def.
func limitQuery(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
