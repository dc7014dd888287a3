package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leadpilot/outreach-backend/pkg/errors"
)

// ValidateUUIDParam validates that an ID parameter is a valid UUID
func ValidateUUIDParam(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			errors.BadRequest(c, paramName+" parameter is required")
			c.Abort()
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			errors.BadRequest(c, "invalid "+paramName+" parameter: must be a UUID")
			c.Abort()
			return
		}

		c.Set(paramName, idStr)
		c.Next()
	}
}

// ValidatePhoneParam validates that a phone parameter is in E.164 format
func ValidatePhoneParam(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.Param(paramName)
		if phone == "" {
			errors.BadRequest(c, paramName+" parameter is required")
			c.Abort()
			return
		}

		// Basic E.164 validation
		if !strings.HasPrefix(phone, "+") || len(phone) < 8 || len(phone) > 16 {
			errors.BadRequest(c, "invalid "+paramName+": must be in E.164 format (e.g., +5511987654321)")
			c.Abort()
			return
		}

		c.Set(paramName, phone)
		c.Next()
	}
}

// SanitizeString removes potentially dangerous characters from strings
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}

// ValidateSendWindow validates an "HH:MM" working window pair
func ValidateSendWindow(start, end string) error {
	if err := validateClock(start, "window start"); err != nil {
		return err
	}
	if err := validateClock(end, "window end"); err != nil {
		return err
	}
	if start >= end {
		return &ValidationError{Message: "window start must be before window end"}
	}
	return nil
}

func validateClock(value, label string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return &ValidationError{Message: label + " must be in HH:MM format"}
	}
	hh := parts[0]
	mm := parts[1]
	if hh < "00" || hh > "23" || mm < "00" || mm > "59" {
		return &ValidationError{Message: label + " must be a valid time of day"}
	}
	for _, r := range hh + mm {
		if r < '0' || r > '9' {
			return &ValidationError{Message: label + " must be in HH:MM format"}
		}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
