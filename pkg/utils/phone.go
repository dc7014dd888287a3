package utils

import (
	"regexp"
	"strings"
)

// MaskPhoneNumber masks a phone number for logging
// Example: +5511987654321 -> +5511•••••4321
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	phone = strings.TrimSpace(phone)

	// E.164 format: +[country][number]
	// Show country code + first 2-3 digits, mask the middle, show last 4
	re := regexp.MustCompile(`^(\+)(\d{1,3})(\d{2})(\d+)$`)
	matches := re.FindStringSubmatch(phone)

	if len(matches) == 5 {
		countryCode := matches[2]
		prefix := matches[3]
		lastDigits := matches[4]

		if len(lastDigits) >= 4 {
			last4 := lastDigits[len(lastDigits)-4:]
			masked := strings.Repeat("•", len(lastDigits)-4)
			return "+" + countryCode + prefix + masked + last4
		}
	}

	// Fallback: mask all but last 4 characters
	if len(phone) > 4 {
		masked := strings.Repeat("•", len(phone)-4)
		return masked + phone[len(phone)-4:]
	}

	return strings.Repeat("•", len(phone))
}

// MaskEmail masks the local part of an email address for logging
// Example: ana.souza@empresa.com.br -> an•••••@empresa.com.br
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 {
		return strings.Repeat("•", len(email))
	}
	local := email[:at]
	if len(local) <= 2 {
		return strings.Repeat("•", len(local)) + email[at:]
	}
	return local[:2] + strings.Repeat("•", len(local)-2) + email[at:]
}

// ValidateE164 validates E.164 phone number format
func ValidateE164(phone string) bool {
	re := regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	return re.MatchString(phone)
}
