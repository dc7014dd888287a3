package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

func ValidateE164(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}

	phone = strings.TrimSpace(phone)

	if !e164Regex.MatchString(phone) {
		return fmt.Errorf("phone number must be in E.164 format (e.g., +5511987654321)")
	}

	return nil
}

// NormalizeE164 strips formatting characters and, for bare national
// numbers, assumes Brazil (+55). Mobile numbers are 11 digits (2-digit
// area code + 9 prefix), landlines 10.
func NormalizeE164(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")

	if !strings.HasPrefix(phone, "+") {
		if strings.HasPrefix(phone, "55") && len(phone) >= 12 && len(phone) <= 13 {
			phone = "+" + phone
		} else if len(phone) == 10 || len(phone) == 11 {
			phone = "+55" + phone
		} else {
			return "", fmt.Errorf("cannot normalize phone number: %s", phone)
		}
	}

	if err := ValidateE164(phone); err != nil {
		return "", err
	}

	return phone, nil
}
