package logger

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var e164RE = regexp.MustCompile(`^(\+)(\d{1,3})(\d{3})(\d+)$`)

// MaskPhoneNumber masks a phone number for logging.
// Example: +5511987654321 -> +55119•••4321
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	phone = strings.TrimSpace(phone)

	matches := e164RE.FindStringSubmatch(phone)
	if len(matches) == 5 {
		countryCode := matches[2]
		first3 := matches[3]
		lastDigits := matches[4]

		if len(lastDigits) >= 4 {
			last4 := lastDigits[len(lastDigits)-4:]
			masked := strings.Repeat("•", len(lastDigits)-4)
			return "+" + countryCode + first3 + masked + last4
		}
	}

	// Fallback: mask all but last 4 characters
	if len(phone) > 4 {
		masked := strings.Repeat("•", len(phone)-4)
		return masked + phone[len(phone)-4:]
	}

	return strings.Repeat("•", len(phone))
}

// MaskPhone creates a zap field that masks phone numbers
func MaskPhone(key, phone string) zap.Field {
	return zap.String(key, MaskPhoneNumber(phone))
}

// MaskPhoneIfPresent masks phone if not empty
func MaskPhoneIfPresent(key, phone string) zap.Field {
	if phone == "" {
		return zap.String(key, "")
	}
	return MaskPhone(key, phone)
}
