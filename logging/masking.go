package logging

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// MaskEmail masks the local part of an email address, keeping the domain
// so logs stay useful for correlation without leaking the buyer's full
// address. Non-email input is masked wholesale.
func MaskEmail(email string) string {
	if !emailPattern.MatchString(email) {
		return maskString(email)
	}
	parts := strings.SplitN(email, "@", 2)
	return maskString(parts[0]) + "@" + parts[1]
}

// maskString keeps the first and last character, masking everything between.
func maskString(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return string(s[0]) + strings.Repeat("*", len(s)-2) + string(s[len(s)-1])
}
