package logger

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Local parts of two characters or fewer are fully masked.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	local := parts[0]
	if len(local) > 2 {
		return local[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// redactValue masks emails in a log field. Fields whose key names an email or
// subscriber are masked outright; other fields have embedded addresses masked.
func redactValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") || strings.Contains(key, "subscriber") {
		return RedactEmail(val)
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}
