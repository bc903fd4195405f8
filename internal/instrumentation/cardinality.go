package instrumentation

import "strings"

// ExtractSenderDomain extracts the domain part from an email address.
// Metrics and non-PII logs use the domain instead of the full address.
//
// Example:
//
//	ExtractSenderDomain("jane@example.com")  // "example.com"
//	ExtractSenderDomain("invalid")           // "unknown"
//	ExtractSenderDomain("")                  // "unknown"
func ExtractSenderDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}
