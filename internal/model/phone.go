package model

import "strings"

// NormalizeWhatsAppPhone strips formatting from a Brazilian phone number and
// ensures the 55 country code is present, e.g. "(34) 99868-6361" → "5534998686361".
// Unknown formats are returned digits-only, unprefixed.
func NormalizeWhatsAppPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return ""
	}

	// Drop the trunk zero from a dialed DDD (e.g. 034...).
	if len(clean) == 12 && strings.HasPrefix(clean, "0") {
		clean = clean[1:]
	}

	if strings.HasPrefix(clean, "55") && len(clean) >= 12 {
		return clean
	}
	if len(clean) == 10 || len(clean) == 11 {
		return "55" + clean
	}
	return clean
}
