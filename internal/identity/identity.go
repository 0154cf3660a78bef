// Package identity derives the stable keys everything else is stored under:
// a merchant instance id from the shop domain and a customer key from a
// phone number.
package identity

import "strings"

// countryCode and trunkPrefix follow the Israeli numbering plan the service
// launched with.
const (
	countryCode = "972"
	trunkPrefix = "0"
)

// NormalizeDomain maps a shop domain to the merchant instance key: lowercase,
// runs of anything outside [a-z0-9] collapsed to a single dash, no leading or
// trailing dash. The same domain always yields the same key.
func NormalizeDomain(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	dash := false
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// FormatPhone normalizes a raw phone number to E.164-ish form. It returns
// the empty string when the input cannot be made into a dialable number;
// unformattable numbers are treated as absent, never passed through.
func FormatPhone(raw string) string {
	digits := keepDigits(raw)
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, countryCode):
		return "+" + digits
	case strings.HasPrefix(digits, trunkPrefix):
		return "+" + countryCode + digits[len(trunkPrefix):]
	case len(digits) >= 10 && len(digits) <= 15:
		return "+" + digits
	default:
		return ""
	}
}

func keepDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
