package utils

import "strings"

// NormalizePhone strips every non-digit rune, so "010-1234-5678" and
// "01012345678" compare equal in uniqueness checks.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeProviderPhone converts a social provider's number into the
// domestic leading-zero, no-separator format: "+82 10-1234-5678" becomes
// "01012345678". Empty input stays empty.
func NormalizeProviderPhone(s string) string {
	if strings.HasPrefix(s, "+82") {
		s = s[3:]
	}
	s = NormalizePhone(s)
	if s != "" && !strings.HasPrefix(s, "0") {
		s = "0" + s
	}
	return s
}
