package logging

import "strings"

// MaskEmail hides the local part of an email address for log output,
// keeping its first and last characters: "alice@example.com" becomes
// "a***e@example.com". Values without "@" are returned unchanged.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}

	r := []rune(local)
	switch len(r) {
	case 0:
		return "@" + domain
	case 1:
		return "*@" + domain
	case 2:
		return string(r[0]) + "*@" + domain
	default:
		return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1]) + "@" + domain
	}
}
