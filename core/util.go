package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// StringInSlice reports whether `s` is one of `slice`.
func StringInSlice(s string, slice []string) bool {
	for _, el := range slice {
		if el == s {
			return true
		}
	}
	return false
}
