// File: internal/command/url.go
package command

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// NormalizeURL prepends https:// to goto targets without a scheme. about:
// and data: URLs are kept as they are.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	lower := strings.ToLower(u)
	if schemePattern.MatchString(u) || strings.HasPrefix(lower, "about:") || strings.HasPrefix(lower, "data:") {
		return u
	}
	return "https://" + u
}
