// Package normalize canonicalizes lead fields for comparison. All
// functions are pure and never fail: malformed input yields an empty
// string, not an error.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	phoneStrip = regexp.MustCompile(`[\s\-()]+`)
	wwwPrefix  = regexp.MustCompile(`^www\.`)
)

// Domain extracts a comparable domain key from a URL. A missing scheme
// is tolerated ("beispiel.de" and "https://www.beispiel.de" map to the
// same key). Returns "" when no host can be parsed.
func Domain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}

	// Lowercase first so "WWW.Beispiel.DE" and "www.beispiel.de"
	// produce the same key.
	host := strings.ToLower(u.Host)
	return wwwPrefix.ReplaceAllString(host, "")
}

// Phone strips whitespace, hyphens, and parentheses. The leading '+'
// and all digits are kept, so "+49 30 1234567" and "+49301234567"
// collapse to the same key while remaining distinct from "030 1234567".
func Phone(phone string) string {
	return phoneStrip.ReplaceAllString(phone, "")
}

// Name lowercases and trims a business name. No transliteration:
// "Müller" and "Mueller" stay distinct on purpose.
func Name(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
