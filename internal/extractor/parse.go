package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// parsePrice strips currency symbols, thousands separators, and surrounding
// text from a scraped price string and returns the numeric value in won.
// Returns nil when no digits remain, so malformed markup degrades to an
// absent price rather than a bogus zero.
func parsePrice(raw string) *int64 {
	digits := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// hasDigits reports whether the string contains at least one digit.
func hasDigits(s string) bool {
	return nonDigits.ReplaceAllString(s, "") != ""
}
