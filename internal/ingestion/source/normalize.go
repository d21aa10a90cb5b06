package source

import (
	"strings"
	"unicode/utf8"
)

// NormalizeCustomerID maps spreadsheet renderings ("17850.0", " 17850 ") and
// case variants onto the warehouse key.
func NormalizeCustomerID(raw string) string {
	s := strings.TrimSpace(sanitizeUTF8(raw))
	if s == "" {
		return ""
	}
	if strings.HasSuffix(s, ".0") && isDigits(strings.TrimSuffix(s, ".0")) {
		s = strings.TrimSuffix(s, ".0")
	}
	switch strings.ToLower(s) {
	case "nan", "null", "none":
		return ""
	}
	return strings.ToUpper(s)
}

func normalizeText(raw string) string {
	return collapseWhitespace(sanitizeUTF8(raw))
}

// NormalizeHeader lower-cases and trims a column name.
func NormalizeHeader(raw string) string {
	s := strings.TrimPrefix(raw, "\ufeff")
	return strings.ToLower(collapseWhitespace(s))
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

func sanitizeUTF8(s string) string {
	if s == "" || utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
