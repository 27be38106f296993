// src/security/validation/sanitizers.go
package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// strictHTMLPolicy strips every tag and attribute. Statement text is pasted
// from PDFs and mail clients and can carry markup fragments.
var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText removes all HTML from an input string. Applied to instrument
// names and other free text lifted from statements before they reach the
// report or the audit trail.
func SanitizeText(s string) string {
	return strictHTMLPolicy.Sanitize(s)
}

// SanitizeForFormulaInjection prepends a single quote when the string would
// be interpreted as a formula by Excel/LibreOffice/Sheets. Checked on the
// trimmed string, applied to the original to preserve formatting.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 {
		return s
	}

	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// StripUnprintable removes non-printable characters, keeping common
// whitespace.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
