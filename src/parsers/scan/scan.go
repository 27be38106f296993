// Package scan holds the text utilities shared by the grammar parsers:
// section isolation, tolerant numeric and date parsing, and the pre-processing
// passes that undo document-renderer quirks. Malformed input yields ok=false
// or an empty result, never an error.
package scan

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// SectionLines returns the trimmed, non-empty lines between the first
// occurrence of startMarker and the nearest following end marker. When no end
// marker is found the section runs to the end of the text; when the start
// marker is absent the result is empty. Statements do not always contain
// every section, so a missing one is not an error.
func SectionLines(text, startMarker string, endMarkers []string) []string {
	start := strings.Index(text, startMarker)
	if start < 0 {
		return nil
	}
	sub := text[start+len(startMarker):]
	end := len(sub)
	for _, marker := range endMarkers {
		if idx := strings.Index(sub, marker); idx >= 0 && idx < end {
			end = idx
		}
	}
	var lines []string
	for _, line := range strings.Split(sub[:end], "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// ParseNumber parses a statement numeric token: thousands separators are
// stripped and a parenthesized token is negative. Unparseable tokens report
// ok=false so the caller can skip the line.
func ParseNumber(token string) (float64, bool) {
	token = strings.TrimSpace(strings.ReplaceAll(token, ",", ""))
	if token == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")") {
		neg = true
		token = token[1 : len(token)-1]
	}
	val, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		val = -val
	}
	return val, true
}

// ParseDate parses a YYYY<sep>MM<sep>DD token where sep is "-" or "/".
func ParseDate(token, sep string) (time.Time, bool) {
	layout := "2006-01-02"
	if sep == "/" {
		layout = "2006/01/02"
	}
	t, err := time.Parse(layout, strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CollapseDoubled collapses runs of the same character down to one occurrence.
// Some renderers emulate bold by overprinting, which the page-text extraction
// turns into doubled characters ("HHKKDD"). Digits and the punctuation used in
// numeric and date tokens are kept verbatim so quantities like "1100" survive.
func CollapseDoubled(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var prev rune
	for _, ch := range text {
		if ch == prev && !unicode.IsDigit(ch) && !strings.ContainsRune(".,-()/", ch) {
			continue
		}
		b.WriteRune(ch)
		prev = ch
	}
	return b.String()
}

// MergeWrappedLines joins physical lines that belong to one logical row.
// opensWrap reports whether a line starts a row whose trailing parenthetical
// continues on the next line; buffered lines are concatenated until the
// parentheses balance again. The grammar owning the row format supplies the
// predicate, keeping this pass free of pattern-matching concerns.
func MergeWrappedLines(lines []string, opensWrap func(string) bool) []string {
	var merged []string
	var buffer string
	for _, line := range lines {
		if buffer != "" {
			buffer += line
			if strings.Count(buffer, "(") <= strings.Count(buffer, ")") {
				merged = append(merged, buffer)
				buffer = ""
			}
			continue
		}
		if opensWrap(line) {
			buffer = line
			continue
		}
		merged = append(merged, line)
	}
	if buffer != "" {
		merged = append(merged, buffer)
	}
	return merged
}
