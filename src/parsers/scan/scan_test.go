package scan

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSectionLines(t *testing.T) {
	t.Parallel()
	text := "preamble\nSTART\n a \n\nb\nEND\ntail"

	lines := SectionLines(text, "START", []string{"END"})
	require.Equal(t, []string{"a", "b"}, lines)
}

func TestSectionLinesNearestEndMarkerWins(t *testing.T) {
	t.Parallel()
	text := "START\na\nMID\nb\nEND\n"

	lines := SectionLines(text, "START", []string{"END", "MID"})
	require.Equal(t, []string{"a"}, lines)
}

func TestSectionLinesMissingMarkers(t *testing.T) {
	t.Parallel()
	require.Nil(t, SectionLines("no section here", "START", []string{"END"}))

	// A missing end marker runs the section to the end of text.
	lines := SectionLines("START\na\nb", "START", []string{"END"})
	require.Equal(t, []string{"a", "b"}, lines)
}

func TestParseNumber(t *testing.T) {
	t.Parallel()
	tests := []struct {
		token string
		want  float64
		ok    bool
	}{
		{"1,234.50", 1234.50, true},
		{"(2,000)", -2000, true},
		{"-15", -15, true},
		{"0.001", 0.001, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"()", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.token)
		require.Equal(t, tt.ok, ok, "token %q", tt.token)
		if ok {
			require.InDelta(t, tt.want, got, 1e-9, "token %q", tt.token)
		}
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()
	got, ok := ParseDate("2025-03-05", "-")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseDate("2025/03/05", "/")
	require.True(t, ok)
	require.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseDate("05-03-2025", "-")
	require.False(t, ok)
}

func TestCollapseDoubled(t *testing.T) {
	t.Parallel()
	// Overprinted bold doubles every character; digits and numeric
	// punctuation must survive untouched.
	require.Equal(t, "HKD", CollapseDoubled("HHKKDD"))
	require.Equal(t, "賣出", CollapseDoubled("賣賣出出"))
	require.Equal(t, "1100.00", CollapseDoubled("1100.00"))
	require.Equal(t, "2025/03/10", CollapseDoubled("2025/03/10"))
	require.Equal(t, "", CollapseDoubled(""))
}

func TestMergeWrappedLines(t *testing.T) {
	t.Parallel()
	opens := func(line string) bool {
		return strings.Count(line, "(") > strings.Count(line, ")")
	}
	lines := []string{"plain", "head (wrapped", "tail)", "after"}

	merged := MergeWrappedLines(lines, opens)
	require.Equal(t, []string{"plain", "head (wrappedtail)", "after"}, merged)
}

func TestMergeWrappedLinesUnterminatedBuffer(t *testing.T) {
	t.Parallel()
	opens := func(line string) bool {
		return strings.Count(line, "(") > strings.Count(line, ")")
	}
	merged := MergeWrappedLines([]string{"head (never closed"}, opens)
	require.Equal(t, []string{"head (never closed"}, merged)
}
