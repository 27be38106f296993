// Package parsers routes statement text to the grammar that can interpret it.
package parsers

import (
	"strings"

	"github.com/username/gainledger/src/models"
	"github.com/username/gainledger/src/parsers/futu"
	"github.com/username/gainledger/src/parsers/huatai"
)

// Parser is one broker grammar: full statement text in, canonical records
// out. Implementations never fail on malformed input; a document the grammar
// cannot read comes back with a nil period.
type Parser interface {
	Parse(text string) *models.ParsedStatement
}

// futuMarkers are phrases unique to Futu statements. Huatai is the fallback
// grammar: a document matching neither set of markers is still handed to it,
// and the failure surfaces downstream as a missing statement period rather
// than a dispatch error.
var futuMarkers = []string{"保證金綜合帳戶", "證券月結單"}

// Detect picks the grammar for the given document text.
func Detect(text string) Parser {
	for _, marker := range futuMarkers {
		if strings.Contains(text, marker) {
			return futu.NewParser()
		}
	}
	return huatai.NewParser()
}

// Parse dispatches the document to its grammar and returns the canonical
// statement.
func Parse(text string) *models.ParsedStatement {
	return Detect(text).Parse(text)
}
