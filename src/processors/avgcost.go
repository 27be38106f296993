// src/processors/avgcost.go
package processors

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CostKey addresses one override cost. AccountID "*" is a wildcard matching
// any account.
type CostKey struct {
	AccountID string
	Symbol    string
	Currency  string
}

// AvgCostBook holds externally supplied year-start average costs, consulted
// before the zero-cost last resort when FIFO lots run out.
type AvgCostBook map[CostKey]float64

// ParseAvgCostCSV reads the optional override file. Columns are symbol,
// currency, avg_cost and an optional account column; a header row naming
// symbol and currency is detected and skipped. Rows that do not parse are
// ignored, matching the tolerant posture of the statement parsers.
func ParseAvgCostCSV(r io.Reader) (AvgCostBook, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("avg cost csv: %w", err)
	}
	book := make(AvgCostBook)
	if len(records) == 0 {
		return book, nil
	}

	header := make([]string, len(records[0]))
	for i, cell := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	hasHeader := contains(header, "symbol") && contains(header, "currency")
	hasAccount := contains(header, "account") || contains(header, "account_id")

	rows := records
	if hasHeader {
		rows = records[1:]
	}
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(row[0]))
		currency := strings.ToUpper(strings.TrimSpace(row[1]))
		cost, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil || symbol == "" || currency == "" {
			continue
		}
		account := "*"
		if hasAccount && len(row) >= 4 {
			if cell := strings.TrimSpace(row[3]); cell != "" {
				account = cell
			}
		}
		book[CostKey{AccountID: account, Symbol: symbol, Currency: currency}] = cost
	}
	return book, nil
}

// Lookup resolves an override cost, preferring an account-specific entry over
// the wildcard.
func (b AvgCostBook) Lookup(accountID, symbol, currency string) (float64, bool) {
	if cost, ok := b[CostKey{AccountID: accountID, Symbol: symbol, Currency: currency}]; ok {
		return cost, true
	}
	cost, ok := b[CostKey{AccountID: "*", Symbol: symbol, Currency: currency}]
	return cost, ok
}

func contains(fields []string, want string) bool {
	for _, f := range fields {
		if f == want {
			return true
		}
	}
	return false
}
