// Package futu interprets Futu securities monthly statement text. The layout
// is bilingual prose with two renderer quirks this package has to undo before
// matching: bold overprinting doubles characters, and trade header rows wrap
// their parenthetical company name onto the next physical line. Both are
// handled as isolated pre-processing passes.
package futu

import (
	"regexp"
	"strings"

	"github.com/username/gainledger/src/models"
	"github.com/username/gainledger/src/parsers/scan"
)

var (
	accountRe    = regexp.MustCompile(`[賬帳]戶號碼[:：]?\s*(\d{6,})`)
	periodRe     = regexp.MustCompile(`(\d{4})/(\d{2})`)
	headerRe     = regexp.MustCompile(`(買入|賣出|賣出平倉)\s+([A-Z0-9.]+)\(([^)]*)\)`)
	headerOpenRe = regexp.MustCompile(`(買入|賣出|賣出平倉)\s+([A-Z0-9.]+)\([^)]*$`)

	rowRe = regexp.MustCompile(
		`(SEHK|US)\s+(HKD|USD|CNH|JPY|SGD)\s+` +
			`(\d{4}/\d{2}/\d{2})\s+(\d{4}/\d{2}/\d{2})\s+` +
			`([\d,]+)\s+([\d.]+)\s+([\d,]+(?:\.\d+)?)`)

	openingRe = regexp.MustCompile(
		`^([A-Z0-9.]+)\(([^)]*)\)\s+(SEHK|US)\s+(HKD|USD|CNH|JPY|SGD)\s+` +
			`([\d,]+)\s+([\d.]+)\s+-\s+([\d,]+(?:\.\d+)?)`)

	optionCodeRe = regexp.MustCompile(`\d{6,}[CP]\d{4,}`)
)

const (
	tradesMarkerTrad = "交易--股票和股票期權"
	tradesMarkerSimp = "交易--股票和股票期权"
	fundsMarker      = "交易--基金"
)

// Parser interprets the Futu statement grammar.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// Parse extracts the statement period, trades and opening holdings. Like the
// other grammars it never fails; unrecognized documents produce a statement
// with a nil period.
func (p *Parser) Parse(text string) *models.ParsedStatement {
	text = scan.CollapseDoubled(text)
	st := &models.ParsedStatement{AccountID: accountID(text)}

	if m := periodRe.FindStringSubmatch(text); m != nil {
		year, _ := scan.ParseNumber(m[1])
		month, _ := scan.ParseNumber(m[2])
		st.Period = &models.Period{Year: int(year), Month: int(month)}
	}

	st.Trades = p.trades(text, st.AccountID)
	st.Holdings = p.openingHoldings(text, st.AccountID)
	return st
}

func accountID(text string) string {
	if m := accountRe.FindStringSubmatch(text); m != nil {
		return "FUTU-" + m[1]
	}
	return "FUTU-UNKNOWN"
}

// trades walks the stock-trades block line by line. A header row establishes
// the side, symbol and company name; the data rows that follow reuse that
// context until the next header. Wrapped headers are merged beforehand so the
// row grammar only ever sees complete logical lines.
func (p *Parser) trades(text, account string) []models.Trade {
	var trades []models.Trade

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	lines = scan.MergeWrappedLines(lines, func(line string) bool {
		return headerOpenRe.MatchString(line)
	})

	inTrades := false
	var side models.Side
	var symbol, name string
	reset := func() {
		side, symbol, name = "", "", ""
	}

	for _, line := range lines {
		if strings.Contains(line, tradesMarkerTrad) || strings.Contains(line, tradesMarkerSimp) {
			inTrades = true
			reset()
			continue
		}
		if inTrades && strings.Contains(line, fundsMarker) {
			inTrades = false
			reset()
			continue
		}
		if !inTrades {
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			side = sideFromLabel(m[1])
			symbol = m[2]
			name = strings.TrimSpace(m[3])
			continue
		}

		m := rowRe.FindStringSubmatch(line)
		if m == nil || symbol == "" || side == "" {
			continue
		}
		// Option contracts and cross-listed suffixes are out of scope.
		if strings.HasSuffix(symbol, ".US") || strings.HasSuffix(symbol, ".HK") || optionCodeRe.MatchString(symbol) {
			continue
		}
		tradeDate, okDate := scan.ParseDate(m[3], "/")
		qty, okQty := scan.ParseNumber(m[5])
		price, okPrice := scan.ParseNumber(m[6])
		if !okDate || !okQty || !okPrice {
			continue
		}
		trades = append(trades, models.Trade{
			AccountID: account,
			Symbol:    symbol,
			Name:      name,
			Currency:  m[2],
			TradeDate: tradeDate,
			Side:      side,
			Quantity:  abs(qty),
			Price:     price,
			Source:    "交易:" + symbol,
		})
	}
	return trades
}

// openingHoldings reads the period-start stock overview. The heading exists
// in both traditional and simplified script depending on statement vintage.
func (p *Parser) openingHoldings(text, account string) []models.Holding {
	endMarkers := []string{"期初概覽--基金", tradesMarkerTrad, tradesMarkerSimp}
	lines := scan.SectionLines(text, "期初概覽--股票和股票期權", endMarkers)
	if len(lines) == 0 {
		lines = scan.SectionLines(text, "期初概覽--股票和股票期权", endMarkers)
	}

	var holdings []models.Holding
	for _, line := range lines {
		m := openingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		symbol := m[1]
		if strings.HasSuffix(symbol, ".US") || strings.HasSuffix(symbol, ".HK") || optionCodeRe.MatchString(symbol) {
			continue
		}
		qty, ok := scan.ParseNumber(m[5])
		if !ok {
			continue
		}
		holdings = append(holdings, models.Holding{
			AccountID: account,
			Symbol:    symbol,
			Currency:  m[4],
			Quantity:  qty,
			Name:      strings.TrimSpace(m[2]),
		})
	}
	return holdings
}

func sideFromLabel(label string) models.Side {
	if label == "買入" {
		return models.SideBuy
	}
	return models.SideSell
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
