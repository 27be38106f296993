// Package huatai interprets Huatai (HTSC) monthly statement text. The layout
// is tabular: a trade-confirmation section, an account-activity section that
// repeats the same executions, and a closing-holdings section grouped by
// market. Lines that do not match the row grammar are incidental text
// (totals, disclaimers) and are skipped without comment.
package huatai

import (
	"regexp"
	"strings"

	"github.com/username/gainledger/src/models"
	"github.com/username/gainledger/src/parsers/scan"
)

var (
	periodRe  = regexp.MustCompile(`月结单\s*\((\d{4})-(\d{2})\)`)
	accountRe = regexp.MustCompile(`客户户口\s*:\s*(\d+)`)
	refLineRe = regexp.MustCompile(`^\d{8,}\s`)

	activityRe = regexp.MustCompile(
		`^(?P<ref>\d{8,})\s+(?P<settle>\d{4}-\d{2}-\d{2})\s+` +
			`(?P<trade>\d{4}-\d{2}-\d{2})\s+买卖交易\s+` +
			`(?P<side>买入|沽出|卖出平仓|买入开仓|卖出)\s+(?P<code>[A-Z0-9]+:(?:HK|US))\s+` +
			`(?P<name>.+?)\s+@(?P<price>[\d.]+)\s+(?P<qty>[\d,().-]+)`)

	ipoRe = regexp.MustCompile(
		`^(?P<ref>\d{8,})\s+(?P<settle>\d{4}-\d{2}-\d{2})\s+现货存入\s+` +
			`(?P<code>\d{4,5})\s+(?P<name>.+?)\s+.*?@(?P<price>[\d.]+)\s+` +
			`(?P<qty>[\d,]+)`)

	optionCodeRe  = regexp.MustCompile(`\d{6,}[CP]\d{4,}`)
	holdingLeadRe = regexp.MustCompile(`^[A-Z0-9]`)
)

// sideVocabulary maps the statement's side labels to the canonical enum.
// Unlisted labels cause the line to be skipped, not a failure.
var sideVocabulary = map[string]models.Side{
	"买入":   models.SideBuy,
	"买入开仓": models.SideBuy,
	"卖出":   models.SideSell,
	"沽出":   models.SideSell,
	"卖出平仓": models.SideSell,
}

// Parser interprets the Huatai statement grammar.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

// Parse extracts the statement period, trades and closing holdings from the
// full document text. It never returns an error; an unrecognizable document
// yields a statement with a nil period.
func (p *Parser) Parse(text string) *models.ParsedStatement {
	st := &models.ParsedStatement{AccountID: accountID(text)}

	if m := periodRe.FindStringSubmatch(text); m != nil {
		year, _ := scan.ParseNumber(m[1])
		month, _ := scan.ParseNumber(m[2])
		st.Period = &models.Period{Year: int(year), Month: int(month)}
	}

	st.Trades = append(st.Trades, p.confirmationTrades(text, st.AccountID)...)
	st.Trades = append(st.Trades, p.activityTrades(text, st.AccountID)...)
	st.Trades = append(st.Trades, p.ipoAllotments(text, st.AccountID)...)
	st.Holdings = p.closingHoldings(text, st.AccountID)
	return st
}

func accountID(text string) string {
	if m := accountRe.FindStringSubmatch(text); m != nil {
		return "HTSC-" + m[1]
	}
	return "HTSC-UNKNOWN"
}

// confirmationTrades reads the 成交单据 (trade confirmation) section:
// whitespace-separated columns of ref, settle date, side, code, price, qty.
func (p *Parser) confirmationTrades(text, account string) []models.Trade {
	var trades []models.Trade
	lines := scan.SectionLines(text, "成交单据", []string{"户口变动", "持货结存"})
	for _, line := range lines {
		if !refLineRe.MatchString(line) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 9 {
			continue
		}
		settle, ok := scan.ParseDate(parts[1], "-")
		if !ok {
			continue
		}
		side, ok := sideVocabulary[parts[2]]
		if !ok {
			continue
		}
		code := parts[3]
		price, okPrice := scan.ParseNumber(parts[4])
		qty, okQty := scan.ParseNumber(parts[5])
		if !okPrice || !okQty {
			continue
		}
		currency, ok := currencyFromCode(code)
		if !ok || strings.Contains(code, ":FUND") {
			continue
		}
		trades = append(trades, models.Trade{
			AccountID: account,
			Symbol:    normalizeSymbol(code),
			Currency:  currency,
			TradeDate: settle,
			Side:      side,
			Quantity:  abs(qty),
			Price:     price,
			Source:    "成交单据:" + parts[0],
		})
	}
	return trades
}

// activityTrades reads the 买卖交易 rows of the 户口变动 (account activity)
// section. These repeat the executions already present in the confirmation
// log; both lists are emitted and the caller decides how to combine them.
func (p *Parser) activityTrades(text, account string) []models.Trade {
	var trades []models.Trade
	lines := scan.SectionLines(text, "户口变动", []string{"持货结存"})
	for _, line := range lines {
		if !strings.Contains(line, "买卖交易") {
			continue
		}
		m := activityRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		group := matchGroups(activityRe, m)
		tradeDate, ok := scan.ParseDate(group["trade"], "-")
		if !ok {
			continue
		}
		side, ok := sideVocabulary[group["side"]]
		if !ok {
			continue
		}
		code := group["code"]
		currency, ok := currencyFromCode(code)
		if !ok {
			continue
		}
		price, okPrice := scan.ParseNumber(group["price"])
		qty, okQty := scan.ParseNumber(group["qty"])
		if !okPrice || !okQty {
			continue
		}
		trades = append(trades, models.Trade{
			AccountID: account,
			Symbol:    normalizeSymbol(code),
			Name:      strings.TrimSpace(group["name"]),
			Currency:  currency,
			TradeDate: tradeDate,
			Side:      side,
			Quantity:  abs(qty),
			Price:     price,
			Source:    "户口变动:" + group["ref"],
		})
	}
	return trades
}

// ipoAllotments reads 现货存入 (stock deposit) rows that represent successful
// IPO allotments. These enter the ledger as HKD buys at the allotment price.
func (p *Parser) ipoAllotments(text, account string) []models.Trade {
	var trades []models.Trade
	lines := scan.SectionLines(text, "户口变动", []string{"持货结存"})
	for _, line := range lines {
		if !strings.Contains(line, "现货存入") {
			continue
		}
		if !strings.Contains(line, "Successful IPO") && !strings.Contains(line, "新股") {
			continue
		}
		m := ipoRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		group := matchGroups(ipoRe, m)
		settle, ok := scan.ParseDate(group["settle"], "-")
		if !ok {
			continue
		}
		price, okPrice := scan.ParseNumber(group["price"])
		qty, okQty := scan.ParseNumber(group["qty"])
		if !okPrice || !okQty {
			continue
		}
		trades = append(trades, models.Trade{
			AccountID: account,
			Symbol:    group["code"],
			Name:      strings.TrimSpace(group["name"]),
			Currency:  "HKD",
			TradeDate: settle,
			Side:      models.SideBuy,
			Quantity:  abs(qty),
			Price:     price,
			Source:    "现货存入:" + group["ref"],
		})
	}
	return trades
}

// closingHoldings reads the 持货结存 section. Market heading lines switch the
// currency context; rows under the fund heading are ignored, and option codes
// are filtered so only cash equities remain.
func (p *Parser) closingHoldings(text, account string) []models.Holding {
	var holdings []models.Holding
	lines := scan.SectionLines(text, "持货结存", []string{"股票借贷资料", "重要提示"})
	currency := ""
	for _, line := range lines {
		switch {
		case strings.Contains(line, "HK - HONG KONG STOCK"):
			currency = "HKD"
			continue
		case strings.Contains(line, "US - U.S. STOCK"):
			currency = "USD"
			continue
		case strings.Contains(line, "FUND - FUND"):
			currency = ""
			continue
		}
		if currency == "" || !holdingLeadRe.MatchString(line) {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 3 {
			continue
		}
		code := strings.ReplaceAll(tokens[0], "*", "")
		if optionCodeRe.MatchString(code) {
			continue
		}
		numIdx := -1
		for i := 1; i < len(tokens); i++ {
			if _, ok := scan.ParseNumber(tokens[i]); ok {
				numIdx = i
				break
			}
		}
		if numIdx < 0 {
			continue
		}
		name := strings.TrimSpace(strings.Join(tokens[1:numIdx], " "))
		var nums []float64
		for _, tok := range tokens[numIdx:] {
			if v, ok := scan.ParseNumber(tok); ok {
				nums = append(nums, v)
			}
		}
		// Columns run previous balance, in, out, net; the net quantity
		// is the fourth numeric token.
		if len(nums) < 4 {
			continue
		}
		holdings = append(holdings, models.Holding{
			AccountID: account,
			Symbol:    code,
			Currency:  currency,
			Quantity:  nums[3],
			Name:      name,
		})
	}
	return holdings
}

func currencyFromCode(code string) (string, bool) {
	switch {
	case strings.HasSuffix(code, ":HK"):
		return "HKD", true
	case strings.HasSuffix(code, ":US"):
		return "USD", true
	}
	return "", false
}

func normalizeSymbol(code string) string {
	sym, _, _ := strings.Cut(code, ":")
	return strings.ReplaceAll(sym, "*", "")
}

func matchGroups(re *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	return groups
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
