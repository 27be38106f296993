package models

import "time"

// Side is the canonical direction of an execution.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is the unified representation of one matched execution. Each grammar
// parser is responsible for populating every field directly from the statement
// text, including the provenance tag identifying the section and reference
// that produced it.
type Trade struct {
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Currency  string    `json:"currency"`
	TradeDate time.Time `json:"trade_date"`
	Side      Side      `json:"side"`
	Quantity  float64   `json:"quantity"` // always > 0; direction lives in Side
	Price     float64   `json:"price"`    // per unit, trade currency
	Source    string    `json:"source"`   // e.g. "成交单据:12345678"
}

// Holding is an opening (period-start) position snapshot. Quantity may be
// zero or negative, meaning no open position; callers discard those.
type Holding struct {
	AccountID string  `json:"account_id"`
	Symbol    string  `json:"symbol"`
	Currency  string  `json:"currency"`
	Quantity  float64 `json:"quantity"`
	Name      string  `json:"name"`
}

// Period is the (year, month) a statement reports on.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before reports whether p is chronologically earlier than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// ParsedStatement is everything a grammar parser extracts from one document.
// A nil Period is the only parser-level failure signal: malformed or
// unrecognized documents produce an empty statement, never an error.
type ParsedStatement struct {
	Period    *Period   `json:"period"`
	Trades    []Trade   `json:"trades"`
	Holdings  []Holding `json:"holdings"`
	AccountID string    `json:"account_id"`
}

// Warning is a non-fatal advisory attached to the final report, used for
// cost-basis gaps and missing FX rates.
type Warning struct {
	AccountID string `json:"account_id,omitempty"`
	Symbol    string `json:"symbol"`
	Message   string `json:"message"`
}
