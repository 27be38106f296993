package models

// SummaryRow is one line of the final realized gain/loss report: a symbol
// within an account, or the trailing TOTAL row. Converted fields are nil when
// no FX rate was available for the row's currency.
type SummaryRow struct {
	AccountID         string   `json:"account_id"`
	Symbol            string   `json:"symbol"`
	SymbolName        string   `json:"symbol_name"`
	Currency          string   `json:"currency"`
	Gain              float64  `json:"gain"`
	Loss              float64  `json:"loss"`
	Net               float64  `json:"net"`
	TaxBase           float64  `json:"tax_base"`
	TaxDue            float64  `json:"tax_due"`
	FXRate            *float64 `json:"fx_rate"`
	NetCNY            *float64 `json:"net_cny"`
	TaxCNY            *float64 `json:"tax_cny"`
	CostMissing       bool     `json:"cost_missing"`
	CostMissingReason string   `json:"cost_missing_reason,omitempty"`
}

// ReportTotals aggregates the numeric columns across all summary rows.
type ReportTotals struct {
	Gain   float64 `json:"gain"`
	Loss   float64 `json:"loss"`
	Net    float64 `json:"net"`
	TaxDue float64 `json:"tax_due"`
	NetCNY float64 `json:"net_cny"`
	TaxCNY float64 `json:"tax_cny"`
}

// ECBResponse mirrors the subset of the ECB data API payload we read when
// deriving cross rates for currencies the caller did not supply.
type ECBResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]float64 `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
}
