// src/reports/workbook.go
package reports

import (
	"fmt"
	"math"
	"strconv"

	"github.com/username/gainledger/src/models"
	"github.com/username/gainledger/src/security/validation"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	warningsSheet = "Warnings"
)

// Workbook accumulates report sheets and saves them as a single xlsx file.
type Workbook struct {
	f *excelize.File
}

func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// writeRows writes a sheet as a header row plus data rows and dresses it as
// an Excel table.
func (w *Workbook) writeRows(sheet string, rows [][]interface{}) error {
	w.f.NewSheet(sheet)

	for i := range rows {
		if err := w.f.SetSheetRow(sheet, "A"+strconv.Itoa(i+1), &rows[i]); err != nil {
			return err
		}
	}

	lowerRight, err := excelize.CoordinatesToCellName(len(rows[0]), len(rows))
	if err != nil {
		return err
	}
	return w.f.AddTable(sheet, "A1", lowerRight, tableOptions(sheet))
}

// AddSummary fills the main sheet: one row per account/symbol stream plus a
// trailing TOTAL row. Text cells are sanitized against formula injection
// since instrument names come straight from untrusted statement text.
func (w *Workbook) AddSummary(rows []models.SummaryRow, totals models.ReportTotals) error {
	sheetRows := [][]interface{}{{
		"Account", "Symbol", "Name", "Currency",
		"Gain", "Loss", "Net", "Tax Base", "Tax Due",
		"FX Rate (CNY)", "Net (CNY)", "Tax (CNY)", "Cost Basis Note",
	}}

	for _, r := range rows {
		note := ""
		if r.CostMissing {
			note = r.CostMissingReason
		}
		sheetRows = append(sheetRows, []interface{}{
			cellText(r.AccountID),
			cellText(r.Symbol),
			cellText(r.SymbolName),
			cellText(r.Currency),
			round2(r.Gain),
			round2(r.Loss),
			round2(r.Net),
			round2(r.TaxBase),
			round2(r.TaxDue),
			optional(r.FXRate, 4),
			optional(r.NetCNY, 2),
			optional(r.TaxCNY, 2),
			cellText(note),
		})
	}

	sheetRows = append(sheetRows, []interface{}{
		"TOTAL", "", "", "",
		round2(totals.Gain), round2(totals.Loss), round2(totals.Net),
		"", round2(totals.TaxDue),
		"", round2(totals.NetCNY), round2(totals.TaxCNY), "",
	})

	return w.writeRows(summarySheet, sheetRows)
}

// AddWarnings writes the advisory sheet. An empty warning list still gets a
// sheet so readers never wonder whether it was omitted.
func (w *Workbook) AddWarnings(warnings []models.Warning) error {
	sheetRows := [][]interface{}{{"Account", "Symbol", "Message"}}
	for _, warn := range warnings {
		sheetRows = append(sheetRows, []interface{}{
			cellText(warn.AccountID),
			cellText(warn.Symbol),
			cellText(warn.Message),
		})
	}
	return w.writeRows(warningsSheet, sheetRows)
}

// Save drops the default sheet and writes the workbook to path.
func (w *Workbook) Save(path string) error {
	w.f.DeleteSheet("Sheet1")
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func cellText(s string) string {
	return validation.SanitizeForFormulaInjection(validation.SanitizeText(s))
}

func round2(v float64) float64 {
	return roundDec(v, 2)
}

func optional(v *float64, places int) interface{} {
	if v == nil {
		return ""
	}
	return roundDec(*v, places)
}

// roundDec rounds a float to the given number of decimal places.
func roundDec(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}

func tableOptions(sheet string) string {
	return fmt.Sprintf(`{
        "table_name": "tbl%s",
        "table_style": "TableStyleMedium2",
        "show_first_column": true,
        "show_last_column": false,
        "show_row_stripes": false,
        "show_column_stripes": false
    }`, sheet)
}
