package reports

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/username/gainledger/src/models"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookRoundTrip(t *testing.T) {
	t.Parallel()
	fx := 0.92
	net := 920.0
	tax := 184.0
	rows := []models.SummaryRow{
		{
			AccountID:  "HTSC-8881234",
			Symbol:     "0700",
			SymbolName: "TENCENT HOLDINGS",
			Currency:   "HKD",
			Gain:       1500,
			Loss:       -500,
			Net:        1000,
			TaxBase:    1000,
			TaxDue:     200,
			FXRate:     &fx,
			NetCNY:     &net,
			TaxCNY:     &tax,
		},
	}
	totals := models.ReportTotals{Gain: 1500, Loss: -500, Net: 1000, TaxDue: 200, NetCNY: 920, TaxCNY: 184}
	warnings := []models.Warning{{AccountID: "HTSC-8881234", Symbol: "0700", Message: "example"}}

	path := filepath.Join(t.TempDir(), "tax_report_2025.xlsx")
	wb := NewWorkbook()
	require.NoError(t, wb.AddSummary(rows, totals))
	require.NoError(t, wb.AddWarnings(warnings))
	require.NoError(t, wb.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	require.Equal(t, "0700", got)

	got, err = f.GetCellValue("Summary", "A3")
	require.NoError(t, err)
	require.Equal(t, "TOTAL", got)

	got, err = f.GetCellValue("Warnings", "C2")
	require.NoError(t, err)
	require.Equal(t, "example", got)

	// Default sheet must be gone.
	require.NotContains(t, f.GetSheetList(), "Sheet1")
}

func TestWorkbookNeutralizesFormulas(t *testing.T) {
	t.Parallel()
	rows := []models.SummaryRow{{
		AccountID:  "FUTU-1",
		Symbol:     "=HYPERLINK(\"http://evil\")",
		SymbolName: "+SUM(A1:A9)",
		Currency:   "HKD",
	}}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	wb := NewWorkbook()
	require.NoError(t, wb.AddSummary(rows, models.ReportTotals{}))
	require.NoError(t, wb.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	require.Equal(t, "'=HYPERLINK(\"http://evil\")", got)

	got, err = f.GetCellValue("Summary", "C2")
	require.NoError(t, err)
	require.Equal(t, "'+SUM(A1:A9)", got)
}
