package services

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"
	"github.com/username/gainledger/src/database"
	"github.com/username/gainledger/src/processors"
	_ "modernc.org/sqlite"
)

const tradesOnlyStatement = `华泰国际证券
客户户口 : 111
月结单 (2025-03)

成交单据
20250300001 2025-03-05 买入 0700:HK 100.00 100 10,000.00 HKD 10.00
20250300002 2025-03-18 沽出 0700:HK 150.00 (40) 6,000.00 HKD 5.00
重要提示
`

const seededStatement = `华泰国际证券
客户户口 : 222
月结单 (2025-03)

成交单据
20250300003 2025-03-10 沽出 0005:HK 20.00 50 1,000.00 HKD 2.00

持货结存
HK - HONG KONG STOCK
0005 HSBC HOLDINGS 50 0 (50) 50 10.00 500.00
重要提示
`

func newTestService(t *testing.T) StatementService {
	t.Helper()
	return NewStatementService(t.TempDir(), 0.20, time.Minute, cache.New(time.Minute, 2*time.Minute))
}

func TestProcessBatchRealizesGains(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.ProcessBatch(BatchRequest{
		Files: []StatementFile{{Filename: "march.txt", Size: 100, Text: tradesOnlyStatement}},
		Rates: processors.RateTable{"HKD": 0.92},
	})
	require.NoError(t, err)
	require.Equal(t, 2025, res.Year)

	// One symbol row plus the trailing TOTAL row.
	require.Len(t, res.Rows, 2)
	row := res.Rows[0]
	require.Equal(t, "HTSC-111", row.AccountID)
	require.Equal(t, "0700", row.Symbol)
	require.Equal(t, "HKD", row.Currency)
	require.InDelta(t, 2000, row.Gain, 1e-9)
	require.InDelta(t, 0, row.Loss, 1e-9)
	require.InDelta(t, 2000, row.Net, 1e-9)
	require.InDelta(t, 400, row.TaxDue, 1e-9)
	require.NotNil(t, row.FXRate)
	require.InDelta(t, 1840, *row.NetCNY, 1e-6)
	require.False(t, row.CostMissing)

	total := res.Rows[1]
	require.Equal(t, "TOTAL", total.AccountID)
	require.InDelta(t, 2000, total.Net, 1e-9)
	require.InDelta(t, 400, total.TaxDue, 1e-9)

	require.NotEmpty(t, res.ReportToken)
	require.Equal(t, "tax_report_2025.xlsx", res.ReportFilename)

	path, err := svc.ReportPath(res.ReportToken)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestProcessBatchSeedsLotsFromAvgCosts(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.ProcessBatch(BatchRequest{
		Files: []StatementFile{{Filename: "march.txt", Text: seededStatement}},
		AvgCosts: processors.AvgCostBook{
			{AccountID: "*", Symbol: "0005", Currency: "HKD"}: 10.0,
		},
		Rates: processors.RateTable{"HKD": 0.92},
	})
	require.NoError(t, err)

	row := res.Rows[0]
	require.Equal(t, "0005", row.Symbol)
	require.InDelta(t, 500, row.Gain, 1e-9) // 50 * (20 - 10)
	require.False(t, row.CostMissing)
	require.Empty(t, res.Warnings)
}

func TestProcessBatchFlagsMissingSeedCost(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.ProcessBatch(BatchRequest{
		Files: []StatementFile{{Filename: "march.txt", Text: seededStatement}},
		Rates: processors.RateTable{"HKD": 0.92},
	})
	require.NoError(t, err)

	row := res.Rows[0]
	require.True(t, row.CostMissing)
	require.Contains(t, row.CostMissingReason, "no average cost provided")
	// Zero cost for all 50 sold shares.
	require.InDelta(t, 1000, row.Gain, 1e-9)
	require.NotEmpty(t, res.Warnings)
}

func TestProcessBatchTaxFloor(t *testing.T) {
	svc := newTestService(t)

	lossStatement := `客户户口 : 333
月结单 (2025-03)

成交单据
20250300004 2025-03-05 买入 0700:HK 200.00 100 20,000.00 HKD 10.00
20250300005 2025-03-18 沽出 0700:HK 150.00 100 15,000.00 HKD 5.00
`
	res, err := svc.ProcessBatch(BatchRequest{
		Files:        []StatementFile{{Filename: "march.txt", Text: lossStatement}},
		Rates:        processors.RateTable{"HKD": 0.92},
		TaxFloorZero: true,
	})
	require.NoError(t, err)

	row := res.Rows[0]
	require.InDelta(t, 5000, row.Loss, 1e-9)
	require.InDelta(t, -5000, row.Net, 1e-9)
	require.InDelta(t, 0, row.TaxDue, 1e-9)
}

func TestProcessBatchYearResolution(t *testing.T) {
	svc := newTestService(t)

	december := "客户户口 : 111\n月结单 (2024-12)\n"
	january := "客户户口 : 111\n月结单 (2025-01)\n"
	files := []StatementFile{
		{Filename: "dec.txt", Text: december},
		{Filename: "jan.txt", Text: january},
	}

	_, err := svc.ProcessBatch(BatchRequest{Files: files, Rates: processors.RateTable{}})
	require.ErrorIs(t, err, ErrMultipleYears)

	res, err := svc.ProcessBatch(BatchRequest{Files: files, Rates: processors.RateTable{}, TargetYear: 2025})
	require.NoError(t, err)
	require.Equal(t, 2025, res.Year)
}

func TestProcessBatchInputErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ProcessBatch(BatchRequest{})
	require.ErrorIs(t, err, ErrNoStatements)

	_, err = svc.ProcessBatch(BatchRequest{
		Files: []StatementFile{{Filename: "junk.txt", Text: "not a statement"}},
	})
	require.ErrorIs(t, err, ErrNoStatementPeriod)
}

func TestReportPathUnknownToken(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ReportPath("no-such-token")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestProcessBatchSeparatesAccounts(t *testing.T) {
	svc := newTestService(t)

	other := `客户户口 : 999
月结单 (2025-03)

成交单据
20250300006 2025-03-05 买入 0700:HK 100.00 10 1,000.00 HKD 1.00
20250300007 2025-03-10 沽出 0700:HK 110.00 10 1,100.00 HKD 1.00
`
	res, err := svc.ProcessBatch(BatchRequest{
		Files: []StatementFile{
			{Filename: "a.txt", Text: tradesOnlyStatement},
			{Filename: "b.txt", Text: other},
		},
		Rates: processors.RateTable{"HKD": 0.92},
	})
	require.NoError(t, err)

	// Two symbol rows in account order plus TOTAL.
	require.Len(t, res.Rows, 3)
	require.Equal(t, "HTSC-111", res.Rows[0].AccountID)
	require.Equal(t, "HTSC-999", res.Rows[1].AccountID)
	require.InDelta(t, 100, res.Rows[1].Gain, 1e-9)

	total := res.Rows[2]
	require.Equal(t, "TOTAL", total.AccountID)
	require.InDelta(t, 2100, total.Net, 1e-9)
}

func TestProcessBatchRecordsUploadHistory(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer db.Close()

	schema, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "000001_create_uploads_history.up.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	database.DB = db
	defer func() { database.DB = nil }()

	svc := newTestService(t)
	_, err = svc.ProcessBatch(BatchRequest{
		Files: []StatementFile{{Filename: "march.txt", Size: int64(len(seededStatement)), Text: seededStatement}},
		Rates: processors.RateTable{"HKD": 0.92},
	})
	require.NoError(t, err)

	var tradeCount, holdingCount int
	var accountID, period string
	err = db.QueryRow(
		"SELECT account_id, period, trade_count, holding_count FROM uploads_history WHERE filename = ?",
		"march.txt",
	).Scan(&accountID, &period, &tradeCount, &holdingCount)
	require.NoError(t, err)
	require.Equal(t, "HTSC-222", accountID)
	require.Equal(t, "2025-03", period)
	require.Equal(t, 1, tradeCount)
	require.Equal(t, 1, holdingCount)
}
