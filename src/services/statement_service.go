// src/services/statement_service.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/gainledger/src/database"
	"github.com/username/gainledger/src/fifo"
	"github.com/username/gainledger/src/logger"
	"github.com/username/gainledger/src/models"
	"github.com/username/gainledger/src/parsers"
	"github.com/username/gainledger/src/reports"
)

const missingSeedCostMessage = "Year-start holding detected but no average cost provided. " +
	"If this stock is sold before new buys, a 0 cost will be used."

type statementServiceImpl struct {
	reportDir   string
	taxRate     float64
	reportTTL   time.Duration
	reportStore *cache.Cache
}

func NewStatementService(reportDir string, taxRate float64, reportTTL time.Duration, reportStore *cache.Cache) StatementService {
	return &statementServiceImpl{
		reportDir:   reportDir,
		taxRate:     taxRate,
		reportTTL:   reportTTL,
		reportStore: reportStore,
	}
}

// parsedFile pairs one statement's extraction result with its upload
// metadata for the audit trail.
type parsedFile struct {
	file      StatementFile
	statement *models.ParsedStatement
}

func (s *statementServiceImpl) ProcessBatch(req BatchRequest) (*BatchResult, error) {
	startTime := time.Now()
	if len(req.Files) == 0 {
		return nil, ErrNoStatements
	}
	logger.L.Info("ProcessBatch START", "files", len(req.Files), "targetYear", req.TargetYear)

	parsed := make([]parsedFile, 0, len(req.Files))
	for _, f := range req.Files {
		st := parsers.Parse(f.Text)
		if st.Period == nil {
			logger.L.Warn("Statement period not recognized", "filename", f.Filename)
		}
		parsed = append(parsed, parsedFile{file: f, statement: st})
	}

	year, err := resolveYear(parsed, req.TargetYear)
	if err != nil {
		return nil, err
	}

	// Trades concatenate per account; holdings key by statement period so the
	// earliest month's snapshot can seed the lot queues.
	accountTrades := make(map[string][]models.Trade)
	accountHoldings := make(map[string]map[models.Period][]models.Holding)
	for _, p := range parsed {
		st := p.statement
		if st.Period != nil {
			byPeriod, ok := accountHoldings[st.AccountID]
			if !ok {
				byPeriod = make(map[models.Period][]models.Holding)
				accountHoldings[st.AccountID] = byPeriod
			}
			byPeriod[*st.Period] = st.Holdings
		}
		accountTrades[st.AccountID] = append(accountTrades[st.AccountID], st.Trades...)
	}

	accountIDs := make([]string, 0, len(accountTrades))
	for id := range accountTrades {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	var rows []models.SummaryRow
	var warnings []models.Warning
	for _, accountID := range accountIDs {
		accountRows, accountWarnings := s.processAccount(
			accountID, accountTrades[accountID], earliestHoldings(accountHoldings[accountID]),
			req, year,
		)
		rows = append(rows, accountRows...)
		warnings = append(warnings, accountWarnings...)
	}

	totals := sumTotals(rows)
	rows = append(rows, models.SummaryRow{
		AccountID:  "TOTAL",
		SymbolName: "汇总",
		Gain:       totals.Gain,
		Loss:       totals.Loss,
		Net:        totals.Net,
		TaxBase:    totals.Net,
		TaxDue:     totals.TaxDue,
		NetCNY:     &totals.NetCNY,
		TaxCNY:     &totals.TaxCNY,
	})

	token := uuid.New().String()
	filename := fmt.Sprintf("tax_report_%d.xlsx", year)
	path, err := s.saveWorkbook(token, filename, rows, totals, warnings)
	if err != nil {
		return nil, err
	}
	s.reportStore.Set(token, path, s.reportTTL)

	s.recordUploads(parsed)

	logger.L.Info("ProcessBatch END", "year", year, "rows", len(rows), "warnings", len(warnings), "duration", time.Since(startTime))
	return &BatchResult{
		Year:           year,
		Rows:           rows,
		Totals:         totals,
		Warnings:       warnings,
		ReportToken:    token,
		ReportFilename: filename,
	}, nil
}

// processAccount seeds the lot queues from the account's earliest holdings
// snapshot, runs the FIFO pass over its trades, and shapes the summary rows.
func (s *statementServiceImpl) processAccount(
	accountID string,
	trades []models.Trade,
	seedHoldings []models.Holding,
	req BatchRequest,
	year int,
) ([]models.SummaryRow, []models.Warning) {
	var warnings []models.Warning

	initialLots := make(map[fifo.PositionKey][]fifo.Lot)
	fallbackCosts := make(map[fifo.PositionKey]float64)
	costMissing := make(map[fifo.PositionKey]bool)
	nameBySymbol := make(map[string]string)

	for _, h := range seedHoldings {
		if h.Quantity <= 0 {
			continue
		}
		if h.Name != "" {
			nameBySymbol[h.Symbol] = h.Name
		}
		key := fifo.PositionKey{AccountID: accountID, Symbol: h.Symbol}
		cost, ok := req.AvgCosts.Lookup(accountID, h.Symbol, h.Currency)
		if ok {
			initialLots[key] = append(initialLots[key], fifo.Lot{Quantity: h.Quantity, Cost: cost})
			fallbackCosts[key] = cost
		} else {
			warnings = append(warnings, models.Warning{
				AccountID: accountID,
				Symbol:    h.Symbol,
				Message:   missingSeedCostMessage,
			})
			costMissing[key] = true
		}
	}

	result := fifo.Compute(trades, initialLots, fallbackCosts, year)
	warnings = append(warnings, result.Warnings...)
	for key := range result.MissingCost {
		costMissing[key] = true
	}

	warningsBySymbol := make(map[string][]string)
	for _, w := range warnings {
		warningsBySymbol[w.Symbol] = append(warningsBySymbol[w.Symbol], w.Message)
	}

	symbols := make([]string, 0, len(result.Realized))
	for key := range result.Realized {
		symbols = append(symbols, key.Symbol)
	}
	sort.Strings(symbols)

	rateDate := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	rows := make([]models.SummaryRow, 0, len(symbols))
	for _, symbol := range symbols {
		key := fifo.PositionKey{AccountID: accountID, Symbol: symbol}
		realized := result.Realized[key]

		currency := ""
		for _, t := range trades {
			if t.Symbol != symbol {
				continue
			}
			currency = t.Currency
			if nameBySymbol[symbol] == "" && t.Name != "" {
				nameBySymbol[symbol] = t.Name
			}
			break
		}

		net := realized.Gain - realized.Loss
		taxDue := net * s.taxRate
		if req.TaxFloorZero && taxDue < 0 {
			taxDue = 0
		}

		row := models.SummaryRow{
			AccountID:         accountID,
			Symbol:            symbol,
			SymbolName:        nameBySymbol[symbol],
			Currency:          currency,
			Gain:              realized.Gain,
			Loss:              realized.Loss,
			Net:               net,
			TaxBase:           net,
			TaxDue:            taxDue,
			CostMissing:       costMissing[key],
			CostMissingReason: strings.Join(warningsBySymbol[symbol], "; "),
		}

		if fx, ok := req.Rates.Rate(currency, rateDate); ok {
			netCNY := net * fx
			taxCNY := taxDue * fx
			row.FXRate = &fx
			row.NetCNY = &netCNY
			row.TaxCNY = &taxCNY
		} else {
			warning := models.Warning{
				AccountID: accountID,
				Symbol:    symbol,
				Message:   fmt.Sprintf("Missing FX rate for %s. CNY fields left blank.", currency),
			}
			warnings = append(warnings, warning)
		}

		rows = append(rows, row)
	}

	return rows, warnings
}

func (s *statementServiceImpl) saveWorkbook(token, filename string, rows []models.SummaryRow, totals models.ReportTotals, warnings []models.Warning) (string, error) {
	dir := filepath.Join(s.reportDir, token)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	wb := reports.NewWorkbook()
	if err := wb.AddSummary(rows, totals); err != nil {
		return "", fmt.Errorf("writing summary sheet: %w", err)
	}
	if err := wb.AddWarnings(warnings); err != nil {
		return "", fmt.Errorf("writing warnings sheet: %w", err)
	}
	if err := wb.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *statementServiceImpl) ReportPath(token string) (string, error) {
	cached, found := s.reportStore.Get(token)
	if !found {
		return "", ErrReportNotFound
	}
	path := cached.(string)
	if _, err := os.Stat(path); err != nil {
		return "", ErrReportNotFound
	}
	return path, nil
}

// recordUploads appends the batch to the audit trail. Failures are logged and
// never fail the batch; the report itself is the deliverable.
func (s *statementServiceImpl) recordUploads(parsed []parsedFile) {
	if database.DB == nil {
		return
	}
	for _, p := range parsed {
		period := ""
		if p.statement.Period != nil {
			period = fmt.Sprintf("%04d-%02d", p.statement.Period.Year, p.statement.Period.Month)
		}
		_, err := database.DB.Exec(`
			INSERT INTO uploads_history (filename, file_size, account_id, period, trade_count, holding_count)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.file.Filename, p.file.Size, p.statement.AccountID, period, len(p.statement.Trades), len(p.statement.Holdings),
		)
		if err != nil {
			logger.L.Error("Failed to record upload in history", "filename", p.file.Filename, "error", err)
		}
	}
}

// resolveYear applies the year policy: an explicit choice wins, a single
// observed year is accepted implicitly, anything else needs the user.
func resolveYear(parsed []parsedFile, targetYear int) (int, error) {
	years := make(map[int]bool)
	for _, p := range parsed {
		if p.statement.Period != nil {
			years[p.statement.Period.Year] = true
		}
	}
	if len(years) == 0 {
		return 0, ErrNoStatementPeriod
	}
	if targetYear != 0 {
		return targetYear, nil
	}
	if len(years) == 1 {
		for y := range years {
			return y, nil
		}
	}
	return 0, ErrMultipleYears
}

// earliestHoldings picks the holdings snapshot of the account's earliest
// statement month.
func earliestHoldings(byPeriod map[models.Period][]models.Holding) []models.Holding {
	var earliest *models.Period
	for period := range byPeriod {
		p := period
		if earliest == nil || p.Before(*earliest) {
			earliest = &p
		}
	}
	if earliest == nil {
		return nil
	}
	return byPeriod[*earliest]
}

func sumTotals(rows []models.SummaryRow) models.ReportTotals {
	var totals models.ReportTotals
	for _, r := range rows {
		totals.Gain += r.Gain
		totals.Loss += r.Loss
		totals.Net += r.Net
		totals.TaxDue += r.TaxDue
		if r.NetCNY != nil {
			totals.NetCNY += *r.NetCNY
		}
		if r.TaxCNY != nil {
			totals.TaxCNY += *r.TaxCNY
		}
	}
	return totals
}
