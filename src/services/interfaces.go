// src/services/interfaces.go
package services

import (
	"errors"

	"github.com/username/gainledger/src/models"
	"github.com/username/gainledger/src/processors"
)

// StatementFile is one uploaded statement, already extracted to plain text by
// the transport layer.
type StatementFile struct {
	Filename string
	Size     int64
	Text     string
}

// BatchRequest carries everything one report run needs.
type BatchRequest struct {
	Files    []StatementFile
	AvgCosts processors.AvgCostBook
	Rates    processors.RateTable
	// TargetYear 0 means infer the year from the statements; inference fails
	// with ErrMultipleYears when the batch spans more than one year.
	TargetYear int
	// TaxFloorZero clamps a negative tax due to zero instead of reporting a
	// refundable amount.
	TaxFloorZero bool
}

// BatchResult is the computed report: the summary rows (including the
// trailing TOTAL row), the advisory warnings, and a token under which the
// saved workbook can be downloaded for a limited time.
type BatchResult struct {
	Year           int                 `json:"year"`
	Rows           []models.SummaryRow `json:"rows"`
	Totals         models.ReportTotals `json:"totals"`
	Warnings       []models.Warning    `json:"warnings"`
	ReportToken    string              `json:"report_token"`
	ReportFilename string              `json:"report_filename"`
}

// Common service errors, matched by the handlers to pick status codes.
var (
	ErrNoStatements      = errors.New("no statement files supplied")
	ErrNoStatementPeriod = errors.New("no statement period recognized in any document")
	ErrMultipleYears     = errors.New("statements span multiple years and no target year was chosen")
	ErrReportNotFound    = errors.New("report not found or expired")
)

// StatementService is the core pipeline: parse a batch of statements, run the
// realized-gain computation, and materialize the workbook.
type StatementService interface {
	ProcessBatch(req BatchRequest) (*BatchResult, error)
	// ReportPath resolves a download token to the saved workbook path.
	ReportPath(token string) (string, error)
}
