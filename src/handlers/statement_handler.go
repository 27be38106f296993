// src/handlers/statement_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/gainledger/src/config"
	"github.com/username/gainledger/src/logger"
	"github.com/username/gainledger/src/processors"
	"github.com/username/gainledger/src/security/validation"
	"github.com/username/gainledger/src/services"
)

type StatementHandler struct {
	statementService services.StatementService
}

func NewStatementHandler(service services.StatementService) *StatementHandler {
	return &StatementHandler{
		statementService: service,
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// processResponse wraps the batch result with the download link for the
// saved workbook.
type processResponse struct {
	*services.BatchResult
	DownloadURL string `json:"download_url"`
}

// HandleProcess accepts a multipart form with one or more extracted
// statement texts under "statements", an optional "avg_costs_csv" file, the
// per-currency FX rate fields, and the year/tax options.
func (h *StatementHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		sendJSONError(w, fmt.Sprintf("failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File["statements"]
	if len(fileHeaders) == 0 {
		sendJSONError(w, "at least one statement file is required under 'statements'", http.StatusBadRequest)
		return
	}

	files := make([]services.StatementFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > config.Cfg.MaxUploadSizeBytes {
			sendJSONError(w, fmt.Sprintf("file %s too large, max %d MB", fh.Filename, config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
			return
		}
		if err := validation.ValidateClientContentType(fh.Header.Get("Content-Type")); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, err := fh.Open()
		if err != nil {
			ctxLogger.Error("Failed to open uploaded statement", "filename", fh.Filename, "error", err)
			sendJSONError(w, "failed to read uploaded file", http.StatusBadRequest)
			return
		}
		if _, err := validation.ValidateTextContent(file); err != nil {
			file.Close()
			ctxLogger.Warn("Statement content validation failed", "filename", fh.Filename, "error", err)
			sendJSONError(w, fmt.Sprintf("file %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		text, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			ctxLogger.Error("Failed to read uploaded statement", "filename", fh.Filename, "error", err)
			sendJSONError(w, "failed to read uploaded file", http.StatusBadRequest)
			return
		}
		files = append(files, services.StatementFile{
			Filename: fh.Filename,
			Size:     fh.Size,
			Text:     string(text),
		})
	}

	avgCosts, err := h.readAvgCosts(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := services.BatchRequest{
		Files:    files,
		AvgCosts: avgCosts,
		Rates: processors.ParseRateTable(map[string]string{
			"USD": r.FormValue("usd_rate"),
			"HKD": r.FormValue("hkd_rate"),
			"SGD": r.FormValue("sgd_rate"),
		}),
		TargetYear:   parseYear(r.FormValue("target_year")),
		TaxFloorZero: parseCheckbox(r.FormValue("tax_floor_zero")),
	}

	result, err := h.statementService.ProcessBatch(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoStatements),
			errors.Is(err, services.ErrNoStatementPeriod),
			errors.Is(err, services.ErrMultipleYears):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			ctxLogger.Error("Batch processing failed", "error", err)
			sendJSONError(w, "statement processing failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := processResponse{
		BatchResult: result,
		DownloadURL: "/api/reports/" + result.ReportToken,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		ctxLogger.Error("Error encoding JSON response for batch result", "error", err)
	}
}

// HandleDownload streams a previously generated workbook by token.
func (h *StatementHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	path, err := h.statementService.ReportPath(token)
	if err != nil {
		sendJSONError(w, "report not found or expired", http.StatusNotFound)
		return
	}

	filename := filepath.Base(path)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

func (h *StatementHandler) readAvgCosts(r *http.Request) (processors.AvgCostBook, error) {
	file, _, err := r.FormFile("avg_costs_csv")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read avg_costs_csv: %w", err)
	}
	defer file.Close()

	book, err := processors.ParseAvgCostCSV(file)
	if err != nil {
		return nil, fmt.Errorf("invalid average cost file: %w", err)
	}
	return book, nil
}

func parseYear(raw string) int {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

// parseCheckbox accepts the usual truthy form values for an HTML checkbox.
func parseCheckbox(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
