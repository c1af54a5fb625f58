// Package sheets exports compiled reports to a Google Sheets spreadsheet,
// one row per delivered report.
package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

const reportLogRange = "ReportLog!A:K"

// GoogleSheetExporter appends a summary row for every report it receives,
// using the official Google Sheets API.
type GoogleSheetExporter struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetExporter builds a Google Sheets backed exporter instance.
func NewGoogleSheetExporter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetExporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetExporter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendReport writes one summary row for the given report.
func (e *GoogleSheetExporter) AppendReport(ctx context.Context, report *models.ComprehensiveReport) error {
	if report == nil {
		return fmt.Errorf("report must not be nil")
	}

	meta := report.Metadata
	row := []interface{}{
		meta.ID,
		meta.OrganizationID,
		meta.ReportType,
		meta.Range.Start.Format("2006-01-02"),
		meta.Range.End.Format("2006-01-02"),
		report.Production.TotalEggs,
		report.Production.SellableEggs,
		report.Production.Efficiency,
		report.Production.Mortality,
		report.Attendance.AverageRate,
		meta.GeneratedAt.Format("2006-01-02 15:04:05"),
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	call := e.service.Spreadsheets.Values.Append(e.spreadsheetID, reportLogRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append report row into range %s: %w", reportLogRange, err)
	}

	e.logger.Debug("report row appended to sheet",
		zap.String("report_id", meta.ID),
		zap.String("organization_id", meta.OrganizationID),
	)
	return nil
}
