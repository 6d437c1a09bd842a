package export

import (
	"context"
	"fmt"
	"time"

	"coh3-monitor/internal/config"
	"coh3-monitor/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Exporter receives newly discovered custom games. The monitor calls it
// at-least-once per inserted record; downstream idempotence is the
// collaborator's concern.
type Exporter interface {
	ExportCustomGame(ctx context.Context, record *domain.MatchRecord) error
}

// SheetsExporter appends custom games to a Google Sheets worksheet used for
// rating calculation.
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	worksheet     string
	logger        zerolog.Logger
}

// New builds the configured exporter. Without credentials or a spreadsheet
// id the export step is disabled and discoveries are only logged.
func New(cfg *config.Config, logger zerolog.Logger) (Exporter, error) {
	if cfg.SheetsCredentialsFile == "" || cfg.SheetsSpreadsheetID == "" {
		logger.Warn().Msg("sheets export not configured, discoveries will only be logged")
		return &DisabledExporter{logger: logger}, nil
	}

	service, err := sheets.NewService(context.Background(),
		option.WithCredentialsFile(cfg.SheetsCredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	logger.Info().
		Str("spreadsheet_id", cfg.SheetsSpreadsheetID).
		Str("worksheet", cfg.SheetsWorksheet).
		Msg("sheets export enabled")

	return &SheetsExporter{
		service:       service,
		spreadsheetID: cfg.SheetsSpreadsheetID,
		worksheet:     cfg.SheetsWorksheet,
		logger:        logger,
	}, nil
}

func (e *SheetsExporter) ExportCustomGame(ctx context.Context, record *domain.MatchRecord) error {
	row := formatRow(record)

	valueRange := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := e.service.Spreadsheets.Values.
		Append(e.spreadsheetID, e.worksheet, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append custom game %s: %w", record.UniqueMatchID, err)
	}

	e.logger.Info().
		Str("unique_match_id", record.UniqueMatchID).
		Str("map_name", record.MapName).
		Msg("custom game exported to sheet")
	return nil
}

// formatRow mirrors the rating sheet layout: date, time, map, up to four
// players per side, then the dedup key and the export timestamp.
func formatRow(record *domain.MatchRecord) []interface{} {
	dateStr, timeStr := splitMatchDate(record.MatchDate)

	row := []interface{}{dateStr, timeStr, record.MapName}
	row = append(row, sideColumns(record.AxisPlayers)...)
	row = append(row, sideColumns(record.AlliesPlayers)...)
	row = append(row, record.UniqueMatchID, time.Now().Format("2006-01-02 15:04:05"))
	return row
}

func sideColumns(side []domain.Participant) []interface{} {
	cols := make([]interface{}, 4)
	for i := range cols {
		if i < len(side) {
			cols[i] = side[i].PlayerName
		} else {
			cols[i] = ""
		}
	}
	return cols
}

func splitMatchDate(matchDate string) (string, string) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if dt, err := time.Parse(layout, matchDate); err == nil {
			return dt.Format("02/01/2006"), dt.Format("15:04")
		}
	}
	return matchDate, ""
}

// DisabledExporter is the stand-in when sheets credentials are absent.
type DisabledExporter struct {
	logger zerolog.Logger
}

func (e *DisabledExporter) ExportCustomGame(_ context.Context, record *domain.MatchRecord) error {
	e.logger.Info().
		Str("unique_match_id", record.UniqueMatchID).
		Msg("sheets export disabled, skipping custom game")
	return nil
}
