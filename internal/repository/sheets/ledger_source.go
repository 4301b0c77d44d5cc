// Package sheets loads the official fixed-asset and ME ledgers from the
// hospital's spreadsheet into matching records.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/yshioka/equipmatch/internal/config"
	"github.com/yshioka/equipmatch/internal/domain/models"
)

// LedgerSource reads ledger datasets for the matching windows.
type LedgerSource struct {
	service       *sheetsapi.Service
	spreadsheetID string
	ledgerRange   string
	meLedgerRange string
	logger        *zap.Logger
}

// NewLedgerSource builds a Google Sheets backed ledger source.
func NewLedgerSource(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*LedgerSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &LedgerSource{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		ledgerRange:   cfg.LedgerRange,
		meLedgerRange: cfg.MELedgerRange,
		logger:        logger,
	}, nil
}

// LoadLedger fetches the fixed-asset ledger rows.
func (s *LedgerSource) LoadLedger(ctx context.Context) ([]models.MatchableRecord, error) {
	return s.load(ctx, s.ledgerRange, "L")
}

// LoadMELedger fetches the medical-equipment ledger rows.
func (s *LedgerSource) LoadMELedger(ctx context.Context) ([]models.MatchableRecord, error) {
	return s.load(ctx, s.meLedgerRange, "ME")
}

func (s *LedgerSource) load(ctx context.Context, sheetRange, idPrefix string) ([]models.MatchableRecord, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	records := make([]models.MatchableRecord, 0, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 {
			continue // header
		}
		rec, err := parseRow(row, fmt.Sprintf("%s-%d", idPrefix, i))
		if err != nil {
			s.logger.Debug("skip ledger row", zap.Int("row", i), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	s.logger.Info("ledger loaded",
		zap.String("range", sheetRange), zap.Int("records", len(records)))
	return records, nil
}

// parseRow maps a spreadsheet row onto a matching record. Expected column
// order: asset no, item, manufacturer, model, category, major category,
// middle category, department, section, room, quantity.
func parseRow(row []interface{}, fallbackID string) (models.MatchableRecord, error) {
	if len(row) < 2 {
		return models.MatchableRecord{}, fmt.Errorf("row too short: %d columns", len(row))
	}

	rec := models.MatchableRecord{
		ID:       fallbackID,
		AssetNo:  cell(row, 0),
		Item:     cell(row, 1),
		Quantity: 1,
	}
	if rec.AssetNo != "" {
		rec.ID = rec.AssetNo
	}
	rec.Manufacturer = cell(row, 2)
	rec.Model = cell(row, 3)
	rec.Category = cell(row, 4)
	rec.MajorCategory = cell(row, 5)
	rec.MiddleCategory = cell(row, 6)
	rec.Department = cell(row, 7)
	rec.Section = cell(row, 8)
	rec.RoomName = cell(row, 9)
	if qty := cell(row, 10); qty != "" {
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			return models.MatchableRecord{}, fmt.Errorf("bad quantity %q: %w", qty, err)
		}
		rec.Quantity = n
	}
	return rec, nil
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return strings.TrimSpace(s)
}
