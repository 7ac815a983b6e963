package sheets

import (
	"context"
	"fmt"

	"raidbench/internal/config"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Service wraps the Sheets API for the operator workbook: four input tabs
// read at ingest, four result tabs replaced at export.
type Service struct {
	svc    *sheets.Service
	cfg    *config.Config
	logger zerolog.Logger
}

func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	svc, err := sheets.NewService(context.Background(),
		option.WithCredentialsFile(cfg.SheetsCredsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Service{
		svc:    svc,
		cfg:    cfg,
		logger: logger.With().Str("component", "sheets").Logger(),
	}, nil
}

func (s *Service) readTab(ctx context.Context, tab string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.cfg.SpreadsheetID, tab+"!A2:Z").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read tab %q: %w", tab, err)
	}
	return resp.Values, nil
}

// replaceTab clears a tab and writes header plus rows starting at A1, then
// stamps the last-processed cell.
func (s *Service) replaceTab(ctx context.Context, tab string, header []any, rows [][]any, stamp string) error {
	_, err := s.svc.Spreadsheets.Values.
		Clear(s.cfg.SpreadsheetID, tab+"!A:Y", &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear tab %q: %w", tab, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, header)
	values = append(values, rows...)
	_, err = s.svc.Spreadsheets.Values.
		Update(s.cfg.SpreadsheetID, tab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write tab %q: %w", tab, err)
	}

	_, err = s.svc.Spreadsheets.Values.
		Update(s.cfg.SpreadsheetID, tab+"!Z1", &sheets.ValueRange{Values: [][]any{{stamp}}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to stamp tab %q: %w", tab, err)
	}

	s.logger.Info().Str("tab", tab).Int("rows", len(rows)).Msg("tab replaced")
	return nil
}
