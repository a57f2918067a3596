package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"paytrack/internal/api"
	"paytrack/internal/core"
)

// SheetsConfig locates the target spreadsheet and its credentials.
type SheetsConfig struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string

	// OAuthClientJSON and OAuthTokenFile select user credentials issued by
	// oauth-init instead of a service account.
	OAuthClientJSON string
	OAuthTokenFile  string
}

// SheetsExporter replaces a sheet's contents with the payment history.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsExporter creates an exporter. Extra options are passed to the
// Sheets service (tests point it at a local endpoint).
func NewSheetsExporter(ctx context.Context, cfg SheetsConfig, opts ...goption.ClientOption) (*SheetsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Payments"
	}

	if len(opts) == 0 {
		var err error
		if opts, err = credentialOptions(ctx, cfg); err != nil {
			return nil, err
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

// credentialOptions prefers OAuth user credentials over a service account.
func credentialOptions(ctx context.Context, cfg SheetsConfig) ([]goption.ClientOption, error) {
	if cfg.OAuthClientJSON != "" && cfg.OAuthTokenFile != "" {
		oc, err := google.ConfigFromJSON([]byte(cfg.OAuthClientJSON), gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("oauth config: %w", err)
		}
		tok, err := api.LoadToken(cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "Using OAuth user credentials", "token_file", cfg.OAuthTokenFile)
		return []goption.ClientOption{goption.WithTokenSource(oc.TokenSource(ctx, tok))}, nil
	}
	creds, err := serviceAccountCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// serviceAccountCredentials resolves inline JSON, a credentials file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountCredentials(ctx context.Context, cfg SheetsConfig) ([]byte, error) {
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Export clears the sheet and writes the header plus one row per payment.
// It returns the updated range.
func (s *SheetsExporter) Export(ctx context.Context, payments []core.Payment) (string, error) {
	if s.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:H", s.sheetName)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", s.sheetName, err)
	}

	rows := Rows(payments)
	dataRange := fmt.Sprintf("%s!A1:H%d", s.sheetName, len(rows))
	vr := &gsheet.ValueRange{Values: rows}

	resp, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", s.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported payments to Google Sheets",
		"spreadsheet_id", s.spreadsheetID,
		"range", resp.UpdatedRange,
		"rows", len(payments))

	return resp.UpdatedRange, nil
}
