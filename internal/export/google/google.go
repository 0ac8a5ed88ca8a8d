// Package google exports goal completion reports to a Google Sheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"goaltrack/internal/config"
	"goaltrack/internal/export"
	"goaltrack/internal/storage"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ export.ReportAppender = (*Client)(nil)

// NewClient creates a Sheets client from the application configuration.
// Credentials come from an inline JSON blob or a service account file.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	sheetName := strings.TrimSpace(cfg.GoogleSheetName)
	if sheetName == "" {
		sheetName = "Completed Goals"
	}

	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func loadCredentials(cfg *config.Config) ([]byte, error) {
	switch {
	case cfg.GoogleCredentialsJSON != "":
		return []byte(cfg.GoogleCredentialsJSON), nil
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// Append writes one completion report row to the configured sheet.
// Columns: owner, goal name, target, saved, completion date, goal ID.
func (c *Client) Append(ctx context.Context, report storage.CompletionReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		report.OwnerID,
		report.Name,
		report.TargetAmount.Dollars(),
		report.CurrentAmount.Dollars(),
		report.CompletionDate.Format("2006-01-02"),
		report.GoalID,
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to sheet %s: %w", c.sheetName, err)
	}

	ref := c.sheetName
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Completion report exported to Google Sheets",
		"goal_id", report.GoalID,
		"sheets_ref", ref)

	return ref, nil
}
