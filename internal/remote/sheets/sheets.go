// Package sheets mirrors ledgers into a Google spreadsheet, one tab per period.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dailybudget/internal/core"
	"dailybudget/internal/ports"
)

const defaultTabPrefix = "Budget"

// Credentials selects the service account used to reach the spreadsheet.
// JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabPrefix     string
}

// Ensure interface conformance
var _ ports.RemoteSync = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID string, creds Credentials, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, tabPrefix: defaultTabPrefix}, nil
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// TabName returns the sheet tab holding a period, e.g. "Budget 2025-02".
func TabName(prefix string, key core.PeriodKey) string {
	return fmt.Sprintf("%s %s", prefix, key)
}

// Push implements ports.RemoteSync. The tab is created on first push and
// rewritten in full afterwards.
func (c *Client) Push(ctx context.Context, l core.Ledger) error {
	tab := TabName(c.tabPrefix, l.Config.Key)

	exists, err := c.tabExists(ctx, tab)
	if err != nil {
		return err
	}
	if !exists {
		if err := c.addTab(ctx, tab); err != nil {
			return err
		}
	} else {
		header, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!A1:F1").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read header of %s: %w", tab, err)
		}
		if len(header.Values) > 0 {
			if remote, ok := headerVersion(toStrings(header.Values[0])); ok && remote > l.Version {
				return fmt.Errorf("%w: remote v%d, local v%d", ports.ErrRemoteAhead, remote, l.Version)
			}
		}
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tab, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	vr := &gsheet.ValueRange{Values: EncodeRows(l)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	return nil
}

// Pull implements ports.RemoteSync.
func (c *Client) Pull(ctx context.Context, key core.PeriodKey) (*core.Ledger, error) {
	tab := TabName(c.tabPrefix, key)

	exists, err := c.tabExists(ctx, tab)
	if err != nil || !exists {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!A:F").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	l, err := DecodeRows(key, resp.Values)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", tab, err)
	}
	return &l, nil
}

func (c *Client) tabExists(ctx context.Context, tab string) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) addTab(ctx context.Context, tab string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created budget sheet", "sheet", tab)
	return nil
}
