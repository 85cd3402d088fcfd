package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	sheetRows    = 200
	sheetColumns = 26
)

// GoogleSheets writes to one spreadsheet through the Sheets v4 API.
type GoogleSheets struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// NewGoogleSheets authenticates with a service account key file.
func NewGoogleSheets(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*GoogleSheets, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	}, opts...)
	return NewGoogleSheetsWithOptions(ctx, spreadsheetID, opts...)
}

// NewGoogleSheetsWithOptions builds the client from raw options (custom
// endpoint, HTTP client, no authentication...).
func NewGoogleSheetsWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleSheets, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleSheets{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// CreateSheet adds the sheet and its tracking header in one batchUpdate,
// which the API applies atomically. key becomes the sheet ID, so a retry
// after a lost response finds the sheet instead of adding a second one.
func (g *GoogleSheets) CreateSheet(ctx context.Context, base string, key int64) (string, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list sheets: %w", err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		if sh.Properties.SheetId == key {
			return sh.Properties.Title, nil
		}
		existing[sh.Properties.Title] = true
	}
	title := uniqueTitle(base, func(t string) bool { return existing[t] })

	header := make([]*gsheets.CellData, len(TrackingHeader))
	for i, h := range TrackingHeader {
		header[i] = &gsheets.CellData{UserEnteredValue: &gsheets.ExtendedValue{StringValue: &h}}
	}

	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{
			{
				AddSheet: &gsheets.AddSheetRequest{
					Properties: &gsheets.SheetProperties{
						SheetId: key,
						Title:   title,
						GridProperties: &gsheets.GridProperties{
							RowCount:      sheetRows,
							ColumnCount:   sheetColumns,
							HideGridlines: true,
						},
					},
				},
			},
			{
				UpdateCells: &gsheets.UpdateCellsRequest{
					Start: &gsheets.GridCoordinate{
						SheetId:  key,
						RowIndex: TrackingHeaderAt - 1,
					},
					Rows:   []*gsheets.RowData{{Values: header}},
					Fields: "userEnteredValue",
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("add sheet %q: %w", title, err)
	}
	return title, nil
}

func (g *GoogleSheets) WriteInfo(ctx context.Context, sheet string, info SessionInfo) error {
	return g.update(ctx, sheet+"!"+InfoRange, info.Values())
}

func (g *GoogleSheets) AppendRows(ctx context.Context, sheet string, rows []TrackingRow) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}

	rng := fmt.Sprintf("%s!A%d:E", sheet, FirstTrackingRow)
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows to %q: %w", sheet, err)
	}
	return nil
}

func (g *GoogleSheets) WriteResults(ctx context.Context, sheet string, row int, results []FinalResult) error {
	values := [][]any{headerValues(ResultsHeader)}
	for _, r := range results {
		values = append(values, r.Values())
	}
	rng := fmt.Sprintf("%s!A%d:E%d", sheet, row, row+len(results))
	return g.update(ctx, rng, values)
}

func (g *GoogleSheets) update(ctx context.Context, rng string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// Retryable reports whether a failed write may succeed if tried again.
// Bad requests and permission problems will not.
func Retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

var _ Writer = (*GoogleSheets)(nil)
