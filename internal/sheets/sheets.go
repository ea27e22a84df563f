// Package sheets is the narrow slice of the Google Sheets API the RSVP
// ledger needs: create a spreadsheet and append one row to it.
package sheets

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	// AppendRange anchors appends at the first sheet; Sheets finds the
	// table there and writes after its last row.
	AppendRange = "Sheet1!A1"

	// valueInputRaw stores values as typed, so a message starting with "="
	// is never evaluated as a formula.
	valueInputRaw = "RAW"
)

// Client creates spreadsheets and appends rows.
type Client interface {
	CreateSpreadsheet(ctx context.Context, title string) (string, error)
	AppendRow(ctx context.Context, spreadsheetID string, row []any) error
}

// Factory builds a Client around an OAuth-authenticated HTTP client.
type Factory func(ctx context.Context, httpClient *http.Client) (Client, error)

// GoogleClient implements Client with google.golang.org/api/sheets/v4.
type GoogleClient struct {
	srv *gsheets.Service
}

// compile-time check that *GoogleClient implements Client
var _ Client = (*GoogleClient)(nil)

// NewGoogleClient creates a Sheets client. httpClient must already attach
// credentials (see oauth2.NewClient); extra options such as
// option.WithEndpoint are passed through.
func NewGoogleClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*GoogleClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: creating service: %w", err)
	}
	return &GoogleClient{srv: srv}, nil
}

// GoogleFactory is the production Factory.
func GoogleFactory(ctx context.Context, httpClient *http.Client) (Client, error) {
	return NewGoogleClient(ctx, httpClient)
}

// CreateSpreadsheet creates a spreadsheet titled title and returns its id.
// Only the id is requested back (fields=spreadsheetId).
func (c *GoogleClient) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	created, err := c.srv.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: title},
	}).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sheets: creating spreadsheet: %w", err)
	}
	if created.SpreadsheetId == "" {
		return "", fmt.Errorf("sheets: create returned no spreadsheet id")
	}
	return created.SpreadsheetId, nil
}

// AppendRow appends row after the last row of the first sheet.
func (c *GoogleClient) AppendRow(ctx context.Context, spreadsheetID string, row []any) error {
	body := &gsheets.ValueRange{Values: [][]any{row}}

	_, err := c.srv.Spreadsheets.Values.Append(spreadsheetID, AppendRange, body).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: appending row to %s: %w", spreadsheetID, err)
	}
	return nil
}
