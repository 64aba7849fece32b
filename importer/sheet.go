package importer

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"mealscan/model"
)

// SheetFetcher reads roster rows from a remote Google Sheet.
type SheetFetcher struct {
	svc *sheets.Service
}

// NewSheetFetcher builds a fetcher from a service account key file.
func NewSheetFetcher(ctx context.Context, serviceAccountKeyPath string) (*SheetFetcher, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(serviceAccountKeyPath))
	if err != nil {
		return nil, fmt.Errorf("error creating sheets service: %w", err)
	}
	return &SheetFetcher{svc: svc}, nil
}

// Fetch pulls the sheet's rows. An unreachable sheet fails the whole
// sync; an empty sheet or one without a header row is malformed.
func (f *SheetFetcher) Fetch(ctx context.Context, sheetID, sheetName string) (*Rows, error) {
	readRange := sheetName
	if readRange == "" {
		readRange = "A:ZZ"
	}
	resp, err := f.svc.Spreadsheets.Values.Get(sheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSheetUnavailable, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return nil, model.ErrMalformedSheet
	}

	headers := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		headers[i] = fmt.Sprint(v)
	}
	records := make([][]string, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		records = append(records, record)
	}
	return &Rows{Headers: headers, Records: records}, nil
}
