// Package sheets appends rows to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Appender writes rows to named tabs of one spreadsheet, keeping row 1 as the header.
type Appender struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewAppender authenticates with service-account credentials JSON.
func NewAppender(ctx context.Context, spreadsheetID string, credentialsJSON []byte, opts ...option.ClientOption) (*Appender, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id not configured")
	}
	if len(credentialsJSON) > 0 {
		opts = append([]option.ClientOption{
			option.WithCredentialsJSON(credentialsJSON),
			option.WithScopes(sheets.SpreadsheetsScope),
		}, opts...)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Appender{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Append ensures the header then appends row below the existing data.
// A header that differs from the expected one is overwritten, never migrated.
func (a *Appender) Append(ctx context.Context, sheet string, header, row []string) error {
	if err := a.ensureHeader(ctx, sheet, header); err != nil {
		return err
	}
	_, err := a.svc.Spreadsheets.Values.Append(a.spreadsheetID, a1(sheet, "A:"+ColumnName(len(header))), &sheets.ValueRange{
		Values: [][]interface{}{cells(row)},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", sheet, err)
	}
	return nil
}

// ensureHeader rewrites row 1 unless it already matches. A header that cannot be read, as on a
// freshly created tab, is written anyway.
func (a *Appender) ensureHeader(ctx context.Context, sheet string, header []string) error {
	current, err := a.svc.Spreadsheets.Values.Get(a.spreadsheetID, a1(sheet, "1:1")).Context(ctx).Do()
	if err != nil {
		log.Printf("sheets: read header of %s: %v; writing header", sheet, err)
	} else if len(current.Values) > 0 && sameHeader(current.Values[0], header) {
		return nil
	}
	_, err = a.svc.Spreadsheets.Values.Update(a.spreadsheetID, a1(sheet, "A1:"+ColumnName(len(header))+"1"), &sheets.ValueRange{
		Values: [][]interface{}{cells(header)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", sheet, err)
	}
	return nil
}

// a1 builds an A1 range on a quoted tab name so names with spaces or quotes stay valid.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

func sameHeader(got []interface{}, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if fmt.Sprint(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ColumnName converts a 1-based column number to its A1 letters (1 → A, 27 → AA).
func ColumnName(n int) string {
	if n < 1 {
		n = 1
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append([]byte{byte('A' + n%26)}, buf...)
		n /= 26
	}
	return string(buf)
}
