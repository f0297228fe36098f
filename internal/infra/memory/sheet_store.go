package memory

import (
	"context"
	"sync"
)

// SheetStore is an in-memory app.RowAppender. Row 0 of every sheet is its header.
type SheetStore struct {
	mu     sync.Mutex
	sheets map[string][][]string
	// Fail, when set, is returned for appends to the named sheet.
	Fail map[string]error
}

func NewSheetStore() *SheetStore {
	return &SheetStore{sheets: make(map[string][][]string)}
}

func (s *SheetStore) Append(ctx context.Context, sheet string, header, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Fail[sheet]; err != nil {
		return err
	}
	rows := s.sheets[sheet]
	if len(rows) == 0 {
		rows = [][]string{append([]string(nil), header...)}
	} else if !equalRow(rows[0], header) {
		rows[0] = append([]string(nil), header...)
	}
	s.sheets[sheet] = append(rows, append([]string(nil), row...))
	return nil
}

// Rows returns a copy of the sheet including its header row.
func (s *SheetStore) Rows(sheet string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.sheets[sheet]))
	for i, r := range s.sheets[sheet] {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
