package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// fakeSheets is a minimal in-memory Values API keyed by tab.
type fakeSheets struct {
	mu     sync.Mutex
	tabs   map[string][][]interface{}
	writes  []string
	ranges  []string
	fail    bool
	failGet bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
		return
	}
	idx := strings.Index(r.URL.Path, "/values/")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[idx+len("/values/"):]
	f.ranges = append(f.ranges, rng)
	tab := rng
	if i := strings.Index(rng, "!"); i >= 0 {
		tab = strings.ReplaceAll(strings.Trim(rng[:i], "'"), "''", "'")
	}
	var body struct {
		Values [][]interface{} `json:"values"`
	}
	if r.Method != http.MethodGet {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	rows := f.tabs[tab]
	switch {
	case r.Method == http.MethodGet && f.failGet:
		http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
		return
	case r.Method == http.MethodGet:
		out := map[string]interface{}{"range": rng}
		if len(rows) > 0 {
			out["values"] = rows[:1]
		}
		_ = json.NewEncoder(w).Encode(out)
		return
	case r.Method == http.MethodPut:
		f.writes = append(f.writes, "update:"+tab)
		if len(rows) == 0 {
			rows = append(rows, nil)
		}
		rows[0] = body.Values[0]
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		f.writes = append(f.writes, "append:"+tab)
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		rows = append(rows, body.Values...)
	default:
		http.NotFound(w, r)
		return
	}
	f.tabs[tab] = rows
	_, _ = w.Write([]byte(`{}`))
}

func newTestAppender(t *testing.T, f *fakeSheets) *Appender {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	a, err := NewAppender(context.Background(), "sheet-id", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("new appender: %v", err)
	}
	return a
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	f := &fakeSheets{tabs: map[string][][]interface{}{}}
	a := newTestAppender(t, f)
	ctx := context.Background()
	header := []string{"Timestamp", "Name"}

	if err := a.Append(ctx, "Sheet1", header, []string{"2025-02-01T10:00:00Z", "Jane"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := a.Append(ctx, "Sheet1", header, []string{"2025-02-02T10:00:00Z", "John"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	want := []string{"update:Sheet1", "append:Sheet1", "append:Sheet1"}
	if strings.Join(f.writes, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected writes %v", f.writes)
	}
	rows := f.tabs["Sheet1"]
	if len(rows) != 3 || rows[0][1] != "Name" || rows[2][1] != "John" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestAppendOverwritesStaleHeader(t *testing.T) {
	f := &fakeSheets{tabs: map[string][][]interface{}{
		"Sheet2": {{"Timestamp", "Old"}, {"x", "y"}},
	}}
	a := newTestAppender(t, f)
	if err := a.Append(context.Background(), "Sheet2", []string{"Timestamp", "First Name"}, []string{"t", "Jane"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := f.tabs["Sheet2"]
	if rows[0][1] != "First Name" || rows[1][1] != "y" || len(rows) != 3 {
		t.Fatalf("expected header overwritten and data kept, got %v", rows)
	}
}

func TestAppendWritesHeaderWhenReadFails(t *testing.T) {
	f := &fakeSheets{tabs: map[string][][]interface{}{}, failGet: true}
	a := newTestAppender(t, f)
	if err := a.Append(context.Background(), "Sheet1", []string{"Timestamp", "Name"}, []string{"t", "Jane"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows := f.tabs["Sheet1"]
	if len(rows) != 2 || rows[0][1] != "Name" || rows[1][1] != "Jane" {
		t.Fatalf("expected header and row despite failed read, got %v", rows)
	}
}

func TestAppendQuotesTabNames(t *testing.T) {
	f := &fakeSheets{tabs: map[string][][]interface{}{}}
	a := newTestAppender(t, f)
	if err := a.Append(context.Background(), "Assessment Log", []string{"Timestamp"}, []string{"t"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	for _, rng := range f.ranges {
		if !strings.HasPrefix(rng, "'Assessment Log'!") {
			t.Fatalf("range %q is not quoted", rng)
		}
	}
	if len(f.tabs["Assessment Log"]) != 2 {
		t.Fatalf("unexpected rows %v", f.tabs)
	}
	if got := a1("Bob's tab", "1:1"); got != "'Bob''s tab'!1:1" {
		t.Fatalf("unexpected range %q", got)
	}
}

func TestAppendReportsBackendErrors(t *testing.T) {
	f := &fakeSheets{tabs: map[string][][]interface{}{}, fail: true}
	a := newTestAppender(t, f)
	if err := a.Append(context.Background(), "Sheet1", []string{"A"}, []string{"1"}); err == nil {
		t.Fatalf("expected error from failing backend")
	}
}

func TestColumnName(t *testing.T) {
	cases := map[int]string{0: "A", 1: "A", 8: "H", 23: "W", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for n, want := range cases {
		if got := ColumnName(n); got != want {
			t.Fatalf("ColumnName(%d)=%q want %q", n, got, want)
		}
	}
}

func TestNewAppenderRequiresSpreadsheet(t *testing.T) {
	if _, err := NewAppender(context.Background(), "", nil, option.WithoutAuthentication()); err == nil {
		t.Fatalf("expected error without spreadsheet id")
	}
}
