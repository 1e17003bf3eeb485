package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

const oauthClientJSON = `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard, Component: log.ComponentSheets})
}

// fakeSheets records the calls the client makes against the Values API.
type fakeSheets struct {
	mu       sync.Mutex
	header   [][]any
	appended [][]any
	ranges   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Ledger!A1:H1", "values": f.header})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.header = vr.Values
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": "Ledger!A1:H1"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		f.ranges = append(f.ranges, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Ledger!A2:H2", "updatedRows": 1},
		})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sheet-id", "Ledger", testLogger()), fake
}

func sampleRow() ports.LedgerRow {
	return ports.LedgerRow{
		Timestamp: time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC),
		Action:    "created",
		Transaction: core.Transaction{
			ID:          7,
			Amount:      core.Money{Cents: 1999},
			Category:    "Food",
			Date:        time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			Description: "groceries",
			Type:        core.Expense,
		},
	}
}

func TestClientAppend(t *testing.T) {
	c, fake := newFakeClient(t)

	ref, err := c.Append(context.Background(), sampleRow())
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "Ledger!A2:H2" {
		t.Errorf("Append() ref = %q, want Ledger!A2:H2", ref)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.appended))
	}
	want := []string{"2025-02-01T09:30:00Z", "created", "7", "2025-01-31", "expense", "Food", "19.99", "groceries"}
	got := fake.appended[0]
	if len(got) != len(want) {
		t.Fatalf("row = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
	if !strings.Contains(fake.ranges[0], "Ledger!A:H") {
		t.Errorf("append range = %q, want Ledger!A:H", fake.ranges[0])
	}
}

func TestClientAppendRejectsMissingID(t *testing.T) {
	c, fake := newFakeClient(t)
	row := sampleRow()
	row.Transaction.ID = 0
	if _, err := c.Append(context.Background(), row); err == nil {
		t.Fatal("expected error for row without id")
	}
	if len(fake.appended) != 0 {
		t.Error("nothing should be written")
	}
}

func TestClientEnsureHeader(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	if len(fake.header) != 1 || len(fake.header[0]) != len(ports.LedgerHeader) || fake.header[0][0] != "Timestamp" {
		t.Fatalf("header = %v", fake.header)
	}

	fake.header = [][]any{{"Custom"}}
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	if fake.header[0][0] != "Custom" {
		t.Error("existing header must not be overwritten")
	}
}

func TestClientNilService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Ledger", logger: testLogger()}
	if _, err := c.Append(context.Background(), sampleRow()); err == nil {
		t.Error("Append() should fail without a service")
	}
	if err := c.EnsureHeader(context.Background()); err == nil {
		t.Error("EnsureHeader() should fail without a service")
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"a","refresh_token":"r"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		id        string
		sheet     string
		creds     Credentials
		errSubstr string
	}{
		{name: "missing spreadsheet", sheet: "Ledger", errSubstr: "missing spreadsheet id"},
		{name: "missing sheet", id: "x", errSubstr: "missing sheet name"},
		{name: "no credentials", id: "x", sheet: "Ledger", errSubstr: "missing credentials"},
		{
			name:      "invalid oauth client",
			id:        "x",
			sheet:     "Ledger",
			creds:     Credentials{OAuthClientJSON: "invalid-json", OAuthTokenJSON: `{"access_token":"t"}`},
			errSubstr: "oauth config",
		},
		{
			name:      "empty token",
			id:        "x",
			sheet:     "Ledger",
			creds:     Credentials{OAuthClientJSON: oauthClientJSON, OAuthTokenJSON: `{}`},
			errSubstr: "neither access nor refresh token",
		},
		{
			name:      "missing token file",
			id:        "x",
			sheet:     "Ledger",
			creds:     Credentials{OAuthClientJSON: oauthClientJSON, OAuthTokenFile: filepath.Join(dir, "absent.json")},
			errSubstr: "read oauth token",
		},
		{
			name:  "oauth client and token file",
			id:    "x",
			sheet: "Ledger",
			creds: Credentials{OAuthClientJSON: oauthClientJSON, OAuthTokenFile: tokenFile},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), tt.id, tt.sheet, tt.creds, testLogger())
			if tt.errSubstr == "" {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				if c.sheetName != "Ledger" {
					t.Errorf("sheetName = %q", c.sheetName)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("New() error = %v, want containing %q", err, tt.errSubstr)
			}
		})
	}
}
