package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

func fixedNow() time.Time {
	return time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, opts Options) (*Server, *services.LedgerService) {
	t.Helper()
	st := memory.New()
	reports := services.NewReportService(st, nil, services.ReportOptions{
		Location: time.UTC,
		Now:      fixedNow,
	})
	ledger := services.NewLedgerService(st, nil, nil, reports)
	srv := NewServer(":0", ledger, reports, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, ledger
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
		if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("%s: X-Content-Type-Options = %q", path, got)
		}
	}

	down, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db closed") }})
	rr := do(t, down, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing probe: status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db closed") {
		t.Errorf("readyz body = %s", rr.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodGet, "/healthz", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	for _, want := range []string{"http_requests_total", "rate_limit_hits_total", "suspicious_requests_total"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"amount":"12.50","type":"expense","category":"Food","date":"2025-03-10","description":"lunch"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[core.Transaction](t, rr)
	if created.ID <= 0 || created.Amount.Cents != 1250 || created.Category != "Food" {
		t.Fatalf("created = %+v", created)
	}
	if want := "/api/transactions/1"; rr.Header().Get("Location") != want {
		t.Errorf("Location = %q, want %q", rr.Header().Get("Location"), want)
	}
	if !created.Date.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", created.Date)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPatch, "/api/transactions/1", `{"amount":20,"description":"dinner"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body.String())
	}
	patched := decode[core.Transaction](t, rr)
	if patched.Amount.Cents != 2000 || patched.Description != "dinner" || patched.Category != "Food" {
		t.Errorf("patched = %+v", patched)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions?category=Food", "")
	list := decode[transactionList](t, rr)
	if list.Count != 1 {
		t.Errorf("search count = %d, want 1", list.Count)
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	for _, method := range []string{http.MethodDelete, http.MethodGet} {
		rr = do(t, srv, method, "/api/transactions/1", "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s after delete: status=%d", method, rr.Code)
		}
	}

	rr = do(t, srv, http.MethodPatch, "/api/transactions/1", `{"amount":1}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("patch missing: status=%d", rr.Code)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"malformed json", `{"amount":`, http.StatusBadRequest, ""},
		{"bad amount", `{"amount":"abc","type":"expense","category":"Food","date":"2025-03-10"}`, http.StatusUnprocessableEntity, "amount"},
		{"zero amount", `{"amount":0,"type":"expense","category":"Food","date":"2025-03-10"}`, http.StatusUnprocessableEntity, "amount"},
		{"missing category", `{"amount":"5","type":"expense","date":"2025-03-10"}`, http.StatusUnprocessableEntity, "category"},
		{"bad type", `{"amount":"5","type":"transfer","category":"Food","date":"2025-03-10"}`, http.StatusUnprocessableEntity, "type"},
		{"bad date", `{"amount":"5","type":"expense","category":"Food","date":"10/03/2025"}`, http.StatusUnprocessableEntity, "date"},
		{"long description", `{"amount":"5","type":"expense","category":"Food","date":"2025-03-10","description":"` + strings.Repeat("x", 201) + `"}`, http.StatusUnprocessableEntity, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, Options{})
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			body := decode[ErrorBody](t, rr)
			if body.Field != tt.wantField {
				t.Errorf("field = %q, want %q", body.Field, tt.wantField)
			}
		})
	}
}

func TestCreateTransactionFromForm(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader("amount=3%2C40&type=income&category=Salary&date=2025-03-01"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Transaction](t, rr); got.Amount.Cents != 340 || got.Type != core.Income {
		t.Errorf("created = %+v", got)
	}
}

func TestListTransactionsBadParams(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, q := range []string{
		"sort=bogus", "order=sideways", "start=yesterday", "end=2025-02-30x",
		"type=transfer", "min=abc", "preset=nextWeek",
	} {
		rr := do(t, srv, http.MethodGet, "/api/transactions?"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d, want 400", q, rr.Code)
		}
	}

	for _, id := range []string{"abc", "0", "-4"} {
		rr := do(t, srv, http.MethodGet, "/api/transactions/"+id, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("id %s: status=%d, want 400", id, rr.Code)
		}
	}
}

func TestListTransactionsFilters(t *testing.T) {
	srv, ledger := newTestServer(t, Options{})
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		{Amount: core.Money{Cents: 300000}, Type: core.Income, Category: "Salary", Date: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 1000}, Type: core.Expense, Category: "Food", Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Description: "pizza"},
		{Amount: core.Money{Cents: 5000}, Type: core.Expense, Category: "Food", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	} {
		if _, err := ledger.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"type=expense", 2},
		{"q=pizz", 1},
		{"start=2025-02-10&end=2025-02-10", 1},
		{"preset=lastMonth", 2},
		{"min=20&max=100", 1},
		{"sort=amount&order=asc", 3},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/transactions?"+tt.query, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%q: status=%d", tt.query, rr.Code)
		}
		if got := decode[transactionList](t, rr); got.Count != tt.want {
			t.Errorf("%q: count = %d, want %d", tt.query, got.Count, tt.want)
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/transactions?sort=amount&order=asc", "")
	list := decode[transactionList](t, rr)
	if list.Transactions[0].Amount.Cents != 1000 {
		t.Errorf("ascending by amount starts with %d", list.Transactions[0].Amount.Cents)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Food","type":"expense","color":"#FF5722"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	food := decode[core.Category](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":"food","type":"expense"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status=%d", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Field != "name" {
		t.Errorf("duplicate field = %q", body.Field)
	}

	rr = do(t, srv, http.MethodGet, "/api/categories?type=income", "")
	if got := decode[map[string][]core.Category](t, rr)["categories"]; len(got) != 0 {
		t.Errorf("income categories = %v", got)
	}
	rr = do(t, srv, http.MethodGet, "/api/categories?type=expense", "")
	if got := decode[map[string][]core.Category](t, rr)["categories"]; len(got) != 1 {
		t.Errorf("expense categories = %v", got)
	}

	do(t, srv, http.MethodPost, "/api/transactions", `{"amount":"5","type":"expense","category":"Food","date":"2025-03-10"}`)

	catPath := "/api/categories/" + jsonID(food.ID)
	rr = do(t, srv, http.MethodDelete, catPath, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete in use: status=%d", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Count != 1 || body.Category != "Food" {
		t.Errorf("conflict body = %+v", body)
	}

	rr = do(t, srv, http.MethodPatch, catPath, `{"name":"Groceries"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("rename status=%d body=%s", rr.Code, rr.Body.String())
	}

	usage := func(name string) int {
		rr := do(t, srv, http.MethodGet, "/api/categories/usage?name="+name, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("usage %s: status=%d", name, rr.Code)
		}
		return int(decode[map[string]any](t, rr)["count"].(float64))
	}
	if got := usage("Food"); got != 0 {
		t.Errorf("usage(Food) after rename = %d", got)
	}
	if got := usage("Groceries"); got != 1 {
		t.Errorf("usage(Groceries) after rename = %d", got)
	}

	if rr := do(t, srv, http.MethodPatch, catPath, `{"type":"income"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("type change status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/categories/usage", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("usage without name status=%d", rr.Code)
	}

	do(t, srv, http.MethodDelete, "/api/transactions/1", "")
	if rr := do(t, srv, http.MethodDelete, catPath, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete unused: status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, catPath, ""); rr.Code != http.StatusNotFound {
		t.Errorf("delete again: status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, catPath, `{"name":"X"}`); rr.Code != http.StatusNotFound {
		t.Errorf("patch missing: status=%d", rr.Code)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func seedReportData(t *testing.T, ledger *services.LedgerService) {
	t.Helper()
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		{Amount: core.Money{Cents: 300000}, Type: core.Income, Category: "Salary", Date: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 100000}, Type: core.Expense, Category: "Food", Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 50000}, Type: core.Expense, Category: "Transport", Date: time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 20000}, Type: core.Expense, Category: "Food", Date: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
	} {
		if _, err := ledger.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReportEndpoints(t *testing.T) {
	srv, ledger := newTestServer(t, Options{})
	seedReportData(t, ledger)

	rr := do(t, srv, http.MethodGet, "/api/reports/summary?preset=lastMonth", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d body=%s", rr.Code, rr.Body.String())
	}
	summary := decode[struct {
		Days        int            `json:"days"`
		Summary     report.Summary `json:"summary"`
		SavingsRate float64        `json:"savingsRate"`
	}](t, rr)
	if summary.Summary.TotalIncome.Cents != 300000 || summary.Summary.TotalExpenses.Cents != 150000 ||
		summary.Summary.NetBalance.Cents != 150000 || summary.Summary.Count != 3 {
		t.Errorf("summary = %+v", summary.Summary)
	}
	if summary.Days != 28 {
		t.Errorf("days = %d, want 28", summary.Days)
	}
	if summary.SavingsRate != 50 {
		t.Errorf("savingsRate = %v, want 50", summary.SavingsRate)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/monthly?start=2025-01-01&end=2025-02-28&labels=short", "")
	monthly := decode[struct {
		Monthly []report.MonthBucket `json:"monthly"`
	}](t, rr)
	if len(monthly.Monthly) != 2 || monthly.Monthly[0].Label != "January" || monthly.Monthly[1].Expenses.Cents != 150000 {
		t.Errorf("monthly = %+v", monthly.Monthly)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/top-categories?start=2025-01-01&end=2025-02-28&limit=1", "")
	top := decode[struct {
		Categories []report.CategoryAmount `json:"categories"`
	}](t, rr)
	if len(top.Categories) != 1 || top.Categories[0].Name != "Food" || top.Categories[0].Amount.Cents != 120000 {
		t.Errorf("top = %+v", top.Categories)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/comparison?start=2024-12-01&end=2025-02-28&months=2", "")
	cmp := decode[struct {
		Comparison []report.MonthBucket `json:"comparison"`
	}](t, rr)
	if len(cmp.Comparison) != 2 || cmp.Comparison[1].Label != "February" {
		t.Errorf("comparison = %+v", cmp.Comparison)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports?preset=allTime", "")
	full := decode[report.Report](t, rr)
	if full.Summary.Count != 4 || len(full.Recent) != 4 {
		t.Errorf("allTime summary = %+v recent=%d", full.Summary, len(full.Recent))
	}
}

func TestReportErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	tests := []struct {
		query    string
		wantCode int
	}{
		{"preset=nextWeek", http.StatusUnprocessableEntity},
		{"start=2025-03-01&end=2025-02-01", http.StatusUnprocessableEntity},
		{"labels=tiny", http.StatusBadRequest},
		{"limit=-1", http.StatusBadRequest},
		{"months=x", http.StatusBadRequest},
		{"start=01-02-2025", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, "/api/reports?"+tt.query, "")
		if rr.Code != tt.wantCode {
			t.Errorf("%s: status=%d, want %d", tt.query, rr.Code, tt.wantCode)
		}
	}
}

func TestPresetsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/reports/presets", "")
	body := decode[struct {
		Default string `json:"default"`
		Presets []struct {
			Name  string       `json:"name"`
			Range report.Range `json:"range"`
		} `json:"presets"`
	}](t, rr)
	if body.Default != string(services.DefaultPreset) {
		t.Errorf("default = %q", body.Default)
	}
	if len(body.Presets) != len(report.Presets) {
		t.Fatalf("presets = %d, want %d", len(body.Presets), len(report.Presets))
	}
	for _, p := range body.Presets {
		if p.Range.End.Before(p.Range.Start) {
			t.Errorf("%s: inverted range %+v", p.Name, p.Range)
		}
	}
}

func TestWriteRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{WriteRateLimit: 1})

	if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Food","type":"expense"}`); rr.Code != http.StatusCreated {
		t.Fatalf("first write: status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Rent","type":"expense"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if body := decode[ErrorBody](t, rr); body.Error == "" {
		t.Error("missing error message")
	}

	if rr := do(t, srv, http.MethodGet, "/api/categories", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited: status=%d", rr.Code)
	}
}

func TestTrustedProxiesKeyRateLimitByForwardedClient(t *testing.T) {
	srv, _ := newTestServer(t, Options{WriteRateLimit: 1, TrustedProxies: []string{"100.64.0.0/10", "bogus"}})

	post := func(client, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "100.64.0.1:443"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := post("198.51.100.1", `{"name":"Food","type":"expense"}`); code != http.StatusCreated {
		t.Fatalf("first client: status=%d", code)
	}
	if code := post("198.51.100.2", `{"name":"Rent","type":"expense"}`); code != http.StatusCreated {
		t.Fatalf("second client behind the same proxy: status=%d", code)
	}
	if code := post("198.51.100.1", `{"name":"Fuel","type":"expense"}`); code != http.StatusTooManyRequests {
		t.Fatalf("first client again: status=%d, want 429", code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodPut, "/api/transactions/1", `{}`)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status=%d, want 405", rr.Code)
	}
}
