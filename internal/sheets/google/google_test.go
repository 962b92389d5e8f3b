package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"finanzas/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu      sync.Mutex
	header  [][]any
	ids     [][]any
	updates int
	appends [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!A1:H1"):
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.header})
	case r.Method == http.MethodPut && strings.HasSuffix(path, "!A1:H1"):
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.header = body.Values
		f.updates++
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appends = append(f.appends, body.Values...)
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"'2026 Movimientos'!A2:H2"}}`))
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!A:A"):
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.ids})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeSheets) counts() (updates int, header [][]any, appends [][]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates, f.header, f.appends
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "", nil)
}

func sampleTransaction() core.Transaction {
	return core.Transaction{
		ID: "tx-1",
		TransactionDraft: core.TransactionDraft{
			Amount:      core.MustParseMoney("1250.5"),
			Kind:        core.Expense,
			AccountID:   "acc-1",
			CategoryID:  "alimentacion",
			Description: "Mercado",
			Date:        core.NewDate(2026, 3, 14),
		},
		CreatedAt: time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	}
}

func TestAppendWritesHeaderOnceAndRow(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.Append(ctx, sampleTransaction())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "'2026 Movimientos'!A2:H2" {
		t.Errorf("ref = %q", ref)
	}
	second := sampleTransaction()
	second.ID = "tx-2"
	if _, err := c.Append(ctx, second); err != nil {
		t.Fatalf("second append: %v", err)
	}

	updates, header, appends := fake.counts()
	if updates != 1 {
		t.Errorf("header writes = %d, want 1", updates)
	}
	if len(header) != 1 || header[0][0] != "ID" {
		t.Errorf("header = %v", header)
	}
	if len(appends) != 2 {
		t.Fatalf("appended rows = %d, want 2", len(appends))
	}
	row := appends[0]
	want := []string{"tx-1", "2026-03-14", "gasto", "acc-1", "alimentacion", "Mercado", "1250.50", "2026-03-14 18:30:00"}
	for i, v := range want {
		if row[i] != v {
			t.Errorf("col %d = %v, want %q", i, row[i], v)
		}
	}
}

func TestAppendSkipsHeaderWhenPresent(t *testing.T) {
	fake := &fakeSheets{header: [][]any{{"ID"}}}
	c := newTestClient(t, fake)

	if _, err := c.Append(context.Background(), sampleTransaction()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if updates, _, _ := fake.counts(); updates != 0 {
		t.Errorf("header rewritten %d times", updates)
	}
}

func TestAppendRequiresID(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	tx := sampleTransaction()
	tx.ID = ""
	if _, err := c.Append(context.Background(), tx); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestMirrored(t *testing.T) {
	fake := &fakeSheets{ids: [][]any{{"ID"}, {"tx-0"}, {}, {"tx-1"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ok, err := c.Mirrored(ctx, sampleTransaction())
	if err != nil {
		t.Fatalf("mirrored: %v", err)
	}
	if !ok {
		t.Error("tx-1 should be mirrored")
	}

	other := sampleTransaction()
	other.ID = "tx-9"
	ok, err = c.Mirrored(ctx, other)
	if err != nil {
		t.Fatalf("mirrored: %v", err)
	}
	if ok {
		t.Error("tx-9 should not be mirrored")
	}
}

func TestNilServiceFails(t *testing.T) {
	c := NewWithService(nil, "id", "", nil)
	if _, err := c.Append(context.Background(), sampleTransaction()); err == nil {
		t.Error("expected append error")
	}
	if _, err := c.Mirrored(context.Background(), sampleTransaction()); err == nil {
		t.Error("expected mirrored error")
	}
}

func TestNewConfigErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{}, nil); err == nil || err.Error() != "missing spreadsheet id" {
		t.Errorf("missing id error = %v", err)
	}
	_, err := New(ctx, Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing sheets credentials") {
		t.Errorf("missing credentials error = %v", err)
	}
	_, err = New(ctx, Config{
		SpreadsheetID:   "x",
		OAuthClientJSON: []byte("invalid-json"),
		OAuthTokenJSON:  []byte(`{"access_token":"t"}`),
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("oauth config error = %v", err)
	}
}

func TestSheetFor(t *testing.T) {
	c := NewWithService(nil, "id", "2025 Ledger", nil)
	if got := c.SheetFor(sampleTransaction()); got != "2025 Ledger" {
		t.Errorf("explicit year kept: %q", got)
	}
	c = NewWithService(nil, "id", "", nil)
	tx := sampleTransaction()
	tx.Date = core.Date{}
	tx.CreatedAt = time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)
	if got := c.SheetFor(tx); got != "2027 Movimientos" {
		t.Errorf("created_at fallback: %q", got)
	}
}

func TestHelpers(t *testing.T) {
	if got := quoteSheet("2026 Movimientos"); got != "'2026 Movimientos'" {
		t.Errorf("quoteSheet = %q", got)
	}
	if got := quoteSheet("Ledger"); got != "Ledger" {
		t.Errorf("quoteSheet plain = %q", got)
	}
	if got := kindLabel(core.Income); got != "ingreso" {
		t.Errorf("kindLabel = %q", got)
	}
	if containsID([][]any{{"a"}}, "") {
		t.Error("empty id never matches")
	}
	b, err := ReadCredential(" {\"a\":1} ", "/does/not/matter")
	if err != nil || string(b) != `{"a":1}` {
		t.Errorf("inline credential = %q, %v", b, err)
	}
	if _, err := ReadCredential("", "/does/not/exist.json"); err == nil {
		t.Error("expected read error")
	}
	if b, err := ReadCredential("", ""); err != nil || b != nil {
		t.Errorf("empty credential = %q, %v", b, err)
	}
}
