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

	"finanzas/internal/cache"
	"finanzas/internal/confirm"
	"finanzas/internal/core"
	"finanzas/internal/engine"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/services"
	"finanzas/internal/storage/memory"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New(
		[]core.Account{
			{ID: "acc-1", Name: "Cuenta principal", Kind: "checking", Balance: core.MoneyFromInt(150_000), State: core.AccountActive},
			{ID: "acc-2", Name: "Efectivo", Kind: "cash", Balance: core.MoneyFromInt(40_000), State: core.AccountActive},
			{ID: "acc-3", Name: "Ahorro", Kind: "savings", Balance: core.MoneyFromInt(1_000), State: core.AccountInactive},
		},
		[]core.Category{
			{ID: "alimentacion", Label: "Alimentación", Kind: core.Expense},
			{ID: "salario", Label: "Salario", Kind: core.Income},
		},
		memory.DefaultTypes(),
	)

	now := func() time.Time { return fixedNow }
	eng := engine.NewDefault()
	txs := services.NewTransactionService(store, nil, nil)
	desk := confirm.NewDesk(confirm.Deps{Evaluator: eng, Accounts: store, Persister: txs, Now: now}, time.Hour)
	registry := cache.NewRegistry(store, store,
		cache.NewLRUCache[[]core.Category](8, time.Minute),
		cache.NewLRUCache[[]core.TransactionType](8, time.Minute))

	srv := NewServer(":0", Deps{
		Accounts:     services.NewAccountService(store, eng.Thresholds(), nil),
		Categories:   services.NewCategoryService(store, registry, nil),
		Transactions: txs,
		Registry:     registry,
		Reviews:      desk,
		Health:       store,
		Now:          now,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func field(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("%v: %q is not an object in %v", path, p, m)
		}
		cur = obj[p]
	}
	return cur
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		expectStatus(t, rec, http.StatusOK)
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id header", path)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s: missing security headers", path)
		}
	}

	env.srv.health = failingPinger{}
	rec := env.do(t, http.MethodGet, "/readyz", "", "")
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if got := field(t, decode(t, rec), "checks", "store"); !strings.Contains(got.(string), "database is locked") {
		t.Errorf("store check = %v", got)
	}

	rec = env.do(t, http.MethodGet, "/metrics", "", "")
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "reviews_open 0") {
		t.Errorf("metrics body: %s", rec.Body.String())
	}
}

func TestAPIRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/accounts", "", "")
	expectStatus(t, rec, http.StatusUnauthorized)
	if got := field(t, decode(t, rec), "code"); got != codeUnauthorized {
		t.Errorf("code = %v", got)
	}
}

func TestReviewConfirmRecordsOnce(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"100000","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"Mercado del mes"}`)
	expectStatus(t, rec, http.StatusCreated)
	body := decode(t, rec)
	id := body["id"].(string)
	if rec.Header().Get("Location") != "/api/reviews/"+id {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	if body["state"] != string(confirm.StateAwaitingConfirmation) {
		t.Fatalf("state = %v", body["state"])
	}
	if got := field(t, body, "outcome", "kind"); got != string(engine.Confirm) {
		t.Errorf("outcome = %v", got)
	}
	if got := field(t, body, "outcome", "projected"); got != "50000.00" {
		t.Errorf("projected = %v", got)
	}
	if got := field(t, body, "presentation", "confirm_label"); got != "Registrar gasto" {
		t.Errorf("confirm label = %v", got)
	}
	if got := field(t, body, "draft", "date"); got != "2026-03-14" {
		t.Errorf("default date = %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/reviews/"+id+"/confirm", "u1", "")
	expectStatus(t, rec, http.StatusCreated)
	body = decode(t, rec)
	if body["state"] != string(confirm.StateSubmitted) {
		t.Errorf("state = %v", body["state"])
	}
	if id, _ := field(t, body, "transaction", "id").(string); id == "" {
		t.Error("transaction id missing")
	}

	rec = env.do(t, http.MethodPost, "/api/reviews/"+id+"/confirm", "u1", "")
	expectStatus(t, rec, http.StatusConflict)
	if got := field(t, decode(t, rec), "code"); got != codeTransition {
		t.Errorf("second confirm code = %v", got)
	}

	acc, err := env.store.GetAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatal(err)
	}
	if !acc.Balance.Equal(core.MoneyFromInt(50_000)) {
		t.Errorf("balance = %s, want 50000.00", acc.Balance)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions?kind=expense", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	body = decode(t, rec)
	if body["total_records"] != float64(1) {
		t.Errorf("total_records = %v", body["total_records"])
	}
	if got := field(t, body, "stats", "total_expense"); got != "100000.00" {
		t.Errorf("total_expense = %v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/transactions", "u2", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["total_records"]; got != float64(0) {
		t.Errorf("other user sees %v transactions", got)
	}
}

func TestWarnConfirmCancelIsSafetyStop(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"1000","kind":"expense","account_id":"acc-2","category_id":"alimentacion","description":"Taxi","date":"2026-03-10"}`)
	expectStatus(t, rec, http.StatusCreated)
	body := decode(t, rec)
	if got := field(t, body, "outcome", "kind"); got != string(engine.WarnConfirm) {
		t.Fatalf("outcome = %v", got)
	}
	if got := field(t, body, "presentation", "cancel_label"); got != "Cancelar operación" {
		t.Errorf("cancel label = %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/reviews/"+body["id"].(string)+"/cancel", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	body = decode(t, rec)
	if body["safety_stop"] != true {
		t.Errorf("safety_stop = %v", body["safety_stop"])
	}
	if body["state"] != string(confirm.StateIdle) {
		t.Errorf("state = %v", body["state"])
	}
	if _, ok := body["outcome"]; ok {
		t.Error("outcome must be discarded on cancel")
	}
}

func TestDeniedAndBlocked(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"50000","kind":"expense","account_id":"acc-2","category_id":"alimentacion","description":"Televisor"}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	body := decode(t, rec)
	if body["code"] != codeDenied {
		t.Errorf("code = %v", body["code"])
	}
	if got := field(t, body, "review", "state"); got != string(confirm.StateRejected) {
		t.Errorf("state = %v", got)
	}
	if got := field(t, body, "review", "outcome", "shortfall"); got != "10000.00" {
		t.Errorf("shortfall = %v", got)
	}
	id := field(t, body, "review", "id").(string)

	rec = env.do(t, http.MethodPost, "/api/reviews/"+id+"/confirm", "u1", "")
	expectStatus(t, rec, http.StatusConflict)

	rec = env.do(t, http.MethodPost, "/api/reviews/"+id+"/acknowledge", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["state"]; got != string(confirm.StateIdle) {
		t.Errorf("state after acknowledge = %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"10","kind":"income","account_id":"acc-3","category_id":"salario","description":"Intereses"}`)
	expectStatus(t, rec, http.StatusConflict)
	body = decode(t, rec)
	if body["code"] != codeBlocked {
		t.Errorf("code = %v", body["code"])
	}
	if got := field(t, body, "review", "outcome", "kind"); got != string(engine.Blocked) {
		t.Errorf("outcome = %v", got)
	}
}

func TestEditDraftReevaluates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"1000","kind":"expense","account_id":"acc-2","category_id":"alimentacion","description":"Taxi"}`)
	expectStatus(t, rec, http.StatusCreated)
	id := decode(t, rec)["id"].(string)

	rec = env.do(t, http.MethodPut, "/api/reviews/"+id+"/draft", "u1",
		`{"amount":"2500.50","kind":"income","account_id":"acc-2","category_id":"salario","description":"Reembolso"}`)
	expectStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if got := field(t, body, "outcome", "kind"); got != string(engine.Confirm) {
		t.Errorf("outcome = %v", got)
	}
	if got := field(t, body, "outcome", "projected"); got != "42500.50" {
		t.Errorf("projected = %v", got)
	}
	if got := field(t, body, "draft", "description"); got != "Reembolso" {
		t.Errorf("draft not replaced: %v", got)
	}

	rec = env.do(t, http.MethodPut, "/api/reviews/"+id+"/draft", "u1",
		`{"amount":"90000","kind":"expense","account_id":"acc-2","category_id":"alimentacion","description":"Moto"}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if got := field(t, decode(t, rec), "review", "state"); got != string(confirm.StateRejected) {
		t.Errorf("state = %v", got)
	}
}

func TestReviewsAreScopedToUser(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"10","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"Pan"}`)
	expectStatus(t, rec, http.StatusCreated)
	id := decode(t, rec)["id"].(string)

	expectStatus(t, env.do(t, http.MethodGet, "/api/reviews/"+id, "u1", ""), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/reviews/"+id, "u2", ""), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodPost, "/api/reviews/"+id+"/confirm", "u2", ""), http.StatusNotFound)
}

func TestPersistenceFailureRejectsReview(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/reviews", "u1",
		`{"amount":"10","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"Pan"}`)
	expectStatus(t, rec, http.StatusCreated)
	id := decode(t, rec)["id"].(string)

	// The account is deactivated after the verdict; the ledger refuses.
	rec = env.do(t, http.MethodPatch, "/api/accounts/acc-1/state", "u1", `{"state":"inactive"}`)
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodPost, "/api/reviews/"+id+"/confirm", "u1", "")
	expectStatus(t, rec, http.StatusBadGateway)
	body := decode(t, rec)
	if body["code"] != codePersistence {
		t.Errorf("code = %v", body["code"])
	}
	if got := field(t, body, "review", "state"); got != string(confirm.StateRejected) {
		t.Errorf("state = %v", got)
	}
	if !strings.Contains(field(t, body, "review", "failure").(string), "inactive") {
		t.Errorf("failure reason not carried: %v", body)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad amount", `{"amount":"abc","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"x"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"amount":"0","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"x"}`, http.StatusUnprocessableEntity},
		{"bad kind", `{"amount":"1","kind":"transfer","account_id":"acc-1","category_id":"alimentacion","description":"x"}`, http.StatusUnprocessableEntity},
		{"no description", `{"amount":"1","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":""}`, http.StatusUnprocessableEntity},
		{"bad date", `{"amount":"1","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"x","date":"14/03/2026"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"amount":`, http.StatusUnprocessableEntity},
		{"unknown account", `{"amount":"1","kind":"expense","account_id":"nope","category_id":"alimentacion","description":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/reviews", "u1", tt.body)
			expectStatus(t, rec, tt.want)
		})
	}
	if n := env.srv.reviews.Len(); n != 0 {
		t.Errorf("failed reviews left open: %d", n)
	}
}

func TestAccountsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/accounts", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	if got := len(decode(t, rec)["accounts"].([]any)); got != 3 {
		t.Errorf("accounts = %d", got)
	}

	rec = env.do(t, http.MethodGet, "/api/accounts/eligible", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	eligible := decode(t, rec)["accounts"].([]any)
	if len(eligible) != 2 {
		t.Fatalf("eligible = %d", len(eligible))
	}
	if got := eligible[1].(map[string]any)["tier"]; got != string(engine.TierLow) {
		t.Errorf("tier of acc-2 = %v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/accounts/summary", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if body["total_balance"] != "191000.00" || body["active"] != float64(2) || body["low_balance_active"] != float64(1) {
		t.Errorf("summary = %v", body)
	}

	rec = env.do(t, http.MethodPost, "/api/accounts", "u1", `{"name":"Tarjeta","kind":"credit","balance":"0"}`)
	expectStatus(t, rec, http.StatusCreated)
	if decode(t, rec)["state"] != string(core.AccountActive) {
		t.Error("new accounts default to active")
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/accounts", "u1", `{"name":"tarjeta"}`), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPost, "/api/accounts", "u1", `{"name":""}`), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(t, http.MethodPost, "/api/accounts", "u1", `{"name":"X","balance":"-5"}`), http.StatusUnprocessableEntity)

	expectStatus(t, env.do(t, http.MethodPatch, "/api/accounts/acc-3/state", "u1", `{"state":"bogus"}`), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(t, http.MethodPatch, "/api/accounts/missing/state", "u1", `{"state":"active"}`), http.StatusNotFound)
}

func TestAccountEditAndDelete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/accounts/acc-2", "u1", `{"name":"Caja","kind":"cash","state":"inactive","balance":"999"}`)
	expectStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if body["name"] != "Caja" || body["state"] != string(core.AccountInactive) || body["balance"] != "40000.00" {
		t.Errorf("edited account = %v", body)
	}
	expectStatus(t, env.do(t, http.MethodPut, "/api/accounts/acc-2", "u1", `{"name":"ahorro"}`), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPut, "/api/accounts/acc-2", "u1", `{"name":""}`), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(t, http.MethodPut, "/api/accounts/missing", "u1", `{"name":"X"}`), http.StatusNotFound)

	d := core.TransactionDraft{
		Amount: core.MoneyFromInt(10), Kind: core.Expense, AccountID: "acc-1", CategoryID: "alimentacion",
		Description: "mercado", Date: core.NewDate(2026, 3, 1), UserID: "u1",
	}
	if _, err := env.store.Persist(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	rec = env.do(t, http.MethodDelete, "/api/accounts/acc-1", "u1", "")
	expectStatus(t, rec, http.StatusConflict)
	if decode(t, rec)["code"] != codeConflict {
		t.Errorf("body = %s", rec.Body.String())
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/accounts/acc-3", "u1", ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/accounts/acc-3", "u1", ""), http.StatusNotFound)
	rec = env.do(t, http.MethodGet, "/api/accounts", "u1", "")
	if got := len(decode(t, rec)["accounts"].([]any)); got != 2 {
		t.Errorf("accounts after delete = %d", got)
	}
}

func TestCategoryWritesRefreshListing(t *testing.T) {
	env := newTestEnv(t)
	categories := func() []any {
		t.Helper()
		rec := env.do(t, http.MethodGet, "/api/categories", "u1", "")
		expectStatus(t, rec, http.StatusOK)
		return decode(t, rec)["categories"].([]any)
	}
	if got := len(categories()); got != 2 {
		t.Fatalf("categories = %d", got)
	}

	rec := env.do(t, http.MethodPost, "/api/categories", "u1", `{"id":"ocio","label":"Ocio","kind":"gasto"}`)
	expectStatus(t, rec, http.StatusCreated)
	if rec.Header().Get("Location") != "/api/categories/ocio" || decode(t, rec)["kind"] != string(core.Expense) {
		t.Errorf("created = %s", rec.Body.String())
	}
	if got := len(categories()); got != 3 {
		t.Fatalf("categories after create = %d", got)
	}

	expectStatus(t, env.do(t, http.MethodPut, "/api/categories/ocio", "u1", `{"label":"Ocio y cine"}`), http.StatusOK)
	found := false
	for _, c := range categories() {
		if c.(map[string]any)["label"] == "Ocio y cine" {
			found = true
		}
	}
	if !found {
		t.Error("listing still shows the old label")
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/categories", "u1", `{"id":"salario","label":"Otro"}`), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPost, "/api/categories", "u1", `{"label":""}`), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(t, http.MethodPut, "/api/categories/missing", "u1", `{"label":"X"}`), http.StatusNotFound)

	d := core.TransactionDraft{
		Amount: core.MoneyFromInt(10), Kind: core.Expense, AccountID: "acc-1", CategoryID: "alimentacion",
		Description: "mercado", Date: core.NewDate(2026, 3, 1), UserID: "u1",
	}
	if _, err := env.store.Persist(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, env.do(t, http.MethodDelete, "/api/categories/alimentacion", "u1", ""), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/categories/ocio", "u1", ""), http.StatusNoContent)
	if got := len(categories()); got != 2 {
		t.Fatalf("categories after delete = %d", got)
	}
	expectStatus(t, env.do(t, http.MethodDelete, "/api/categories/ocio", "u1", ""), http.StatusNotFound)
}

func TestFormOptions(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/form-options", "u1", "")
	expectStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if len(body["accounts"].([]any)) != 2 || len(body["categories"].([]any)) != 2 || len(body["transaction_types"].([]any)) != 2 {
		t.Errorf("form options = %v", body)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/categories", "u1", ""), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/transaction-types", "u1", ""), http.StatusOK)
}

func TestListTransactionsRejectsBadFilter(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/transactions?from=yesterday&limit=0", "u1", "")
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	msg := decode(t, rec)["message"].(string)
	if !strings.Contains(msg, "from") || !strings.Contains(msg, "limit") {
		t.Errorf("message = %q", msg)
	}
}

func ratelimitConfig(perMinute int) ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.RequestsPerMinute = perMinute
	return cfg
}

func TestMutationsAreRateLimited(t *testing.T) {
	store := memory.NewFromFiles(t.TempDir())
	eng := engine.NewDefault()
	txs := services.NewTransactionService(store, nil, nil)
	srv := NewServer(":0", Deps{
		Accounts:     services.NewAccountService(store, eng.Thresholds(), nil),
		Transactions: txs,
		Registry:     store,
		Reviews:      confirm.NewDesk(confirm.Deps{Evaluator: eng, Accounts: store, Persister: txs}, time.Hour),
		Health:       store,
		RateLimit:    ratelimitConfig(1),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	env := &testEnv{srv: srv, store: store}

	body := `{"amount":"1","kind":"expense","account_id":"acc-1","category_id":"alimentacion","description":"x"}`
	expectStatus(t, env.do(t, http.MethodPost, "/api/reviews", "u1", body), http.StatusCreated)
	rec := env.do(t, http.MethodPost, "/api/reviews", "u1", body)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if decode(t, rec)["code"] != codeRateLimited {
		t.Errorf("body = %s", rec.Body.String())
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/accounts", "u1", ""), http.StatusOK)
}
