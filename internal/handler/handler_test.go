package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dukerupert/grocysync/internal/backup"
	"github.com/dukerupert/grocysync/internal/database"
	"github.com/dukerupert/grocysync/internal/gateway"
	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/repository"
	"github.com/dukerupert/grocysync/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupStores(t *testing.T) *store.Stores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

func seedCatalog(t *testing.T, s *store.Stores) {
	t.Helper()
	ctx := context.Background()
	if err := s.Products.UpsertAll(ctx, []model.Product{
		{ID: 1, Name: "Milk", Active: true},
		{ID: 2, Name: "Bread", Active: true},
	}); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	if err := s.ProductBarcodes.UpsertAll(ctx, []model.ProductBarcode{
		{ID: 10, ProductID: 2, Barcode: "4001234"},
	}); err != nil {
		t.Fatalf("seed barcodes: %v", err)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestCacheList(t *testing.T) {
	s := setupStores(t)
	seedCatalog(t, s)
	h := NewCacheHandler(s, testLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{entity}", h.List)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	products := decode[[]model.Product](t, rec)
	if len(products) != 2 {
		t.Errorf("got %d products, want 2", len(products))
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/locations", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty table body = %q, want []", body)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/widgets", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown entity status = %d", rec.Code)
	}
}

func TestCacheGet(t *testing.T) {
	s := setupStores(t)
	seedCatalog(t, s)
	h := NewCacheHandler(s, testLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{entity}/{id}", h.Get)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/products/2", http.StatusOK},
		{"/api/products/99", http.StatusNotFound},
		{"/api/products/abc", http.StatusBadRequest},
		{"/api/nothing/1", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.status)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/2", nil))
	if p := decode[model.Product](t, rec); p.Name != "Bread" {
		t.Errorf("name = %q, want Bread", p.Name)
	}
}

func TestResolve(t *testing.T) {
	s := setupStores(t)
	seedCatalog(t, s)
	h := NewResolveHandler(repository.NewRecipeEditRepository(s), testLogger)

	tests := []struct {
		query string
		kind  string
		step  string
		name  string
	}{
		{"code=grcy:p:1", "product", "grocycode", "Milk"},
		{"code=4001234", "product", "barcode", "Bread"},
		{"code=grcy:c:3", "wrong_code_type", "grocycode", ""},
		{"code=999", "choose_product", "", ""},
		{"code=milk&policy=input", "product", "name", "Milk"},
		{"code=Cheese&policy=input", "create_product", "", ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.Resolve(rec, httptest.NewRequest(http.MethodGet, "/api/resolve?"+tt.query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.query, rec.Code)
		}
		got := decode[resolveResponse](t, rec)
		if got.Kind != tt.kind || got.Step != tt.step {
			t.Errorf("%s: kind/step = %s/%s, want %s/%s", tt.query, got.Kind, got.Step, tt.kind, tt.step)
		}
		if tt.name != "" && (got.Product == nil || got.Product.Name != tt.name) {
			t.Errorf("%s: product = %+v, want %s", tt.query, got.Product, tt.name)
		}
	}

	rec := httptest.NewRecorder()
	h.Resolve(rec, httptest.NewRequest(http.MethodGet, "/api/resolve", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing code status = %d", rec.Code)
	}
}

func TestPendingList(t *testing.T) {
	s := setupStores(t)
	ctx := context.Background()
	if err := s.PendingProducts.UpsertAll(ctx, []model.PendingProduct{{ID: 1, Name: "Oat drink"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.PendingProductBarcodes.UpsertAll(ctx, []model.PendingProductBarcode{{ID: 1, PendingProductID: 1, Barcode: "555"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.PendingPurchases.UpsertAll(ctx, []model.PendingPurchase{
		{ID: 1, PendingProductID: 1, Amount: 2},
		{ID: 2, PendingProductID: 7, Amount: 1},
	}); err != nil {
		t.Fatal(err)
	}

	h := NewPendingHandler(repository.NewPendingPurchasesRepository(s), testLogger)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/pending-purchases", nil))

	entries := decode[[]pendingEntry](t, rec)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Product.Name != "Oat drink" || len(e.Barcodes) != 1 || len(e.Purchases) != 1 {
		t.Errorf("entry = %+v", e)
	}
}

func TestRecipesSettings(t *testing.T) {
	s := setupStores(t)
	h := NewSettingsHandler(s.Settings, nil, testLogger)

	rec := httptest.NewRecorder()
	h.GetRecipes(rec, httptest.NewRequest(http.MethodGet, "/api/settings/recipes", nil))
	got := decode[recipesSettingsJSON](t, rec)
	if got.Layout != "linear" || got.Sort != "name" || !got.Ascending {
		t.Errorf("defaults = %+v", got)
	}

	body := `{"recipes_list_layout":"grid","recipes_sort_mode":"calories","recipes_sort_ascending":"false"}`
	rec = httptest.NewRecorder()
	h.UpdateRecipes(rec, httptest.NewRequest(http.MethodPut, "/api/settings/recipes", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	got = decode[recipesSettingsJSON](t, rec)
	if got.Layout != "grid" || got.Sort != "calories" || got.Ascending {
		t.Errorf("after update = %+v", got)
	}

	for _, bad := range []string{
		`{"recipes_list_layout":"table"}`,
		`{"recipes_sort_mode":"price"}`,
		`{"recipes_sort_ascending":"maybe"}`,
		`{"theme":"dark"}`,
		`not json`,
	} {
		rec = httptest.NewRecorder()
		h.UpdateRecipes(rec, httptest.NewRequest(http.MethodPut, "/api/settings/recipes", strings.NewReader(bad)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", bad, rec.Code)
		}
	}
}

// fakeGrocy answers the freshness token and collection requests.
type fakeGrocy struct {
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeGrocy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/system/db-changed-time":
		fmt.Fprint(w, `{"changed_time":"2024-05-01 10:00:00"}`)
	case "/api/objects/products":
		fmt.Fprint(w, `[{"id":"1","name":"Milk","active":"1"}]`)
	case "/api/recipes/fulfillment":
		fmt.Fprint(w, `[]`)
	default:
		fmt.Fprint(w, `[]`)
	}
}

func (f *fakeGrocy) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func setupSync(t *testing.T, serverURL string) (*SyncHandler, *store.Stores) {
	t.Helper()
	s := setupStores(t)
	client, err := grocy.NewClient(grocy.Config{ServerURL: serverURL, APIKey: "k"}, testLogger)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	gw := gateway.New(client, s, nil, testLogger)
	return NewSyncHandler(gw, s.Watermarks, testLogger), s
}

func TestSync(t *testing.T) {
	fake := &fakeGrocy{hits: map[string]int{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	h, s := setupSync(t, srv.URL)

	rec := httptest.NewRecorder()
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/api/sync?entity=products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	status := decode[syncStatus](t, rec)
	if status.Offline {
		t.Error("offline after successful sync")
	}
	if n, _ := s.Products.Count(context.Background()); n != 1 {
		t.Errorf("cached products = %d, want 1", n)
	}

	rec = httptest.NewRecorder()
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/api/sync?entity=products", nil))
	if got := fake.count("/api/objects/products"); got != 1 {
		t.Errorf("collection fetched %d times, want 1", got)
	}

	rec = httptest.NewRecorder()
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/api/sync?entity=products&force=1", nil))
	if got := fake.count("/api/objects/products"); got != 2 {
		t.Errorf("forced sync fetched %d times total, want 2", got)
	}
}

func TestSyncRejectsEntities(t *testing.T) {
	h, _ := setupSync(t, "http://127.0.0.1:1")

	for _, q := range []string{"entity=widgets", "entity=pending_purchases"} {
		rec := httptest.NewRecorder()
		h.Sync(rec, httptest.NewRequest(http.MethodPost, "/api/sync?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestSyncOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h, _ := setupSync(t, url)
	rec := httptest.NewRecorder()
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))
	if !decode[syncStatus](t, rec).Offline {
		t.Error("status not offline after transport failure")
	}
}

func TestBackupDisabled(t *testing.T) {
	h := NewBackupHandler(backup.NewManager(backup.Config{}, nil, nil, testLogger), "secret", testLogger)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/backup", nil))
	if got := decode[backup.Status](t, rec); got.State != backup.StateDisabled {
		t.Errorf("state = %q, want disabled", got.State)
	}

	rec = httptest.NewRecorder()
	h.Run(rec, httptest.NewRequest(http.MethodPost, "/api/backup", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("run status = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/backups", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("list status = %d, want 409", rec.Code)
	}
}
