package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/auth"
	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/cart"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/order"
	"github.com/marketfold/shopedge/internal/ratelimit"
	"github.com/marketfold/shopedge/internal/search"
)

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:           "shopedge",
		CartTTL:               time.Hour,
		CartItemsTTL:          30 * time.Minute,
		CartTotalTTL:          time.Hour,
		ProductTTL:            30 * time.Minute,
		SearchTTL:             15 * time.Minute,
		TrendingTTL:           time.Hour,
		SearchCacheMaxEntries: 100,
		EnableRateLimit:       false,
		RateLimitRequests:     100,
		RateLimitWindow:       time.Minute,
		PublicPathPrefixes:    []string{"/health", "/metrics", "/api/products", "/api/search"},
		TrendingSize:          10,
		IndexFailureThreshold: 5,
		IndexBreakerTimeout:   time.Minute,
		AdminToken:            "testtoken",
	}
}

type env struct {
	router  http.Handler
	catalog *catalog.Service
	bus     *events.Bus
}

func newEnv(t *testing.T, cfg *config.Config) *env {
	t.Helper()

	store := cache.NewMockStore()
	coord := cache.NewCoordinator(store)
	bus := events.NewBus()

	results, err := cache.NewResultCache(cfg.SearchCacheMaxEntries, cfg.SearchTTL)
	if err != nil {
		t.Fatalf("NewResultCache: %v", err)
	}
	t.Cleanup(results.Close)

	index := search.NewMemoryIndex()
	catalogSvc := catalog.NewService(catalog.NewMemoryStore(), coord, index, results, bus, cfg)
	searchSvc := search.NewService(catalogSvc, index, results, cfg)
	cartSvc := cart.NewService(cart.NewMemoryStore(), coord, catalogSvc, bus, cfg)
	orderSvc := order.NewService(order.NewMemoryStore(), cartSvc, bus)

	router := NewRouter(Deps{
		Catalog:     catalogSvc,
		Cart:        cartSvc,
		Orders:      orderSvc,
		Search:      searchSvc,
		Coordinator: coord,
		Results:     results,
		Bus:         bus,
		Limiter:     ratelimit.New(store, cfg.RateLimitRequests, cfg.RateLimitWindow),
		Validator:   auth.StaticValidator{},
		Config:      cfg,
	})
	return &env{router: router, catalog: catalogSvc, bus: bus}
}

func (e *env) seed(t *testing.T, name, sku, category, price string) catalog.Product {
	t.Helper()
	p := catalog.Product{
		Name:          name,
		SKU:           sku,
		Category:      category,
		Price:         decimal.RequireFromString(price),
		StockQuantity: 10,
	}
	if err := e.catalog.Create(context.Background(), &p); err != nil {
		t.Fatalf("seed product %s: %v", sku, err)
	}
	return p
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t, testConfig())

	rr := e.do(http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]string
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestProductCRUDOverHTTP(t *testing.T) {
	e := newEnv(t, testConfig())

	rr := e.do(http.MethodPost, "/api/products", "", map[string]any{
		"name": "Wireless Mouse", "sku": "SKU-100", "price": "24.99",
		"category": "Electronics", "stock_quantity": 5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body)
	}
	var created catalog.Product
	json.Unmarshal(rr.Body.Bytes(), &created)
	if created.ID == 0 {
		t.Fatal("expected assigned product id")
	}

	rr = e.do(http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = e.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", created.ID), "", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = e.do(http.MethodGet, fmt.Sprintf("/api/products/%d", created.ID), "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestProductValidationErrors(t *testing.T) {
	e := newEnv(t, testConfig())

	rr := e.do(http.MethodPost, "/api/products", "", map[string]any{"sku": "SKU-1", "price": "1.00"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing name", rr.Code)
	}
	var resp struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error.Code != "VALIDATION_MISSING_FIELD" {
		t.Errorf("error code = %q, want VALIDATION_MISSING_FIELD", resp.Error.Code)
	}
	if resp.Error.RequestID == "" {
		t.Error("expected request_id in error envelope")
	}
}

func TestDuplicateSKUConflict(t *testing.T) {
	e := newEnv(t, testConfig())
	e.seed(t, "Mouse", "SKU-DUP", "Electronics", "24.99")

	rr := e.do(http.MethodPost, "/api/products", "", map[string]any{
		"name": "Another Mouse", "sku": "SKU-DUP", "price": "19.99",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestSearchOverHTTP(t *testing.T) {
	e := newEnv(t, testConfig())
	for i := 1; i <= 25; i++ {
		e.seed(t, fmt.Sprintf("Gadget %02d", i), fmt.Sprintf("SKU-%d", i), "Electronics", "9.99")
	}
	e.seed(t, "Oak Chair", "SKU-CHAIR", "Furniture", "89.99")

	rr := e.do(http.MethodGet, "/api/search?category=electronics&size=10&page=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var page search.ResultPage
	json.Unmarshal(rr.Body.Bytes(), &page)
	if page.TotalMatched != 25 {
		t.Errorf("total_matched = %d, want 25", page.TotalMatched)
	}
	if len(page.Items) != 5 {
		t.Errorf("page 2 items = %d, want 5", len(page.Items))
	}

	rr = e.do(http.MethodGet, "/api/search?sort=banana_asc", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad sort status = %d, want 400", rr.Code)
	}
}

func TestCartRequiresAuth(t *testing.T) {
	e := newEnv(t, testConfig())

	rr := e.do(http.MethodGet, "/api/cart/42", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestCartLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t, testConfig())
	p := e.seed(t, "Wireless Mouse", "SKU-7", "Electronics", "10.00")
	token := "user:42"

	rr := e.do(http.MethodPost, "/api/cart/42/items", token,
		map[string]any{"product_id": p.ID, "quantity": 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("add item status = %d, body %s", rr.Code, rr.Body)
	}
	var c cart.Cart
	json.Unmarshal(rr.Body.Bytes(), &c)
	if !c.TotalAmount.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("total = %s, want 20.00", c.TotalAmount)
	}

	rr = e.do(http.MethodPut, fmt.Sprintf("/api/cart/42/items/%d", p.ID), token,
		map[string]any{"quantity": 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("update item status = %d", rr.Code)
	}
	json.Unmarshal(rr.Body.Bytes(), &c)
	if !c.TotalAmount.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("total after update = %s, want 30.00", c.TotalAmount)
	}

	rr = e.do(http.MethodGet, "/api/cart/42/total", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("total status = %d", rr.Code)
	}

	rr = e.do(http.MethodDelete, "/api/cart/42", token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rr.Code)
	}

	rr = e.do(http.MethodGet, "/api/cart/42", token, nil)
	json.Unmarshal(rr.Body.Bytes(), &c)
	if len(c.Items) != 0 {
		t.Errorf("items after clear = %d, want 0", len(c.Items))
	}
}

func TestCartOwnershipEnforced(t *testing.T) {
	e := newEnv(t, testConfig())

	rr := e.do(http.MethodGet, "/api/cart/42", "user:7", nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for another user's cart", rr.Code)
	}
}

func TestRateLimitOverHTTP(t *testing.T) {
	cfg := testConfig()
	cfg.EnableRateLimit = true
	cfg.RateLimitRequests = 3
	e := newEnv(t, cfg)

	for i := 1; i <= 3; i++ {
		rr := e.do(http.MethodGet, "/api/products", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rr.Code)
		}
	}
	rr := e.do(http.MethodGet, "/api/products", "", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	e := newEnv(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer user:1")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("without admin token: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer user:1")
	req.Header.Set("X-Admin-Token", "testtoken")
	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("with admin token: status = %d, want 200", rr.Code)
	}
}

func TestCheckoutOverHTTP(t *testing.T) {
	e := newEnv(t, testConfig())
	p := e.seed(t, "Wireless Mouse", "SKU-ORDER", "Electronics", "10.00")
	token := "user:42"

	rr := e.do(http.MethodPost, "/api/orders/42/checkout", token, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty cart checkout status = %d, want 400", rr.Code)
	}

	rr = e.do(http.MethodPost, "/api/cart/42/items", token,
		map[string]any{"product_id": p.ID, "quantity": 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("add item status = %d, body %s", rr.Code, rr.Body)
	}

	rr = e.do(http.MethodPost, "/api/orders/42/checkout", token, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, body %s", rr.Code, rr.Body)
	}
	var o order.Order
	json.Unmarshal(rr.Body.Bytes(), &o)
	if !o.TotalAmount.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("order total = %s, want 20.00", o.TotalAmount)
	}
	if o.Status != order.StatusPending {
		t.Errorf("order status = %q, want PENDING", o.Status)
	}

	var c cart.Cart
	rr = e.do(http.MethodGet, "/api/cart/42", token, nil)
	json.Unmarshal(rr.Body.Bytes(), &c)
	if len(c.Items) != 0 {
		t.Errorf("cart items after checkout = %d, want 0", len(c.Items))
	}

	rr = e.do(http.MethodGet, "/api/orders/42", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}
	var history struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rr.Body.Bytes(), &history)
	if history.Count != 1 {
		t.Errorf("history count = %d, want 1", history.Count)
	}
}

func TestOrderOwnershipEnforced(t *testing.T) {
	e := newEnv(t, testConfig())

	rr := e.do(http.MethodGet, "/api/orders/42", "user:7", nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for another user's orders", rr.Code)
	}
}

func TestLiveEventFeedOverWebsocket(t *testing.T) {
	e := newEnv(t, testConfig())
	ts := httptest.NewServer(e.router)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/live"
	header := http.Header{"Authorization": {"Bearer user:42"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial through the full middleware chain: %v (status %d)", err, status)
	}
	defer conn.Close()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(100 * time.Millisecond)
	e.bus.Publish(context.Background(), events.TopicProduct, "product-created",
		map[string]string{"sku": "SKU-WS"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Envelope
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Topic != events.TopicProduct || got.Type != "product-created" {
		t.Errorf("got %s/%s, want product-events/product-created", got.Topic, got.Type)
	}
}

func TestTrendingEndpoint(t *testing.T) {
	e := newEnv(t, testConfig())
	e.seed(t, "Mouse", "SKU-1", "Electronics", "24.99")

	rr := e.do(http.MethodGet, "/api/products/trending?limit=5", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}
