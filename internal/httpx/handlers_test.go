package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   string          `json:"error"`
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memIdem) Claim(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	switch {
	case !ok:
		m.keys[key] = "pending"
		return "", true, nil
	case v == "pending":
		return "", false, redisx.ErrInFlight
	}
	return v, false, nil
}

func (m *memIdem) Complete(_ context.Context, key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = id
	return nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type testAPI struct {
	router  *chi.Mux
	catalog *catalog.Store
	idem    *memIdem
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zap.NewNop()
	cat := catalog.NewStore()
	require.NoError(t, cat.Seed(context.Background(), catalog.DefaultSeed()))

	idem := &memIdem{keys: map[string]string{}}
	r := NewRouter(log, 5*time.Second)
	(&ProductsHandler{Catalog: cat, Log: log}).Register(r)
	(&OrdersHandler{Service: orders.NewService(cat, orders.NewStore(), log), Idem: idem, Log: log}).Register(r)
	return &testAPI{router: r, catalog: cat, idem: idem}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) (int, response) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (a *testAPI) product(t *testing.T, name string) catalog.Product {
	t.Helper()
	for _, p := range a.catalog.List(context.Background(), catalog.Filter{}) {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not seeded", name)
	return catalog.Product{}
}

func orderBody(productID string, qty int) map[string]any {
	return map[string]any{
		"customerInfo": map[string]any{
			"name":  "John Doe",
			"email": "john.doe@example.com",
			"phone": "+1-555-123-4567",
			"shippingAddress": map[string]any{
				"street": "123 Main St", "city": "New York", "state": "NY", "zipCode": "10001", "country": "USA",
			},
		},
		"items": []map[string]any{{"productId": productID, "quantity": qty}},
	}
}

func decodeOrder(t *testing.T, raw json.RawMessage) orders.Order {
	t.Helper()
	var o orders.Order
	require.NoError(t, json.Unmarshal(raw, &o))
	return o
}

func TestHealthAndIndex(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	code, resp = a.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Welcome to the E-commerce API", resp.Message)

	code, resp = a.do(t, http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Route not found", resp.Message)
}

func TestListProducts_Filters(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		query string
		count int
	}{
		{"", 5},
		{"?category=electronics", 2},
		{"?minPrice=20&maxPrice=90", 2},
		{"?inStock=true", 5},
		{"?category=Footwear&inStock=yes", 1},
	}
	for _, tt := range tests {
		code, resp := a.do(t, http.MethodGet, "/api/products"+tt.query, nil)
		require.Equal(t, http.StatusOK, code, tt.query)
		require.NotNil(t, resp.Count)
		assert.Equal(t, tt.count, *resp.Count, tt.query)
	}

	code, _ := a.do(t, http.MethodGet, "/api/products?minPrice=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProductCRUD(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Desk Lamp", "description": "LED lamp", "price": 24.5, "category": "Home", "stock": 3,
	})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var p catalog.Product
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.True(t, p.Price.Equal(decimal.RequireFromString("24.5")))

	code, resp = a.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Bad", "description": "x", "price": -1, "category": "Home",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation error", resp.Message)

	code, _ = a.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Lamp", "description": "x", "price": 1, "category": "Home", "color": "red",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(t, http.MethodPut, "/api/products/"+p.ID, map[string]any{"name": "Desk Lamp XL"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, "Desk Lamp XL", p.Name)

	code, resp = a.do(t, http.MethodPut, "/api/products/missing", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Product not found", resp.Message)

	code, _ = a.do(t, http.MethodPatch, "/api/products/"+p.ID+"/stock", map[string]any{"stock": -1})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(t, http.MethodPatch, "/api/products/"+p.ID+"/stock", map[string]any{"stock": "7"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(t, http.MethodPatch, "/api/products/missing/stock", map[string]any{"stock": 7})
	assert.Equal(t, http.StatusNotFound, code)
	code, resp = a.do(t, http.MethodPatch, "/api/products/"+p.ID+"/stock", map[string]any{"stock": 7})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, 7, p.Stock)

	code, _ = a.do(t, http.MethodDelete, "/api/products/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(t, http.MethodGet, "/api/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderLifecycle(t *testing.T) {
	a := newAPI(t)
	hp := a.product(t, "Wireless Bluetooth Headphones")

	code, resp := a.do(t, http.MethodPost, "/api/orders", orderBody(hp.ID, 2))
	require.Equal(t, http.StatusCreated, code, resp.Message)
	o := decodeOrder(t, resp.Data)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, "199.98", o.TotalAmount.StringFixed(2))

	code, resp = a.do(t, http.MethodGet, "/api/orders/"+o.ID+"/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"status":"pending"`)

	code, resp = a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", map[string]any{"status": "shipped", "trackingNumber": "TRK42"})
	require.Equal(t, http.StatusOK, code)
	o = decodeOrder(t, resp.Data)
	assert.Equal(t, orders.StatusShipped, o.Status)
	assert.Equal(t, "TRK42", o.TrackingNumber)

	code, resp = a.do(t, http.MethodDelete, "/api/orders/"+o.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "shipped")
	assert.Equal(t, 48, a.product(t, hp.Name).Stock)

	code, resp = a.do(t, http.MethodGet, "/api/orders/customer/JOHN.DOE@example.com", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *resp.Count)

	code, resp = a.do(t, http.MethodGet, "/api/orders?status=shipped", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *resp.Count)
}

func TestCreateOrder_Failures(t *testing.T) {
	a := newAPI(t)
	shoes := a.product(t, "Running Shoes")

	code, resp := a.do(t, http.MethodPost, "/api/orders", orderBody(shoes.ID, 31))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "Insufficient stock")
	assert.Equal(t, 30, a.product(t, shoes.Name).Stock)

	code, resp = a.do(t, http.MethodPost, "/api/orders", orderBody("7f1c9b3e-4a2d-4c1b-9e5f-2a6b8c0d1e2f", 1))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "not found")

	code, resp = a.do(t, http.MethodPost, "/api/orders", orderBody(shoes.ID, 0))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation error", resp.Message)

	code, _ = a.do(t, http.MethodPost, "/api/orders", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateOrder_HugeDuplicateLinesRejected(t *testing.T) {
	a := newAPI(t)
	shoes := a.product(t, "Running Shoes")

	body := orderBody(shoes.ID, 1)
	body["items"] = []map[string]any{
		{"productId": shoes.ID, "quantity": math.MaxInt/2 + 1},
		{"productId": shoes.ID, "quantity": math.MaxInt/2 + 1},
	}
	code, resp := a.do(t, http.MethodPost, "/api/orders", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.Equal(t, 30, a.product(t, shoes.Name).Stock)
}

func TestUpdateStatus_Errors(t *testing.T) {
	a := newAPI(t)
	mug := a.product(t, "Coffee Mug")

	_, resp := a.do(t, http.MethodPost, "/api/orders", orderBody(mug.ID, 1))
	o := decodeOrder(t, resp.Data)

	code, resp := a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", map[string]any{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Valid status is required", resp.Message)

	code, _ = a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(t, http.MethodPatch, "/api/orders/missing/status", map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Order not found", resp.Message)

	code, _ = a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 200, a.product(t, mug.Name).Stock)

	code, resp = a.do(t, http.MethodDelete, "/api/orders/"+o.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "already cancelled")
	assert.Equal(t, 200, a.product(t, mug.Name).Stock)
}

func TestTracking(t *testing.T) {
	a := newAPI(t)
	mug := a.product(t, "Coffee Mug")
	_, resp := a.do(t, http.MethodPost, "/api/orders", orderBody(mug.ID, 1))
	o := decodeOrder(t, resp.Data)

	code, _ := a.do(t, http.MethodPut, "/api/orders/"+o.ID+"/tracking", map[string]any{"trackingNumber": ""})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(t, http.MethodPut, "/api/orders/"+o.ID+"/tracking", map[string]any{"trackingNumber": "TRK9"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "TRK9", decodeOrder(t, resp.Data).TrackingNumber)
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	a := newAPI(t)
	tee := a.product(t, "Organic Cotton T-Shirt")

	code, resp := a.do(t, http.MethodPost, "/api/orders", orderBody(tee.ID, 3), headerIdempotencyKey, "abc")
	require.Equal(t, http.StatusCreated, code)
	first := decodeOrder(t, resp.Data)

	code, resp = a.do(t, http.MethodPost, "/api/orders", orderBody(tee.ID, 3), headerIdempotencyKey, "abc")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.ID, decodeOrder(t, resp.Data).ID)
	assert.Equal(t, 97, a.product(t, tee.Name).Stock)

	a.idem.keys["inflight"] = "pending"
	code, _ = a.do(t, http.MethodPost, "/api/orders", orderBody(tee.ID, 1), headerIdempotencyKey, "inflight")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(t, http.MethodPost, "/api/orders", orderBody(tee.ID, 1000), headerIdempotencyKey, "retry")
	assert.Equal(t, http.StatusBadRequest, code)
	_, held := a.idem.keys["retry"]
	assert.False(t, held)
}

func TestErrorBodyShape(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/orders/missing", nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	assert.JSONEq(t, `{"success":false,"message":"Order not found"}`, rec.Body.String())
}
