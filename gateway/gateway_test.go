package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/foodonbus/pkg/cart"
	"github.com/example/foodonbus/pkg/catalog"
	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/history"
	"github.com/example/foodonbus/pkg/models"
	"github.com/example/foodonbus/pkg/order"
	"github.com/example/foodonbus/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 11, 26, 21, 0, 0, 0, time.UTC)

type failingAppender struct{}

func (failingAppender) Append(context.Context, *models.Order) error {
	return errors.New("disk full")
}

// flakyCarts fails saving an emptied cart and, when failDelete is set, every Delete.
type flakyCarts struct {
	*cart.MemoryStore
	failSave   bool
	failDelete bool
}

func (f *flakyCarts) Save(ctx context.Context, session string, c *cart.Cart) error {
	if f.failSave && c.IsEmpty() {
		return errors.New("cart backend unavailable")
	}
	return f.MemoryStore.Save(ctx, session, c)
}

func (f *flakyCarts) Delete(ctx context.Context, session string) error {
	if f.failDelete {
		return errors.New("cart backend unavailable")
	}
	return f.MemoryStore.Delete(ctx, session)
}

type harness struct {
	gw    *Gateway
	carts *cart.MemoryStore
}

func newHarness(t *testing.T, appender order.Appender) *harness {
	return newHarnessWithCarts(t, appender, nil)
}

func newHarnessWithCarts(t *testing.T, appender order.Appender, wrap func(*cart.MemoryStore) cart.Store) *harness {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Mode = gin.TestMode

	logger := zap.NewNop()
	store := repository.NewSerializedStore(
		repository.NewFileStore(filepath.Join(t.TempDir(), "orders.json"), logger), logger)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	if appender == nil {
		appender = store
	}

	cat := catalog.Default()
	carts := cart.NewMemoryStore(cat)
	var sessions cart.Store = carts
	if wrap != nil {
		sessions = wrap(carts)
	}
	gw := NewGateway(cfg, logger, Services{
		Catalog: cat,
		Carts:   sessions,
		Builder: order.NewBuilder(appender, logger, order.WithClock(func() time.Time { return testNow })),
		History: history.NewView(store, cfg.Order.CurrencySymbol),
	}, WithClock(func() time.Time { return testNow }))

	return &harness{gw: gw, carts: carts}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	code, body := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t, nil)

	code, body := h.do(t, http.MethodGet, "/api/v1/menu", nil)
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	require.Len(t, items, 6)
	first := items[0].(map[string]any)
	assert.Equal(t, "m1", first["id"])
	assert.Equal(t, float64(120), first["price"])
	assert.Equal(t, "₹120.00", first["price_display"])

	code, body = h.do(t, http.MethodGet, "/api/v1/stops", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["stops"], 4)

	code, body = h.do(t, http.MethodGet, "/api/v1/trips", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["trips"], 3)
}

func TestOrderFlow(t *testing.T) {
	h := newHarness(t, nil)
	const cartPath = "/api/v1/carts/s1"

	code, _ := h.do(t, http.MethodPost, cartPath+"/items", gin.H{"item_id": "m1", "qty": 2})
	require.Equal(t, http.StatusCreated, code)

	code, body := h.do(t, http.MethodGet, cartPath, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "240.00", body["subtotal"])
	assert.Equal(t, "₹240.00", body["subtotal_display"])
	assert.Len(t, body["items"], 1)

	code, body = h.do(t, http.MethodPost, cartPath+"/orders", gin.H{
		"trip":  "TN01AB1234",
		"phone": "9999999999",
		"delivery": gin.H{
			"mode": "later",
			"stop": "Stop 3 - Bus Stand",
		},
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "₹252.00", body["total"])
	assert.Len(t, body["order_id"], 8)

	code, body = h.do(t, http.MethodGet, cartPath, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"], "cart is cleared after the order")

	code, body = h.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])
	row := body["orders"].([]any)[0].(map[string]any)
	assert.Equal(t, "TN01AB1234", row["bus_no"])
	assert.Equal(t, "12A", row["seat"])
	assert.Equal(t, "Eat Later (schedule at a later stop)", row["delivery_mode"])
	assert.Equal(t, "₹12.00", row["tax"])
	assert.Equal(t, "received", row["status"])
}

func TestAddItemRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{"zero qty", gin.H{"item_id": "m1", "qty": 0}},
		{"qty above ten", gin.H{"item_id": "m1", "qty": 11}},
		{"unknown item", gin.H{"item_id": "m9", "qty": 1}},
		{"missing item", gin.H{"qty": 1}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := h.do(t, http.MethodPost, "/api/v1/carts/s1/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["error"])
		})
	}

	c, err := h.carts.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestPlaceOrderErrors(t *testing.T) {
	valid := gin.H{"bus_no": "KA05CD5678", "seat": "7B", "phone": "9876543210"}

	tests := []struct {
		name     string
		fillCart bool
		body     any
		code     int
		message  string
	}{
		{"empty cart", false, valid, http.StatusUnprocessableEntity, "your cart is empty, add items before placing an order"},
		{"missing phone", true, gin.H{"bus_no": "KA05CD5678", "seat": "7B"}, http.StatusUnprocessableEntity, "please fill phone"},
		{"unknown trip", true, gin.H{"trip": "XX00", "phone": "1"}, http.StatusBadRequest, ""},
		{"unknown mode", true, gin.H{"phone": "1", "bus_no": "b", "seat": "s", "delivery": gin.H{"mode": "someday"}}, http.StatusBadRequest, ""},
		{"unknown stop", true, gin.H{"phone": "1", "bus_no": "b", "seat": "s", "delivery": gin.H{"mode": "later", "stop": "Stop 9"}}, http.StatusBadRequest, ""},
		{"bad date", true, gin.H{"phone": "1", "bus_no": "b", "seat": "s", "delivery": gin.H{"mode": "tomorrow", "date": "27/11/2025"}}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			if tt.fillCart {
				code, _ := h.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"item_id": "m4", "qty": 1})
				require.Equal(t, http.StatusCreated, code)
			}

			code, body := h.do(t, http.MethodPost, "/api/v1/carts/s1/orders", tt.body)
			assert.Equal(t, tt.code, code)
			if tt.message != "" {
				assert.Contains(t, body["error"], tt.message)
			}

			_, hist := h.do(t, http.MethodGet, "/api/v1/orders", nil)
			assert.Equal(t, float64(0), hist["total"])
		})
	}
}

func TestPlaceOrderStoreFailureKeepsCart(t *testing.T) {
	h := newHarness(t, failingAppender{})

	code, _ := h.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"item_id": "m2", "qty": 1})
	require.Equal(t, http.StatusCreated, code)

	code, body := h.do(t, http.MethodPost, "/api/v1/carts/s1/orders",
		gin.H{"bus_no": "AP09EF9012", "seat": "3C", "phone": "9000000000"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["error"], "disk full")

	_, body = h.do(t, http.MethodGet, "/api/v1/carts/s1", nil)
	assert.Len(t, body["items"], 1)
}

func TestClearCart(t *testing.T) {
	h := newHarness(t, nil)

	code, _ := h.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"item_id": "m5", "qty": 3})
	require.Equal(t, http.StatusCreated, code)

	code, _ = h.do(t, http.MethodDelete, "/api/v1/carts/s1", nil)
	assert.Equal(t, http.StatusOK, code)

	_, body := h.do(t, http.MethodGet, "/api/v1/carts/s1", nil)
	assert.Empty(t, body["items"])
	assert.Equal(t, "0.00", body["subtotal"])
}

func TestScheduleDefaults(t *testing.T) {
	h := newHarness(t, nil)

	now, err := h.gw.schedule(deliveryRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.DeliverNow(), now)

	later, err := h.gw.schedule(deliveryRequest{Mode: "Eat Later (schedule at a later stop)", Stop: "Stop 1 - Highway Junction"})
	require.NoError(t, err)
	assert.Equal(t, models.TimeOfDay{Hour: 23}, later.At)

	tomorrow, err := h.gw.schedule(deliveryRequest{Mode: "tomorrow", DropPoint: "Depot"})
	require.NoError(t, err)
	assert.Equal(t, "2025-11-27", tomorrow.Date.Format(models.DateLayout))
	assert.Equal(t, "Depot", tomorrow.Stop)

	explicit, err := h.gw.schedule(deliveryRequest{Mode: "tomorrow", Date: "2025-12-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", explicit.Date.Format(models.DateLayout))
}

func TestPlaceOrderClearsCartWhenSaveFails(t *testing.T) {
	tests := []struct {
		name        string
		failDelete  bool
		wantWarning bool
		wantLines   int
	}{
		{"delete fallback", false, false, 0},
		{"cart left behind", true, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarnessWithCarts(t, nil, func(m *cart.MemoryStore) cart.Store {
				return &flakyCarts{MemoryStore: m, failSave: true, failDelete: tt.failDelete}
			})

			code, _ := h.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"item_id": "m3", "qty": 1})
			require.Equal(t, http.StatusCreated, code)

			code, body := h.do(t, http.MethodPost, "/api/v1/carts/s1/orders",
				gin.H{"bus_no": "AP09EF9012", "seat": "3C", "phone": "9000000000"})
			require.Equal(t, http.StatusCreated, code)
			assert.NotEmpty(t, body["order_id"])
			_, hasWarning := body["warning"]
			assert.Equal(t, tt.wantWarning, hasWarning)

			stored, err := h.carts.Load(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, stored.Len())
		})
	}
}

func TestOrderStats(t *testing.T) {
	h := newHarness(t, nil)

	for _, item := range []string{"m1", "m1", "m4"} {
		code, _ := h.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"item_id": item, "qty": 1})
		require.Equal(t, http.StatusCreated, code)
	}
	code, _ := h.do(t, http.MethodPost, "/api/v1/carts/s1/orders",
		gin.H{"trip": "KA05CD5678", "phone": "9876543210"})
	require.Equal(t, http.StatusCreated, code)

	code, body := h.do(t, http.MethodGet, "/api/v1/orders/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["orders"])
	assert.Equal(t, float64(1), body["pending"])
	items := body["popular_items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "Veg Biryani", items[0].(map[string]any)["name"])
	assert.Equal(t, float64(2), items[0].(map[string]any)["lines"])

	_, body = h.do(t, http.MethodGet, "/api/v1/orders/stats?top=1", nil)
	assert.Len(t, body["popular_items"], 1)

	code, _ = h.do(t, http.MethodGet, "/api/v1/orders/stats?top=-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
