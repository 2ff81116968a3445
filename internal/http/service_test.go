package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/auth"
	"github.com/tuanvumaihuynh/pantry-sync/internal/barcode"
	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	pantryhttp "github.com/tuanvumaihuynh/pantry-sync/internal/http"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/apierr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/swagger"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository/memory"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/validator"
)

const secret = "test-secret"

type stubResolver struct {
	products map[string]barcode.Product
}

func (r stubResolver) Resolve(_ context.Context, code string) (barcode.Product, error) {
	p, ok := r.products[code]
	if !ok {
		return barcode.Product{}, barcode.ErrNotFound
	}
	return p, nil
}

type fakeCache struct {
	forgotten []string
}

func (c *fakeCache) Forget(_ context.Context, code string) (bool, error) {
	c.forgotten = append(c.forgotten, code)
	return true, nil
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newTestServer(t *testing.T, cache pantryhttp.BarcodeCache) *testServer {
	t.Helper()

	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	mdb := memory.New()
	storeCfg := config.Store{Driver: config.StoreDriverMemory, Timeout: time.Second}
	suggestCfg := config.Suggest{LowStockThreshold: 1, TargetStock: 2, ExpiringDays: 7}

	inventoryRepo := memory.NewInventoryItemRepository(mdb)
	shoppingRepo := memory.NewShoppingItemRepository(mdb)
	outboxRepo := memory.NewOutboxMsgRepository(mdb)
	resolver := stubResolver{products: map[string]barcode.Product{
		"3017620422003": {Barcode: "3017620422003", Name: "Nutella", Brand: "Ferrero", Category: "Spreads", Source: barcode.SourceOpenFoodFacts},
	}}

	inventorySvc := service.NewInventoryService(storeCfg, logger, mdb, v, inventoryRepo, outboxRepo, resolver)
	shoppingSvc := service.NewShoppingService(storeCfg, suggestCfg, logger, mdb, v, shoppingRepo, inventoryRepo, outboxRepo)

	svc := pantryhttp.New(
		config.HTTP{Swagger: true, CorsOrigins: []string{"http://localhost:3000"}},
		config.Auth{JWTSecret: secret},
		logger, mdb, inventorySvc, shoppingSvc, cache,
	)
	handler, err := svc.Handler()
	require.NoError(t, err)

	token, err := auth.GenerateToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	return &testServer{t: t, handler: handler, token: token}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			r = strings.NewReader(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(s.t, err)
			r = bytes.NewReader(b)
		}
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("Should answer health checks without a token", func(t *testing.T) {
		s.token = ""
		resp := s.do(http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.NotEmpty(t, resp.Header().Get("X-Correlation-ID"))
	})

	t.Run("Should reject requests without a valid token", func(t *testing.T) {
		s.token = ""
		resp := s.do(http.MethodGet, "/api/v1/inventory", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, apperr.UnauthorizedCode, decode[apierr.ErrorResponse](t, resp).Code)

		s.token = "not-a-jwt"
		resp = s.do(http.MethodGet, "/api/v1/inventory", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should isolate owners", func(t *testing.T) {
		alice, err := auth.GenerateToken(secret, "alice", time.Hour)
		require.NoError(t, err)
		s.token = alice
		created := decode[pantryhttp.InventoryItemResponse](t, s.do(http.MethodPost, "/api/v1/inventory", map[string]any{"name": "Tea"}))

		bob, err := auth.GenerateToken(secret, "bob", time.Hour)
		require.NoError(t, err)
		s.token = bob
		resp := s.do(http.MethodGet, "/api/v1/inventory/"+created.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, apperr.InventoryItemNotFoundCode, decode[apierr.ErrorResponse](t, resp).Code)
	})
}

func TestShoppingImportFlow(t *testing.T) {
	s := newTestServer(t, nil)
	expiry := model.DateOf(time.Now().UTC()).AddDays(2)

	resp := s.do(http.MethodPost, "/api/v1/inventory", map[string]any{
		"name": "Milk", "brand": "Acme", "category": "Dairy", "quantity": 2,
		"location": "Fridge", "expiry_date": expiry.String(),
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	milk := decode[pantryhttp.InventoryItemResponse](t, resp)
	require.NotNil(t, milk.Expiry)
	assert.Equal(t, "critical", string(milk.Expiry.Tier))

	resp = s.do(http.MethodPost, "/api/v1/shopping", map[string]any{
		"name": "milk", "brand": "ACME", "category": "dairy", "quantity": 3,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	entry := decode[model.ShoppingListItem](t, resp)
	assert.Equal(t, model.ShoppingSourceManual, entry.Source)

	resp = s.do(http.MethodPatch, "/api/v1/shopping/"+entry.ID.String(), map[string]any{"checked": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotNil(t, decode[model.ShoppingListItem](t, resp).CheckedAt)

	resp = s.do(http.MethodPost, "/api/v1/shopping/import", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[pantryhttp.ImportResponse](t, resp)
	assert.Equal(t, 1, result.ImportedCount)
	assert.Equal(t, []uuid.UUID{milk.ID}, result.MergedInventoryIDs)
	assert.Empty(t, result.Failures)

	got := decode[pantryhttp.InventoryItemResponse](t, s.do(http.MethodGet, "/api/v1/inventory/"+milk.ID.String(), nil))
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, "Fridge", got.Location)

	list := decode[[]model.ShoppingListItem](t, s.do(http.MethodGet, "/api/v1/shopping", nil))
	assert.Empty(t, list)

	resp = s.do(http.MethodPost, "/api/v1/shopping/import", nil)
	assert.Zero(t, decode[pantryhttp.ImportResponse](t, resp).ImportedCount)
}

func TestInventoryEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	item := decode[pantryhttp.InventoryItemResponse](t, s.do(http.MethodPost, "/api/v1/inventory", map[string]any{
		"name": "Eggs", "location": "Fridge", "notes": "free range", "quantity": 2,
	}))

	t.Run("Should clamp quantity adjustments", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/inventory/"+item.ID.String()+"/adjust", map[string]any{"delta": -100})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, 1, decode[pantryhttp.InventoryItemResponse](t, resp).Quantity)
	})

	t.Run("Should clear fields set to null", func(t *testing.T) {
		resp := s.do(http.MethodPatch, "/api/v1/inventory/"+item.ID.String(), `{"location": null, "brand": "Farm"}`)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		got := decode[pantryhttp.InventoryItemResponse](t, resp)
		assert.Empty(t, got.Location)
		assert.Equal(t, "Farm", got.Brand)
		assert.Equal(t, "free range", got.Notes)
	})

	t.Run("Should reject malformed ids and bodies", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/api/v1/inventory/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.ValidationErrorCode, decode[apierr.ErrorResponse](t, resp).Code)

		resp = s.do(http.MethodPost, "/api/v1/inventory", `{"name": "Eggs", "colour": "brown"}`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = s.do(http.MethodPost, "/api/v1/inventory", map[string]any{"name": "Eggs", "quantity": 0})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		require.NotNil(t, decode[apierr.ErrorResponse](t, resp).Details)
	})

	t.Run("Should require a name or barcode", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/inventory", map[string]any{"location": "Pantry"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.InventoryItemNameRequiredCode, decode[apierr.ErrorResponse](t, resp).Code)
	})

	t.Run("Should enrich from the barcode", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/inventory", map[string]any{"barcode": "3017620422003"})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		assert.Equal(t, "Nutella", decode[pantryhttp.InventoryItemResponse](t, resp).Name)
	})

	t.Run("Should report stats and expiring items", func(t *testing.T) {
		stats := decode[pantryhttp.InventoryStatsResponse](t, s.do(http.MethodGet, "/api/v1/inventory/stats", nil))
		assert.Equal(t, 2, stats.TotalItems)
		assert.Empty(t, stats.Locations)
		assert.Equal(t, 1, stats.ManuallyAddedCount)

		resp := s.do(http.MethodGet, "/api/v1/inventory/expiring?days=30", nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		summary := decode[pantryhttp.ExpiringSummaryResponse](t, resp)
		assert.Equal(t, 30, summary.Days)
		assert.Zero(t, summary.Total)

		resp = s.do(http.MethodGet, "/api/v1/inventory/expiring?days=soon", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should export CSV", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/api/v1/inventory/export", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")
		assert.True(t, strings.HasPrefix(resp.Body.String(), "Name,Barcode,Quantity"))
	})

	t.Run("Should delete once", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/inventory/"+item.ID.String(), nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/v1/inventory/"+item.ID.String(), nil).Code)
	})
}

func TestShoppingEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("Should delete idempotently", func(t *testing.T) {
		entry := decode[model.ShoppingListItem](t, s.do(http.MethodPost, "/api/v1/shopping", map[string]any{"name": "Bread"}))
		assert.Equal(t, 1, entry.Quantity)

		assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/shopping/"+entry.ID.String(), nil).Code)
		assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/shopping/"+entry.ID.String(), nil).Code)
	})

	t.Run("Should clear checked items", func(t *testing.T) {
		entry := decode[model.ShoppingListItem](t, s.do(http.MethodPost, "/api/v1/shopping", map[string]any{"name": "Jam"}))
		s.do(http.MethodPatch, "/api/v1/shopping/"+entry.ID.String(), map[string]any{"checked": true})
		s.do(http.MethodPost, "/api/v1/shopping", map[string]any{"name": "Butter"})

		unchecked := decode[[]model.ShoppingListItem](t, s.do(http.MethodGet, "/api/v1/shopping?include_checked=false", nil))
		require.Len(t, unchecked, 1)
		assert.Equal(t, "Butter", unchecked[0].Name)

		res := decode[pantryhttp.ClearCheckedResponse](t, s.do(http.MethodPost, "/api/v1/shopping/clear-checked", nil))
		assert.Equal(t, 1, res.Deleted)
	})

	t.Run("Should suggest low stock items once", func(t *testing.T) {
		s.do(http.MethodPost, "/api/v1/inventory", map[string]any{"name": "Rice", "quantity": 1})

		resp := s.do(http.MethodPost, "/api/v1/shopping/suggest", nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		suggested := decode[[]model.ShoppingListItem](t, resp)
		require.Len(t, suggested, 1)
		assert.Equal(t, model.ShoppingSourceSuggested, suggested[0].Source)

		resp = s.do(http.MethodPost, "/api/v1/shopping/suggest", map[string]any{"threshold": 1})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Empty(t, decode[[]model.ShoppingListItem](t, resp))
	})

	t.Run("Should add from inventory", func(t *testing.T) {
		inv := decode[pantryhttp.InventoryItemResponse](t, s.do(http.MethodPost, "/api/v1/inventory", map[string]any{"name": "Oats", "location": "Pantry"}))

		resp := s.do(http.MethodPost, "/api/v1/shopping/from-inventory/"+inv.ID.String(), nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		got := decode[model.ShoppingListItem](t, resp)
		assert.Equal(t, "Oats", got.Name)
		assert.Equal(t, "From inventory: Pantry", got.Notes)
	})
}

func TestExpiryAndBarcodeEndpoints(t *testing.T) {
	cache := &fakeCache{}
	s := newTestServer(t, cache)

	t.Run("Should classify an expiry date", func(t *testing.T) {
		d := model.DateOf(time.Now().UTC()).AddDays(7)
		resp := s.do(http.MethodPost, "/api/v1/expiry/classify", map[string]any{"expiry_date": d.String()})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var got struct {
			Tier  string `json:"tier"`
			Badge string `json:"badge"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, "warning", got.Tier)
		assert.Equal(t, "Expires in 7 days", got.Badge)

		resp = s.do(http.MethodPost, "/api/v1/expiry/classify", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should look up barcodes", func(t *testing.T) {
		found := decode[pantryhttp.BarcodeLookupResponse](t, s.do(http.MethodGet, "/api/v1/barcodes/3017620422003", nil))
		assert.True(t, found.Found)
		assert.Equal(t, "Nutella", found.Name)
		assert.Equal(t, barcode.SourceOpenFoodFacts, found.Source)

		missing := decode[pantryhttp.BarcodeLookupResponse](t, s.do(http.MethodGet, "/api/v1/barcodes/000000000", nil))
		assert.False(t, missing.Found)

		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/barcodes/12ab", nil).Code)
	})

	t.Run("Should forget cached barcodes", func(t *testing.T) {
		resp := s.do(http.MethodDelete, "/api/v1/barcodes/3017620422003/cache", nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.True(t, decode[pantryhttp.ForgetBarcodeResponse](t, resp).Removed)
		assert.Equal(t, []string{"3017620422003"}, cache.forgotten)
	})
}

func TestRoutesAreDocumented(t *testing.T) {
	s := newTestServer(t, &fakeCache{})

	doc, err := swagger.LoadContract(context.Background())
	require.NoError(t, err)

	routes, ok := s.handler.(chi.Routes)
	require.True(t, ok)

	err = chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/docs") || route == "/metrics" {
			return nil
		}

		path := strings.TrimSuffix(route, "/")
		item := doc.Paths.Value(path)
		if assert.NotNil(t, item, "undocumented path %s", path) {
			assert.NotNil(t, item.GetOperation(method), "undocumented operation %s %s", method, path)
		}
		return nil
	})
	require.NoError(t, err)
}
