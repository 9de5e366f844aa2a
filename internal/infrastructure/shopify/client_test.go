package shopify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/shopify"
)

type sleepRecorder struct{ waits []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newClient(t *testing.T, h http.HandlerFunc) (*shopify.Client, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rec := &sleepRecorder{}
	c := shopify.NewClient(shopify.Config{
		AccessToken: "tok",
		LocationID:  "77",
		BaseURL:     srv.URL,
		RetryBase:   100 * time.Millisecond,
		Sleep:       rec.sleep,
	})
	return c, rec
}

func TestClient_RetriesOn429HonouringRetryAfter(t *testing.T) {
	var calls int32
	c, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Shopify-Access-Token"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"ok":true}}`)
	})

	var out struct{ OK bool }
	require.NoError(t, c.GraphQL(context.Background(), "{ ok }", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
}

func TestClient_ExhaustsRetriesWithQuadraticBackoff(t *testing.T) {
	var calls int32
	c, rec := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "down")
	})

	err := c.REST(context.Background(), http.MethodGet, "shop.json", nil, nil)
	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "down", apiErr.Body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 400 * time.Millisecond}, rec.waits)
}

func TestClient_NonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int32
	c, rec := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.REST(context.Background(), http.MethodGet, "shop.json", nil, nil)
	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.waits)
}

func TestClient_GraphQLErrorsBecomeAPIError(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"Throttled"},{"message":"otro"}]}`)
	})

	err := c.GraphQL(context.Background(), "{ shop { id } }", nil, nil)
	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, "Throttled; otro", apiErr.Body)
}

func TestClient_SetInventoryLevelSendsGIDs(t *testing.T) {
	var got map[string]any
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql.json", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"data":{"inventorySetQuantities":{"userErrors":[]}}}`)
	})

	require.NoError(t, c.SetInventoryLevel(context.Background(), "555", "", 4))

	input := got["variables"].(map[string]any)["input"].(map[string]any)
	q := input["quantities"].([]any)[0].(map[string]any)
	assert.Equal(t, "gid://shopify/InventoryItem/555", q["inventoryItemId"])
	assert.Equal(t, "gid://shopify/Location/77", q["locationId"])
	assert.EqualValues(t, 4, q["quantity"])
}

func TestClient_UserErrorsAre422(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"productVariantsBulkCreate":{"productVariants":[],"userErrors":[{"field":["variants","0","price"],"message":"inválido"}]}}}`)
	})

	_, err := c.CreateVariant(context.Background(), "10", ports.ShopifyVariantInput{OptionValue: "Pack x3", Price: decimal.NewFromInt(1)})
	var apiErr *shopify.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "variants.0.price")
}

func TestClient_CreateFulfillmentREST(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fulfillments.json", r.URL.Path)
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		lines := body["fulfillment"]["line_items_by_fulfillment_order"].([]any)
		assert.Equal(t, "901", lines[0].(map[string]any)["fulfillment_order_id"])
		_, _ = io.WriteString(w, `{"fulfillment":{"id":4242}}`)
	})

	id, err := c.CreateFulfillment(context.Background(), ports.ShopifyFulfillmentInput{
		FulfillmentOrderIDs: []string{"gid://shopify/FulfillmentOrder/901"},
		TrackingNumber:      "TRK1",
	})
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
}

func TestGIDAndLegacyID(t *testing.T) {
	assert.Equal(t, "gid://shopify/Product/12", shopify.GID("Product", "12"))
	assert.Equal(t, "gid://shopify/Product/12", shopify.GID("Product", "gid://shopify/Product/12"))
	assert.Equal(t, "12", shopify.LegacyID("gid://shopify/Product/12"))
	assert.Equal(t, "12", shopify.LegacyID("12"))
}

func TestHandle(t *testing.T) {
	assert.Equal(t, "paleta-bullpadel-vertex-pack-x3", shopify.Handle("Paleta Bullpadel Vértex (Pack x3)"))
	assert.Equal(t, "pelota-nino", shopify.Handle("  Pelota Niño!! "))
}
