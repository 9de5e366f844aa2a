package portal_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/portal"
)

func TestNotifier_SendsSecretAndEvent(t *testing.T) {
	var got dto.WarehouseSyncEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s3cret", r.Header.Get(portal.SecretHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"success":true,"productUnitId":"u1"}`)
	}))
	defer srv.Close()

	n := portal.NewNotifier(srv.URL, "s3cret")
	err := n.Notify(context.Background(), dto.WarehouseSyncEvent{
		Event: dto.EventProductSold,
		Data:  dto.WarehouseSyncData{QRCode: "ABCD1234", WarrantyMonths: 12},
	})

	require.NoError(t, err)
	assert.Equal(t, dto.EventProductSold, got.Event)
	assert.Equal(t, "ABCD1234", got.Data.QRCode)
	assert.Equal(t, 12, got.Data.WarrantyMonths)
}

func TestNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"error":"unauthorized"}`)
	}))
	defer srv.Close()

	err := portal.NewNotifier(srv.URL, "bad").Notify(context.Background(), dto.WarehouseSyncEvent{Event: dto.EventProductReturned})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewNotifier_EmptyURLDisables(t *testing.T) {
	assert.Nil(t, portal.NewNotifier("", "x"))
}
