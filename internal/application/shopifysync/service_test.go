package shopifysync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/application/shopifysync"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/memory"
)

const org = "org-1"

type fakeShopify struct {
	mu        sync.Mutex
	levels    map[string]int
	variants  []string
	products  []string
	swatches  []string
	events    []string
	fulfilled []ports.ShopifyFulfillmentInput
	failLevel error
}

func newFakeShopify() *fakeShopify { return &fakeShopify{levels: map[string]int{}} }

func (f *fakeShopify) CreateProduct(_ context.Context, in ports.ShopifyProductInput) (*ports.ShopifyVariantRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, in.SKU)
	return &ports.ShopifyVariantRef{ProductID: "gid://shopify/Product/9", VariantID: "v-" + in.SKU, InventoryItemID: "ii-" + in.SKU}, nil
}

func (f *fakeShopify) CreateVariant(_ context.Context, productID string, in ports.ShopifyVariantInput) (*ports.ShopifyVariantRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants = append(f.variants, productID+"|"+in.OptionValue)
	return &ports.ShopifyVariantRef{ProductID: productID, VariantID: "v-" + in.SKU, InventoryItemID: "ii-" + in.SKU}, nil
}

func (f *fakeShopify) SetInventoryLevel(_ context.Context, itemID, _ string, available int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLevel != nil {
		return f.failLevel
	}
	f.levels[itemID] = available
	return nil
}

func (f *fakeShopify) FulfillmentOrders(context.Context, string) ([]ports.ShopifyFulfillmentOrder, error) {
	return []ports.ShopifyFulfillmentOrder{{ID: "1", Status: "open"}, {ID: "2", Status: "closed"}}, nil
}

func (f *fakeShopify) CreateFulfillment(_ context.Context, in ports.ShopifyFulfillmentInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fulfilled = append(f.fulfilled, in)
	return "F-1", nil
}

func (f *fakeShopify) CreateFulfillmentEvent(_ context.Context, orderID, fulfillmentID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, orderID+"|"+fulfillmentID+"|"+status)
	return nil
}

func (f *fakeShopify) SetColorSwatch(_ context.Context, productID, color string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swatches = append(f.swatches, productID+"|"+color)
	return nil
}

type fixture struct {
	store *memory.Store
	repos repository.Repos
	api   *fakeShopify
	calls int
	svc   *shopifysync.Service
}

func newFixture(t *testing.T, configured bool) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), api: newFakeShopify()}
	f.repos = f.store.Repos()
	if configured {
		f.store.PutSettings(entity.ShopifySettings{OrganizationID: org, Enabled: true, ShopDomain: "x.myshopify.com", AccessToken: "t", LocationID: "1"})
	}
	factory := func(*entity.ShopifySettings) ports.ShopifyAPI {
		f.calls++
		return f.api
	}
	f.svc = shopifysync.NewService(f.repos, factory, zerolog.Nop(),
		shopifysync.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return f
}

func (f *fixture) product(t *testing.T, id, sku string) *entity.Product {
	t.Helper()
	p := &entity.Product{ID: id, OrganizationID: org, SKU: sku, Name: "Paleta " + sku, Color: "rojo", Price: decimal.NewFromInt(100)}
	require.NoError(t, f.repos.Products.Create(context.Background(), p))
	return p
}

func (f *fixture) units(t *testing.T, productID string, statuses ...entity.UnitStatus) {
	t.Helper()
	var list []*entity.Unit
	for i, st := range statuses {
		list = append(list, &entity.Unit{
			ID: productID + "-u" + string(rune('a'+i)), OrganizationID: org, ProductID: productID,
			QRCode: "QRCD" + string(rune('A'+i)) + productID, Status: st, CreatedAt: time.Now(),
		})
	}
	require.NoError(t, f.repos.Units.InsertBatch(context.Background(), list))
}

func (f *fixture) mapping(t *testing.T, productID string) {
	t.Helper()
	require.NoError(t, f.repos.Shopify.SaveMapping(context.Background(), &entity.ShopifyProductMapping{
		ID: "m-" + productID, OrganizationID: org, ProductID: productID,
		ShopifyProductID: "gid://shopify/Product/1", ShopifyVariantID: "v1", ShopifyInventoryItemID: "ii-" + productID,
	}))
}

func TestSyncInventory_UnconfiguredIsSkipped(t *testing.T) {
	f := newFixture(t, false)
	f.product(t, "p1", "SKU1")

	res := f.svc.SyncInventoryForProduct(context.Background(), org, "p1")

	assert.Equal(t, entity.SyncSkipped, res.Status)
	assert.Equal(t, 0, f.calls)
}

func TestCalculateAvailableQuantity_CountsOnlyReceived(t *testing.T) {
	f := newFixture(t, true)
	f.product(t, "p1", "SKU1")
	f.units(t, "p1", entity.UnitReceived, entity.UnitReceived, entity.UnitSold)

	n, err := f.svc.CalculateAvailableQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAvailability_OtraOrganizacionEsNoEncontrado(t *testing.T) {
	f := newFixture(t, false)
	f.product(t, "p1", "SKU1")
	f.units(t, "p1", entity.UnitReceived, entity.UnitAllocated)

	got, err := f.svc.Availability(context.Background(), org, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)
	assert.Equal(t, "SKU1", got.SKU)

	_, err = f.svc.Availability(context.Background(), "org-2", "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncInventory_SetsLevelAndRecordsMapping(t *testing.T) {
	f := newFixture(t, true)
	f.product(t, "p1", "SKU1")
	f.units(t, "p1", entity.UnitReceived, entity.UnitReceived, entity.UnitSold, entity.UnitAllocated)
	f.mapping(t, "p1")

	res := f.svc.SyncInventoryForProduct(context.Background(), org, "p1")

	assert.Equal(t, entity.SyncSynced, res.Status)
	assert.Equal(t, 2, res.Available)
	assert.Equal(t, 2, f.api.levels["ii-p1"])
	m, err := f.repos.Shopify.GetMapping(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, m.LastSyncStatus)
	assert.NotNil(t, m.LastSyncedAt)
}

func TestSyncInventory_ErrorIsRecordedNotReturned(t *testing.T) {
	f := newFixture(t, true)
	f.product(t, "p1", "SKU1")
	f.mapping(t, "p1")
	f.api.failLevel = errors.New("boom")

	res := f.svc.SyncInventoryForProduct(context.Background(), org, "p1")

	assert.Equal(t, entity.SyncError, res.Status)
	m, err := f.repos.Shopify.GetMapping(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.SyncError, m.LastSyncStatus)
	assert.Equal(t, "boom", m.LastSyncError)
}

func TestSyncInventory_SinMapeoEsError(t *testing.T) {
	f := newFixture(t, true)
	f.product(t, "p1", "SKU1")

	res := f.svc.SyncInventoryForProduct(context.Background(), org, "p1")
	assert.Equal(t, entity.SyncError, res.Status)
	assert.NotEmpty(t, res.Message)
	assert.Zero(t, f.calls)
}

func TestSyncInventory_MapeoSinInventoryItemRegistraError(t *testing.T) {
	f := newFixture(t, true)
	f.product(t, "p1", "SKU1")
	require.NoError(t, f.repos.Shopify.SaveMapping(context.Background(), &entity.ShopifyProductMapping{
		ID: "m-p1", OrganizationID: org, ProductID: "p1", ShopifyProductID: "gid://shopify/Product/1",
	}))

	res := f.svc.SyncInventoryForProduct(context.Background(), org, "p1")

	assert.Equal(t, entity.SyncError, res.Status)
	assert.Contains(t, res.Message, "inventory item")
	assert.Empty(t, f.api.levels)
	m, err := f.repos.Shopify.GetMapping(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, entity.SyncError, m.LastSyncStatus)
	assert.Equal(t, res.Message, m.LastSyncError)
	assert.NotNil(t, m.LastSyncedAt)
}

func TestSyncInventory_SinUbicacionRegistraError(t *testing.T) {
	f := newFixture(t, false)
	f.store.PutSettings(entity.ShopifySettings{OrganizationID: org, Enabled: true, ShopDomain: "x.myshopify.com", AccessToken: "t"})
	f.product(t, "p2", "SKU2")
	f.mapping(t, "p2")

	res := f.svc.SyncInventoryForProduct(context.Background(), org, "p2")

	assert.Equal(t, entity.SyncError, res.Status)
	assert.Contains(t, res.Message, "location id")
	assert.Empty(t, f.api.levels, "no se llama a Shopify con ubicación vacía")
	m, err := f.repos.Shopify.GetMapping(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, entity.SyncError, m.LastSyncStatus)
	assert.Equal(t, res.Message, m.LastSyncError)
}

func TestSyncInventoryBatch_PausesBetweenProducts(t *testing.T) {
	f := newFixture(t, true)
	var waits int
	svc := shopifysync.NewService(f.repos, func(*entity.ShopifySettings) ports.ShopifyAPI { return f.api }, zerolog.Nop(),
		shopifysync.WithBatchDelay(time.Second),
		shopifysync.WithSleep(func(_ context.Context, d time.Duration) error {
			assert.Equal(t, time.Second, d)
			waits++
			return nil
		}))
	for _, id := range []string{"p1", "p2", "p3"} {
		f.product(t, id, "SKU-"+id)
		f.mapping(t, id)
	}

	results := svc.SyncInventoryBatch(context.Background(), org, []string{"p1", "p2", "p3"})

	assert.Len(t, results, 3)
	assert.Equal(t, 2, waits)
}

func TestSyncPackProduct_VariantUnderMappedBase(t *testing.T) {
	f := newFixture(t, true)
	base := f.product(t, "base", "PAL")
	f.mapping(t, "base")
	pack := entity.NewPackProduct("pack", base, 3, time.Now())
	require.NoError(t, f.repos.Products.Create(context.Background(), pack))

	res := f.svc.SyncPackProduct(context.Background(), org, "pack")

	assert.Equal(t, entity.SyncSynced, res.Status)
	assert.Equal(t, []string{"gid://shopify/Product/1|Pack x3"}, f.api.variants)
	assert.Empty(t, f.api.products)
	assert.Empty(t, f.api.swatches)
	m, err := f.repos.Shopify.GetMapping(context.Background(), "pack")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "ii-PAL-P3", m.ShopifyInventoryItemID)

	again := f.svc.SyncPackProduct(context.Background(), org, "pack")
	assert.Equal(t, entity.SyncSkipped, again.Status)
	assert.Len(t, f.api.variants, 1)
}

func TestSyncPackProduct_NewProductGetsColorSwatch(t *testing.T) {
	f := newFixture(t, true)
	base := f.product(t, "base", "PAL")
	pack := entity.NewPackProduct("pack", base, 2, time.Now())
	require.NoError(t, f.repos.Products.Create(context.Background(), pack))

	res := f.svc.SyncPackProduct(context.Background(), org, "pack")

	assert.Equal(t, entity.SyncSynced, res.Status)
	assert.Equal(t, []string{"PAL-P2"}, f.api.products)
	assert.Equal(t, []string{"gid://shopify/Product/9|rojo"}, f.api.swatches)
}

func TestSyncFulfillment_ShippedThenDelivered(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.repos.Orders.Create(ctx, &entity.Order{ID: "o1", OrganizationID: org, ShopifyOrderID: "5001", Status: entity.OrderShipped}))
	require.NoError(t, f.repos.Deliveries.Create(ctx, &entity.Delivery{ID: "d1", OrganizationID: org, OrderID: "o1", Carrier: "Servientrega", TrackingNumber: "TRK"}))

	st, err := f.svc.SyncFulfillment(ctx, org, "o1", ports.FulfillmentShipped)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, st)
	require.Len(t, f.api.fulfilled, 1)
	assert.Equal(t, []string{"1"}, f.api.fulfilled[0].FulfillmentOrderIDs)
	assert.Equal(t, "TRK", f.api.fulfilled[0].TrackingNumber)

	st, err = f.svc.SyncFulfillment(ctx, org, "o1", ports.FulfillmentDelivered)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSynced, st)
	assert.Equal(t, []string{"5001|F-1|delivered"}, f.api.events)
}

func TestSyncFulfillment_LocalOrderSkipped(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.repos.Orders.Create(context.Background(), &entity.Order{ID: "o1", OrganizationID: org, Status: entity.OrderShipped}))

	st, err := f.svc.SyncFulfillment(context.Background(), org, "o1", ports.FulfillmentShipped)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSkipped, st)
}
