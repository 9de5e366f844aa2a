package shipment_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports/portstest"
	"github.com/onlyperf/warehouse-api/internal/application/shipment"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/memory"
)

const org = "org-1"

type fixture struct {
	store *memory.Store
	repos repository.Repos
	sched *portstest.Scheduler
	svc   *shipment.Service
}

func newFixture(t *testing.T, batchSize int) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), sched: &portstest.Scheduler{}}
	f.repos = f.store.Repos()
	codes := shipment.NewCodeAllocator(qrcode.NewGenerator())
	f.svc = shipment.NewService(memory.NewTxRunner(f.store), f.repos, codes, f.sched, batchSize, zerolog.Nop())
	return f
}

func (f *fixture) product(t *testing.T, id, sku string, packable bool) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID: id, OrganizationID: org, SKU: sku, Name: "Pelota " + sku,
		Price: decimal.NewFromInt(20), Packable: packable, WarrantyMonths: 6,
	}
	require.NoError(t, f.repos.Products.Create(context.Background(), p))
	return p
}

func TestCreateShipment_UnidadesConQRUnico(t *testing.T) {
	f := newFixture(t, 0)
	f.product(t, "p1", "PAL-1", false)
	f.product(t, "p2", "PAL-2", false)

	resp, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items: []dto.ShipmentLineRequest{
			{ProductID: "p1", Quantity: 30},
			{ProductID: "p2", Quantity: 20},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 50, resp.TotalUnits)
	assert.Equal(t, string(entity.ShipmentPending), resp.Status)
	require.Len(t, resp.Units, 50)
	seen := map[string]bool{}
	for _, u := range resp.Units {
		assert.True(t, qrcode.Valid(u.QRCode), u.QRCode)
		assert.False(t, seen[u.QRCode], "código repetido %s", u.QRCode)
		seen[u.QRCode] = true
		assert.Equal(t, string(entity.UnitPending), u.Status)
	}
	assert.Equal(t, 50, f.store.CountUnits())

	stored, err := f.repos.Units.GetByCode(context.Background(), resp.Units[0].QRCode)
	require.NoError(t, err)
	assert.Equal(t, entity.SourceShipment, stored.SourceType)
	assert.Equal(t, 6, stored.WarrantyMonths)
}

func TestCreateShipment_InsertaPorBloques(t *testing.T) {
	f := newFixture(t, 4)
	f.product(t, "p1", "PAL-1", false)

	_, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", Quantity: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 2}, f.store.UnitBatchSizes)
}

func TestCreateShipment_FalloEnBloqueNoDejaFilas(t *testing.T) {
	f := newFixture(t, 4)
	f.product(t, "p1", "PAL-1", false)
	f.store.FailUnitBatch = 2

	_, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", Quantity: 10}},
	})
	require.Error(t, err)
	assert.Zero(t, f.store.CountUnits())
	assert.Zero(t, f.store.CountShipments())
}

func TestCreateShipment_PackNoDivisibleNoEscribeNada(t *testing.T) {
	f := newFixture(t, 0)
	f.product(t, "p1", "BOL-1", true)
	f.product(t, "p2", "PAL-2", false)
	before := f.store.CountProducts()

	_, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items: []dto.ShipmentLineRequest{
			{ProductID: "p2", Quantity: 5},
			{ProductID: "p1", PackSize: 3, TotalUnits: 10},
		},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "Pelota BOL-1")
	assert.Contains(t, verr.Message, "10")
	assert.Contains(t, verr.Message, "3")
	assert.Zero(t, f.store.CountUnits())
	assert.Zero(t, f.store.CountShipments())
	assert.Equal(t, before, f.store.CountProducts())
}

func TestCreateShipment_PackCreaUnidadesDelProductoPack(t *testing.T) {
	f := newFixture(t, 0)
	f.product(t, "p1", "BOL-1", true)

	resp, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", PackSize: 3, TotalUnits: 12}},
	})
	require.NoError(t, err)

	require.Len(t, resp.PackProducts, 1)
	pack := resp.PackProducts[0]
	assert.True(t, pack.Created)
	assert.Equal(t, "BOL-1-P3", pack.SKU)
	assert.Equal(t, "Pelota BOL-1 (Pack x3)", pack.Name)
	assert.Equal(t, 4, resp.TotalUnits)
	for _, u := range resp.Units {
		assert.Equal(t, pack.ProductID, u.ProductID)
	}
	assert.Equal(t, []string{pack.ProductID}, f.sched.Packs)

	// un segundo envío reutiliza el pack y no vuelve a sincronizarlo
	resp2, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", PackSize: 3, TotalUnits: 3}},
	})
	require.NoError(t, err)
	require.Len(t, resp2.PackProducts, 1)
	assert.False(t, resp2.PackProducts[0].Created)
	assert.Equal(t, pack.ProductID, resp2.PackProducts[0].ProductID)
	assert.Len(t, f.sched.Packs, 1)
}

func TestCreateShipment_FalloNoDejaProductoPackHuerfano(t *testing.T) {
	f := newFixture(t, 0)
	f.product(t, "p1", "BOL-1", true)
	before := f.store.CountProducts()
	f.store.FailUnitBatch = 1
	req := dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", PackSize: 3, TotalUnits: 9}},
	}

	_, err := f.svc.CreateShipment(context.Background(), org, "u1", req)
	require.Error(t, err)
	assert.Equal(t, before, f.store.CountProducts(), "el pack se revierte con el envío")
	assert.Zero(t, f.store.CountShipments())
	assert.Empty(t, f.sched.Packs)

	// el reintento crea el pack y lo agenda para Shopify
	f.store.FailUnitBatch = 0
	resp, err := f.svc.CreateShipment(context.Background(), org, "u1", req)
	require.NoError(t, err)
	require.Len(t, resp.PackProducts, 1)
	assert.True(t, resp.PackProducts[0].Created)
	assert.Equal(t, []string{resp.PackProducts[0].ProductID}, f.sched.Packs)
	assert.Equal(t, before+1, f.store.CountProducts())
	assert.Equal(t, 3, resp.TotalUnits)
}

func TestCreateShipment_Validaciones(t *testing.T) {
	f := newFixture(t, 0)
	f.product(t, "p1", "PAL-1", false)

	cases := []struct {
		name string
		in   dto.CreateShipmentRequest
		want error
	}{
		{"sin proveedor", dto.CreateShipmentRequest{Items: []dto.ShipmentLineRequest{{ProductID: "p1", Quantity: 1}}}, domain.ErrInvalidInput},
		{"sin líneas", dto.CreateShipmentRequest{ProviderName: "X"}, domain.ErrInvalidInput},
		{"cantidad cero", dto.CreateShipmentRequest{ProviderName: "X", Items: []dto.ShipmentLineRequest{{ProductID: "p1"}}}, domain.ErrInvalidInput},
		{"pack en producto no packable", dto.CreateShipmentRequest{ProviderName: "X", Items: []dto.ShipmentLineRequest{{ProductID: "p1", PackSize: 2, TotalUnits: 4}}}, domain.ErrInvalidInput},
		{"producto inexistente", dto.CreateShipmentRequest{ProviderName: "X", Items: []dto.ShipmentLineRequest{{ProductID: "nope", Quantity: 1}}}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateShipment(context.Background(), org, "u1", tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, f.store.CountShipments())
}

func TestPackResolver_ConcurrenteDevuelveLaMismaFila(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	base := &entity.Product{ID: "p1", OrganizationID: org, SKU: "BOL-1", Name: "Bolsa", Packable: true, Price: decimal.NewFromInt(10)}
	require.NoError(t, repos.Products.Create(context.Background(), base))
	resolver := shipment.NewPackResolver(repos.Products)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]bool{}
		created int
		errs    []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			rp, err := resolver.Resolve(context.Background(), base, 4)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[rp.Product.ID] = true
			if rp.Created {
				created++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, errs)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, store.CountProducts())
}

func TestPackResolver_BaseQueYaEsPack(t *testing.T) {
	store := memory.NewStore()
	baseID, size := "p0", 2
	pack := &entity.Product{ID: "p1", OrganizationID: org, SKU: "X-P2", BaseProductID: &baseID, PackSize: &size}
	_, err := shipment.NewPackResolver(store.Repos().Products).Resolve(context.Background(), pack, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCodeAllocator_ReemplazaCodigosPersistidos(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	// la primera generación de esta fuente queda persistida antes de asignar
	first, err := qrcode.NewGeneratorWithSource(rand.NewPCG(7, 7)).GenerateBatch(5, nil)
	require.NoError(t, err)
	var units []*entity.Unit
	for i, c := range first {
		units = append(units, &entity.Unit{ID: "u" + c, OrganizationID: org, ProductID: "p", QRCode: c, Status: entity.UnitReceived, CreatedAt: time.Now().Add(time.Duration(i))})
	}
	require.NoError(t, repos.Units.InsertBatch(context.Background(), units))

	alloc := shipment.NewCodeAllocator(qrcode.NewGeneratorWithSource(rand.NewPCG(7, 7)))
	codes, err := alloc.Allocate(context.Background(), repos.Units, 5)
	require.NoError(t, err)

	existing, err := repos.Units.ExistingCodes(context.Background(), codes)
	require.NoError(t, err)
	assert.Empty(t, existing)
	assert.Len(t, codes, 5)
}

func TestGetAndCloseShipment(t *testing.T) {
	f := newFixture(t, 0)
	f.product(t, "p1", "PAL-1", false)
	resp, err := f.svc.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	got, err := f.svc.GetShipment(context.Background(), org, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pending": 2}, got.StatusCounts)

	_, err = f.svc.CloseShipment(context.Background(), org, resp.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.GetShipment(context.Background(), "otra-org", resp.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
