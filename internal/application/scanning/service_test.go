package scanning_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/order"
	"github.com/onlyperf/warehouse-api/internal/application/ports/portstest"
	"github.com/onlyperf/warehouse-api/internal/application/scanning"
	"github.com/onlyperf/warehouse-api/internal/application/shipment"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/memory"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/session"
)

const org = "org-1"

type fixture struct {
	store    *memory.Store
	repos    repository.Repos
	sched    *portstest.Scheduler
	svc      *scanning.Service
	shipment *shipment.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), sched: &portstest.Scheduler{}}
	f.repos = f.store.Repos()
	tx := memory.NewTxRunner(f.store)
	f.svc = scanning.NewService(tx, f.repos, f.sched, zerolog.Nop())
	f.shipment = shipment.NewService(tx, f.repos, shipment.NewCodeAllocator(qrcode.NewGenerator()), f.sched, 0, zerolog.Nop())
	require.NoError(t, f.repos.Products.Create(context.Background(), &entity.Product{
		ID: "p1", OrganizationID: org, SKU: "PAL-1", Name: "Paleta Pro", Price: decimal.NewFromInt(300), WarrantyMonths: 12,
	}))
	return f
}

func (f *fixture) shipmentWith(t *testing.T, n int) *dto.ShipmentResponse {
	t.Helper()
	resp, err := f.shipment.CreateShipment(context.Background(), org, "u1", dto.CreateShipmentRequest{
		ProviderName: "Proveedor SA",
		Items:        []dto.ShipmentLineRequest{{ProductID: "p1", Quantity: n}},
	})
	require.NoError(t, err)
	return resp
}

func TestFlujoCompleto_EnvioRecibidoSoloTrasLaUltimaUnidad(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 3)

	for i, u := range sh.Units {
		res, err := f.svc.Receive(context.Background(), org, "bodeguero", dto.ReceiveRequest{Code: u.QRCode, StorageLocation: "A-1"})
		require.NoError(t, err)
		assert.Equal(t, string(entity.UnitReceived), res.Unit.Status)
		assert.Equal(t, "A-1", res.Unit.StorageLocation)
		assert.Equal(t, len(sh.Units)-i-1, res.PendingUnits)

		got, err := f.repos.Shipments.GetByID(context.Background(), sh.ID)
		require.NoError(t, err)
		if i < len(sh.Units)-1 {
			assert.Equal(t, entity.ShipmentPending, got.Status, "escaneo %d", i)
			assert.Nil(t, got.ReceivedAt)
		} else {
			assert.Equal(t, entity.ShipmentReceived, got.Status)
			assert.NotNil(t, got.ReceivedAt)
		}
	}
	assert.Equal(t, []string{"p1", "p1", "p1"}, f.sched.Inventory)
}

func TestReceive_DosVecesDevuelveYaRecibida(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 1)
	code := sh.Units[0].QRCode

	_, err := f.svc.Receive(context.Background(), org, "u1", dto.ReceiveRequest{Code: code})
	require.NoError(t, err)

	_, err = f.svc.Receive(context.Background(), org, "u1", dto.ReceiveRequest{Code: code})
	assert.ErrorIs(t, err, domain.ErrAlreadyReceived)
	var serr *domain.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "received", serr.Actual)
}

func TestReceive_CodigoEnMinusculasYEspacios(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 1)

	res, err := f.svc.Receive(context.Background(), org, "u1", dto.ReceiveRequest{Code: "  " + strings.ToLower(sh.Units[0].QRCode) + " "})
	require.NoError(t, err)
	assert.Equal(t, sh.Units[0].QRCode, res.Unit.QRCode)
}

func TestReceive_OtraOrganizacionNoEncuentra(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 1)

	_, err := f.svc.Receive(context.Background(), "org-2", "u1", dto.ReceiveRequest{Code: sh.Units[0].QRCode})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSell_PendienteNoDisponible(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 1)

	_, err := f.svc.Sell(context.Background(), org, "vendedor", dto.SellRequest{Code: sh.Units[0].QRCode})
	assert.ErrorIs(t, err, domain.ErrUnitNotAvailable)

	u, err := f.repos.Units.GetByCode(context.Background(), sh.Units[0].QRCode)
	require.NoError(t, err)
	assert.Equal(t, entity.UnitPending, u.Status)
	assert.Empty(t, f.sched.Events)
}

func TestSell_RecibidaSeVendeUnaSolaVez(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 1)
	code := sh.Units[0].QRCode
	_, err := f.svc.Receive(context.Background(), org, "u1", dto.ReceiveRequest{Code: code})
	require.NoError(t, err)

	res, err := f.svc.Sell(context.Background(), org, "vendedor", dto.SellRequest{Code: code})
	require.NoError(t, err)
	assert.Equal(t, string(entity.UnitSold), res.Status)
	require.NotNil(t, res.SoldAt)

	u, err := f.repos.Units.GetByCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "vendedor", u.SoldBy)
	assert.Equal(t, entity.WarrantyActive, u.WarrantyStatus)

	require.Len(t, f.sched.Events, 1)
	assert.Equal(t, dto.EventProductSold, f.sched.Events[0].Event)
	assert.Equal(t, code, f.sched.Events[0].Data.QRCode)
	assert.Equal(t, 12, f.sched.Events[0].Data.WarrantyMonths)

	_, err = f.svc.Sell(context.Background(), org, "vendedor", dto.SellRequest{Code: code})
	assert.ErrorIs(t, err, domain.ErrAlreadySold)
}

func TestSell_ReservadaParaPedidoNoSeVendeEnTienda(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh := f.shipmentWith(t, 1)
	code := sh.Units[0].QRCode
	_, err := f.svc.Receive(ctx, org, "u1", dto.ReceiveRequest{Code: code})
	require.NoError(t, err)

	orders := order.NewService(memory.NewTxRunner(f.store), f.repos, f.sched, zerolog.Nop())
	o, err := orders.ProcessOrder(ctx, org, "vendedor", dto.ProcessOrderRequest{
		Customer: dto.CustomerInput{Name: "Ana", Phone: "3001234567"},
		Items:    []dto.LineItem{{SKU: "PAL-1", Quantity: 1}},
		Mode:     dto.AllocationReserve,
	})
	require.NoError(t, err)

	u, err := f.repos.Units.GetByCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, entity.UnitAllocated, u.Status)

	_, err = f.svc.Sell(ctx, org, "cajero", dto.SellRequest{Code: code})
	require.ErrorIs(t, err, domain.ErrUnitNotAvailable)
	assert.Contains(t, err.Error(), o.ID)
	assert.Empty(t, f.sched.Events)

	u, err = f.repos.Units.GetByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, entity.UnitAllocated, u.Status)
	assert.Empty(t, u.SoldBy)

	// el pedido que la reservó la despacha sin problema
	done, err := orders.FulfillOrder(ctx, org, "bodeguero", o.ID, []string{code})
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderFulfilled), done.Status)
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 1)

	res, err := f.svc.Lookup(context.Background(), org, sh.Units[0].QRCode)
	require.NoError(t, err)
	assert.Equal(t, "Paleta Pro", res.ProductName)
	assert.Equal(t, "PAL-1", res.ProductSKU)

	_, err = f.svc.Lookup(context.Background(), org, "ZZZZ0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_ApplyValidaUnidadesYCompletaProducto(t *testing.T) {
	f := newFixture(t)
	sh := f.shipmentWith(t, 2)
	received := sh.Units[0].QRCode
	_, err := f.svc.Receive(context.Background(), org, "u1", dto.ReceiveRequest{Code: received})
	require.NoError(t, err)

	svc := scanning.NewSessionService(session.NewMemoryStore(), f.repos.Units)

	_, err = svc.Apply(context.Background(), org, "u1", entity.SessionPatch{
		Timestamp: time.Now().UnixMilli(),
		AddItems:  []entity.SessionItem{{QRCode: sh.Units[1].QRCode}},
	})
	assert.ErrorIs(t, err, domain.ErrUnitNotAvailable)

	_, err = svc.Apply(context.Background(), org, "u1", entity.SessionPatch{AddItems: []entity.SessionItem{{QRCode: "no-es-un-qr"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := svc.Apply(context.Background(), org, "u1", entity.SessionPatch{
		Fields:   map[string]string{"customer": "Ana"},
		AddItems: []entity.SessionItem{{QRCode: strings.ToLower(received)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, received, res.Items[0].QRCode)
	assert.Equal(t, "p1", res.Items[0].ProductID)
	assert.Equal(t, "Ana", res.Fields["customer"])

	got, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, res.Version, got.Version)

	require.NoError(t, svc.Clear(context.Background(), "u1"))
	got, err = svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}
